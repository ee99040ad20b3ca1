package probe

import (
	"context"
	"os"
	"strings"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/registry"
)

// Prober determines whether a component is currently running and returns its
// process state. Probes are read-only; "not found" is the normal not-running
// result, not an error.
type Prober interface {
	Probe(ctx context.Context, component *registry.Component) (State, error)
}

// TableEntry is one row of the OS process table as seen by a probe.
type TableEntry struct {
	PID     int32
	Cmdline string
}

// ProcessTable abstracts the OS process table. The production implementation
// is gopsutil-backed; tests substitute a fixture.
type ProcessTable interface {
	// List returns every visible process with its command line.
	List(ctx context.Context) ([]TableEntry, error)
	// Snapshot returns the resource state of one PID. The bool reports
	// whether the process exists.
	Snapshot(ctx context.Context, pid int32, preferredPort int) (State, bool, error)
}

type processProbe struct {
	table  ProcessTable
	pids   *PIDTable
	svc    ServiceManager
	logger logging.Logger
}

// NewProcessProbe creates the standard prober: invocation-local PID registry
// first, command-line pattern match second, and for service-manager
// components a confirmation that the service manager reports the unit
// active, since the substring match alone is ambiguous for a system-level
// service.
func NewProcessProbe(table ProcessTable, pids *PIDTable, svc ServiceManager, logger logging.Logger) Prober {
	return &processProbe{
		table:  table,
		pids:   pids,
		svc:    svc,
		logger: logger,
	}
}

func (p *processProbe) Probe(ctx context.Context, component *registry.Component) (State, error) {
	if component == nil {
		return NotRunning(), errors.NewValidationError("component cannot be nil", nil)
	}

	state, found, err := p.locate(ctx, component)
	if err != nil {
		return NotRunning(), err
	}
	if !found {
		p.logger.Debugf("No process matches component, component: %s, pattern: %s", component.Name, component.MatchPattern)
		return NotRunning(), nil
	}

	if component.Stop == registry.StopMechanismServiceManager {
		active, err := p.svc.IsActive(ctx, component.ServiceName)
		if err != nil {
			return NotRunning(), errors.NewDiscoveryError("service manager query failed", err).WithContext("service", component.ServiceName)
		}
		if !active {
			p.logger.Debugf("Process matches but service manager reports inactive, component: %s, pid: %d", component.Name, state.PID)
			return NotRunning(), nil
		}
	}

	return state, nil
}

// locate resolves the component's process and snapshots it in one pass:
// recorded PID first, pattern scan as fallback. A recorded PID whose process
// is gone is forgotten.
func (p *processProbe) locate(ctx context.Context, component *registry.Component) (State, bool, error) {
	if recorded := p.pids.Lookup(component.Name); recorded != 0 {
		state, exists, err := p.table.Snapshot(ctx, recorded, component.Port)
		if err != nil {
			return NotRunning(), false, errors.NewDiscoveryError("failed to verify recorded process", err).WithContext("pid", recorded)
		}
		if exists {
			p.logger.Debugf("Probe resolved via PID registry, component: %s, pid: %d", component.Name, recorded)
			return state, true, nil
		}
		p.pids.Forget(component.Name)
	}

	entries, err := p.table.List(ctx)
	if err != nil {
		return NotRunning(), false, errors.NewDiscoveryError("failed to list processes", err)
	}

	self := int32(os.Getpid())
	for _, entry := range entries {
		if entry.PID == self {
			continue
		}
		if !MatchCmdline(entry.Cmdline, component.MatchPattern) {
			continue
		}
		state, exists, err := p.table.Snapshot(ctx, entry.PID, component.Port)
		if err != nil {
			return NotRunning(), false, errors.NewDiscoveryError("failed to read process state", err).WithContext("pid", entry.PID)
		}
		if !exists {
			// Exited between the scan and the snapshot.
			continue
		}
		return state, true, nil
	}
	return NotRunning(), false, nil
}

// MatchCmdline reports whether a process command line identifies a
// component. A plain substring match, as fragile as that is; the PID
// registry shields same-invocation checks from its false positives.
func MatchCmdline(cmdline, pattern string) bool {
	if pattern == "" {
		return false
	}
	return strings.Contains(cmdline, pattern)
}
