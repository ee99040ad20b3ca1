package probe

import (
	"context"
	"os/exec"
	"runtime"
	"strings"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
)

// ServiceManager drives the system service manager for components that are
// not spawned directly, i.e. the datastore.
type ServiceManager interface {
	IsActive(ctx context.Context, name string) (bool, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
}

// commandRunner runs a service-manager command and returns its combined
// output. Injected so tests never touch the real manager.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

type execServiceManager struct {
	run    commandRunner
	goos   string
	logger logging.Logger
}

// NewServiceManager returns the platform service manager: systemctl on
// Linux, brew services on macOS.
func NewServiceManager(logger logging.Logger) ServiceManager {
	return &execServiceManager{
		run:    execCommandRunner,
		goos:   runtime.GOOS,
		logger: logger,
	}
}

func (m *execServiceManager) IsActive(ctx context.Context, name string) (bool, error) {
	if m.goos == "darwin" {
		output, err := m.run(ctx, "brew", "services", "info", name, "--json")
		if err != nil {
			return false, errors.NewDiscoveryError("brew services info failed", err).WithContext("service", name)
		}
		return strings.Contains(string(output), `"running": true`), nil
	}

	output, err := m.run(ctx, "systemctl", "is-active", name)
	// systemctl is-active exits non-zero for inactive units; the printed
	// state distinguishes "inactive" from a broken query.
	state := strings.TrimSpace(string(output))
	switch state {
	case "active":
		return true, nil
	case "inactive", "failed", "activating", "deactivating":
		return false, nil
	}
	if err != nil {
		return false, errors.NewDiscoveryError("systemctl is-active failed", err).WithContext("service", name)
	}
	return false, nil
}

func (m *execServiceManager) Start(ctx context.Context, name string) error {
	return m.invoke(ctx, name, "start")
}

func (m *execServiceManager) Stop(ctx context.Context, name string) error {
	return m.invoke(ctx, name, "stop")
}

func (m *execServiceManager) invoke(ctx context.Context, name, verb string) error {
	var output []byte
	var err error
	if m.goos == "darwin" {
		output, err = m.run(ctx, "brew", "services", verb, name)
	} else {
		output, err = m.run(ctx, "systemctl", verb, name)
	}
	if err != nil {
		return errors.NewProcessError("service manager "+verb+" failed", err).
			WithContext("service", name).
			WithContext("output", strings.TrimSpace(string(output)))
	}
	m.logger.Infof("Service manager %s succeeded, service: %s", verb, name)
	return nil
}
