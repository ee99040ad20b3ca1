package status

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/probe"
	"github.com/juliencaulet/acm-control/pkg/registry"
)

// ShowType selects a datastore introspection view.
type ShowType string

const (
	ShowStatus      ShowType = "status"
	ShowDatabases   ShowType = "databases"
	ShowCollections ShowType = "collections"
	ShowUsers       ShowType = "users"
	ShowIndexes     ShowType = "indexes"
)

// ParseShowType validates a show sub-type argument.
func ParseShowType(s string) (ShowType, error) {
	switch ShowType(s) {
	case ShowStatus, ShowDatabases, ShowCollections, ShowUsers, ShowIndexes:
		return ShowType(s), nil
	default:
		return "", errors.NewValidationError(
			fmt.Sprintf("unknown show sub-type: %s", s), nil,
		).WithContext("known_subtypes", "status, databases, collections, users, indexes")
	}
}

// recentErrorWindow bounds how far back the datastore log is scanned for
// error lines.
const recentErrorWindow = 200

// Reporter formats human-readable status and detail output.
type Reporter struct {
	registry  *registry.Registry
	prober    probe.Prober
	inspector Inspector
	logger    logging.Logger
}

// NewReporter creates a Reporter. The inspector is only consulted for the
// datastore and only after its process probe reports running.
func NewReporter(reg *registry.Registry, prober probe.Prober, inspector Inspector, logger logging.Logger) *Reporter {
	return &Reporter{
		registry:  reg,
		prober:    prober,
		inspector: inspector,
		logger:    logger,
	}
}

// Detail writes the full report for one component. For a stopped component
// it writes a not-running report and returns a process error so the caller
// exits non-zero without any introspection query being issued.
func (r *Reporter) Detail(ctx context.Context, w io.Writer, name registry.ComponentName) error {
	component, err := r.registry.Component(name)
	if err != nil {
		return err
	}

	state, err := r.prober.Probe(ctx, component)
	if err != nil {
		return err
	}
	if !state.Running {
		RenderCheck(w, name, state, nil)
		return errors.NewProcessError(
			fmt.Sprintf("component %s is not running", name), nil)
	}

	r.writeProcessReport(w, name, state)

	if name == registry.ComponentDatastore {
		if err := r.writeDatastoreReport(ctx, w, component); err != nil {
			return err
		}
	}
	return nil
}

// Show writes one datastore introspection view. Only valid for the
// datastore; the dispatcher enforces that before calling.
func (r *Reporter) Show(ctx context.Context, w io.Writer, sub ShowType) error {
	component, err := r.registry.Component(registry.ComponentDatastore)
	if err != nil {
		return err
	}

	state, err := r.prober.Probe(ctx, component)
	if err != nil {
		return err
	}
	if !state.Running {
		RenderCheck(w, registry.ComponentDatastore, state, nil)
		return errors.NewProcessError("component datastore is not running", nil)
	}

	switch sub {
	case ShowStatus:
		r.writeProcessReport(w, registry.ComponentDatastore, state)
		return r.writeDatastoreReport(ctx, w, component)
	case ShowDatabases:
		return r.writeDatabases(ctx, w)
	case ShowCollections:
		return r.writeCollections(ctx, w)
	case ShowUsers:
		return r.writeUsers(ctx, w)
	case ShowIndexes:
		return r.writeIndexes(ctx, w)
	default:
		return errors.NewValidationError(fmt.Sprintf("unknown show sub-type: %s", sub), nil)
	}
}

func (r *Reporter) writeProcessReport(w io.Writer, name registry.ComponentName, state probe.State) {
	fmt.Fprintf(w, "%s %s\n", okStyle.Render(iconOK), name)
	fmt.Fprintf(w, "  pid:     %d\n", state.PID)
	fmt.Fprintf(w, "  memory:  %s\n", HumanizeBytes(state.MemoryRSS))
	fmt.Fprintf(w, "  cpu:     %.1f%%\n", state.CPUPercent)
	if !state.StartedAt.IsZero() {
		fmt.Fprintf(w, "  started: %s (up %s)\n",
			state.StartedAt.Format(time.RFC3339),
			time.Since(state.StartedAt).Round(time.Second))
	}
	if state.Port != 0 {
		fmt.Fprintf(w, "  port:    %d\n", state.Port)
	}
}

func (r *Reporter) writeDatastoreReport(ctx context.Context, w io.Writer, component *registry.Component) error {
	if err := r.inspector.Ping(ctx); err != nil {
		fmt.Fprintf(w, "%s datastore is reachable but not answering queries\n", warnStyle.Render(iconWarn))
		return err
	}

	version, err := r.inspector.ServerVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  version: %s\n", version)

	counts, err := r.inspector.Connections(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  connections: %d current, %d active\n", counts.Current, counts.Active)

	databases, err := r.inspector.Databases(ctx)
	if err != nil {
		return err
	}
	for _, db := range databases {
		fmt.Fprintf(w, "  db %-12s %d collections, %d objects, %s\n",
			db.Name, db.Collections, db.Objects, HumanizeBytes(db.StorageSize))
	}

	errorLines, err := RecentErrorLines(component.LogFile, recentErrorWindow)
	if err != nil {
		r.logger.Warnf("Failed to scan datastore log for errors, file: %s, error: %v", component.LogFile, err)
		return nil
	}
	if len(errorLines) > 0 {
		fmt.Fprintf(w, "  recent errors:\n")
		for _, line := range errorLines {
			fmt.Fprintf(w, "    %s\n", failStyle.Render(line))
		}
	}
	return nil
}

func (r *Reporter) writeDatabases(ctx context.Context, w io.Writer) error {
	databases, err := r.inspector.Databases(ctx)
	if err != nil {
		return err
	}
	for _, db := range databases {
		fmt.Fprintf(w, "%-16s %3d collections  %8d objects  %s\n",
			db.Name, db.Collections, db.Objects, HumanizeBytes(db.StorageSize))
	}
	return nil
}

func (r *Reporter) writeCollections(ctx context.Context, w io.Writer) error {
	collections, err := r.inspector.Collections(ctx)
	if err != nil {
		return err
	}
	for _, coll := range collections {
		fmt.Fprintf(w, "%s.%-24s %d documents\n", coll.Database, coll.Name, coll.Documents)
	}
	return nil
}

func (r *Reporter) writeUsers(ctx context.Context, w io.Writer) error {
	users, err := r.inspector.Users(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(w, "no users defined")
		return nil
	}
	for _, user := range users {
		fmt.Fprintf(w, "%-16s %s\n", user.User, strings.Join(user.Roles, ", "))
	}
	return nil
}

func (r *Reporter) writeIndexes(ctx context.Context, w io.Writer) error {
	indexes, err := r.inspector.Indexes(ctx)
	if err != nil {
		return err
	}
	for _, index := range indexes {
		fmt.Fprintf(w, "%s.%-24s %s\n", index.Database, index.Collection, index.Name)
	}
	return nil
}

// RecentErrorLines returns the error-severity lines among the last window
// lines of a datastore log. Handles both the structured JSON log format
// ("s":"E") and plain leveled lines.
func RecentErrorLines(path string, window int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewIOError("failed to open log file", err).WithContext("path", path)
	}
	defer f.Close()

	var recent []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		recent = append(recent, scanner.Text())
		if len(recent) > window {
			recent = recent[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.NewIOError("failed to read log file", err).WithContext("path", path)
	}

	var errorLines []string
	for _, line := range recent {
		if isErrorLine(line) {
			errorLines = append(errorLines, line)
		}
	}
	return errorLines, nil
}

func isErrorLine(line string) bool {
	return strings.Contains(line, `"s":"E"`) ||
		strings.Contains(line, " E ") ||
		strings.Contains(line, "ERROR")
}
