package logview

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/probe"
	"github.com/juliencaulet/acm-control/pkg/registry"
)

// DefaultLines is the line count used when --lines is not given.
const DefaultLines = 50

// Options selects between the single-shot slice and the unbounded stream.
type Options struct {
	Follow bool
	Lines  int
}

// Viewer slices or streams a component's log file.
type Viewer struct {
	registry *registry.Registry
	prober   probe.Prober
	logger   logging.Logger
}

func NewViewer(reg *registry.Registry, prober probe.Prober, logger logging.Logger) *Viewer {
	return &Viewer{
		registry: reg,
		prober:   prober,
		logger:   logger,
	}
}

// View writes the last N lines of the component's log, then in follow mode
// keeps streaming appended lines until the context is cancelled. The
// component must be running and its log file must exist.
func (v *Viewer) View(ctx context.Context, w io.Writer, name registry.ComponentName, opts Options) error {
	component, err := v.registry.Component(name)
	if err != nil {
		return err
	}

	state, err := v.prober.Probe(ctx, component)
	if err != nil {
		return err
	}
	if !state.Running {
		return errors.NewProcessError(
			fmt.Sprintf("component %s is not running", name), nil)
	}

	if _, err := os.Stat(component.LogFile); err != nil {
		return errors.NewNotFoundError(
			fmt.Sprintf("log file for %s does not exist", name), err,
		).WithContext("log_file", component.LogFile)
	}

	lines := opts.Lines
	if lines <= 0 {
		lines = DefaultLines
	}

	tail, err := TailLines(component.LogFile, lines)
	if err != nil {
		return err
	}
	for _, line := range tail {
		fmt.Fprintln(w, line)
	}

	if !opts.Follow {
		return nil
	}

	v.logger.Debugf("Following log, component: %s, file: %s", name, component.LogFile)
	return Follow(ctx, w, component.LogFile, v.logger)
}
