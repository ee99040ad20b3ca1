package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/logview"
	"github.com/juliencaulet/acm-control/pkg/orchestrator"
	"github.com/juliencaulet/acm-control/pkg/registry"
	"github.com/juliencaulet/acm-control/pkg/status"
)

// App bundles the components an invocation is routed to.
type App struct {
	Orchestrator *orchestrator.Orchestrator
	Reporter     *status.Reporter
	Viewer       *logview.Viewer
	Registry     *registry.Registry

	// LockFile serializes concurrent mutating invocations when non-empty.
	LockFile string

	Logger logging.Logger
	Stdout io.Writer
	Stderr io.Writer
}

// Run routes a parsed invocation and returns the process exit code: 0 on
// success, 1 on any operation failure.
func Run(ctx context.Context, inv *Invocation, app *App) int {
	if inv.Verb == VerbHelp {
		fmt.Fprint(app.Stdout, Usage)
		return 0
	}

	if app.LockFile != "" && (inv.Verb == VerbStart || inv.Verb == VerbStop) {
		release, err := orchestrator.AcquireLock(app.LockFile)
		if err != nil {
			status.RenderError(app.Stderr, err)
			return 1
		}
		defer release()
	}

	switch inv.Verb {
	case VerbStart:
		return app.runStart(ctx, inv)
	case VerbStop:
		return app.runStop(ctx, inv)
	case VerbCheck:
		return app.runCheck(ctx, inv)
	case VerbShow:
		if err := app.Reporter.Show(ctx, app.Stdout, inv.ShowType); err != nil {
			status.RenderError(app.Stderr, err)
			return 1
		}
		return 0
	case VerbLogs:
		if err := app.Viewer.View(ctx, app.Stdout, inv.Component, inv.LogOptions); err != nil {
			status.RenderError(app.Stderr, err)
			return 1
		}
		return 0
	default:
		fmt.Fprint(app.Stderr, Usage)
		return 1
	}
}

func (app *App) runStart(ctx context.Context, inv *Invocation) int {
	if inv.All {
		results, err := app.Orchestrator.StartAll(ctx, inv.Environment)
		for _, result := range results {
			status.RenderOutcome(app.Stdout, result.Name, result.Outcome, result.Err)
		}
		if err != nil {
			return 1
		}
		return 0
	}

	outcome, err := app.Orchestrator.Start(ctx, inv.Component, inv.Environment)
	status.RenderOutcome(app.Stdout, inv.Component, outcome, err)
	if err != nil {
		return 1
	}
	return 0
}

func (app *App) runStop(ctx context.Context, inv *Invocation) int {
	if inv.All {
		results, err := app.Orchestrator.StopAll(ctx)
		for _, result := range results {
			status.RenderOutcome(app.Stdout, result.Name, result.Outcome, result.Err)
		}
		if err != nil {
			return 1
		}
		return 0
	}

	outcome, err := app.Orchestrator.Stop(ctx, inv.Component)
	status.RenderOutcome(app.Stdout, inv.Component, outcome, err)
	if err != nil {
		return 1
	}
	return 0
}

func (app *App) runCheck(ctx context.Context, inv *Invocation) int {
	if inv.All {
		exit := 0
		for _, result := range app.Orchestrator.CheckAll(ctx) {
			status.RenderCheck(app.Stdout, result.Name, result.State, result.Err)
			if result.Err != nil {
				exit = 1
			}
		}
		return exit
	}

	// A single-component check gets the full detail report; the all-component
	// form stays one summary line each.
	if err := app.Reporter.Detail(ctx, app.Stdout, inv.Component); err != nil {
		status.RenderError(app.Stderr, err)
		return 1
	}
	return 0
}
