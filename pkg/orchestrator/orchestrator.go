package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/probe"
	"github.com/juliencaulet/acm-control/pkg/registry"
)

// Outcome reports what a lifecycle operation actually did. Idempotent calls
// succeed with the "already" outcomes instead of erroring.
type Outcome string

const (
	OutcomeStarted        Outcome = "started"
	OutcomeAlreadyRunning Outcome = "already running"
	OutcomeStopped        Outcome = "stopped"
	OutcomeAlreadyStopped Outcome = "already stopped"
	OutcomeFailed         Outcome = "failed"
)

// Result is the per-component outcome of a sequence operation.
type Result struct {
	Name    registry.ComponentName
	Outcome Outcome
	State   probe.State
	Err     error
}

// Orchestrator sequences start/stop/check across the managed components,
// respecting the fixed dependency order and keeping every per-component
// operation idempotent.
type Orchestrator struct {
	registry *registry.Registry
	prober   probe.Prober
	pids     *probe.PIDTable
	svc      probe.ServiceManager
	runner   Runner
	clock    Clock
	options  registry.OrchestrationConfig
	logger   logging.Logger
}

// New creates an Orchestrator.
func New(
	reg *registry.Registry,
	prober probe.Prober,
	pids *probe.PIDTable,
	svc probe.ServiceManager,
	runner Runner,
	clock Clock,
	options registry.OrchestrationConfig,
	logger logging.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		prober:   prober,
		pids:     pids,
		svc:      svc,
		runner:   runner,
		clock:    clock,
		options:  options,
		logger:   logger,
	}
}

// Start brings one component up. Already running is success, not an error.
func (o *Orchestrator) Start(ctx context.Context, name registry.ComponentName, env registry.Environment) (Outcome, error) {
	component, err := o.registry.Component(name)
	if err != nil {
		return OutcomeFailed, err
	}

	state, err := o.prober.Probe(ctx, component)
	if err != nil {
		return OutcomeFailed, err
	}
	if state.Running {
		o.logger.Infof("Component already running, component: %s, pid: %d", name, state.PID)
		return OutcomeAlreadyRunning, nil
	}

	if component.DependsOn != "" {
		if err := o.requireRunning(ctx, component.DependsOn); err != nil {
			return OutcomeFailed, err
		}
	}

	if err := checkPreconditions(component); err != nil {
		return OutcomeFailed, err
	}

	if component.Stop == registry.StopMechanismServiceManager {
		if err := o.svc.Start(ctx, component.ServiceName); err != nil {
			return OutcomeFailed, err
		}
	} else {
		spec, ok := component.Start[env]
		if !ok {
			return OutcomeFailed, errors.NewValidationError(
				fmt.Sprintf("no start command for environment: %s", env), nil,
			).WithContext("component", string(name))
		}
		pid, err := o.runner.Spawn(component, spec)
		if err != nil {
			return OutcomeFailed, err
		}
		o.pids.Record(name, pid)
	}

	if err := o.waitForRunning(ctx, component, true, o.options.StartTimeout); err != nil {
		return OutcomeFailed, err
	}

	o.logger.Infof("Component started, component: %s, environment: %s", name, env)
	return OutcomeStarted, nil
}

// Stop brings one component down. Already stopped is success, not an error.
// No escalation to a forced kill unless ForceKillAfterTimeout is configured.
func (o *Orchestrator) Stop(ctx context.Context, name registry.ComponentName) (Outcome, error) {
	component, err := o.registry.Component(name)
	if err != nil {
		return OutcomeFailed, err
	}

	state, err := o.prober.Probe(ctx, component)
	if err != nil {
		return OutcomeFailed, err
	}
	if !state.Running {
		o.logger.Infof("Component already stopped, component: %s", name)
		o.pids.Forget(name)
		return OutcomeAlreadyStopped, nil
	}

	if component.Stop == registry.StopMechanismServiceManager {
		if err := o.svc.Stop(ctx, component.ServiceName); err != nil {
			return OutcomeFailed, err
		}
	} else {
		if err := o.runner.Terminate(state.PID); err != nil {
			return OutcomeFailed, errors.NewProcessError("failed to signal process", err).
				WithContext("component", string(name)).
				WithContext("pid", state.PID)
		}
	}

	err = o.waitForRunning(ctx, component, false, o.options.StopTimeout)
	if err != nil && errors.IsTimeoutError(err) &&
		o.options.ForceKillAfterTimeout && component.Stop == registry.StopMechanismSignal {
		o.logger.Warnf("Grace period expired, escalating to forced kill, component: %s, pid: %d", name, state.PID)
		if killErr := o.runner.Kill(state.PID); killErr != nil {
			return OutcomeFailed, errors.NewProcessError("forced kill failed", killErr).WithContext("component", string(name))
		}
		err = o.waitForRunning(ctx, component, false, o.options.StopTimeout)
	}
	if err != nil {
		return OutcomeFailed, err
	}

	o.pids.Forget(name)
	o.logger.Infof("Component stopped, component: %s", name)
	return OutcomeStopped, nil
}

// Check probes one component. Read-only.
func (o *Orchestrator) Check(ctx context.Context, name registry.ComponentName) (probe.State, error) {
	component, err := o.registry.Component(name)
	if err != nil {
		return probe.NotRunning(), err
	}
	return o.prober.Probe(ctx, component)
}

// StartAll starts every component in dependency order. The first failure
// aborts the remaining sequence; components already started stay running.
func (o *Orchestrator) StartAll(ctx context.Context, env registry.Environment) ([]Result, error) {
	var results []Result
	for _, name := range o.registry.StartOrder() {
		outcome, err := o.Start(ctx, name, env)
		results = append(results, Result{Name: name, Outcome: outcome, Err: err})
		if err != nil {
			o.logger.Errorf("Startup sequence aborted, failed component: %s, error: %v", name, err)
			return results, errors.NewProcessError(
				fmt.Sprintf("startup aborted: component %s failed to start", name), err)
		}
	}
	return results, nil
}

// StopAll stops every component in reverse dependency order. Best effort: a
// failure is recorded and the sequence continues to the next component.
func (o *Orchestrator) StopAll(ctx context.Context) ([]Result, error) {
	collection := errors.NewErrorCollection()
	var results []Result
	for _, name := range o.registry.StopOrder() {
		outcome, err := o.Stop(ctx, name)
		results = append(results, Result{Name: name, Outcome: outcome, Err: err})
		if err != nil {
			o.logger.Errorf("Failed to stop component, continuing, component: %s, error: %v", name, err)
			collection.Add(errors.NewProcessError(
				fmt.Sprintf("component %s failed to stop", name), err))
		}
	}
	return results, collection.ToError()
}

// CheckAll probes every component independently, never aborting early.
func (o *Orchestrator) CheckAll(ctx context.Context) []Result {
	var results []Result
	for _, name := range o.registry.StartOrder() {
		state, err := o.Check(ctx, name)
		results = append(results, Result{Name: name, State: state, Err: err})
	}
	return results
}

// requireRunning gates a start on its declared dependency being up.
func (o *Orchestrator) requireRunning(ctx context.Context, name registry.ComponentName) error {
	component, err := o.registry.Component(name)
	if err != nil {
		return err
	}
	state, err := o.prober.Probe(ctx, component)
	if err != nil {
		return err
	}
	if !state.Running {
		return errors.NewNotFoundError(
			fmt.Sprintf("dependency %s is not running", name), nil,
		).WithContext("dependency", string(name))
	}
	return nil
}

// waitForRunning polls the probe with exponential backoff until the
// component reaches the wanted state or the window expires.
func (o *Orchestrator) waitForRunning(ctx context.Context, component *registry.Component, wantRunning bool, timeout time.Duration) error {
	deadline := o.clock.Now().Add(timeout)
	delay := o.options.PollInterval

	for {
		if err := o.clock.Sleep(ctx, delay); err != nil {
			return errors.NewTimeoutError("wait interrupted", err).WithContext("component", string(component.Name))
		}

		state, err := o.prober.Probe(ctx, component)
		if err != nil {
			return err
		}
		if state.Running == wantRunning {
			return nil
		}

		if !o.clock.Now().Before(deadline) {
			wanted := "running"
			if !wantRunning {
				wanted = "stopped"
			}
			return errors.NewTimeoutError(
				fmt.Sprintf("component did not reach %s state within %v", wanted, timeout), nil,
			).WithContext("component", string(component.Name))
		}

		delay = time.Duration(float64(delay) * o.options.BackoffRate)
		if remaining := deadline.Sub(o.clock.Now()); delay > remaining {
			delay = remaining
		}
	}
}

func checkPreconditions(component *registry.Component) error {
	for _, path := range component.Preconditions {
		if _, err := os.Stat(path); err != nil {
			return errors.NewNotFoundError(
				fmt.Sprintf("missing prerequisite for %s: %s", component.Name, path), err,
			).WithContext("component", string(component.Name)).WithContext("path", path)
		}
	}
	return nil
}
