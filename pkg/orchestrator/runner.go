package orchestrator

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/juliencaulet/acm-control/pkg/errors"
	"github.com/juliencaulet/acm-control/pkg/logging"
	"github.com/juliencaulet/acm-control/pkg/registry"
)

// Runner launches and signals component processes. Split from the
// orchestrator so lifecycle sequencing is testable without spawning
// anything.
type Runner interface {
	// Spawn launches the component in the background with output appended
	// to its log file, returning the PID.
	Spawn(component *registry.Component, spec registry.ExecSpec) (int32, error)
	// Terminate delivers the graceful stop signal to the process group.
	Terminate(pid int32) error
	// Kill forcibly terminates the process group.
	Kill(pid int32) error
}

type execRunner struct {
	logger logging.Logger
}

// NewExecRunner returns the production Runner.
func NewExecRunner(logger logging.Logger) Runner {
	return &execRunner{logger: logger}
}

func (r *execRunner) Spawn(component *registry.Component, spec registry.ExecSpec) (int32, error) {
	if err := os.MkdirAll(filepath.Dir(component.LogFile), 0o755); err != nil {
		return 0, errors.NewIOError("failed to create log directory", err).WithContext("component", string(component.Name))
	}

	logFile, err := os.OpenFile(component.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, errors.NewIOError("failed to open log file", err).
			WithContext("component", string(component.Name)).
			WithContext("log_file", component.LogFile)
	}
	defer logFile.Close()

	// Deliberately not CommandContext: the spawned process must outlive
	// this invocation.
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Stdin = nil

	// New process group, so stop signals reach the entire process tree.
	setupProcessAttributes(cmd)

	r.logger.Debugf("Spawning process, component: %s, path: %s, args: %v, dir: %s",
		component.Name, spec.Path, spec.Args, spec.Dir)

	if err := cmd.Start(); err != nil {
		return 0, errors.NewProcessError("failed to start the process", err).
			WithContext("component", string(component.Name)).
			WithContext("path", spec.Path)
	}

	pid := int32(cmd.Process.Pid)
	r.logger.Infof("Spawned process, component: %s, pid: %d", component.Name, pid)

	// Reap the child if it exits while this invocation is still alive.
	go func() {
		_ = cmd.Wait()
	}()

	return pid, nil
}
