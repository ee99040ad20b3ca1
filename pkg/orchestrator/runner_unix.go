//go:build !windows

package orchestrator

import (
	"os/exec"
	"syscall"
)

// setupProcessAttributes puts the child in its own process group, so that
// signaling -pid reaches the parent and all of its children.
func setupProcessAttributes(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

func (r *execRunner) Terminate(pid int32) error {
	return syscall.Kill(-int(pid), syscall.SIGTERM)
}

func (r *execRunner) Kill(pid int32) error {
	return syscall.Kill(-int(pid), syscall.SIGKILL)
}
