//go:build !windows

package execshell

import (
	"errors"
	"os/exec"
	"syscall"
)

// configureProcessTermination places the child in its own process group so that
// cancellation kills every descendant, not only the direct child.
func configureProcessTermination(executable *exec.Cmd) {
	executable.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	executable.Cancel = func() error {
		if executable.Process == nil {
			return nil
		}
		killError := syscall.Kill(-executable.Process.Pid, syscall.SIGKILL)
		if killError == nil || errors.Is(killError, syscall.ESRCH) {
			return nil
		}
		return executable.Process.Kill()
	}
}
