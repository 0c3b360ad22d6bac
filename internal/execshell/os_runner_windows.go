//go:build windows

package execshell

import "os/exec"

func configureProcessTermination(executable *exec.Cmd) {
	executable.Cancel = func() error {
		if executable.Process == nil {
			return nil
		}
		return executable.Process.Kill()
	}
}
