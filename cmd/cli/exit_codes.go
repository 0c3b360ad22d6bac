package cli

import (
	"errors"
	"fmt"

	"github.com/temirov/agentready/pkg/subprocess"
)

// Process exit codes reported by the agentready binary.
const (
	ExitCodeSuccess          = 0
	ExitCodeFailure          = 1
	ExitCodeSecurityRefusal  = 2
	ExitCodeTimeout          = 124
	exitStatusErrorTemplate  = "exited with status %d"
	exitStatusReasonTemplate = "%s: %s"
)

// ExitStatusError carries an exit code whose cause has already been reported to the user.
type ExitStatusError struct {
	Code   int
	Reason string
}

func (exitStatusError ExitStatusError) Error() string {
	message := fmt.Sprintf(exitStatusErrorTemplate, exitStatusError.Code)
	if len(exitStatusError.Reason) == 0 {
		return message
	}
	return fmt.Sprintf(exitStatusReasonTemplate, exitStatusError.Reason, message)
}

// ExitCode maps an execution error to the process exit code.
// A child terminated by a signal has no exit status and maps to ExitCodeFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	exitStatusError := ExitStatusError{}
	switch {
	case errors.As(err, &exitStatusError):
		if exitStatusError.Code < ExitCodeSuccess {
			return ExitCodeFailure
		}
		return exitStatusError.Code
	case errors.Is(err, subprocess.ErrSecurityViolation):
		return ExitCodeSecurityRefusal
	case errors.Is(err, subprocess.ErrTimeout):
		return ExitCodeTimeout
	default:
		return ExitCodeFailure
	}
}

// ErrorMessage returns the text to print for err, or an empty string when nothing remains to report.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	exitStatusError := ExitStatusError{}
	if errors.As(err, &exitStatusError) && len(exitStatusError.Reason) == 0 {
		return ""
	}
	return err.Error()
}
