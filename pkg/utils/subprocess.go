package utils

import (
	"context"
	"sync"

	"github.com/temirov/agentready/pkg/subprocess"
)

const sanitizationUnavailableMessageConstant = "<redacted>"

// SubprocessTimeout bounds how long SafeSubprocessRun lets a process run when
// the invocation carries no timeout of its own.
const SubprocessTimeout = subprocess.SubprocessTimeout

// SubprocessSecurityError reports an operation refused for security reasons.
// Match it with errors.As, or match any such refusal with errors.Is and
// subprocess.ErrSecurityViolation.
type SubprocessSecurityError = subprocess.SecurityError

var defaultFacade = sync.OnceValues(func() (*subprocess.Facade, error) {
	return subprocess.NewFacade(subprocess.DefaultConfiguration())
})

// SafeSubprocessRun runs invocation without a shell after validating its
// command and working directory. See subprocess.Facade.Run.
func SafeSubprocessRun(executionContext context.Context, invocation subprocess.Invocation) (subprocess.Result, error) {
	facade, facadeError := defaultFacade()
	if facadeError != nil {
		return subprocess.Result{Command: append([]string{}, invocation.Command...)}, facadeError
	}
	return facade.Run(executionContext, invocation)
}

// SanitizeSubprocessError returns failure's text with repository paths, the
// home directory and credentials scrubbed. It never fails; a nil error yields "".
func SanitizeSubprocessError(failure error, repositoryPaths ...string) string {
	if failure == nil {
		return ""
	}
	facade, facadeError := defaultFacade()
	if facadeError != nil {
		return sanitizationUnavailableMessageConstant
	}
	return facade.SanitizeError(failure, repositoryPaths...)
}

// ValidateRepositoryPath returns path resolved to an absolute directory after
// checking that it is an accessible Git repository outside sensitive system
// locations. Untrusted paths yield a SubprocessSecurityError.
func ValidateRepositoryPath(path string) (string, error) {
	facade, facadeError := defaultFacade()
	if facadeError != nil {
		return "", facadeError
	}
	return facade.ValidateRepositoryPath(path)
}
