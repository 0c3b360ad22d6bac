package subprocess

import (
	"errors"
	"fmt"

	"github.com/temirov/agentready/internal/execshell"
)

// SecurityReason classifies why an operation was refused.
type SecurityReason string

// Security rejection reasons.
const (
	ReasonEmptyPath             SecurityReason = "empty path"
	ReasonInvalidPath           SecurityReason = "invalid path"
	ReasonPathNotFound          SecurityReason = "path not found"
	ReasonPathInaccessible      SecurityReason = "path not accessible"
	ReasonNotDirectory          SecurityReason = "not a directory"
	ReasonSensitiveLocation     SecurityReason = "sensitive location"
	ReasonOutsideAllowedRoots   SecurityReason = "outside allowed roots"
	ReasonSymlinkEscape         SecurityReason = "symlink escapes allowed roots"
	ReasonNotRepository         SecurityReason = "not a git repository"
	ReasonEmptyCommand          SecurityReason = "empty command"
	ReasonInvalidExecutable     SecurityReason = "invalid executable"
	ReasonShellInterpreter      SecurityReason = "shell interpreter not allowed"
	ReasonExecutableNotAllowed  SecurityReason = "executable not allowed"
	ReasonUnsafeArgument        SecurityReason = "unsafe argument"
	ReasonInvalidEnvironmentKey SecurityReason = "invalid environment variable"
)

// Operation names recorded on SecurityError.
const (
	OperationValidateRepositoryPath = "validate repository path"
	OperationRun                    = "run"
)

const (
	securityErrorTemplateConstant             = "%s refused: %s"
	securityErrorSubjectTemplateConstant      = "%s refused: %s: %s"
	securityErrorDetailTemplateConstant       = "%s (%s)"
	invalidConfigurationErrorTemplateConstant = "%w: %w"
)

var (
	// ErrSecurityViolation matches every SecurityError.
	ErrSecurityViolation = errors.New("subprocess security violation")
	// ErrTimeout matches runs that exceeded their timeout or whose context ended.
	ErrTimeout = execshell.ErrCommandTimeout
	// ErrCommandFailed matches runs that exited non-zero while success was required.
	ErrCommandFailed = execshell.ErrCommandFailed
	// ErrExecutionFailed matches runs whose process could not be started or awaited.
	ErrExecutionFailed = execshell.ErrCommandExecution
	// ErrInvalidConfiguration reports a Configuration that cannot be used.
	ErrInvalidConfiguration = errors.New("invalid subprocess configuration")
)

// SecurityError reports an operation refused for security reasons.
// Subject and Detail are sanitized before the error is returned.
type SecurityError struct {
	Operation string
	Reason    SecurityReason
	Subject   string
	Detail    string
}

// Error describes the rejection.
func (securityError SecurityError) Error() string {
	var message string
	if len(securityError.Subject) == 0 {
		message = fmt.Sprintf(securityErrorTemplateConstant, securityError.Operation, securityError.Reason)
	} else {
		message = fmt.Sprintf(securityErrorSubjectTemplateConstant, securityError.Operation, securityError.Reason, securityError.Subject)
	}
	if len(securityError.Detail) > 0 {
		message = fmt.Sprintf(securityErrorDetailTemplateConstant, message, securityError.Detail)
	}
	return message
}

// Is reports whether target is ErrSecurityViolation.
func (securityError SecurityError) Is(target error) bool {
	return target == ErrSecurityViolation
}

// sanitizedError replaces the text of an underlying error while keeping it reachable through errors.Is and errors.As.
type sanitizedError struct {
	message string
	cause   error
}

func (failure sanitizedError) Error() string {
	return failure.message
}

func (failure sanitizedError) Unwrap() error {
	return failure.cause
}

func newInvalidConfigurationError(cause error) error {
	return fmt.Errorf(invalidConfigurationErrorTemplateConstant, ErrInvalidConfiguration, cause)
}
