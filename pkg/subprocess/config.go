package subprocess

import (
	"strings"
	"time"
)

const (
	// SubprocessTimeout bounds how long a spawned process may run before it is killed.
	SubprocessTimeout = 120 * time.Second
	// MaxOutputBytes caps the captured size of each output stream.
	MaxOutputBytes = 10 * 1024 * 1024
	// MaxConcurrentProcesses bounds the processes a Facade runs at the same time.
	MaxConcurrentProcesses = 8
	// MaxMessageLength bounds the length of sanitized messages, excluding the truncation marker.
	MaxMessageLength = 500
)

var (
	defaultDeniedPathPrefixes = []string{
		"/etc",
		"/sys",
		"/proc",
		"/dev",
		"/boot",
		"/bin",
		"/sbin",
		"/usr/bin",
		"/usr/sbin",
		"/var/run",
		"/var/log",
		"/private/etc",
		"/private/var/run",
		"/private/var/log",
	}
	defaultSensitiveDirectoryNames = []string{".ssh", ".gnupg", ".aws", ".kube", ".docker"}
	defaultEnvironmentPassthrough  = []string{"PATH", "HOME", "LANG"}
	shellInterpreterNames          = []string{"sh", "bash", "zsh", "dash", "ksh", "mksh", "csh", "tcsh", "fish", "ash", "busybox", "cmd", "powershell", "pwsh"}
	executableWrapperNames         = []string{"env", "nice", "nohup", "timeout", "xargs", "stdbuf", "sudo", "doas", "command", "exec", "setsid", "ionice", "chrt", "taskset", "time", "flock", "toybox"}
)

// Configuration holds every policy a Facade enforces.
type Configuration struct {
	Execution    ExecutionPolicy    `mapstructure:"subprocess" json:"subprocess" yaml:"subprocess"`
	Repository   RepositoryPolicy   `mapstructure:"repository" json:"repository" yaml:"repository"`
	Sanitization SanitizationPolicy `mapstructure:"sanitization" json:"sanitization" yaml:"sanitization"`
}

// ExecutionPolicy controls how commands are checked and spawned.
type ExecutionPolicy struct {
	// Timeout applies to invocations that do not carry their own. Zero means SubprocessTimeout.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
	// MaxOutputBytes caps each captured stream. Zero means MaxOutputBytes.
	MaxOutputBytes int `mapstructure:"max_output_bytes" json:"max_output_bytes" yaml:"max_output_bytes"`
	// MaxConcurrentProcesses bounds simultaneous processes. Zero means MaxConcurrentProcesses.
	MaxConcurrentProcesses int `mapstructure:"max_concurrent_processes" json:"max_concurrent_processes" yaml:"max_concurrent_processes"`
	// AllowedExecutables restricts executables by base name when non-empty.
	AllowedExecutables []string `mapstructure:"allowed_executables" json:"allowed_executables" yaml:"allowed_executables"`
	// AllowShellInterpreters permits sh, bash, powershell and similar interpreters as executables.
	AllowShellInterpreters bool `mapstructure:"allow_shell_interpreters" json:"allow_shell_interpreters" yaml:"allow_shell_interpreters"`
	// AllowShellSubstitution permits "$(" and backticks inside arguments.
	AllowShellSubstitution bool `mapstructure:"allow_shell_substitution" json:"allow_shell_substitution" yaml:"allow_shell_substitution"`
	// SkipWorkingDirectoryValidation uses working directories without repository validation.
	SkipWorkingDirectoryValidation bool `mapstructure:"skip_working_directory_validation" json:"skip_working_directory_validation" yaml:"skip_working_directory_validation"`
	// IsolateEnvironment starts processes with PATH, HOME, LANG and EnvironmentPassthrough only.
	IsolateEnvironment bool `mapstructure:"isolate_environment" json:"isolate_environment" yaml:"isolate_environment"`
	// EnvironmentPassthrough names additional variables kept by IsolateEnvironment.
	EnvironmentPassthrough []string `mapstructure:"environment_passthrough" json:"environment_passthrough" yaml:"environment_passthrough"`
}

// RepositoryPolicy controls which directories pass repository validation.
type RepositoryPolicy struct {
	// AllowedRoots confines repositories to these directories when non-empty.
	AllowedRoots []string `mapstructure:"allowed_roots" json:"allowed_roots" yaml:"allowed_roots"`
	// DeniedPaths are refused in addition to the built-in system locations.
	DeniedPaths []string `mapstructure:"denied_paths" json:"denied_paths" yaml:"denied_paths"`
	// AllowNonRepository accepts directories that are not Git repositories.
	AllowNonRepository bool `mapstructure:"allow_non_repository" json:"allow_non_repository" yaml:"allow_non_repository"`
	// AllowNestedDirectories accepts directories inside a work tree, not only its root.
	AllowNestedDirectories bool `mapstructure:"allow_nested_directories" json:"allow_nested_directories" yaml:"allow_nested_directories"`
}

// SanitizationPolicy controls error message scrubbing.
type SanitizationPolicy struct {
	// MaxMessageLength truncates sanitized messages. Zero means MaxMessageLength.
	MaxMessageLength int `mapstructure:"max_message_length" json:"max_message_length" yaml:"max_message_length"`
	// RedactionPatterns are extra regular expressions whose matches are redacted.
	RedactionPatterns []string `mapstructure:"redaction_patterns" json:"redaction_patterns" yaml:"redaction_patterns"`
	// DisableSecretDetection turns off the gitleaks rule scan.
	DisableSecretDetection bool `mapstructure:"disable_secret_detection" json:"disable_secret_detection" yaml:"disable_secret_detection"`
}

// DefaultConfiguration returns the strict policy with every limit set to its package default.
func DefaultConfiguration() Configuration {
	return Configuration{
		Execution: ExecutionPolicy{
			Timeout:                SubprocessTimeout,
			MaxOutputBytes:         MaxOutputBytes,
			MaxConcurrentProcesses: MaxConcurrentProcesses,
		},
		Sanitization: SanitizationPolicy{
			MaxMessageLength: MaxMessageLength,
		},
	}
}

// normalized fills zero limits with package defaults and copies every slice.
func (configuration Configuration) normalized() Configuration {
	normalizedConfiguration := configuration
	if normalizedConfiguration.Execution.Timeout <= 0 {
		normalizedConfiguration.Execution.Timeout = SubprocessTimeout
	}
	if normalizedConfiguration.Execution.MaxOutputBytes <= 0 {
		normalizedConfiguration.Execution.MaxOutputBytes = MaxOutputBytes
	}
	if normalizedConfiguration.Execution.MaxConcurrentProcesses <= 0 {
		normalizedConfiguration.Execution.MaxConcurrentProcesses = MaxConcurrentProcesses
	}
	if normalizedConfiguration.Sanitization.MaxMessageLength <= 0 {
		normalizedConfiguration.Sanitization.MaxMessageLength = MaxMessageLength
	}

	normalizedConfiguration.Execution.AllowedExecutables = copyNonEmpty(configuration.Execution.AllowedExecutables)
	normalizedConfiguration.Execution.EnvironmentPassthrough = copyNonEmpty(configuration.Execution.EnvironmentPassthrough)
	normalizedConfiguration.Repository.AllowedRoots = copyNonEmpty(configuration.Repository.AllowedRoots)
	normalizedConfiguration.Repository.DeniedPaths = copyNonEmpty(configuration.Repository.DeniedPaths)
	normalizedConfiguration.Sanitization.RedactionPatterns = copyNonEmpty(configuration.Sanitization.RedactionPatterns)
	return normalizedConfiguration
}

func copyNonEmpty(values []string) []string {
	copied := make([]string, 0, len(values))
	for _, value := range values {
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			copied = append(copied, trimmedValue)
		}
	}
	if len(copied) == 0 {
		return nil
	}
	return copied
}
