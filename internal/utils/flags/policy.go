// Package flags binds the shared command line flags of the agentready commands.
package flags

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/temirov/agentready/pkg/subprocess"
)

const (
	// AllowShellFlagName permits shell interpreters as executables.
	AllowShellFlagName = "allow-shell"
	// AllowNonRepositoryFlagName accepts working directories that are not Git repositories.
	AllowNonRepositoryFlagName = "allow-non-repository"
	// AllowNestedFlagName accepts directories inside a work tree.
	AllowNestedFlagName = "allow-nested"
	// IsolateEnvironmentFlagName starts processes with a minimal environment.
	IsolateEnvironmentFlagName = "isolate-env"
	// AllowedRootFlagName confines repositories to a directory (repeatable).
	AllowedRootFlagName = "allowed-root"
	// TimeoutFlagName overrides the configured process timeout.
	TimeoutFlagName = "timeout"

	allowShellFlagUsage         = "Permit shell interpreters such as sh or bash as executables."
	allowNonRepositoryFlagUsage = "Accept directories that are not Git repositories."
	allowNestedFlagUsage        = "Accept directories nested inside a Git work tree."
	isolateEnvironmentFlagUsage = "Start processes with PATH, HOME, LANG and configured passthrough variables only."
	allowedRootFlagUsage        = "Directory repositories must reside in (repeatable)."
	timeoutFlagUsage            = "Maximum run time of a process, such as 30s or 2m."
)

// PolicyFlagValues stores the policy overrides given on the command line.
type PolicyFlagValues struct {
	AllowShellInterpreters bool
	AllowNonRepository     bool
	AllowNestedDirectories bool
	IsolateEnvironment     bool
	AllowedRoots           []string
	Timeout                time.Duration
}

// BindPolicyFlags attaches the policy override flags to command as persistent flags.
func BindPolicyFlags(command *cobra.Command) *PolicyFlagValues {
	values := &PolicyFlagValues{}
	if command == nil {
		return values
	}

	flagSet := command.PersistentFlags()
	AddToggleFlag(flagSet, &values.AllowShellInterpreters, AllowShellFlagName, "", false, allowShellFlagUsage)
	AddToggleFlag(flagSet, &values.AllowNonRepository, AllowNonRepositoryFlagName, "", false, allowNonRepositoryFlagUsage)
	AddToggleFlag(flagSet, &values.AllowNestedDirectories, AllowNestedFlagName, "", false, allowNestedFlagUsage)
	AddToggleFlag(flagSet, &values.IsolateEnvironment, IsolateEnvironmentFlagName, "", false, isolateEnvironmentFlagUsage)
	flagSet.StringArrayVar(&values.AllowedRoots, AllowedRootFlagName, nil, allowedRootFlagUsage)
	flagSet.DurationVar(&values.Timeout, TimeoutFlagName, 0, timeoutFlagUsage)
	return values
}

// Apply copies every flag the user set on command into configuration.
// Flags left at their defaults keep the configured values.
func (values *PolicyFlagValues) Apply(command *cobra.Command, configuration *subprocess.Configuration) {
	if values == nil || command == nil || configuration == nil {
		return
	}

	if flagChanged(command, AllowShellFlagName) {
		configuration.Execution.AllowShellInterpreters = values.AllowShellInterpreters
	}
	if flagChanged(command, AllowNonRepositoryFlagName) {
		configuration.Repository.AllowNonRepository = values.AllowNonRepository
	}
	if flagChanged(command, AllowNestedFlagName) {
		configuration.Repository.AllowNestedDirectories = values.AllowNestedDirectories
	}
	if flagChanged(command, IsolateEnvironmentFlagName) {
		configuration.Execution.IsolateEnvironment = values.IsolateEnvironment
	}
	if flagChanged(command, AllowedRootFlagName) {
		configuration.Repository.AllowedRoots = append([]string{}, values.AllowedRoots...)
	}
	if flagChanged(command, TimeoutFlagName) {
		configuration.Execution.Timeout = values.Timeout
	}
}

func flagChanged(command *cobra.Command, flagName string) bool {
	if command.Flags().Changed(flagName) {
		return true
	}
	if rootCommand := command.Root(); rootCommand != nil {
		return rootCommand.PersistentFlags().Changed(flagName)
	}
	return false
}
