package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	flagutils "github.com/temirov/agentready/internal/utils/flags"
	"github.com/temirov/agentready/pkg/subprocess"
)

const (
	runUseConstant                 = "run [flags] [--] COMMAND [ARGUMENT...]"
	runShortDescription            = "Run a command without a shell under the subprocess policy"
	runLongDescription             = "run executes COMMAND directly, after checking the executable, its arguments and the working directory against the configured policy. The child's exit status becomes the exit status of agentready."
	runWorkingDirectoryFlagName    = "workdir"
	runWorkingDirectoryShorthand   = "C"
	runWorkingDirectoryDescription = "Repository directory to run the command in"
	runRequireSuccessFlagName      = "require-success"
	runRequireSuccessDescription   = "Treat a non-zero exit status as an error"
	runEnvironmentFlagName         = "env"
	runEnvironmentFlagShorthand    = "e"
	runEnvironmentDescription      = "Environment variable for the command as KEY=VALUE (repeatable)"
	runStandardInputFlagName       = "stdin"
	runStandardInputDescription    = "Forward standard input to the command"
	environmentAssignmentSeparator = "="
	invalidEnvironmentTemplate     = "invalid environment assignment %q, expected KEY=VALUE"
	readStandardInputErrorTemplate = "unable to read standard input: %w"
	truncatedOutputNoticeConstant  = "agentready: output truncated"
	runResultTextFieldSeparator    = "\n"
)

// FacadeProvider yields the subprocess facade configured for the current invocation.
type FacadeProvider func() (*subprocess.Facade, error)

// RunCommandBuilder assembles the run command.
type RunCommandBuilder struct {
	FacadeProvider FacadeProvider
}

// Build constructs the run command.
func (builder *RunCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   runUseConstant,
		Short: runShortDescription,
		Long:  runLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE:  builder.run,
	}
	command.Flags().SetInterspersed(false)

	var requireSuccess, forwardStandardInput bool
	var outputFormat string
	command.Flags().StringP(runWorkingDirectoryFlagName, runWorkingDirectoryShorthand, "", runWorkingDirectoryDescription)
	command.Flags().StringArrayP(runEnvironmentFlagName, runEnvironmentFlagShorthand, nil, runEnvironmentDescription)
	flagutils.AddToggleFlag(command.Flags(), &requireSuccess, runRequireSuccessFlagName, "", false, runRequireSuccessDescription)
	flagutils.AddToggleFlag(command.Flags(), &forwardStandardInput, runStandardInputFlagName, "", false, runStandardInputDescription)
	flagutils.AddChoiceFlag(command.Flags(), &outputFormat, outputFormatFlagNameConstant, outputFormatTextConstant, outputFormatChoices, outputFormatFlagUsageConstant)

	return command
}

func (builder *RunCommandBuilder) run(command *cobra.Command, arguments []string) error {
	workingDirectory, _ := command.Flags().GetString(runWorkingDirectoryFlagName)
	environmentAssignments, _ := command.Flags().GetStringArray(runEnvironmentFlagName)
	requireSuccess, _ := command.Flags().GetBool(runRequireSuccessFlagName)
	forwardStandardInput, _ := command.Flags().GetBool(runStandardInputFlagName)
	outputFormat, _ := command.Flags().GetString(outputFormatFlagNameConstant)

	facade, facadeError := builder.FacadeProvider()
	if facadeError != nil {
		return facadeError
	}

	environmentVariables, environmentError := parseEnvironmentAssignments(environmentAssignments)
	if environmentError != nil {
		return environmentError
	}

	invocation := subprocess.Invocation{
		Command:              arguments,
		WorkingDirectory:     workingDirectory,
		EnvironmentVariables: environmentVariables,
		RequireSuccess:       requireSuccess,
	}
	if forwardStandardInput {
		standardInput, readError := io.ReadAll(command.InOrStdin())
		if readError != nil {
			return fmt.Errorf(readStandardInputErrorTemplate, readError)
		}
		invocation.StandardInput = standardInput
	}

	result, runError := facade.Run(command.Context(), invocation)
	if errors.Is(runError, subprocess.ErrSecurityViolation) {
		return runError
	}

	renderer := documentRenderer{
		format: outputFormat,
		renderText: func(writer io.Writer) error {
			return renderRunResultText(writer, command.ErrOrStderr(), result)
		},
	}
	if renderError := renderer.render(command.OutOrStdout(), result); renderError != nil {
		return renderError
	}

	switch {
	case errors.Is(runError, subprocess.ErrCommandFailed):
		return ExitStatusError{Code: result.ExitCode, Reason: runError.Error()}
	case runError != nil:
		return runError
	case result.ExitCode != 0:
		return ExitStatusError{Code: result.ExitCode}
	default:
		return nil
	}
}

func renderRunResultText(standardOutput io.Writer, standardError io.Writer, result subprocess.Result) error {
	if _, writeError := io.WriteString(standardOutput, result.StandardOutput); writeError != nil {
		return writeError
	}
	if _, writeError := io.WriteString(standardError, result.StandardError); writeError != nil {
		return writeError
	}
	if result.Truncated {
		if _, writeError := io.WriteString(standardError, truncatedOutputNoticeConstant+runResultTextFieldSeparator); writeError != nil {
			return writeError
		}
	}
	return nil
}

func parseEnvironmentAssignments(assignments []string) (map[string]string, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	environmentVariables := make(map[string]string, len(assignments))
	for _, assignment := range assignments {
		variableName, variableValue, found := strings.Cut(assignment, environmentAssignmentSeparator)
		if !found || len(variableName) == 0 {
			return nil, fmt.Errorf(invalidEnvironmentTemplate, assignment)
		}
		environmentVariables[variableName] = variableValue
	}
	return environmentVariables, nil
}
