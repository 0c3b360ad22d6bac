package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sanitizeUseConstant           = "sanitize [TEXT...]"
	sanitizeShortDescription      = "Scrub paths and credentials from diagnostic text"
	sanitizeLongDescription       = "sanitize prints TEXT, or standard input when no TEXT is given, with repository paths, the home directory, credentials and control characters removed."
	sanitizeRepositoryFlagName    = "repo"
	sanitizeRepositoryShorthand   = "r"
	sanitizeRepositoryDescription = "Repository path replaced by <repo> (repeatable)"
	sanitizeArgumentSeparator     = " "
	sanitizeLineTerminator        = "\n"
)

// SanitizeCommandBuilder assembles the sanitize command.
type SanitizeCommandBuilder struct {
	FacadeProvider FacadeProvider
}

// Build constructs the sanitize command.
func (builder *SanitizeCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   sanitizeUseConstant,
		Short: sanitizeShortDescription,
		Long:  sanitizeLongDescription,
		RunE:  builder.run,
	}
	command.Flags().StringArrayP(sanitizeRepositoryFlagName, sanitizeRepositoryShorthand, nil, sanitizeRepositoryDescription)
	return command
}

func (builder *SanitizeCommandBuilder) run(command *cobra.Command, arguments []string) error {
	repositoryPaths, _ := command.Flags().GetStringArray(sanitizeRepositoryFlagName)

	facade, facadeError := builder.FacadeProvider()
	if facadeError != nil {
		return facadeError
	}

	message := strings.Join(arguments, sanitizeArgumentSeparator)
	if len(arguments) == 0 {
		standardInput, readError := io.ReadAll(command.InOrStdin())
		if readError != nil {
			return fmt.Errorf(readStandardInputErrorTemplate, readError)
		}
		message = strings.TrimRight(string(standardInput), sanitizeLineTerminator)
	}

	_, writeError := io.WriteString(command.OutOrStdout(), facade.SanitizeMessage(message, repositoryPaths...)+sanitizeLineTerminator)
	return writeError
}
