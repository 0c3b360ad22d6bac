package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/temirov/agentready/internal/discovery"
	"github.com/temirov/agentready/internal/gitrepo"
	flagutils "github.com/temirov/agentready/internal/utils/flags"
)

const (
	validatePathUseConstant       = "validate-path PATH..."
	validatePathShortDescription  = "Check that paths are safe repository directories"
	validatePathLongDescription   = "validate-path resolves each PATH, refuses sensitive system locations and paths outside the allowed roots, and reports the checked out branch of accepted repositories."
	validatedPathTextTemplate     = "ok\t%s\t%s\n"
	refusedPathTextTemplate       = "refused\t%s\t%s\n"
	detachedBranchPlaceholder     = "-"
	validateDiscoverFlagName      = "discover"
	validateDiscoverDescription   = "Treat each PATH as a search root and validate every repository found below it"
	validateMaxDepthFlagName      = "max-depth"
	validateMaxDepthDescription   = "Directory levels searched below each root with --discover (0 means unlimited)"
	defaultDiscoveryDepthConstant = 3
)

// PathValidationReport describes the outcome of validating one path.
type PathValidationReport struct {
	Path         string `json:"path" yaml:"path"`
	Valid        bool   `json:"valid" yaml:"valid"`
	ResolvedPath string `json:"resolved_path,omitempty" yaml:"resolved_path,omitempty"`
	Repository   bool   `json:"repository" yaml:"repository"`
	Branch       string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ValidatePathCommandBuilder assembles the validate-path command.
type ValidatePathCommandBuilder struct {
	FacadeProvider FacadeProvider
}

// Build constructs the validate-path command.
func (builder *ValidatePathCommandBuilder) Build() *cobra.Command {
	command := &cobra.Command{
		Use:   validatePathUseConstant,
		Short: validatePathShortDescription,
		Long:  validatePathLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE:  builder.run,
	}

	var outputFormat string
	var discoverRepositories bool
	flagutils.AddToggleFlag(command.Flags(), &discoverRepositories, validateDiscoverFlagName, "", false, validateDiscoverDescription)
	command.Flags().Int(validateMaxDepthFlagName, defaultDiscoveryDepthConstant, validateMaxDepthDescription)
	flagutils.AddChoiceFlag(command.Flags(), &outputFormat, outputFormatFlagNameConstant, outputFormatTextConstant, outputFormatChoices, outputFormatFlagUsageConstant)

	return command
}

func (builder *ValidatePathCommandBuilder) run(command *cobra.Command, arguments []string) error {
	outputFormat, _ := command.Flags().GetString(outputFormatFlagNameConstant)
	discoverRepositories, _ := command.Flags().GetBool(validateDiscoverFlagName)
	maxDepth, _ := command.Flags().GetInt(validateMaxDepthFlagName)

	facade, facadeError := builder.FacadeProvider()
	if facadeError != nil {
		return facadeError
	}

	paths := arguments
	if discoverRepositories {
		discoverer := discovery.NewDiscoverer()
		discoverer.MaxDepth = maxDepth
		discoveredPaths, discoveryError := discoverer.DiscoverRepositories(command.Context(), arguments)
		if discoveryError != nil {
			return errors.New(facade.SanitizeError(discoveryError))
		}
		paths = discoveredPaths
	}
	inspector := &gitrepo.Inspector{AllowNestedDirectories: facade.Configuration().Repository.AllowNestedDirectories}

	reports := make([]PathValidationReport, 0, len(paths))
	refusedCount := 0
	for _, path := range paths {
		report := PathValidationReport{Path: facade.SanitizeMessage(path)}
		resolvedPath, validationError := facade.ValidateRepositoryPath(path)
		if validationError != nil {
			report.Error = facade.SanitizeError(validationError)
			reports = append(reports, report)
			refusedCount++
			continue
		}

		report.Valid = true
		report.ResolvedPath = resolvedPath
		if isRepository, inspectionError := inspector.IsRepository(resolvedPath); inspectionError == nil && isRepository {
			report.Repository = true
			if branchName, branchError := inspector.CurrentBranch(resolvedPath); branchError == nil {
				report.Branch = branchName
			}
		}
		reports = append(reports, report)
	}

	renderer := documentRenderer{
		format: outputFormat,
		renderText: func(writer io.Writer) error {
			return renderPathValidationText(writer, reports)
		},
	}
	if renderError := renderer.render(command.OutOrStdout(), reports); renderError != nil {
		return renderError
	}

	if refusedCount > 0 {
		return ExitStatusError{Code: ExitCodeSecurityRefusal}
	}
	return nil
}

func renderPathValidationText(writer io.Writer, reports []PathValidationReport) error {
	for _, report := range reports {
		var writeError error
		if report.Valid {
			branchName := report.Branch
			if len(branchName) == 0 {
				branchName = detachedBranchPlaceholder
			}
			_, writeError = fmt.Fprintf(writer, validatedPathTextTemplate, report.ResolvedPath, branchName)
		} else {
			_, writeError = fmt.Fprintf(writer, refusedPathTextTemplate, report.Path, report.Error)
		}
		if writeError != nil {
			return writeError
		}
	}
	return nil
}
