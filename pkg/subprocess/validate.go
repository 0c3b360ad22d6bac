package subprocess

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/temirov/agentready/internal/gitrepo"
	pathutils "github.com/temirov/agentready/internal/utils/path"
)

const nullCharacterConstant = "\x00"

// repositoryValidator decides whether a directory may be used as a repository location.
type repositoryValidator struct {
	homeExpander            *pathutils.HomeExpander
	inspector               *gitrepo.Inspector
	sanitizer               *Sanitizer
	allowedRoots            []string
	deniedPaths             []string
	sensitiveDirectoryNames []string
	requireRepository       bool
}

func newRepositoryValidator(policy RepositoryPolicy, homeExpander *pathutils.HomeExpander, sanitizer *Sanitizer) repositoryValidator {
	validator := repositoryValidator{
		homeExpander:            homeExpander,
		inspector:               &gitrepo.Inspector{AllowNestedDirectories: policy.AllowNestedDirectories},
		sanitizer:               sanitizer,
		sensitiveDirectoryNames: defaultSensitiveDirectoryNames,
		requireRepository:       !policy.AllowNonRepository,
	}

	for _, allowedRoot := range policy.AllowedRoots {
		validator.allowedRoots = append(validator.allowedRoots, validator.rootVariants(allowedRoot)...)
	}
	for _, deniedPath := range append(append([]string{}, defaultDeniedPathPrefixes...), policy.DeniedPaths...) {
		validator.deniedPaths = append(validator.deniedPaths, validator.rootVariants(deniedPath)...)
	}
	return validator
}

// rootVariants returns the canonical spelling of root and, when it differs, the spelling with symbolic links resolved.
func (validator repositoryValidator) rootVariants(root string) []string {
	canonicalRoot := pathutils.CanonicalizePath(validator.homeExpander.Expand(root))
	resolvedRoot, resolveError := pathutils.ResolvePath(canonicalRoot)
	if resolveError != nil || resolvedRoot == canonicalRoot {
		return []string{canonicalRoot}
	}
	return []string{canonicalRoot, resolvedRoot}
}

// validate returns the resolved absolute directory for candidatePath or a SecurityError.
func (validator repositoryValidator) validate(candidatePath string) (string, error) {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return "", validator.reject(ReasonEmptyPath, "", "")
	}
	if strings.Contains(trimmedPath, nullCharacterConstant) {
		return "", validator.reject(ReasonInvalidPath, trimmedPath, "")
	}

	canonicalPath := pathutils.CanonicalizePath(validator.homeExpander.Expand(trimmedPath))
	resolvedPath, resolveError := pathutils.ResolvePath(canonicalPath)
	if resolveError != nil {
		if errors.Is(resolveError, fs.ErrNotExist) {
			return "", validator.reject(ReasonPathNotFound, canonicalPath, "")
		}
		return "", validator.reject(ReasonPathInaccessible, canonicalPath, validator.sanitizer.SanitizeError(resolveError))
	}

	pathInfo, statError := os.Stat(resolvedPath)
	if statError != nil {
		return "", validator.reject(ReasonPathInaccessible, resolvedPath, validator.sanitizer.SanitizeError(statError))
	}
	if !pathInfo.IsDir() {
		return "", validator.reject(ReasonNotDirectory, resolvedPath, "")
	}

	if reason, detail := validator.checkSensitiveLocation(canonicalPath, resolvedPath); len(reason) > 0 {
		return "", validator.reject(reason, resolvedPath, detail)
	}
	if reason := validator.checkAllowedRoots(canonicalPath, resolvedPath); len(reason) > 0 {
		return "", validator.reject(reason, resolvedPath, "")
	}

	if validator.requireRepository {
		isRepository, inspectError := validator.inspector.IsRepository(resolvedPath)
		if inspectError != nil {
			return "", validator.reject(ReasonNotRepository, resolvedPath, validator.sanitizer.SanitizeError(inspectError, resolvedPath))
		}
		if !isRepository {
			return "", validator.reject(ReasonNotRepository, resolvedPath, "")
		}
	}

	return resolvedPath, nil
}

func (validator repositoryValidator) checkSensitiveLocation(canonicalPath string, resolvedPath string) (SecurityReason, string) {
	for _, candidatePath := range []string{canonicalPath, resolvedPath} {
		if pathutils.IsFilesystemRoot(candidatePath) {
			return ReasonSensitiveLocation, "filesystem root"
		}
		for _, deniedPath := range validator.deniedPaths {
			if pathutils.IsNestedPath(deniedPath, candidatePath) {
				return ReasonSensitiveLocation, deniedPath
			}
		}
		if componentName, found := pathutils.ContainsPathComponent(candidatePath, validator.sensitiveDirectoryNames); found {
			return ReasonSensitiveLocation, componentName
		}
	}
	return "", ""
}

func (validator repositoryValidator) checkAllowedRoots(canonicalPath string, resolvedPath string) SecurityReason {
	if len(validator.allowedRoots) == 0 {
		return ""
	}
	if validator.withinAllowedRoots(resolvedPath) {
		return ""
	}
	if validator.withinAllowedRoots(canonicalPath) {
		return ReasonSymlinkEscape
	}
	return ReasonOutsideAllowedRoots
}

func (validator repositoryValidator) withinAllowedRoots(candidatePath string) bool {
	for _, allowedRoot := range validator.allowedRoots {
		if pathutils.IsNestedPath(allowedRoot, candidatePath) {
			return true
		}
	}
	return false
}

func (validator repositoryValidator) reject(reason SecurityReason, subject string, detail string) error {
	return SecurityError{
		Operation: OperationValidateRepositoryPath,
		Reason:    reason,
		Subject:   validator.sanitizer.SanitizeMessage(subject),
		Detail:    detail,
	}
}
