package gitrepo

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	openRepositoryErrorTemplateConstant = "open repository: %w"
	readHeadErrorTemplateConstant       = "read repository head: %w"
)

// Inspector reports repository facts for directories on disk.
type Inspector struct {
	// AllowNestedDirectories accepts directories located anywhere inside a work tree
	// instead of requiring the work tree root.
	AllowNestedDirectories bool
}

// NewInspector constructs an Inspector that requires repository roots.
func NewInspector() *Inspector {
	return &Inspector{}
}

// IsRepository reports whether directoryPath opens as a Git repository.
// A directory without repository metadata yields false and a nil error.
func (inspector *Inspector) IsRepository(directoryPath string) (bool, error) {
	_, openError := inspector.open(directoryPath)
	if openError == nil {
		return true, nil
	}
	if errors.Is(openError, git.ErrRepositoryNotExists) {
		return false, nil
	}
	return false, fmt.Errorf(openRepositoryErrorTemplateConstant, openError)
}

// CurrentBranch returns the short name of the checked out branch.
// Detached heads and unborn branches yield an empty name.
func (inspector *Inspector) CurrentBranch(directoryPath string) (string, error) {
	repository, openError := inspector.open(directoryPath)
	if openError != nil {
		return "", fmt.Errorf(openRepositoryErrorTemplateConstant, openError)
	}

	headReference, headError := repository.Head()
	if headError != nil {
		if errors.Is(headError, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf(readHeadErrorTemplateConstant, headError)
	}
	if !headReference.Name().IsBranch() {
		return "", nil
	}
	return headReference.Name().Short(), nil
}

func (inspector *Inspector) open(directoryPath string) (*git.Repository, error) {
	detectParentRepository := inspector != nil && inspector.AllowNestedDirectories
	return git.PlainOpenWithOptions(directoryPath, &git.PlainOpenOptions{
		DetectDotGit:          detectParentRepository,
		EnableDotGitCommonDir: true,
	})
}
