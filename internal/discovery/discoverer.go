package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

const (
	gitMetadataEntryNameConstant = ".git"
	rootAccessErrorTemplate      = "search root %s: %w"
	defaultMaxDepthConstant      = 0
)

var defaultSkippedDirectoryNames = []string{"node_modules", "vendor"}

// Discoverer locates Git work trees by looking for ".git" entries.
// Both metadata directories and the ".git" files of linked work trees and submodules count.
type Discoverer struct {
	// MaxDepth bounds how many directory levels below a root are visited. Zero means unlimited.
	MaxDepth int
	// SkippedDirectoryNames are never descended into.
	SkippedDirectoryNames []string
}

// NewDiscoverer constructs a Discoverer without a depth limit that skips dependency directories.
func NewDiscoverer() *Discoverer {
	return &Discoverer{
		MaxDepth:              defaultMaxDepthConstant,
		SkippedDirectoryNames: append([]string{}, defaultSkippedDirectoryNames...),
	}
}

// DiscoverRepositories walks roots and returns the sorted, de-duplicated work tree directories.
// A root that cannot be read is an error; unreadable directories below it are skipped.
// Symbolic links are not followed.
func (discoverer *Discoverer) DiscoverRepositories(executionContext context.Context, roots []string) ([]string, error) {
	if executionContext == nil {
		executionContext = context.Background()
	}

	skipped := make(map[string]struct{}, len(discoverer.SkippedDirectoryNames))
	for _, directoryName := range discoverer.SkippedDirectoryNames {
		skipped[directoryName] = struct{}{}
	}

	seen := make(map[string]struct{})
	repositories := []string{}

	for _, root := range roots {
		cleanRoot := filepath.Clean(root)
		walkError := filepath.WalkDir(cleanRoot, func(path string, directoryEntry fs.DirEntry, walkError error) error {
			if contextError := executionContext.Err(); contextError != nil {
				return contextError
			}
			if walkError != nil {
				if path == cleanRoot {
					return fmt.Errorf(rootAccessErrorTemplate, cleanRoot, walkError)
				}
				if directoryEntry != nil && directoryEntry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if directoryEntry.Name() == gitMetadataEntryNameConstant {
				repositoryPath := filepath.Dir(path)
				if _, alreadySeen := seen[repositoryPath]; !alreadySeen {
					seen[repositoryPath] = struct{}{}
					repositories = append(repositories, repositoryPath)
				}
				if directoryEntry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			if !directoryEntry.IsDir() || path == cleanRoot {
				return nil
			}
			if _, skip := skipped[directoryEntry.Name()]; skip {
				return fs.SkipDir
			}
			if discoverer.MaxDepth > 0 && depthBelow(cleanRoot, path) > discoverer.MaxDepth {
				return fs.SkipDir
			}
			return nil
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	sort.Strings(repositories)
	return repositories, nil
}

func depthBelow(root string, path string) int {
	relativePath, relativeError := filepath.Rel(root, path)
	if relativeError != nil || relativePath == "." {
		return 0
	}
	return strings.Count(relativePath, string(filepath.Separator)) + 1
}
