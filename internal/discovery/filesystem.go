// Package discovery locates git repositories on the local filesystem for
// batch scanning.
package discovery

import (
	"io/fs"
	"path/filepath"
	"sort"
)

const gitMetadataDirectoryNameConstant = ".git"

// Directories that never contain scannable repositories and are expensive to
// walk.
var skippedDirectoryNames = map[string]struct{}{
	"node_modules": {},
	"vendor":       {},
	"target":       {},
	".venv":        {},
}

// FilesystemRepositoryDiscoverer locates git work trees under a set of roots.
type FilesystemRepositoryDiscoverer struct{}

// NewFilesystemRepositoryDiscoverer constructs a discoverer backed by
// filepath.WalkDir.
func NewFilesystemRepositoryDiscoverer() *FilesystemRepositoryDiscoverer {
	return &FilesystemRepositoryDiscoverer{}
}

// DiscoverRepositories walks the provided roots and returns the sorted,
// deduplicated set of directories containing a .git entry. Nested
// repositories below a discovered one are not descended into.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	var repositories []string

	for _, root := range roots {
		walkError := filepath.WalkDir(root, func(path string, directoryEntry fs.DirEntry, walkError error) error {
			if walkError != nil {
				return nil
			}
			if directoryEntry.IsDir() {
				if _, skipped := skippedDirectoryNames[directoryEntry.Name()]; skipped {
					return fs.SkipDir
				}
			}

			if directoryEntry.Name() != gitMetadataDirectoryNameConstant {
				return nil
			}

			repositoryPath := filepath.Dir(path)
			if _, alreadySeen := seen[repositoryPath]; !alreadySeen {
				seen[repositoryPath] = struct{}{}
				repositories = append(repositories, repositoryPath)
			}

			if directoryEntry.IsDir() {
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
