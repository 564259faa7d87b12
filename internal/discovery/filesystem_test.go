package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monkeycs60/vibereport/internal/discovery"
)

const (
	gitMetadataDirectoryName       = ".git"
	repositoryDirectoryPermissions = 0o755
)

func createRepository(testInstance *testing.T, rootDirectory string, segments ...string) string {
	testInstance.Helper()

	repositoryPath := filepath.Join(append([]string{rootDirectory}, segments...)...)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(repositoryPath, gitMetadataDirectoryName), repositoryDirectoryPermissions))
	return repositoryPath
}

func TestDiscoverRepositoriesFindsNestedLayouts(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	firstRepository := createRepository(testInstance, rootDirectory, "work", "team", "api")
	secondRepository := createRepository(testInstance, rootDirectory, "work", "team", "frontend")
	thirdRepository := createRepository(testInstance, rootDirectory, "personal", "dotfiles")

	discoverer := discovery.NewFilesystemRepositoryDiscoverer()
	discovered, discoveryError := discoverer.DiscoverRepositories([]string{rootDirectory})
	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, []string{thirdRepository, firstRepository, secondRepository}, discovered)
}

func TestDiscoverRepositoriesDeduplicatesOverlappingRoots(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	repositoryPath := createRepository(testInstance, rootDirectory, "work", "api")

	discoverer := discovery.NewFilesystemRepositoryDiscoverer()
	discovered, discoveryError := discoverer.DiscoverRepositories([]string{
		rootDirectory,
		filepath.Join(rootDirectory, "work"),
	})
	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, []string{repositoryPath}, discovered)
}

func TestDiscoverRepositoriesSkipsDependencyDirectories(testInstance *testing.T) {
	rootDirectory := testInstance.TempDir()
	repositoryPath := createRepository(testInstance, rootDirectory, "work", "api")
	createRepository(testInstance, rootDirectory, "work", "api", "node_modules", "leftover")

	discoverer := discovery.NewFilesystemRepositoryDiscoverer()
	discovered, discoveryError := discoverer.DiscoverRepositories([]string{rootDirectory})
	require.NoError(testInstance, discoveryError)
	require.Equal(testInstance, []string{repositoryPath}, discovered)
}
