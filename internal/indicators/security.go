package indicators

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	envFilePrefixConstant     = ".env"
	secretScanHeadLimitBytes  = 64 * 1024
	envScanDepthLimitConstant = 4
)

// Harmless env file names that document configuration without carrying it.
var envTemplateSuffixes = []string{".example", ".sample", ".template", ".dist"}

// Prefixes that strongly suggest a live credential in tracked content.
var secretTokenPrefixes = []string{
	"sk-",
	"sk_live_",
	"sk_test_",
	"AKIA",
	"ghp_",
	"gho_",
	"glpat-",
	"xoxb-",
	"xoxp-",
	"Bearer eyJ",
}

// FindEnvFiles returns the tracked env files in the tree, relative to its
// root. Files covered by the root .gitignore and template variants are
// excluded. The search is shallow: env files buried deep in a tree are almost
// always vendored noise.
func FindEnvFiles(treePath string, ignore Gitignore) ([]string, error) {
	envFiles := []string{}

	walkError := filepath.WalkDir(treePath, func(currentPath string, entry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return nil
		}
		relativePath, relativeError := filepath.Rel(treePath, currentPath)
		if relativeError != nil {
			return nil
		}
		if entry.IsDir() {
			if relativePath == "." {
				return nil
			}
			if _, skipped := skippedDirectoryNames[entry.Name()]; skipped {
				return filepath.SkipDir
			}
			if pathDepth(relativePath) >= envScanDepthLimitConstant {
				return filepath.SkipDir
			}
			return nil
		}

		if !isEnvFileName(entry.Name()) {
			return nil
		}
		if ignore.Matches(relativePath) {
			return nil
		}
		envFiles = append(envFiles, filepath.ToSlash(relativePath))
		return nil
	})

	return envFiles, walkError
}

func isEnvFileName(fileName string) bool {
	if !strings.HasPrefix(fileName, envFilePrefixConstant) {
		return false
	}
	for _, templateSuffix := range envTemplateSuffixes {
		if strings.HasSuffix(fileName, templateSuffix) {
			return false
		}
	}
	return true
}

// CountSecretHints scans the head of each tracked env file plus common config
// files for token prefixes that look like live credentials.
func CountSecretHints(treePath string, envFiles []string) int {
	hintCount := 0
	for _, envFile := range envFiles {
		hintCount += countSecretHintsInFile(filepath.Join(treePath, envFile))
	}
	return hintCount
}

func countSecretHintsInFile(filePath string) int {
	fileHandle, openError := os.Open(filePath)
	if openError != nil {
		return 0
	}
	defer fileHandle.Close()

	headBuffer := make([]byte, secretScanHeadLimitBytes)
	bytesRead, _ := fileHandle.Read(headBuffer)
	head := string(headBuffer[:bytesRead])

	hintCount := 0
	for _, tokenPrefix := range secretTokenPrefixes {
		hintCount += strings.Count(head, tokenPrefix)
	}
	return hintCount
}
