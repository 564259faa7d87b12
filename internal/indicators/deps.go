package indicators

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

const (
	packageJSONFileNameConstant    = "package.json"
	goModFileNameConstant          = "go.mod"
	requirementsFileNameConstant   = "requirements.txt"
	cargoManifestFileNameConstant  = "Cargo.toml"
	goModRequirePrefixConstant     = "require"
	goModBlockOpenConstant         = "("
	goModBlockCloseConstant        = ")"
	requirementsCommentPrefix      = "#"
	cargoDependencySectionConstant = "[dependencies]"
	cargoDevDependencySection      = "[dev-dependencies]"
	cargoSectionPrefixConstant     = "["
)

type packageJSONManifest struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// CountDependencies sums declared direct dependencies across every manifest
// format found at the tree root. Unparseable manifests contribute zero.
func CountDependencies(treePath string) int {
	totalCount := 0
	totalCount += countPackageJSONDependencies(filepath.Join(treePath, packageJSONFileNameConstant))
	totalCount += countGoModDependencies(filepath.Join(treePath, goModFileNameConstant))
	totalCount += countRequirementsDependencies(filepath.Join(treePath, requirementsFileNameConstant))
	totalCount += countCargoDependencies(filepath.Join(treePath, cargoManifestFileNameConstant))
	return totalCount
}

func countPackageJSONDependencies(manifestPath string) int {
	contents, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return 0
	}
	var manifest packageJSONManifest
	if decodeError := json.Unmarshal(contents, &manifest); decodeError != nil {
		return 0
	}
	return len(manifest.Dependencies) + len(manifest.DevDependencies)
}

func countGoModDependencies(manifestPath string) int {
	contents, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return 0
	}

	dependencyCount := 0
	insideRequireBlock := false
	for _, rawLine := range strings.Split(string(contents), "\n") {
		trimmedLine := strings.TrimSpace(rawLine)
		switch {
		case insideRequireBlock:
			if trimmedLine == goModBlockCloseConstant {
				insideRequireBlock = false
				continue
			}
			if len(trimmedLine) > 0 && !strings.HasPrefix(trimmedLine, "//") {
				dependencyCount++
			}
		case strings.HasPrefix(trimmedLine, goModRequirePrefixConstant):
			remainder := strings.TrimSpace(strings.TrimPrefix(trimmedLine, goModRequirePrefixConstant))
			if remainder == goModBlockOpenConstant {
				insideRequireBlock = true
				continue
			}
			if len(remainder) > 0 {
				dependencyCount++
			}
		}
	}
	return dependencyCount
}

func countRequirementsDependencies(manifestPath string) int {
	contents, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return 0
	}

	dependencyCount := 0
	for _, rawLine := range strings.Split(string(contents), "\n") {
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 || strings.HasPrefix(trimmedLine, requirementsCommentPrefix) {
			continue
		}
		dependencyCount++
	}
	return dependencyCount
}

func countCargoDependencies(manifestPath string) int {
	contents, readError := os.ReadFile(manifestPath)
	if readError != nil {
		return 0
	}

	dependencyCount := 0
	insideDependencySection := false
	for _, rawLine := range strings.Split(string(contents), "\n") {
		trimmedLine := strings.TrimSpace(rawLine)
		if strings.HasPrefix(trimmedLine, cargoSectionPrefixConstant) {
			insideDependencySection = trimmedLine == cargoDependencySectionConstant || trimmedLine == cargoDevDependencySection
			continue
		}
		if !insideDependencySection || len(trimmedLine) == 0 || strings.HasPrefix(trimmedLine, requirementsCommentPrefix) {
			continue
		}
		if strings.Contains(trimmedLine, "=") {
			dependencyCount++
		}
	}
	return dependencyCount
}
