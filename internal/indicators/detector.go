package indicators

import (
	"os"
	"path/filepath"
)

const nodeModulesDirectoryNameConstant = "node_modules"

// Root-level file names that indicate a configured linter.
var lintConfigFileNames = []string{
	".eslintrc",
	".eslintrc.js",
	".eslintrc.cjs",
	".eslintrc.json",
	".eslintrc.yml",
	".eslintrc.yaml",
	"eslint.config.js",
	"eslint.config.mjs",
	"eslint.config.cjs",
	"biome.json",
	"biome.jsonc",
	".golangci.yml",
	".golangci.yaml",
	".rubocop.yml",
	"ruff.toml",
	".flake8",
	"clippy.toml",
}

// Paths that indicate a configured CI pipeline.
var ciConfigPaths = []string{
	".github/workflows",
	".gitlab-ci.yml",
	".circleci/config.yml",
	"Jenkinsfile",
	".travis.yml",
	"azure-pipelines.yml",
}

// Paths that indicate a coding assistant was configured rather than just used.
var aiToolConfigPaths = []string{
	"CLAUDE.md",
	".claude",
	".cursorrules",
	".cursor",
	"AGENTS.md",
	"AGENT.md",
	".aider.conf.yml",
	".windsurfrules",
	"GEMINI.md",
	".github/copilot-instructions.md",
}

// Recognized readme file names, checked in order.
var readmeFileNames = []string{"README.md", "readme.md", "README", "README.rst"}

// Report captures every repository-state indicator the detector derives from
// a working tree. Authorship-dependent flags are layered on by the caller.
type Report struct {
	TestFileCount      int
	EnvFilesInGit      []string
	SecretHintCount    int
	DependencyCount    int
	HasLintConfig      bool
	HasCIConfig        bool
	HasAIToolConfig    bool
	NodeModulesTracked bool
	MissingGitignore   bool
	MissingReadme      bool
	TodoCount          int
	TotalSourceLines   int
}

// Detect derives the full indicator report for the working tree at treePath.
// Each indicator is independent: a failure to read one part of the tree never
// blocks the others.
func Detect(treePath string) (Report, error) {
	ignore, ignoreError := LoadGitignore(treePath)
	if ignoreError != nil {
		return Report{}, ignoreError
	}

	statistics, walkError := collectTreeStatistics(treePath)
	if walkError != nil {
		return Report{}, walkError
	}

	envFiles, envError := FindEnvFiles(treePath, ignore)
	if envError != nil {
		return Report{}, envError
	}

	return Report{
		TestFileCount:      statistics.TestFileCount,
		EnvFilesInGit:      envFiles,
		SecretHintCount:    CountSecretHints(treePath, envFiles),
		DependencyCount:    CountDependencies(treePath),
		HasLintConfig:      hasAnyRootFile(treePath, lintConfigFileNames),
		HasCIConfig:        hasAnyPath(treePath, ciConfigPaths),
		HasAIToolConfig:    hasAnyPath(treePath, aiToolConfigPaths),
		NodeModulesTracked: hasTrackedNodeModules(treePath, ignore),
		MissingGitignore:   ignore.PatternCount() == 0 || ignore.IsThin(),
		MissingReadme:      !hasAnyRootFile(treePath, readmeFileNames),
		TodoCount:          statistics.TodoCount,
		TotalSourceLines:   statistics.TotalSourceLines,
	}, nil
}

func hasAnyRootFile(treePath string, fileNames []string) bool {
	for _, fileName := range fileNames {
		if pathExists(filepath.Join(treePath, fileName)) {
			return true
		}
	}
	return false
}

func hasAnyPath(treePath string, relativePaths []string) bool {
	for _, relativePath := range relativePaths {
		if pathExists(filepath.Join(treePath, filepath.FromSlash(relativePath))) {
			return true
		}
	}
	return false
}

func hasTrackedNodeModules(treePath string, ignore Gitignore) bool {
	nodeModulesPath := filepath.Join(treePath, nodeModulesDirectoryNameConstant)
	if !pathExists(nodeModulesPath) {
		return false
	}
	return !ignore.Matches(nodeModulesDirectoryNameConstant)
}

func pathExists(path string) bool {
	_, statError := os.Stat(path)
	return statError == nil
}
