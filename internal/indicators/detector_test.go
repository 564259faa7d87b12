package indicators_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monkeycs60/vibereport/internal/indicators"
)

const (
	testGitignoreContentsConstant = "node_modules/\n.env\n# comment\ndist/\n"
	testThinGitignoreConstant     = "*.log\n"
	testEnvFileContentsConstant   = "API_KEY=sk_live_abc123\nDATABASE_URL=postgres://localhost\n"
	testPackageJSONConstant       = `{"dependencies":{"react":"^18.0.0","axios":"^1.0.0"},"devDependencies":{"vitest":"^1.0.0"}}`
	testGoModContentsConstant     = "module example.com/demo\n\ngo 1.24\n\nrequire (\n\tgithub.com/spf13/cobra v1.10.1\n\tgo.uber.org/zap v1.27.0\n)\n"
	testSourceWithTodosConstant   = "package main\n\n// TODO tighten validation\n// FIXME handle overflow\n// HACK: copied from the prototype\n// todo lowercase marker counts too\nfunc main() {}\n"
)

func writeTestFile(testInstance *testing.T, treePath string, relativePath string, contents string) {
	testInstance.Helper()
	fullPath := filepath.Join(treePath, filepath.FromSlash(relativePath))
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(testInstance, os.WriteFile(fullPath, []byte(contents), 0o644))
}

func TestDetectEmptyTreeFlagsMissingStructure(testInstance *testing.T) {
	report, detectError := indicators.Detect(testInstance.TempDir())
	require.NoError(testInstance, detectError)

	require.Zero(testInstance, report.TestFileCount)
	require.Empty(testInstance, report.EnvFilesInGit)
	require.True(testInstance, report.MissingGitignore)
	require.True(testInstance, report.MissingReadme)
	require.False(testInstance, report.HasLintConfig)
	require.False(testInstance, report.HasCIConfig)
	require.False(testInstance, report.HasAIToolConfig)
}

func TestDetectRecognizesConfiguredTree(testInstance *testing.T) {
	treePath := testInstance.TempDir()
	writeTestFile(testInstance, treePath, ".gitignore", testGitignoreContentsConstant)
	writeTestFile(testInstance, treePath, "README.md", "# Demo\n")
	writeTestFile(testInstance, treePath, ".golangci.yml", "linters: {}\n")
	writeTestFile(testInstance, treePath, ".github/workflows/ci.yml", "on: push\n")
	writeTestFile(testInstance, treePath, "CLAUDE.md", "# Guidance\n")

	report, detectError := indicators.Detect(treePath)
	require.NoError(testInstance, detectError)

	require.False(testInstance, report.MissingGitignore)
	require.False(testInstance, report.MissingReadme)
	require.True(testInstance, report.HasLintConfig)
	require.True(testInstance, report.HasCIConfig)
	require.True(testInstance, report.HasAIToolConfig)
}

func TestDetectThinGitignoreCountsAsMissing(testInstance *testing.T) {
	treePath := testInstance.TempDir()
	writeTestFile(testInstance, treePath, ".gitignore", testThinGitignoreConstant)

	report, detectError := indicators.Detect(treePath)
	require.NoError(testInstance, detectError)
	require.True(testInstance, report.MissingGitignore)
}

func TestDetectEnvFilesHonorGitignoreAndTemplates(testInstance *testing.T) {
	treePath := testInstance.TempDir()
	writeTestFile(testInstance, treePath, ".gitignore", "dist/\nbuild/\ncoverage/\n")
	writeTestFile(testInstance, treePath, ".env", testEnvFileContentsConstant)
	writeTestFile(testInstance, treePath, ".env.example", "API_KEY=\n")
	writeTestFile(testInstance, treePath, "config/.env.production", "TOKEN=ghp_abcdef\n")

	report, detectError := indicators.Detect(treePath)
	require.NoError(testInstance, detectError)

	require.ElementsMatch(testInstance, []string{".env", "config/.env.production"}, report.EnvFilesInGit)
	// one sk_live_ hit plus one ghp_ hit
	require.Equal(testInstance, 2, report.SecretHintCount)
}

func TestDetectIgnoredEnvFileIsExcluded(testInstance *testing.T) {
	treePath := testInstance.TempDir()
	writeTestFile(testInstance, treePath, ".gitignore", ".env\nnode_modules/\ndist/\n")
	writeTestFile(testInstance, treePath, ".env", testEnvFileContentsConstant)

	report, detectError := indicators.Detect(treePath)
	require.NoError(testInstance, detectError)
	require.Empty(testInstance, report.EnvFilesInGit)
	require.Zero(testInstance, report.SecretHintCount)
}

func TestDetectCountsDependenciesAcrossManifests(testInstance *testing.T) {
	treePath := testInstance.TempDir()
	writeTestFile(testInstance, treePath, "package.json", testPackageJSONConstant)
	writeTestFile(testInstance, treePath, "go.mod", testGoModContentsConstant)
	writeTestFile(testInstance, treePath, "requirements.txt", "flask==3.0\nrequests>=2.0\n# comment\n")

	report, detectError := indicators.Detect(treePath)
	require.NoError(testInstance, detectError)
	// 3 package.json + 2 go.mod + 2 requirements.txt
	require.Equal(testInstance, 7, report.DependencyCount)
}

func TestDetectCountsTestFilesAndTodos(testInstance *testing.T) {
	treePath := testInstance.TempDir()
	writeTestFile(testInstance, treePath, "main.go", testSourceWithTodosConstant)
	writeTestFile(testInstance, treePath, "parser_test.go", "package main\n")
	writeTestFile(testInstance, treePath, "src/app.spec.ts", "describe('app')\n")
	writeTestFile(testInstance, treePath, "tests/fixtures.py", "FIXTURES = []\n")

	report, detectError := indicators.Detect(treePath)
	require.NoError(testInstance, detectError)

	require.Equal(testInstance, 3, report.TestFileCount)
	require.Equal(testInstance, 4, report.TodoCount)
	require.Positive(testInstance, report.TotalSourceLines)
}

func TestDetectNodeModulesTracking(testInstance *testing.T) {
	trackedTree := testInstance.TempDir()
	writeTestFile(testInstance, trackedTree, "node_modules/react/index.js", "module.exports = {}\n")

	trackedReport, trackedError := indicators.Detect(trackedTree)
	require.NoError(testInstance, trackedError)
	require.True(testInstance, trackedReport.NodeModulesTracked)

	ignoredTree := testInstance.TempDir()
	writeTestFile(testInstance, ignoredTree, ".gitignore", "node_modules/\ndist/\nbuild/\n")
	writeTestFile(testInstance, ignoredTree, "node_modules/react/index.js", "module.exports = {}\n")

	ignoredReport, ignoredError := indicators.Detect(ignoredTree)
	require.NoError(testInstance, ignoredError)
	require.False(testInstance, ignoredReport.NodeModulesTracked)
}
