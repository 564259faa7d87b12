package indicators

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	walkDepthLimitConstant     = 10
	walkFileSizeLimitConstant  = 1 << 20
	todoCountCapConstant       = 100
	todoMarkerConstant         = "TODO"
	fixmeMarkerConstant        = "FIXME"
	hackMarkerConstant         = "HACK"
	testDirectoryNameConstant  = "test"
	testsDirectoryNameConstant = "tests"
	dunderTestsDirectoryName   = "__tests__"
	goTestFileSuffixConstant   = "_test.go"
	pythonTestFilePrefixFirst  = "test_"
	pythonTestFileSuffixLast   = "_test.py"
)

var skippedDirectoryNames = map[string]struct{}{
	".git":         {},
	"node_modules": {},
	"vendor":       {},
	"target":       {},
	"dist":         {},
	"build":        {},
	".next":        {},
	"__pycache__":  {},
	"venv":         {},
	".venv":        {},
}

var sourceFileExtensions = map[string]struct{}{
	".go": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {}, ".mjs": {}, ".cjs": {},
	".py": {}, ".rs": {}, ".rb": {}, ".java": {}, ".c": {}, ".h": {}, ".cpp": {},
	".cs": {}, ".php": {}, ".swift": {}, ".kt": {}, ".scala": {}, ".sh": {},
	".sql": {}, ".vue": {}, ".svelte": {},
}

var testFileInfixes = []string{".test.", ".spec."}

// treeStatistics aggregates the per-file facts collected in one walk.
type treeStatistics struct {
	TestFileCount    int
	TodoCount        int
	TotalSourceLines int
}

// collectTreeStatistics walks the tree once, counting test files, TODO, FIXME,
// and HACK markers, and total source lines. The walk is bounded: depth is capped,
// oversized files are skipped for marker counting, symlinks are never
// followed, and marker counting stops at its cap.
func collectTreeStatistics(treePath string) (treeStatistics, error) {
	statistics := treeStatistics{}

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
			if pathDepth(relativePath) >= walkDepthLimitConstant {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		fileName := entry.Name()
		if isTestFile(relativePath, fileName) {
			statistics.TestFileCount++
		}

		extension := strings.ToLower(filepath.Ext(fileName))
		if _, isSource := sourceFileExtensions[extension]; !isSource {
			return nil
		}

		fileInfo, infoError := entry.Info()
		if infoError != nil || fileInfo.Size() > walkFileSizeLimitConstant {
			return nil
		}

		contents, readError := os.ReadFile(currentPath)
		if readError != nil {
			return nil
		}

		text := string(contents)
		statistics.TotalSourceLines += strings.Count(text, "\n") + 1
		if statistics.TodoCount < todoCountCapConstant {
			// Markers are matched case-insensitively so lowercase "todo"
			// comments count too.
			upperText := strings.ToUpper(text)
			statistics.TodoCount += strings.Count(upperText, todoMarkerConstant)
			statistics.TodoCount += strings.Count(upperText, fixmeMarkerConstant)
			statistics.TodoCount += strings.Count(upperText, hackMarkerConstant)
			if statistics.TodoCount > todoCountCapConstant {
				statistics.TodoCount = todoCountCapConstant
			}
		}

		return nil
	})

	return statistics, walkError
}

func pathDepth(relativePath string) int {
	return strings.Count(filepath.ToSlash(relativePath), "/") + 1
}

func isTestFile(relativePath string, fileName string) bool {
	loweredName := strings.ToLower(fileName)

	if strings.HasSuffix(loweredName, goTestFileSuffixConstant) {
		return true
	}
	if strings.HasPrefix(loweredName, pythonTestFilePrefixFirst) && strings.HasSuffix(loweredName, ".py") {
		return true
	}
	if strings.HasSuffix(loweredName, pythonTestFileSuffixLast) {
		return true
	}
	for _, infix := range testFileInfixes {
		if strings.Contains(loweredName, infix) {
			return true
		}
	}

	for _, segment := range strings.Split(filepath.ToSlash(relativePath), "/") {
		loweredSegment := strings.ToLower(segment)
		if loweredSegment == testDirectoryNameConstant ||
			loweredSegment == testsDirectoryNameConstant ||
			loweredSegment == dunderTestsDirectoryName {
			return true
		}
	}
	return false
}
