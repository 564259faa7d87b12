package indicators

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	gitignoreFileNameConstant        = ".gitignore"
	gitignoreCommentPrefixConstant   = "#"
	gitignoreRootPrefixConstant      = "/"
	gitignoreWildcardConstant        = "*"
	gitignoreMinimumUsefulLineCount  = 3
	gitignoreDirectorySuffixConstant = "/"
)

// Gitignore holds the cleaned pattern list of a repository's root .gitignore.
// The matcher intentionally supports the common pattern shapes only: exact
// names, root-anchored prefixes, and single-star globs.
type Gitignore struct {
	patterns []string
}

// LoadGitignore reads the root .gitignore of the tree. A missing file yields
// an empty pattern set, not an error.
func LoadGitignore(treePath string) (Gitignore, error) {
	contents, readError := os.ReadFile(filepath.Join(treePath, gitignoreFileNameConstant))
	if readError != nil {
		if os.IsNotExist(readError) {
			return Gitignore{}, nil
		}
		return Gitignore{}, readError
	}

	return Gitignore{patterns: cleanGitignoreLines(string(contents))}, nil
}

// PatternCount reports the number of usable (non-empty, non-comment) lines.
func (ignore Gitignore) PatternCount() int {
	return len(ignore.patterns)
}

// IsThin reports whether the pattern set is too small to plausibly cover a
// real project.
func (ignore Gitignore) IsThin() bool {
	return len(ignore.patterns) < gitignoreMinimumUsefulLineCount
}

// Matches reports whether the relative path (forward-slash separated) is
// covered by any pattern.
func (ignore Gitignore) Matches(relativePath string) bool {
	normalizedPath := strings.TrimPrefix(filepath.ToSlash(relativePath), gitignoreRootPrefixConstant)
	baseName := normalizedPath
	if slashIndex := strings.LastIndex(normalizedPath, "/"); slashIndex >= 0 {
		baseName = normalizedPath[slashIndex+1:]
	}

	for _, pattern := range ignore.patterns {
		if matchesGitignorePattern(pattern, normalizedPath, baseName) {
			return true
		}
	}
	return false
}

func matchesGitignorePattern(pattern string, normalizedPath string, baseName string) bool {
	trimmedPattern := strings.TrimSuffix(pattern, gitignoreDirectorySuffixConstant)

	if strings.HasPrefix(trimmedPattern, gitignoreRootPrefixConstant) {
		anchored := strings.TrimPrefix(trimmedPattern, gitignoreRootPrefixConstant)
		return normalizedPath == anchored || strings.HasPrefix(normalizedPath, anchored+"/")
	}

	if strings.Contains(trimmedPattern, gitignoreWildcardConstant) {
		if matched, _ := filepath.Match(trimmedPattern, baseName); matched {
			return true
		}
		matched, _ := filepath.Match(trimmedPattern, normalizedPath)
		return matched
	}

	if normalizedPath == trimmedPattern || baseName == trimmedPattern {
		return true
	}
	return strings.HasPrefix(normalizedPath, trimmedPattern+"/") ||
		strings.Contains(normalizedPath, "/"+trimmedPattern+"/")
}

func cleanGitignoreLines(contents string) []string {
	rawLines := strings.Split(contents, "\n")
	patterns := make([]string, 0, len(rawLines))
	for _, rawLine := range rawLines {
		trimmedLine := strings.TrimSpace(rawLine)
		if len(trimmedLine) == 0 || strings.HasPrefix(trimmedLine, gitignoreCommentPrefixConstant) {
			continue
		}
		patterns = append(patterns, trimmedLine)
	}
	return patterns
}
