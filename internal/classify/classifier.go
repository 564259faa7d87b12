package classify

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/monkeycs60/vibereport/internal/gitrepo"
)

const (
	emptyRulesMessageConstant      = "classification rule set is empty"
	unknownToolTemplateConstant    = "unknown tool name: %s"
	emptyPatternMessageConstant    = "classification rule has no usable patterns"
	rulesDecodeFailureTemplate     = "unable to decode classification rules: %w"
	haystackFieldSeparatorConstant = "\n"
)

// Tool identifies the coding assistant credited with a commit, or Human when
// no assistant signature matches.
type Tool string

// Recognized authorship attributions.
const (
	ToolClaudeCode Tool = "ClaudeCode"
	ToolCopilot    Tool = "Copilot"
	ToolCursor     Tool = "Cursor"
	ToolAider      Tool = "Aider"
	ToolCodex      Tool = "Codex"
	ToolGemini     Tool = "Gemini"
	ToolDevin      Tool = "Devin"
	ToolWindsurf   Tool = "Windsurf"
	ToolHuman      Tool = "Human"
)

var recognizedTools = map[Tool]struct{}{
	ToolClaudeCode: {},
	ToolCopilot:    {},
	ToolCursor:     {},
	ToolAider:      {},
	ToolCodex:      {},
	ToolGemini:     {},
	ToolDevin:      {},
	ToolWindsurf:   {},
}

// Rule associates a tool with the lowercase substrings that attribute a
// commit to it. Rules are evaluated in order and the first match wins.
type Rule struct {
	Tool     Tool     `yaml:"tool"`
	Patterns []string `yaml:"patterns"`
}

type ruleDocument struct {
	Rules []Rule `yaml:"rules"`
}

// Initialization errors surfaced by classifier constructors.
var (
	ErrEmptyRules    = errors.New(emptyRulesMessageConstant)
	ErrEmptyPatterns = errors.New(emptyPatternMessageConstant)
)

// UnknownToolError indicates a rule names a tool outside the recognized set.
type UnknownToolError struct {
	Tool Tool
}

// Error describes the unknown tool.
func (unknownError UnknownToolError) Error() string {
	return fmt.Sprintf(unknownToolTemplateConstant, unknownError.Tool)
}

// DefaultRules returns the built-in attribution table. Ordering matters:
// earlier entries take precedence when a commit matches several tools.
func DefaultRules() []Rule {
	return []Rule{
		{Tool: ToolClaudeCode, Patterns: []string{"claude", "anthropic"}},
		{Tool: ToolCopilot, Patterns: []string{"copilot"}},
		{Tool: ToolCursor, Patterns: []string{"cursor"}},
		{Tool: ToolAider, Patterns: []string{"aider"}},
		{Tool: ToolCodex, Patterns: []string{"codex", "openai"}},
		{Tool: ToolGemini, Patterns: []string{"gemini", "google-labs-jules"}},
		{Tool: ToolDevin, Patterns: []string{"devin-ai", "devin["}},
		{Tool: ToolWindsurf, Patterns: []string{"windsurf", "codeium"}},
	}
}

// Classifier attributes commits to coding assistants using an ordered rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier constructs a classifier with the built-in rule table.
func NewClassifier() *Classifier {
	classifier, _ := NewClassifierWithRules(DefaultRules())
	return classifier
}

// NewClassifierWithRules constructs a classifier with a caller-supplied table.
func NewClassifierWithRules(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, ErrEmptyRules
	}

	normalizedRules := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if _, recognized := recognizedTools[rule.Tool]; !recognized {
			return nil, UnknownToolError{Tool: rule.Tool}
		}
		normalizedPatterns := make([]string, 0, len(rule.Patterns))
		for _, pattern := range rule.Patterns {
			trimmedPattern := strings.ToLower(strings.TrimSpace(pattern))
			if len(trimmedPattern) == 0 {
				continue
			}
			normalizedPatterns = append(normalizedPatterns, trimmedPattern)
		}
		if len(normalizedPatterns) == 0 {
			return nil, ErrEmptyPatterns
		}
		normalizedRules = append(normalizedRules, Rule{Tool: rule.Tool, Patterns: normalizedPatterns})
	}

	return &Classifier{rules: normalizedRules}, nil
}

// NewClassifierFromYAML constructs a classifier from a YAML rule document,
// replacing the built-in table entirely.
func NewClassifierFromYAML(documentBytes []byte) (*Classifier, error) {
	var document ruleDocument
	if decodeError := yaml.Unmarshal(documentBytes, &document); decodeError != nil {
		return nil, fmt.Errorf(rulesDecodeFailureTemplate, decodeError)
	}
	return NewClassifierWithRules(document.Rules)
}

// Classify attributes a single commit. Author name, author email, and the
// full commit message (trailers included) are searched case-insensitively.
func (classifier *Classifier) Classify(commit gitrepo.Commit) Tool {
	haystack := strings.ToLower(strings.Join(
		[]string{commit.AuthorName, commit.AuthorEmail, commit.Message},
		haystackFieldSeparatorConstant,
	))

	for _, rule := range classifier.rules {
		for _, pattern := range rule.Patterns {
			if strings.Contains(haystack, pattern) {
				return rule.Tool
			}
		}
	}
	return ToolHuman
}

// Summary aggregates attribution across a commit history.
type Summary struct {
	TotalCommits    int
	AssistedCommits int
	CountsByTool    map[Tool]int
}

// AssistedRatio returns the fraction of commits attributed to any assistant.
// Empty histories yield zero rather than dividing by zero.
func (summary Summary) AssistedRatio() float64 {
	if summary.TotalCommits == 0 {
		return 0
	}
	return float64(summary.AssistedCommits) / float64(summary.TotalCommits)
}

// Record folds a single attribution into the summary. Callers that stream
// history page by page use this instead of Summarize.
func (summary *Summary) Record(attributedTool Tool) {
	if summary.CountsByTool == nil {
		summary.CountsByTool = make(map[Tool]int)
	}
	summary.TotalCommits++
	summary.CountsByTool[attributedTool]++
	if attributedTool != ToolHuman {
		summary.AssistedCommits++
	}
}

// Summarize classifies every commit and aggregates the per-tool counts.
func (classifier *Classifier) Summarize(commits []gitrepo.Commit) Summary {
	summary := Summary{CountsByTool: make(map[Tool]int)}
	for _, commit := range commits {
		summary.Record(classifier.Classify(commit))
	}
	return summary
}
