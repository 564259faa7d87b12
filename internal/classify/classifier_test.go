package classify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/monkeycs60/vibereport/internal/classify"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
)

const (
	testClaudeTrailerCaseNameConstant   = "claude_co_authored_trailer"
	testCopilotAuthorCaseNameConstant   = "copilot_author_name"
	testCursorEmailCaseNameConstant     = "cursor_author_email"
	testAiderMessageCaseNameConstant    = "aider_commit_message"
	testCaseFoldingCaseNameConstant     = "uppercase_signature"
	testPrecedenceCaseNameConstant      = "first_matching_rule_wins"
	testHumanFallbackCaseNameConstant   = "human_fallback"
	testDevinBracketCaseNameConstant    = "devin_bracketed_author"
	testWindsurfCodeiumCaseNameConstant = "codeium_maps_to_windsurf"
)

func TestClassifierClassify(testInstance *testing.T) {
	testCases := []struct {
		name         string
		commit       gitrepo.Commit
		expectedTool classify.Tool
	}{
		{
			name: testClaudeTrailerCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName: "Grace Hopper",
				Message:    "Add parser\n\nCo-Authored-By: Claude <noreply@anthropic.com>",
			},
			expectedTool: classify.ToolClaudeCode,
		},
		{
			name: testCopilotAuthorCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName: "github-copilot[bot]",
				Message:    "Apply suggestion",
			},
			expectedTool: classify.ToolCopilot,
		},
		{
			name: testCursorEmailCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName:  "Agent",
				AuthorEmail: "agent@cursor.sh",
				Message:     "Refactor handler",
			},
			expectedTool: classify.ToolCursor,
		},
		{
			name: testAiderMessageCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName: "Grace Hopper",
				Message:    "fix: handle nil map (aider)",
			},
			expectedTool: classify.ToolAider,
		},
		{
			name: testCaseFoldingCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName: "CLAUDE",
				Message:    "Initial commit",
			},
			expectedTool: classify.ToolClaudeCode,
		},
		{
			name: testPrecedenceCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName: "cursor",
				Message:    "Generated with Claude assistance",
			},
			expectedTool: classify.ToolClaudeCode,
		},
		{
			name: testHumanFallbackCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName:  "Grace Hopper",
				AuthorEmail: "grace@example.com",
				Message:     "Fix build",
			},
			expectedTool: classify.ToolHuman,
		},
		{
			name: testDevinBracketCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorName: "devin[bot]",
				Message:    "Implement feature",
			},
			expectedTool: classify.ToolDevin,
		},
		{
			name: testWindsurfCodeiumCaseNameConstant,
			commit: gitrepo.Commit{
				AuthorEmail: "bot@codeium.com",
				Message:     "Autofix imports",
			},
			expectedTool: classify.ToolWindsurf,
		},
	}

	classifier := classify.NewClassifier()
	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedTool, classifier.Classify(testCase.commit))
		})
	}
}

func TestClassifierSummarizeAggregatesCounts(testInstance *testing.T) {
	commits := []gitrepo.Commit{
		{AuthorName: "Grace Hopper", Message: "Fix build"},
		{AuthorName: "Grace Hopper", Message: "Add docs\n\nCo-Authored-By: Claude <noreply@anthropic.com>"},
		{AuthorName: "github-copilot[bot]", Message: "Apply suggestion"},
		{AuthorName: "github-copilot[bot]", Message: "Apply suggestion"},
	}

	summary := classify.NewClassifier().Summarize(commits)

	require.Equal(testInstance, 4, summary.TotalCommits)
	require.Equal(testInstance, 3, summary.AssistedCommits)
	require.Equal(testInstance, 1, summary.CountsByTool[classify.ToolHuman])
	require.Equal(testInstance, 1, summary.CountsByTool[classify.ToolClaudeCode])
	require.Equal(testInstance, 2, summary.CountsByTool[classify.ToolCopilot])
	require.InDelta(testInstance, 0.75, summary.AssistedRatio(), 1e-9)
}

func TestClassifierSummarizeEmptyHistoryRatioIsZero(testInstance *testing.T) {
	summary := classify.NewClassifier().Summarize(nil)
	require.Zero(testInstance, summary.TotalCommits)
	require.Zero(testInstance, summary.AssistedRatio())
}

func TestNewClassifierFromYAMLOverridesRules(testInstance *testing.T) {
	ruleDocument := []byte(`
rules:
  - tool: Gemini
    patterns: ["labs-bot"]
`)

	classifier, creationError := classify.NewClassifierFromYAML(ruleDocument)
	require.NoError(testInstance, creationError)

	matched := classifier.Classify(gitrepo.Commit{AuthorName: "labs-bot"})
	require.Equal(testInstance, classify.ToolGemini, matched)

	unmatched := classifier.Classify(gitrepo.Commit{AuthorName: "claude"})
	require.Equal(testInstance, classify.ToolHuman, unmatched)
}

func TestNewClassifierWithRulesValidation(testInstance *testing.T) {
	_, emptyError := classify.NewClassifierWithRules(nil)
	require.ErrorIs(testInstance, emptyError, classify.ErrEmptyRules)

	_, unknownError := classify.NewClassifierWithRules([]classify.Rule{{Tool: "Clippy", Patterns: []string{"clippy"}}})
	require.Error(testInstance, unknownError)
	require.IsType(testInstance, classify.UnknownToolError{}, unknownError)

	_, patternError := classify.NewClassifierWithRules([]classify.Rule{{Tool: classify.ToolCursor, Patterns: []string{"   "}}})
	require.ErrorIs(testInstance, patternError, classify.ErrEmptyPatterns)
}
