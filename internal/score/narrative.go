package score

import "fmt"

const (
	narrativeSaturatedRatioThresholdConstant = 0.95
	narrativeHighRatioThresholdConstant      = 0.9
	narrativeDependencyThresholdConstant     = 500
	narrativeLargeTreeLineThresholdConstant  = 10000
)

const (
	narrativeSaturatedRatioTemplateConstant = "%.0f%% of commits were written by a coding assistant. At this point the repository maintains you."
	narrativeHighRatioNoTestsConstant       = "Over 90%% assistant-authored and not a single test. Bold strategy: the machine writes the bugs and nobody checks them."
	narrativeAllHumanConstant               = "Every commit is human-authored. Artisanal, hand-crafted code. The score below is entirely your own doing."
	narrativeDependencyBloatTemplate        = "%d dependencies. The install step downloads more code than this repository will ever contain."
	narrativeNoTestsLargeTreeTemplate       = "%d lines of code, zero tests. Deployment is the test suite now."
	narrativeEnvInGitConstant               = "Environment files are committed to git. Rotate those credentials, then we can talk about the rest."
)

const (
	narrativeBinLegendaryConstant = "A score beyond the scale. Frame this report; nobody would believe it otherwise."
	narrativeBinSevereConstant    = "Heavy assistant authorship and hygiene gaps across the board. The repository runs on vibes alone."
	narrativeBinElevatedConstant  = "Substantial assistant authorship with noticeable hygiene gaps. Review before you trust it in production."
	narrativeBinModerateConstant  = "A mixed record: some assistant help, some corners cut. Perfectly average, which is not a compliment."
	narrativeBinMildConstant      = "Mostly disciplined with a few lapses. A little polish would go a long way."
	narrativeBinCleanConstant     = "Disciplined history, sensible hygiene. Suspiciously professional."
)

// narrativeRule pairs a situational predicate with the message it renders.
// Rules are evaluated in declaration order and the first match wins.
type narrativeRule struct {
	matches func(result Result, inputs Inputs) bool
	render  func(result Result, inputs Inputs) string
}

var narrativeRules = []narrativeRule{
	{
		matches: func(_ Result, inputs Inputs) bool {
			return inputs.AssistedRatio > narrativeSaturatedRatioThresholdConstant
		},
		render: func(_ Result, inputs Inputs) string {
			return fmt.Sprintf(narrativeSaturatedRatioTemplateConstant, inputs.AssistedRatio*100)
		},
	},
	{
		matches: func(_ Result, inputs Inputs) bool {
			return inputs.TreeInspected && inputs.AssistedRatio > narrativeHighRatioThresholdConstant && inputs.TestFileCount == 0
		},
		render: func(_ Result, _ Inputs) string { return narrativeHighRatioNoTestsConstant },
	},
	{
		matches: func(_ Result, inputs Inputs) bool { return inputs.AssistedRatio == 0 },
		render:  func(_ Result, _ Inputs) string { return narrativeAllHumanConstant },
	},
	{
		matches: func(_ Result, inputs Inputs) bool {
			return inputs.DependencyCount > narrativeDependencyThresholdConstant
		},
		render: func(_ Result, inputs Inputs) string {
			return fmt.Sprintf(narrativeDependencyBloatTemplate, inputs.DependencyCount)
		},
	},
	{
		matches: func(_ Result, inputs Inputs) bool {
			return inputs.TreeInspected && inputs.TestFileCount == 0 && inputs.TotalSourceLines > narrativeLargeTreeLineThresholdConstant
		},
		render: func(_ Result, inputs Inputs) string {
			return fmt.Sprintf(narrativeNoTestsLargeTreeTemplate, inputs.TotalSourceLines)
		},
	},
	{
		matches: func(_ Result, inputs Inputs) bool { return inputs.EnvFilesInGit > 0 },
		render:  func(_ Result, _ Inputs) string { return narrativeEnvInGitConstant },
	},
}

// Narrate produces the human-readable verdict for a computed result. Specific
// situations take precedence, in order; otherwise the narrative falls back to
// the score bin.
func Narrate(result Result, inputs Inputs) string {
	for _, rule := range narrativeRules {
		if rule.matches(result, inputs) {
			return rule.render(result, inputs)
		}
	}

	switch {
	case result.Points >= 101:
		return narrativeBinLegendaryConstant
	case result.Points >= 90:
		return narrativeBinSevereConstant
	case result.Points >= 70:
		return narrativeBinElevatedConstant
	case result.Points >= 50:
		return narrativeBinModerateConstant
	case result.Points >= 30:
		return narrativeBinMildConstant
	default:
		return narrativeBinCleanConstant
	}
}
