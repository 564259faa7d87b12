package score

import "math"

const (
	// PointsMax caps the composite score; component sums beyond the cap are clamped.
	PointsMax = 150

	attributionRatioWeightConstant    = 60.0
	missingTestsPenaltyConstant       = 20
	sparseTestsPenaltyConstant        = 10
	sparseTestsThresholdConstant      = 3
	envFilePenaltyPerFileConstant     = 20
	envFilePenaltyCapConstant         = 60
	secretHintPenaltyPerHitConstant   = 20
	secretHintPenaltyCapConstant      = 60
	dependencyBloatWeightConstant     = 10.0
	dependencyBloatDivisorConstant    = 100.0
	missingLintPenaltyConstant        = 10
	missingCIPenaltyConstant          = 10
	assistedWithoutConfigPenalty      = 10
	trackedNodeModulesPenaltyConstant = 15
	megaCommitPenaltyConstant         = 10
	missingGitignorePenaltyConstant   = 10
	missingReadmePenaltyConstant      = 10
	todoFloodPenaltyConstant          = 5
	todoFloodThresholdConstant        = 20
	singleBranchPenaltyConstant       = 5
)

// Component labels reported in score breakdowns.
const (
	ComponentAttributionRatio      = "assisted_commit_ratio"
	ComponentMissingTests          = "missing_tests"
	ComponentSparseTests           = "sparse_tests"
	ComponentEnvFilesInGit         = "env_files_in_git"
	ComponentSecretHints           = "secret_hints"
	ComponentDependencyBloat       = "dependency_bloat"
	ComponentMissingLint           = "missing_lint_config"
	ComponentMissingCI             = "missing_ci_config"
	ComponentAssistedWithoutConfig = "assisted_without_tool_config"
	ComponentTrackedNodeModules    = "node_modules_in_git"
	ComponentMegaCommit            = "mega_commit"
	ComponentMissingGitignore      = "missing_gitignore"
	ComponentMissingReadme         = "missing_readme"
	ComponentTodoFlood             = "todo_flood"
	ComponentSingleBranch          = "single_branch"
)

// Inputs carries everything the calculator weighs. Counts are raw; the
// calculator applies thresholds and caps itself. TreeInspected reports that a
// working-tree snapshot was actually examined; when false, tree-derived
// penalties are skipped instead of firing on absent data.
type Inputs struct {
	TreeInspected         bool
	AssistedRatio         float64
	TestFileCount         int
	EnvFilesInGit         int
	SecretHintCount       int
	DependencyCount       int
	HasLintConfig         bool
	HasCIConfig           bool
	AssistedWithoutConfig bool
	NodeModulesTracked    bool
	HasMegaCommit         bool
	MissingGitignore      bool
	MissingReadme         bool
	TodoCount             int
	SingleBranch          bool
	TotalSourceLines      int
}

// Component records one scored contribution.
type Component struct {
	Label  string
	Points int
}

// Result is the composed score: clamped points, the letter grade, and the
// per-component breakdown that produced them.
type Result struct {
	Points     int
	Grade      string
	Components []Component
}

// Compute weighs every input into a clamped composite score and grade.
func Compute(inputs Inputs) Result {
	components := make([]Component, 0, 15)
	addComponent := func(label string, points int) {
		if points == 0 {
			return
		}
		components = append(components, Component{Label: label, Points: points})
	}

	boundedRatio := math.Min(math.Max(inputs.AssistedRatio, 0), 1)
	addComponent(ComponentAttributionRatio, int(math.Round(boundedRatio*attributionRatioWeightConstant)))

	if inputs.TreeInspected {
		switch {
		case inputs.TestFileCount == 0:
			addComponent(ComponentMissingTests, missingTestsPenaltyConstant)
		case inputs.TestFileCount < sparseTestsThresholdConstant:
			addComponent(ComponentSparseTests, sparseTestsPenaltyConstant)
		}

		envPenalty := inputs.EnvFilesInGit * envFilePenaltyPerFileConstant
		if envPenalty > envFilePenaltyCapConstant {
			envPenalty = envFilePenaltyCapConstant
		}
		addComponent(ComponentEnvFilesInGit, envPenalty)

		secretPenalty := inputs.SecretHintCount * secretHintPenaltyPerHitConstant
		if secretPenalty > secretHintPenaltyCapConstant {
			secretPenalty = secretHintPenaltyCapConstant
		}
		addComponent(ComponentSecretHints, secretPenalty)

		dependencyPressure := math.Min(float64(inputs.DependencyCount)/dependencyBloatDivisorConstant, 1)
		addComponent(ComponentDependencyBloat, int(math.Round(dependencyPressure*dependencyBloatWeightConstant)))

		if !inputs.HasLintConfig {
			addComponent(ComponentMissingLint, missingLintPenaltyConstant)
		}
		if !inputs.HasCIConfig {
			addComponent(ComponentMissingCI, missingCIPenaltyConstant)
		}
		if inputs.NodeModulesTracked {
			addComponent(ComponentTrackedNodeModules, trackedNodeModulesPenaltyConstant)
		}
		if inputs.MissingGitignore {
			addComponent(ComponentMissingGitignore, missingGitignorePenaltyConstant)
		}
		if inputs.MissingReadme {
			addComponent(ComponentMissingReadme, missingReadmePenaltyConstant)
		}
		if inputs.TodoCount > todoFloodThresholdConstant {
			addComponent(ComponentTodoFlood, todoFloodPenaltyConstant)
		}
	}

	if inputs.AssistedWithoutConfig {
		addComponent(ComponentAssistedWithoutConfig, assistedWithoutConfigPenalty)
	}
	if inputs.HasMegaCommit {
		addComponent(ComponentMegaCommit, megaCommitPenaltyConstant)
	}
	if inputs.SingleBranch {
		addComponent(ComponentSingleBranch, singleBranchPenaltyConstant)
	}

	totalPoints := 0
	for _, component := range components {
		totalPoints += component.Points
	}
	if totalPoints > PointsMax {
		totalPoints = PointsMax
	}
	if totalPoints < 0 {
		totalPoints = 0
	}

	return Result{
		Points:     totalPoints,
		Grade:      gradeForPoints(totalPoints),
		Components: components,
	}
}

func gradeForPoints(points int) string {
	switch {
	case points >= 101:
		return "S+"
	case points >= 90:
		return "S"
	case points >= 80:
		return "A+"
	case points >= 70:
		return "A"
	case points >= 60:
		return "B+"
	case points >= 50:
		return "B"
	case points >= 40:
		return "C+"
	case points >= 30:
		return "C"
	case points >= 20:
		return "D"
	default:
		return "F"
	}
}
