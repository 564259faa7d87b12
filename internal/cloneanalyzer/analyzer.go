package cloneanalyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/monkeycs60/vibereport/internal/classify"
	"github.com/monkeycs60/vibereport/internal/execshell"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/indicators"
	"github.com/monkeycs60/vibereport/internal/report"
)

const (
	cloneDirectoryPrefixConstant       = "vibereport-"
	defaultCloneTimeoutConstant        = 2 * time.Minute
	loggerNotConfiguredMessageConstant = "analyzer logger not configured"
	managerNotConfiguredMessage        = "analyzer repository manager not configured"
	classifierNotConfiguredMessage     = "analyzer classifier not configured"
	snapshotFailureTemplateConstant    = "unable to acquire repository snapshot: %w"
	detectorFailureTemplateConstant    = "indicator detection failed: %w"
	logFieldRepositoryConstant         = "repository"
	logFieldSnapshotPathConstant       = "snapshot_path"
	logFieldTotalCommitsConstant       = "total_commits"
	logMessageSnapshotAcquired         = "acquired repository snapshot"
	logMessageSnapshotReleased         = "released repository snapshot"
	logMessageCleanupFailedConstant    = "unable to remove repository snapshot"
	missingRepositoryFragmentConstant  = "not found"
	unreadableRepositoryFragment       = "could not read from remote repository"
)

// Dependency validation errors.
var (
	ErrLoggerNotConfigured     = errors.New(loggerNotConfiguredMessageConstant)
	ErrManagerNotConfigured    = errors.New(managerNotConfiguredMessage)
	ErrClassifierNotConfigured = errors.New(classifierNotConfiguredMessage)
)

// Analysis is the full-fidelity result of the clone-based acquisition path.
// RootCommitHash is populated only for untruncated clones, where the history
// walk can prove it is the true root.
type Analysis struct {
	Attribution    classify.Summary
	Indicators     indicators.Report
	RootCommitHash string
	BranchCount    int
	CanonicalID    string
}

// Analyzer clones a repository into a disposable temporary directory, runs
// authorship classification and indicator detection against it, and removes
// the clone on every exit path.
type Analyzer struct {
	repositoryManager *gitrepo.RepositoryManager
	classifier        *classify.Classifier
	logger            *zap.Logger
	temporaryRoot     string
	cloneTimeout      time.Duration
}

// AnalyzerOptions configures optional analyzer behavior. Zero values select
// the system temporary directory and the default clone timeout.
type AnalyzerOptions struct {
	TemporaryRoot string
	CloneTimeout  time.Duration
}

// NewAnalyzer validates dependencies and builds an Analyzer.
func NewAnalyzer(repositoryManager *gitrepo.RepositoryManager, classifier *classify.Classifier, logger *zap.Logger, options AnalyzerOptions) (*Analyzer, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if repositoryManager == nil {
		return nil, ErrManagerNotConfigured
	}
	if classifier == nil {
		return nil, ErrClassifierNotConfigured
	}

	temporaryRoot := options.TemporaryRoot
	if len(temporaryRoot) == 0 {
		temporaryRoot = os.TempDir()
	}
	cloneTimeout := options.CloneTimeout
	if cloneTimeout <= 0 {
		cloneTimeout = defaultCloneTimeoutConstant
	}

	return &Analyzer{
		repositoryManager: repositoryManager,
		classifier:        classifier,
		logger:            logger,
		temporaryRoot:     temporaryRoot,
		cloneTimeout:      cloneTimeout,
	}, nil
}

// Analyze acquires a snapshot of the referenced repository and computes the
// attribution summary, the indicator report, and the branch count. A non-zero
// since bounds the clone's history depth; bounded clones do not report a root
// commit. The snapshot directory is removed before Analyze returns,
// regardless of outcome.
func (analyzer *Analyzer) Analyze(executionContext context.Context, reference gitrepo.RepositoryReference, since time.Time) (Analysis, error) {
	snapshotPath := filepath.Join(analyzer.temporaryRoot, cloneDirectoryPrefixConstant+uuid.NewString())
	defer analyzer.releaseSnapshot(snapshotPath)

	if cloneError := analyzer.cloneSnapshot(executionContext, reference, since, snapshotPath); cloneError != nil {
		return Analysis{}, cloneError
	}
	analyzer.logger.Debug(
		logMessageSnapshotAcquired,
		zap.String(logFieldRepositoryConstant, reference.Slug()),
		zap.String(logFieldSnapshotPathConstant, snapshotPath),
	)

	commits, logError := analyzer.repositoryManager.CommitLog(executionContext, snapshotPath, since)
	if logError != nil {
		return Analysis{}, fmt.Errorf(snapshotFailureTemplateConstant, logError)
	}

	analysis := Analysis{
		Attribution: analyzer.classifier.Summarize(commits),
		CanonicalID: reference.CanonicalIdentifier(),
	}

	if since.IsZero() {
		rootCommitHash, rootError := analyzer.repositoryManager.RootCommit(executionContext, snapshotPath)
		if rootError != nil && !errors.Is(rootError, gitrepo.ErrNoCommits) {
			return Analysis{}, fmt.Errorf(snapshotFailureTemplateConstant, rootError)
		}
		analysis.RootCommitHash = rootCommitHash
	}

	branchCount, branchError := analyzer.repositoryManager.CountRemoteBranches(executionContext, snapshotPath)
	if branchError != nil {
		return Analysis{}, fmt.Errorf(snapshotFailureTemplateConstant, branchError)
	}
	analysis.BranchCount = branchCount

	indicatorReport, detectError := indicators.Detect(snapshotPath)
	if detectError != nil {
		return Analysis{}, fmt.Errorf(detectorFailureTemplateConstant, detectError)
	}
	analysis.Indicators = indicatorReport

	analyzer.logger.Debug(
		logMessageSnapshotReleased,
		zap.String(logFieldRepositoryConstant, reference.Slug()),
		zap.Int(logFieldTotalCommitsConstant, analysis.Attribution.TotalCommits),
	)
	return analysis, nil
}

// cloneSnapshot performs the clone under its own timeout, distinct from the
// caller's overall deadline, mapping expiry to report.ErrScanTimeout.
func (analyzer *Analyzer) cloneSnapshot(executionContext context.Context, reference gitrepo.RepositoryReference, since time.Time, snapshotPath string) error {
	cloneContext, cancelClone := context.WithTimeout(executionContext, analyzer.cloneTimeout)
	defer cancelClone()

	cloneError := analyzer.repositoryManager.Clone(cloneContext, gitrepo.CloneOptions{
		SourceURL:    reference.CloneURL(),
		Destination:  snapshotPath,
		ShallowSince: since,
	})
	if cloneError == nil {
		return nil
	}
	if cloneContext.Err() != nil {
		return report.ErrScanTimeout
	}
	if isMissingRepositoryError(cloneError) {
		return report.ErrRepositoryNotFound
	}
	return fmt.Errorf(snapshotFailureTemplateConstant, cloneError)
}

// isMissingRepositoryError recognizes the git clone failures that mean the
// remote repository is absent or inaccessible rather than transiently broken.
func isMissingRepositoryError(cloneError error) bool {
	failedError := execshell.CommandFailedError{}
	if !errors.As(cloneError, &failedError) {
		return false
	}
	standardError := strings.ToLower(failedError.Result.StandardError)
	return strings.Contains(standardError, missingRepositoryFragmentConstant) ||
		strings.Contains(standardError, unreadableRepositoryFragment)
}

func (analyzer *Analyzer) releaseSnapshot(snapshotPath string) {
	if removeError := os.RemoveAll(snapshotPath); removeError != nil {
		analyzer.logger.Warn(
			logMessageCleanupFailedConstant,
			zap.String(logFieldSnapshotPathConstant, snapshotPath),
			zap.Error(removeError),
		)
	}
}
