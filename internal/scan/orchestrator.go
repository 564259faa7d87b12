package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/monkeycs60/vibereport/internal/cloneanalyzer"
	"github.com/monkeycs60/vibereport/internal/crawler"
	"github.com/monkeycs60/vibereport/internal/fingerprint"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/metrics"
	"github.com/monkeycs60/vibereport/internal/report"
	"github.com/monkeycs60/vibereport/internal/score"
	"github.com/monkeycs60/vibereport/internal/store"
)

// ExecutionClass partitions scans between the interactive and batch
// concurrency pools.
type ExecutionClass string

// Supported execution classes.
const (
	ExecutionClassInteractive ExecutionClass = "interactive"
	ExecutionClassBatch       ExecutionClass = "batch"
)

const (
	defaultCacheTimeToLiveConstant     = 5 * time.Minute
	defaultPrimaryTimeoutConstant      = 3 * time.Minute
	defaultInteractivePoolSizeConstant = 2
	defaultBatchPoolSizeConstant       = 3
	defaultInteractivePageCapConstant  = 10
	defaultBatchPageCapConstant        = 30
	defaultCrawlBatchWidthConstant     = 5
	loggerNotConfiguredMessageConstant = "orchestrator logger not configured"
	analyzerNotConfiguredMessage       = "orchestrator analyzer not configured"
	crawlerNotConfiguredMessage        = "orchestrator crawler not configured"
	storeNotConfiguredMessageConstant  = "orchestrator result store not configured"
	unknownExecutionClassMessage       = "unknown execution class"
	persistenceFailureTemplate         = "unable to persist scan result: %w"
	logFieldRepositoryConstant         = "repository"
	logFieldExecutionClassConstant     = "execution_class"
	logFieldSourceConstant             = "source"
	logFieldPointsConstant             = "points"
	logFieldGradeConstant              = "grade"
	logMessageCacheHitConstant         = "returning cached scan result"
	logMessagePrimaryFailedConstant    = "primary acquisition failed, falling back to crawl"
	logMessageScanRecordedConstant     = "scan result recorded"
)

// Dependency and argument validation errors.
var (
	ErrLoggerNotConfigured   = errors.New(loggerNotConfiguredMessageConstant)
	ErrAnalyzerNotConfigured = errors.New(analyzerNotConfiguredMessage)
	ErrCrawlerNotConfigured  = errors.New(crawlerNotConfiguredMessage)
	ErrStoreNotConfigured    = errors.New(storeNotConfiguredMessageConstant)
	ErrUnknownExecutionClass = errors.New(unknownExecutionClassMessage)
)

// SnapshotAnalyzer is the primary acquisition path.
type SnapshotAnalyzer interface {
	Analyze(executionContext context.Context, reference gitrepo.RepositoryReference, since time.Time) (cloneanalyzer.Analysis, error)
}

// HistoryCrawler is the fallback acquisition path.
type HistoryCrawler interface {
	Crawl(executionContext context.Context, reference gitrepo.RepositoryReference, options crawler.Options) (crawler.Outcome, error)
}

// ResultStore persists completed scans.
type ResultStore interface {
	UpsertResult(executionContext context.Context, scanResult report.ScanResult) error
	AppendEvent(executionContext context.Context, event store.Event) error
}

// Options tune the orchestrator's pools, budgets and cache. Zero values
// select the defaults.
type Options struct {
	CacheTimeToLive     time.Duration
	PrimaryTimeout      time.Duration
	InteractivePoolSize int64
	BatchPoolSize       int64
	InteractivePageCap  int
	BatchPageCap        int
	CrawlBatchWidth     int
}

func (options Options) withDefaults() Options {
	if options.CacheTimeToLive <= 0 {
		options.CacheTimeToLive = defaultCacheTimeToLiveConstant
	}
	if options.PrimaryTimeout <= 0 {
		options.PrimaryTimeout = defaultPrimaryTimeoutConstant
	}
	if options.InteractivePoolSize <= 0 {
		options.InteractivePoolSize = defaultInteractivePoolSizeConstant
	}
	if options.BatchPoolSize <= 0 {
		options.BatchPoolSize = defaultBatchPoolSizeConstant
	}
	if options.InteractivePageCap <= 0 {
		options.InteractivePageCap = defaultInteractivePageCapConstant
	}
	if options.BatchPageCap <= 0 {
		options.BatchPageCap = defaultBatchPageCapConstant
	}
	if options.CrawlBatchWidth <= 0 {
		options.CrawlBatchWidth = defaultCrawlBatchWidthConstant
	}
	return options
}

// Orchestrator runs the scan pipeline: cache check, primary clone-based
// analysis under a pool permit, crawl fallback, scoring, and the idempotent
// record. Interactive and batch scans draw from independent pools so neither
// class can starve the other.
type Orchestrator struct {
	analyzer        SnapshotAnalyzer
	historyCrawler  HistoryCrawler
	resultStore     ResultStore
	recorder        *metrics.Recorder
	clock           gitrepo.Clock
	logger          *zap.Logger
	options         Options
	cache           *resultCache
	inflightScans   singleflight.Group
	interactivePool *semaphore.Weighted
	batchPool       *semaphore.Weighted
}

// NewOrchestrator validates dependencies and builds an Orchestrator. A nil
// recorder disables metrics; a nil clock selects the system clock.
func NewOrchestrator(analyzer SnapshotAnalyzer, historyCrawler HistoryCrawler, resultStore ResultStore, recorder *metrics.Recorder, clock gitrepo.Clock, logger *zap.Logger, options Options) (*Orchestrator, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if analyzer == nil {
		return nil, ErrAnalyzerNotConfigured
	}
	if historyCrawler == nil {
		return nil, ErrCrawlerNotConfigured
	}
	if resultStore == nil {
		return nil, ErrStoreNotConfigured
	}
	if clock == nil {
		clock = gitrepo.SystemClock{}
	}
	options = options.withDefaults()

	return &Orchestrator{
		analyzer:        analyzer,
		historyCrawler:  historyCrawler,
		resultStore:     resultStore,
		recorder:        recorder,
		clock:           clock,
		logger:          logger,
		options:         options,
		cache:           newResultCache(options.CacheTimeToLive),
		interactivePool: semaphore.NewWeighted(options.InteractivePoolSize),
		batchPool:       semaphore.NewWeighted(options.BatchPoolSize),
	}, nil
}

// RunScan produces a ScanResult for the referenced repository. A recent prior
// result within the cache window short-circuits without re-acquisition, and
// concurrent duplicate requests for the same repository share one pipeline
// run. On primary-path failure other than NotFound the crawl fallback is
// attempted exactly once; its partial outcomes are recorded as successes.
func (orchestrator *Orchestrator) RunScan(executionContext context.Context, reference gitrepo.RepositoryReference, cutoff time.Time, executionClass ExecutionClass) (report.ScanResult, error) {
	if executionClass != ExecutionClassInteractive && executionClass != ExecutionClassBatch {
		return report.ScanResult{}, ErrUnknownExecutionClass
	}

	cacheKey := reference.CanonicalIdentifier()
	if cachedResult, present := orchestrator.cache.lookup(cacheKey, orchestrator.clock.Now()); present {
		orchestrator.logger.Debug(logMessageCacheHitConstant, zap.String(logFieldRepositoryConstant, reference.Slug()))
		if orchestrator.recorder != nil {
			orchestrator.recorder.RecordCacheHit()
		}
		return cachedResult, nil
	}

	sharedResult, scanError, _ := orchestrator.inflightScans.Do(cacheKey, func() (any, error) {
		return orchestrator.runPipeline(executionContext, reference, cutoff, executionClass)
	})
	if scanError != nil {
		return report.ScanResult{}, scanError
	}
	return sharedResult.(report.ScanResult), nil
}

func (orchestrator *Orchestrator) runPipeline(executionContext context.Context, reference gitrepo.RepositoryReference, cutoff time.Time, executionClass ExecutionClass) (report.ScanResult, error) {
	startedAt := orchestrator.clock.Now()

	pool := orchestrator.interactivePool
	if executionClass == ExecutionClassBatch {
		pool = orchestrator.batchPool
	}
	if acquireError := pool.Acquire(executionContext, 1); acquireError != nil {
		return report.ScanResult{}, report.ErrScanTimeout
	}
	defer pool.Release(1)

	scanResult, scanError := orchestrator.acquireAndScore(executionContext, reference, cutoff, executionClass)
	if orchestrator.recorder != nil {
		orchestrator.recorder.ObserveScan(string(scanResult.Source), scanError == nil, string(executionClass), orchestrator.clock.Now().Sub(startedAt))
	}
	if scanError != nil {
		return report.ScanResult{}, scanError
	}

	if persistError := orchestrator.persist(executionContext, scanResult); persistError != nil {
		return report.ScanResult{}, persistError
	}
	orchestrator.cache.store(reference.CanonicalIdentifier(), scanResult, orchestrator.clock.Now())

	orchestrator.logger.Info(
		logMessageScanRecordedConstant,
		zap.String(logFieldRepositoryConstant, reference.Slug()),
		zap.String(logFieldExecutionClassConstant, string(executionClass)),
		zap.String(logFieldSourceConstant, string(scanResult.Source)),
		zap.Int(logFieldPointsConstant, scanResult.Score.Points),
		zap.String(logFieldGradeConstant, scanResult.Score.Grade),
	)
	return scanResult, nil
}

func (orchestrator *Orchestrator) acquireAndScore(executionContext context.Context, reference gitrepo.RepositoryReference, cutoff time.Time, executionClass ExecutionClass) (report.ScanResult, error) {
	primaryContext, cancelPrimary := context.WithTimeout(executionContext, orchestrator.options.PrimaryTimeout)
	analysis, primaryError := orchestrator.analyzer.Analyze(primaryContext, reference, cutoff)
	primaryDeadlineExpired := errors.Is(primaryContext.Err(), context.DeadlineExceeded)
	cancelPrimary()
	if primaryError == nil {
		return orchestrator.composeCloneResult(reference, analysis)
	}
	if errors.Is(primaryError, report.ErrRepositoryNotFound) {
		return report.ScanResult{}, primaryError
	}
	if primaryDeadlineExpired && executionContext.Err() == nil {
		primaryError = report.ErrScanTimeout
	}

	orchestrator.logger.Warn(
		logMessagePrimaryFailedConstant,
		zap.String(logFieldRepositoryConstant, reference.Slug()),
		zap.Error(primaryError),
	)
	if orchestrator.recorder != nil {
		orchestrator.recorder.RecordFallback()
	}

	pageCap := orchestrator.options.InteractivePageCap
	if executionClass == ExecutionClassBatch {
		pageCap = orchestrator.options.BatchPageCap
	}
	outcome, fallbackError := orchestrator.historyCrawler.Crawl(executionContext, reference, crawler.Options{
		PageCap:    pageCap,
		BatchWidth: orchestrator.options.CrawlBatchWidth,
	})
	if fallbackError != nil {
		return report.ScanResult{}, combineAcquisitionErrors(primaryError, fallbackError)
	}
	return orchestrator.composeCrawlResult(reference, outcome)
}

func (orchestrator *Orchestrator) composeCloneResult(reference gitrepo.RepositoryReference, analysis cloneanalyzer.Analysis) (report.ScanResult, error) {
	scanFingerprint, fingerprintError := deriveFingerprint(analysis.RootCommitHash, analysis.CanonicalID)
	if fingerprintError != nil {
		return report.ScanResult{}, fingerprintError
	}

	scoreInputs := buildCloneScoreInputs(analysis)
	scoreResult := score.Compute(scoreInputs)

	return report.ScanResult{
		Reference:    reference,
		Fingerprint:  scanFingerprint,
		Attribution:  analysis.Attribution,
		Indicators:   analysis.Indicators,
		SingleBranch: scoreInputs.SingleBranch,
		Score:        scoreResult,
		Narrative:    score.Narrate(scoreResult, scoreInputs),
		Source:       report.SourceClone,
		ScannedAt:    orchestrator.clock.Now(),
	}, nil
}

func (orchestrator *Orchestrator) composeCrawlResult(reference gitrepo.RepositoryReference, outcome crawler.Outcome) (report.ScanResult, error) {
	scanFingerprint, fingerprintError := fingerprint.ComputeRemoteOnly(reference.CanonicalIdentifier())
	if fingerprintError != nil {
		return report.ScanResult{}, fingerprintError
	}

	scoreInputs := score.Inputs{AssistedRatio: outcome.Attribution.AssistedRatio()}
	scoreResult := score.Compute(scoreInputs)

	return report.ScanResult{
		Reference:   reference,
		Fingerprint: scanFingerprint,
		Attribution: outcome.Attribution,
		Score:       scoreResult,
		Narrative:   score.Narrate(scoreResult, scoreInputs),
		Source:      report.SourceCrawl,
		Partial:     outcome.Partial,
		ScannedAt:   orchestrator.clock.Now(),
	}, nil
}

func (orchestrator *Orchestrator) persist(executionContext context.Context, scanResult report.ScanResult) error {
	if upsertError := orchestrator.resultStore.UpsertResult(executionContext, scanResult); upsertError != nil {
		return fmt.Errorf(persistenceFailureTemplate, upsertError)
	}
	appendError := orchestrator.resultStore.AppendEvent(executionContext, store.Event{
		Fingerprint: scanResult.Fingerprint.Value,
		Source:      scanResult.Source,
		Partial:     scanResult.Partial,
		Points:      scanResult.Score.Points,
		Grade:       scanResult.Score.Grade,
		RecordedAt:  scanResult.ScannedAt,
	})
	if appendError != nil {
		return fmt.Errorf(persistenceFailureTemplate, appendError)
	}
	return nil
}

// deriveFingerprint prefers the full-history identity; bounded acquisitions
// without a proven root commit fall back to the remote-only identity so that
// rescans across modes still converge on one record.
func deriveFingerprint(rootCommitHash string, canonicalID string) (fingerprint.Fingerprint, error) {
	if len(rootCommitHash) > 0 {
		return fingerprint.ComputeFullHistory(rootCommitHash, canonicalID)
	}
	return fingerprint.ComputeRemoteOnly(canonicalID)
}

func buildCloneScoreInputs(analysis cloneanalyzer.Analysis) score.Inputs {
	indicatorReport := analysis.Indicators
	return score.Inputs{
		TreeInspected:         true,
		AssistedRatio:         analysis.Attribution.AssistedRatio(),
		TestFileCount:         indicatorReport.TestFileCount,
		EnvFilesInGit:         len(indicatorReport.EnvFilesInGit),
		SecretHintCount:       indicatorReport.SecretHintCount,
		DependencyCount:       indicatorReport.DependencyCount,
		HasLintConfig:         indicatorReport.HasLintConfig,
		HasCIConfig:           indicatorReport.HasCIConfig,
		AssistedWithoutConfig: analysis.Attribution.AssistedCommits > 0 && !indicatorReport.HasAIToolConfig,
		NodeModulesTracked:    indicatorReport.NodeModulesTracked,
		MissingGitignore:      indicatorReport.MissingGitignore,
		MissingReadme:         indicatorReport.MissingReadme,
		TodoCount:             indicatorReport.TodoCount,
		SingleBranch:          analysis.BranchCount == 1,
		TotalSourceLines:      indicatorReport.TotalSourceLines,
	}
}

// combineAcquisitionErrors picks the error surfaced after both paths fail,
// keeping the primary classification when it is the more specific one.
func combineAcquisitionErrors(primaryError error, fallbackError error) error {
	if errors.Is(primaryError, report.ErrScanTimeout) || errors.Is(primaryError, report.ErrThrottled) {
		return primaryError
	}
	return fallbackError
}
