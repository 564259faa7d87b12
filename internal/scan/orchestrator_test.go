package scan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monkeycs60/vibereport/internal/classify"
	"github.com/monkeycs60/vibereport/internal/cloneanalyzer"
	"github.com/monkeycs60/vibereport/internal/crawler"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/indicators"
	"github.com/monkeycs60/vibereport/internal/report"
	"github.com/monkeycs60/vibereport/internal/scan"
	"github.com/monkeycs60/vibereport/internal/store"
)

var testReference = gitrepo.RepositoryReference{Host: "github.com", Owner: "octocat", Name: "hello-world"}

type manualClock struct {
	mutex   sync.Mutex
	current time.Time
}

func newManualClock() *manualClock {
	return &manualClock{current: time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)}
}

func (clock *manualClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

func (clock *manualClock) Advance(delta time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(delta)
}

type stubAnalyzer struct {
	mutex     sync.Mutex
	analysis  cloneanalyzer.Analysis
	failure   error
	callCount int
	gate      chan struct{}
}

func (analyzer *stubAnalyzer) Analyze(_ context.Context, _ gitrepo.RepositoryReference, _ time.Time) (cloneanalyzer.Analysis, error) {
	analyzer.mutex.Lock()
	analyzer.callCount++
	gate := analyzer.gate
	analyzer.mutex.Unlock()

	if gate != nil {
		<-gate
	}
	if analyzer.failure != nil {
		return cloneanalyzer.Analysis{}, analyzer.failure
	}
	return analyzer.analysis, nil
}

func (analyzer *stubAnalyzer) calls() int {
	analyzer.mutex.Lock()
	defer analyzer.mutex.Unlock()
	return analyzer.callCount
}

type stubCrawler struct {
	mutex           sync.Mutex
	outcome         crawler.Outcome
	failure         error
	callCount       int
	recordedOptions []crawler.Options
}

func (historyCrawler *stubCrawler) Crawl(_ context.Context, _ gitrepo.RepositoryReference, options crawler.Options) (crawler.Outcome, error) {
	historyCrawler.mutex.Lock()
	defer historyCrawler.mutex.Unlock()
	historyCrawler.callCount++
	historyCrawler.recordedOptions = append(historyCrawler.recordedOptions, options)
	if historyCrawler.failure != nil {
		return crawler.Outcome{}, historyCrawler.failure
	}
	return historyCrawler.outcome, nil
}

type recordingStore struct {
	mutex   sync.Mutex
	results []report.ScanResult
	events  []store.Event
}

func (resultStore *recordingStore) UpsertResult(_ context.Context, scanResult report.ScanResult) error {
	resultStore.mutex.Lock()
	defer resultStore.mutex.Unlock()
	resultStore.results = append(resultStore.results, scanResult)
	return nil
}

func (resultStore *recordingStore) AppendEvent(_ context.Context, event store.Event) error {
	resultStore.mutex.Lock()
	defer resultStore.mutex.Unlock()
	resultStore.events = append(resultStore.events, event)
	return nil
}

func healthyAnalysis() cloneanalyzer.Analysis {
	return cloneanalyzer.Analysis{
		Attribution: classify.Summary{
			TotalCommits:    10,
			AssistedCommits: 6,
			CountsByTool:    map[classify.Tool]int{classify.ToolClaudeCode: 6, classify.ToolHuman: 4},
		},
		Indicators: indicators.Report{
			TestFileCount:   8,
			HasLintConfig:   true,
			HasCIConfig:     true,
			HasAIToolConfig: true,
		},
		RootCommitHash: "aaa111",
		BranchCount:    3,
		CanonicalID:    testReference.CanonicalIdentifier(),
	}
}

func newTestOrchestrator(testInstance *testing.T, analyzer scan.SnapshotAnalyzer, historyCrawler scan.HistoryCrawler, resultStore scan.ResultStore, clock gitrepo.Clock) *scan.Orchestrator {
	testInstance.Helper()

	orchestrator, creationError := scan.NewOrchestrator(analyzer, historyCrawler, resultStore, nil, clock, zap.NewNop(), scan.Options{})
	require.NoError(testInstance, creationError)
	return orchestrator
}

func TestNewOrchestratorRejectsMissingDependencies(testInstance *testing.T) {
	analyzer := &stubAnalyzer{}
	historyCrawler := &stubCrawler{}
	resultStore := &recordingStore{}

	testCases := []struct {
		name          string
		analyzer      scan.SnapshotAnalyzer
		crawler       scan.HistoryCrawler
		store         scan.ResultStore
		logger        *zap.Logger
		expectedError error
	}{
		{name: "nil_logger", analyzer: analyzer, crawler: historyCrawler, store: resultStore, logger: nil, expectedError: scan.ErrLoggerNotConfigured},
		{name: "nil_analyzer", analyzer: nil, crawler: historyCrawler, store: resultStore, logger: zap.NewNop(), expectedError: scan.ErrAnalyzerNotConfigured},
		{name: "nil_crawler", analyzer: analyzer, crawler: nil, store: resultStore, logger: zap.NewNop(), expectedError: scan.ErrCrawlerNotConfigured},
		{name: "nil_store", analyzer: analyzer, crawler: historyCrawler, store: nil, logger: zap.NewNop(), expectedError: scan.ErrStoreNotConfigured},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(subtestInstance *testing.T) {
			_, creationError := scan.NewOrchestrator(testCase.analyzer, testCase.crawler, testCase.store, nil, nil, testCase.logger, scan.Options{})
			require.ErrorIs(subtestInstance, creationError, testCase.expectedError)
		})
	}
}

func TestRunScanRejectsUnknownExecutionClass(testInstance *testing.T) {
	orchestrator := newTestOrchestrator(testInstance, &stubAnalyzer{analysis: healthyAnalysis()}, &stubCrawler{}, &recordingStore{}, newManualClock())

	_, scanError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClass("cron"))
	require.ErrorIs(testInstance, scanError, scan.ErrUnknownExecutionClass)
}

func TestRunScanRecordsCloneResult(testInstance *testing.T) {
	resultStore := &recordingStore{}
	orchestrator := newTestOrchestrator(testInstance, &stubAnalyzer{analysis: healthyAnalysis()}, &stubCrawler{}, resultStore, newManualClock())

	scanResult, scanError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.NoError(testInstance, scanError)

	require.Equal(testInstance, report.SourceClone, scanResult.Source)
	require.False(testInstance, scanResult.Partial)
	require.Equal(testInstance, "full_history", string(scanResult.Fingerprint.Scope))
	require.Equal(testInstance, 36, scanResult.Score.Points)
	require.NotEmpty(testInstance, scanResult.Narrative)

	require.Len(testInstance, resultStore.results, 1)
	require.Len(testInstance, resultStore.events, 1)
	require.Equal(testInstance, scanResult.Fingerprint.Value, resultStore.events[0].Fingerprint)
}

func TestRunScanServesCachedResultWithinWindow(testInstance *testing.T) {
	analyzer := &stubAnalyzer{analysis: healthyAnalysis()}
	clock := newManualClock()
	orchestrator := newTestOrchestrator(testInstance, analyzer, &stubCrawler{}, &recordingStore{}, clock)

	firstResult, firstError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.NoError(testInstance, firstError)

	clock.Advance(time.Minute)
	secondResult, secondError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassBatch)
	require.NoError(testInstance, secondError)

	require.Equal(testInstance, firstResult.Fingerprint, secondResult.Fingerprint)
	require.Equal(testInstance, 1, analyzer.calls())
}

func TestRunScanReacquiresAfterCacheExpiry(testInstance *testing.T) {
	analyzer := &stubAnalyzer{analysis: healthyAnalysis()}
	clock := newManualClock()
	orchestrator := newTestOrchestrator(testInstance, analyzer, &stubCrawler{}, &recordingStore{}, clock)

	_, firstError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.NoError(testInstance, firstError)

	clock.Advance(6 * time.Minute)
	_, secondError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, 2, analyzer.calls())
}

func TestRunScanCoalescesConcurrentDuplicates(testInstance *testing.T) {
	gate := make(chan struct{})
	analyzer := &stubAnalyzer{analysis: healthyAnalysis(), gate: gate}
	orchestrator := newTestOrchestrator(testInstance, analyzer, &stubCrawler{}, &recordingStore{}, newManualClock())

	var waitGroup sync.WaitGroup
	scanErrors := make([]error, 2)
	for callIndex := 0; callIndex < 2; callIndex++ {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			_, scanErrors[callIndex] = orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
		}()
	}

	require.Eventually(testInstance, func() bool { return analyzer.calls() >= 1 }, time.Second, time.Millisecond)
	// Give the second request time to join the in-flight scan before it
	// completes.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	waitGroup.Wait()

	require.NoError(testInstance, scanErrors[0])
	require.NoError(testInstance, scanErrors[1])
	require.Equal(testInstance, 1, analyzer.calls())
}

func TestRunScanFallsBackToCrawlOnPrimaryFailure(testInstance *testing.T) {
	historyCrawler := &stubCrawler{outcome: crawler.Outcome{
		Attribution: classify.Summary{TotalCommits: 200, AssistedCommits: 150, CountsByTool: map[classify.Tool]int{classify.ToolCursor: 150}},
		Partial:     true,
	}}
	resultStore := &recordingStore{}
	orchestrator := newTestOrchestrator(testInstance, &stubAnalyzer{failure: errors.New("clone blew up")}, historyCrawler, resultStore, newManualClock())

	scanResult, scanError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.NoError(testInstance, scanError)

	require.Equal(testInstance, report.SourceCrawl, scanResult.Source)
	require.True(testInstance, scanResult.Partial)
	require.Equal(testInstance, "remote_only", string(scanResult.Fingerprint.Scope))
	require.Equal(testInstance, 1, historyCrawler.callCount)
	require.Equal(testInstance, 10, historyCrawler.recordedOptions[0].PageCap)
	require.Len(testInstance, resultStore.results, 1)
	require.True(testInstance, resultStore.events[0].Partial)
}

func TestRunScanBatchClassUsesWiderPageCap(testInstance *testing.T) {
	historyCrawler := &stubCrawler{outcome: crawler.Outcome{
		Attribution: classify.Summary{TotalCommits: 5, AssistedCommits: 1, CountsByTool: map[classify.Tool]int{classify.ToolAider: 1}},
	}}
	orchestrator := newTestOrchestrator(testInstance, &stubAnalyzer{failure: errors.New("clone blew up")}, historyCrawler, &recordingStore{}, newManualClock())

	_, scanError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassBatch)
	require.NoError(testInstance, scanError)
	require.Equal(testInstance, 30, historyCrawler.recordedOptions[0].PageCap)
}

func TestRunScanDoesNotFallBackOnNotFound(testInstance *testing.T) {
	historyCrawler := &stubCrawler{}
	orchestrator := newTestOrchestrator(testInstance, &stubAnalyzer{failure: report.ErrRepositoryNotFound}, historyCrawler, &recordingStore{}, newManualClock())

	_, scanError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.ErrorIs(testInstance, scanError, report.ErrRepositoryNotFound)
	require.Zero(testInstance, historyCrawler.callCount)
}

func TestRunScanSurfacesFallbackErrorAfterGenericPrimaryFailure(testInstance *testing.T) {
	historyCrawler := &stubCrawler{failure: report.ErrThrottled}
	orchestrator := newTestOrchestrator(testInstance, &stubAnalyzer{failure: errors.New("clone blew up")}, historyCrawler, &recordingStore{}, newManualClock())

	_, scanError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.ErrorIs(testInstance, scanError, report.ErrThrottled)
	require.NotErrorIs(testInstance, scanError, report.ErrScanTimeout)
	require.Equal(testInstance, 1, historyCrawler.callCount)
}

func TestRunScanKeepsSpecificPrimaryErrorWhenBothPathsFail(testInstance *testing.T) {
	historyCrawler := &stubCrawler{failure: errors.New("network down")}
	orchestrator := newTestOrchestrator(testInstance, &stubAnalyzer{failure: report.ErrScanTimeout}, historyCrawler, &recordingStore{}, newManualClock())

	_, scanError := orchestrator.RunScan(context.Background(), testReference, time.Time{}, scan.ExecutionClassInteractive)
	require.ErrorIs(testInstance, scanError, report.ErrScanTimeout)
	require.Equal(testInstance, 1, historyCrawler.callCount)
}
