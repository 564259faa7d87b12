package crawler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/monkeycs60/vibereport/internal/classify"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/report"
)

const (
	defaultBatchWidthConstant          = 5
	defaultPageCapConstant             = 30
	loggerNotConfiguredMessageConstant = "crawler logger not configured"
	fetcherNotConfiguredMessage        = "crawler page fetcher not configured"
	classifierNotConfiguredMessage     = "crawler classifier not configured"
	logFieldRepositoryConstant         = "repository"
	logFieldPagesFetchedConstant       = "pages_fetched"
	logFieldTotalCommitsConstant       = "total_commits"
	logFieldPartialConstant            = "partial"
	logMessageProbeStartedConstant     = "probing remote commit history"
	logMessageCrawlFinishedConstant    = "remote history crawl finished"
)

// Dependency validation errors.
var (
	ErrLoggerNotConfigured     = errors.New(loggerNotConfiguredMessageConstant)
	ErrFetcherNotConfigured    = errors.New(fetcherNotConfiguredMessage)
	ErrClassifierNotConfigured = errors.New(classifierNotConfiguredMessage)
)

// Options bounds a crawl's request budget. PageCap is the hard cap on total
// pages fetched; BatchWidth bounds simultaneous in-flight page requests.
type Options struct {
	PageCap    int
	BatchWidth int
}

func (options Options) withDefaults() Options {
	if options.PageCap <= 0 {
		options.PageCap = defaultPageCapConstant
	}
	if options.BatchWidth <= 0 {
		options.BatchWidth = defaultBatchWidthConstant
	}
	return options
}

// Outcome is the aggregate produced by a crawl. OldestCommitHash is the
// oldest commit the crawl observed; paginated traversal cannot prove it is
// the true root, so it is informational only. Partial reports that the page
// cap truncated the crawl.
type Outcome struct {
	Attribution      classify.Summary
	OldestCommitHash string
	OldestCommitTime time.Time
	PagesFetched     int
	Partial          bool
}

// Crawler walks a repository's remote commit history page by page, folding
// each page into an attribution aggregate and discarding it. Memory use is
// bounded by one batch of pages regardless of history length.
type Crawler struct {
	fetcher    PageFetcher
	classifier *classify.Classifier
	logger     *zap.Logger
}

// NewCrawler validates dependencies and builds a Crawler.
func NewCrawler(fetcher PageFetcher, classifier *classify.Classifier, logger *zap.Logger) (*Crawler, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if fetcher == nil {
		return nil, ErrFetcherNotConfigured
	}
	if classifier == nil {
		return nil, ErrClassifierNotConfigured
	}
	return &Crawler{fetcher: fetcher, classifier: classifier, logger: logger}, nil
}

// Crawl probes the first history page, then fetches remaining pages in
// batches until the history ends or the page cap is reached. An empty probe
// reports report.ErrRepositoryNotFound without attempting further batches.
func (historyCrawler *Crawler) Crawl(executionContext context.Context, reference gitrepo.RepositoryReference, options Options) (Outcome, error) {
	options = options.withDefaults()
	historyCrawler.logger.Debug(logMessageProbeStartedConstant, zap.String(logFieldRepositoryConstant, reference.Slug()))

	probePage, probeError := historyCrawler.fetcher.FetchCommitPage(executionContext, reference, 1)
	if probeError != nil {
		return Outcome{}, probeError
	}
	if len(probePage.Commits) == 0 {
		return Outcome{}, report.ErrRepositoryNotFound
	}

	outcome := Outcome{}
	historyCrawler.foldPage(&outcome, probePage.Commits)
	outcome.PagesFetched = 1

	lastKnownPage := probePage.TotalPageHint
	nextPageNumber := 2
	for probePage.NextPage != 0 {
		if outcome.PagesFetched >= options.PageCap {
			outcome.Partial = true
			break
		}
		if lastKnownPage != 0 && nextPageNumber > lastKnownPage {
			break
		}

		batchPages, batchError := historyCrawler.fetchBatch(executionContext, reference, nextPageNumber, options, lastKnownPage, outcome.PagesFetched)
		if batchError != nil {
			return Outcome{}, batchError
		}
		if len(batchPages) == 0 {
			break
		}

		batchCommitCount := 0
		for _, batchPage := range batchPages {
			historyCrawler.foldPage(&outcome, batchPage.Commits)
			batchCommitCount += len(batchPage.Commits)
		}
		outcome.PagesFetched += len(batchPages)
		nextPageNumber += len(batchPages)

		// An all-empty batch means pagination metadata overestimated the
		// history; treat it as end-of-data.
		if batchCommitCount == 0 {
			break
		}
		if lastKnownPage != 0 && nextPageNumber > lastKnownPage {
			break
		}
	}

	historyCrawler.logger.Debug(
		logMessageCrawlFinishedConstant,
		zap.String(logFieldRepositoryConstant, reference.Slug()),
		zap.Int(logFieldPagesFetchedConstant, outcome.PagesFetched),
		zap.Int(logFieldTotalCommitsConstant, outcome.Attribution.TotalCommits),
		zap.Bool(logFieldPartialConstant, outcome.Partial),
	)
	return outcome, nil
}

// fetchBatch issues up to BatchWidth page requests concurrently, capped by
// both the remaining request budget and the known last page.
func (historyCrawler *Crawler) fetchBatch(executionContext context.Context, reference gitrepo.RepositoryReference, firstPageNumber int, options Options, lastKnownPage int, pagesAlreadyFetched int) ([]CommitPage, error) {
	batchSize := options.BatchWidth
	if remainingBudget := options.PageCap - pagesAlreadyFetched; batchSize > remainingBudget {
		batchSize = remainingBudget
	}
	if lastKnownPage != 0 {
		if remainingPages := lastKnownPage - firstPageNumber + 1; batchSize > remainingPages {
			batchSize = remainingPages
		}
	}
	if batchSize <= 0 {
		return nil, nil
	}

	batchPages := make([]CommitPage, batchSize)
	fetchGroup, fetchContext := errgroup.WithContext(executionContext)
	for batchIndex := 0; batchIndex < batchSize; batchIndex++ {
		fetchGroup.Go(func() error {
			fetchedPage, fetchError := historyCrawler.fetcher.FetchCommitPage(fetchContext, reference, firstPageNumber+batchIndex)
			if fetchError != nil {
				return fetchError
			}
			batchPages[batchIndex] = fetchedPage
			return nil
		})
	}
	if waitError := fetchGroup.Wait(); waitError != nil {
		return nil, waitError
	}
	return batchPages, nil
}

// foldPage classifies a page of commits into the aggregate and tracks the
// oldest commit seen. Pages arrive newest first.
func (historyCrawler *Crawler) foldPage(outcome *Outcome, commits []gitrepo.Commit) {
	for _, commit := range commits {
		outcome.Attribution.Record(historyCrawler.classifier.Classify(commit))
		if outcome.OldestCommitTime.IsZero() || commit.Timestamp.Before(outcome.OldestCommitTime) {
			outcome.OldestCommitHash = commit.Hash
			outcome.OldestCommitTime = commit.Timestamp
		}
	}
}
