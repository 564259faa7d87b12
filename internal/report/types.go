package report

import (
	"time"

	"github.com/monkeycs60/vibereport/internal/classify"
	"github.com/monkeycs60/vibereport/internal/fingerprint"
	"github.com/monkeycs60/vibereport/internal/gitrepo"
	"github.com/monkeycs60/vibereport/internal/indicators"
	"github.com/monkeycs60/vibereport/internal/score"
)

// Source identifies which analysis path produced a result.
type Source string

// Supported analysis paths.
const (
	SourceClone Source = "clone"
	SourceCrawl Source = "crawl"
)

// ScanResult is the complete outcome of analyzing one repository. Partial
// marks results assembled from an incomplete crawl; they are stored as
// successes but flagged so consumers can weigh them accordingly.
type ScanResult struct {
	Reference     gitrepo.RepositoryReference
	Fingerprint   fingerprint.Fingerprint
	Attribution   classify.Summary
	Indicators    indicators.Report
	SingleBranch  bool
	HasMegaCommit bool
	Score         score.Result
	Narrative     string
	Source        Source
	Partial       bool
	ScannedAt     time.Time
}
