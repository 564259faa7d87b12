package report

import "errors"

const (
	repositoryNotFoundMessageConstant = "repository not found"
	scanTimeoutMessageConstant        = "scan deadline exceeded"
	throttledMessageConstant          = "remote host throttled the scan"
	partialDataMessageConstant        = "scan produced partial data"
)

// Scan failure taxonomy. Every error leaving the scan service wraps exactly
// one of these sentinels so callers can branch without string matching.
var (
	ErrRepositoryNotFound = errors.New(repositoryNotFoundMessageConstant)
	ErrScanTimeout        = errors.New(scanTimeoutMessageConstant)
	ErrThrottled          = errors.New(throttledMessageConstant)
	ErrPartialData        = errors.New(partialDataMessageConstant)
)
