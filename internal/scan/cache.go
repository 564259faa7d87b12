package scan

import (
	"sync"
	"time"

	"github.com/monkeycs60/vibereport/internal/report"
)

// resultCache absorbs duplicate near-simultaneous scans of the same
// repository. Entries expire after the configured time-to-live; expired
// entries are evicted lazily on lookup.
type resultCache struct {
	mutex      sync.Mutex
	timeToLive time.Duration
	entries    map[string]cachedResult
}

type cachedResult struct {
	result   report.ScanResult
	storedAt time.Time
}

func newResultCache(timeToLive time.Duration) *resultCache {
	return &resultCache{
		timeToLive: timeToLive,
		entries:    map[string]cachedResult{},
	}
}

func (cache *resultCache) lookup(cacheKey string, now time.Time) (report.ScanResult, bool) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	entry, present := cache.entries[cacheKey]
	if !present {
		return report.ScanResult{}, false
	}
	if now.Sub(entry.storedAt) > cache.timeToLive {
		delete(cache.entries, cacheKey)
		return report.ScanResult{}, false
	}
	return entry.result, true
}

func (cache *resultCache) store(cacheKey string, result report.ScanResult, now time.Time) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.entries[cacheKey] = cachedResult{result: result, storedAt: now}
}
