// Package scan orchestrates the full pipeline for one repository: cache
// lookup, clone-based analysis, crawl fallback, scoring, and the idempotent
// persistence of the result. Interactive and batch requests draw from
// separate concurrency pools.
package scan
