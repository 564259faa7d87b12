// Package crawler implements the fallback acquisition path: a bounded,
// batched walk over a repository's remote commit history. It trades
// completeness for a hard request budget, producing attribution aggregates
// without ever holding the full history in memory.
package crawler
