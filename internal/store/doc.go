// Package store persists scan results and scan events in a SQLite database.
// Results are keyed by repository fingerprint so rescans of the same
// repository replace the stored row instead of accumulating duplicates.
package store
