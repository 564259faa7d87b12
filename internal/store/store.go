package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/monkeycs60/vibereport/internal/fingerprint"
	"github.com/monkeycs60/vibereport/internal/report"
)

const (
	sqliteDriverNameConstant           = "sqlite"
	databaseDirectoryPermissions       = 0o755
	loggerNotConfiguredMessageConstant = "store logger not configured"
	databasePathRequiredMessage        = "database path is required"
	resultNotFoundMessageConstant      = "no stored result for fingerprint"
	openFailureTemplateConstant        = "unable to open results database: %w"
	pragmaFailureTemplateConstant      = "unable to apply pragma: %w"
	schemaFailureTemplateConstant      = "unable to initialize schema: %w"
	upsertFailureTemplateConstant      = "unable to upsert scan result: %w"
	lookupFailureTemplateConstant      = "unable to load scan result: %w"
	listFailureTemplateConstant        = "unable to list scan results: %w"
	eventFailureTemplateConstant       = "unable to append scan event: %w"
	encodeFailureTemplateConstant      = "unable to encode result details: %w"
	logFieldDatabasePathConstant       = "database_path"
	logFieldFingerprintConstant        = "fingerprint"
	logMessageDatabaseCreatedConstant  = "created results database"
	logMessageResultUpsertedConstant   = "stored scan result"
	defaultListLimitConstant           = 20
	maximumListLimitConstant           = 100
)

var connectionPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

const schemaStatementConstant = `
	CREATE TABLE IF NOT EXISTS scan_results (
		canonical_id      TEXT PRIMARY KEY,
		fingerprint       TEXT NOT NULL,
		fingerprint_scope TEXT NOT NULL,
		host              TEXT NOT NULL,
		owner             TEXT NOT NULL,
		name              TEXT NOT NULL,
		points            INTEGER NOT NULL,
		grade             TEXT NOT NULL,
		narrative         TEXT NOT NULL,
		assisted_ratio    REAL NOT NULL,
		total_commits     INTEGER NOT NULL,
		assisted_commits  INTEGER NOT NULL,
		details           TEXT NOT NULL,
		source            TEXT NOT NULL,
		partial           INTEGER NOT NULL,
		first_scanned_at  TEXT NOT NULL,
		last_scanned_at   TEXT NOT NULL,
		scan_count        INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_scan_results_fingerprint ON scan_results(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_scan_results_owner_name ON scan_results(owner, name);
	CREATE INDEX IF NOT EXISTS idx_scan_results_points ON scan_results(points DESC);

	CREATE TABLE IF NOT EXISTS scan_events (
		id          TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL,
		source      TEXT NOT NULL,
		partial     INTEGER NOT NULL,
		points      INTEGER NOT NULL,
		grade       TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scan_events_fingerprint ON scan_events(fingerprint);
`

const upsertStatementConstant = `
	INSERT INTO scan_results (
		canonical_id, fingerprint, fingerprint_scope, host, owner, name,
		points, grade, narrative, assisted_ratio, total_commits, assisted_commits,
		details, source, partial, first_scanned_at, last_scanned_at, scan_count
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	ON CONFLICT(canonical_id) DO UPDATE SET
		fingerprint = CASE
			WHEN excluded.fingerprint_scope = 'full_history' THEN excluded.fingerprint
			WHEN scan_results.fingerprint_scope = 'full_history' THEN scan_results.fingerprint
			ELSE excluded.fingerprint
		END,
		fingerprint_scope = CASE
			WHEN excluded.fingerprint_scope = 'full_history' THEN excluded.fingerprint_scope
			WHEN scan_results.fingerprint_scope = 'full_history' THEN scan_results.fingerprint_scope
			ELSE excluded.fingerprint_scope
		END,
		host              = excluded.host,
		owner             = excluded.owner,
		name              = excluded.name,
		points            = excluded.points,
		grade             = excluded.grade,
		narrative         = excluded.narrative,
		assisted_ratio    = excluded.assisted_ratio,
		total_commits     = excluded.total_commits,
		assisted_commits  = excluded.assisted_commits,
		details           = excluded.details,
		source            = excluded.source,
		partial           = excluded.partial,
		last_scanned_at   = excluded.last_scanned_at,
		scan_count        = scan_results.scan_count + 1
`

// Initialization and lookup errors surfaced by the store.
var (
	ErrLoggerNotConfigured  = errors.New(loggerNotConfiguredMessageConstant)
	ErrDatabasePathRequired = errors.New(databasePathRequiredMessage)
	ErrResultNotFound       = errors.New(resultNotFoundMessageConstant)
)

// StoredResult is the persisted projection of a scan result.
type StoredResult struct {
	CanonicalID     string
	Fingerprint     fingerprint.Fingerprint
	Host            string
	Owner           string
	Name            string
	Points          int
	Grade           string
	Narrative       string
	AssistedRatio   float64
	TotalCommits    int
	AssistedCommits int
	Details         report.ScanResult
	Source          report.Source
	Partial         bool
	FirstScannedAt  time.Time
	LastScannedAt   time.Time
	ScanCount       int
}

// Event records one completed scan against a fingerprint, preserving history
// the idempotent result row discards.
type Event struct {
	Identifier  string
	Fingerprint string
	Source      report.Source
	Partial     bool
	Points      int
	Grade       string
	RecordedAt  time.Time
}

// Store persists scan results and events in a SQLite database.
type Store struct {
	connection *sql.DB
	logger     *zap.Logger
}

// Open creates or opens the results database at databasePath, applying
// connection pragmas and the schema.
func Open(databasePath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if len(databasePath) == 0 {
		return nil, ErrDatabasePathRequired
	}

	if directoryError := os.MkdirAll(filepath.Dir(databasePath), databaseDirectoryPermissions); directoryError != nil {
		return nil, fmt.Errorf(openFailureTemplateConstant, directoryError)
	}

	_, statError := os.Stat(databasePath)
	databaseExisted := statError == nil

	connection, openError := sql.Open(sqliteDriverNameConstant, databasePath)
	if openError != nil {
		return nil, fmt.Errorf(openFailureTemplateConstant, openError)
	}

	for _, pragma := range connectionPragmas {
		if _, pragmaError := connection.Exec(pragma); pragmaError != nil {
			_ = connection.Close()
			return nil, fmt.Errorf(pragmaFailureTemplateConstant, pragmaError)
		}
	}

	if _, schemaError := connection.Exec(schemaStatementConstant); schemaError != nil {
		_ = connection.Close()
		return nil, fmt.Errorf(schemaFailureTemplateConstant, schemaError)
	}

	if !databaseExisted {
		logger.Info(logMessageDatabaseCreatedConstant, zap.String(logFieldDatabasePathConstant, databasePath))
	}

	return &Store{connection: connection, logger: logger}, nil
}

// Close releases the database connection.
func (resultStore *Store) Close() error {
	if resultStore.connection != nil {
		return resultStore.connection.Close()
	}
	return nil
}

// UpsertResult stores the scan result keyed by the repository's canonical
// remote identity, so clone and crawl scans of the same repository converge
// on one row. Rescans replace the row, preserve first_scanned_at, and bump
// the scan counter. A full-history fingerprint, once recorded, is never
// downgraded by a later remote-only rescan.
func (resultStore *Store) UpsertResult(executionContext context.Context, scanResult report.ScanResult) error {
	detailBytes, encodeError := json.Marshal(scanResult)
	if encodeError != nil {
		return fmt.Errorf(encodeFailureTemplateConstant, encodeError)
	}

	scannedAt := scanResult.ScannedAt.UTC().Format(time.RFC3339)
	_, executionError := resultStore.connection.ExecContext(executionContext, upsertStatementConstant,
		scanResult.Reference.CanonicalIdentifier(),
		scanResult.Fingerprint.Value,
		string(scanResult.Fingerprint.Scope),
		scanResult.Reference.Host,
		scanResult.Reference.Owner,
		scanResult.Reference.Name,
		scanResult.Score.Points,
		scanResult.Score.Grade,
		scanResult.Narrative,
		scanResult.Attribution.AssistedRatio(),
		scanResult.Attribution.TotalCommits,
		scanResult.Attribution.AssistedCommits,
		string(detailBytes),
		string(scanResult.Source),
		boolToInteger(scanResult.Partial),
		scannedAt,
		scannedAt,
	)
	if executionError != nil {
		return fmt.Errorf(upsertFailureTemplateConstant, executionError)
	}

	resultStore.logger.Debug(
		logMessageResultUpsertedConstant,
		zap.String(logFieldFingerprintConstant, scanResult.Fingerprint.Value),
	)
	return nil
}

// GetResult loads the stored result for a repository identity. The key may be
// either a fingerprint value or the canonical remote identity, so callers
// holding only the weaker remote-only fingerprint still find a row that has
// since been upgraded to full-history scope.
func (resultStore *Store) GetResult(executionContext context.Context, identityKey string) (StoredResult, error) {
	row := resultStore.connection.QueryRowContext(executionContext, `
		SELECT canonical_id, fingerprint, fingerprint_scope, host, owner, name,
			points, grade, narrative, assisted_ratio, total_commits, assisted_commits,
			details, source, partial, first_scanned_at, last_scanned_at, scan_count
		FROM scan_results WHERE fingerprint = ? OR canonical_id = ?
	`, identityKey, identityKey)

	storedResult, scanError := scanStoredResult(row)
	if errors.Is(scanError, sql.ErrNoRows) {
		return StoredResult{}, ErrResultNotFound
	}
	if scanError != nil {
		return StoredResult{}, fmt.Errorf(lookupFailureTemplateConstant, scanError)
	}
	return storedResult, nil
}

// ListResults returns stored results ordered by descending points.
func (resultStore *Store) ListResults(executionContext context.Context, limit int) ([]StoredResult, error) {
	if limit <= 0 {
		limit = defaultListLimitConstant
	}
	if limit > maximumListLimitConstant {
		limit = maximumListLimitConstant
	}

	rows, queryError := resultStore.connection.QueryContext(executionContext, `
		SELECT canonical_id, fingerprint, fingerprint_scope, host, owner, name,
			points, grade, narrative, assisted_ratio, total_commits, assisted_commits,
			details, source, partial, first_scanned_at, last_scanned_at, scan_count
		FROM scan_results
		ORDER BY points DESC, last_scanned_at DESC
		LIMIT ?
	`, limit)
	if queryError != nil {
		return nil, fmt.Errorf(listFailureTemplateConstant, queryError)
	}
	defer func() { _ = rows.Close() }()

	storedResults := []StoredResult{}
	for rows.Next() {
		storedResult, scanError := scanStoredResult(rows)
		if scanError != nil {
			return nil, fmt.Errorf(listFailureTemplateConstant, scanError)
		}
		storedResults = append(storedResults, storedResult)
	}
	if iterationError := rows.Err(); iterationError != nil {
		return nil, fmt.Errorf(listFailureTemplateConstant, iterationError)
	}
	return storedResults, nil
}

// AppendEvent records a completed scan in the append-only event log. A blank
// identifier is replaced with a fresh UUID.
func (resultStore *Store) AppendEvent(executionContext context.Context, event Event) error {
	identifier := event.Identifier
	if len(identifier) == 0 {
		identifier = uuid.NewString()
	}

	_, executionError := resultStore.connection.ExecContext(executionContext, `
		INSERT INTO scan_events (id, fingerprint, source, partial, points, grade, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		identifier,
		event.Fingerprint,
		string(event.Source),
		boolToInteger(event.Partial),
		event.Points,
		event.Grade,
		event.RecordedAt.UTC().Format(time.RFC3339),
	)
	if executionError != nil {
		return fmt.Errorf(eventFailureTemplateConstant, executionError)
	}
	return nil
}

// CountEvents returns the number of recorded events for a fingerprint.
func (resultStore *Store) CountEvents(executionContext context.Context, fingerprintValue string) (int, error) {
	var eventCount int
	countError := resultStore.connection.QueryRowContext(executionContext,
		`SELECT COUNT(*) FROM scan_events WHERE fingerprint = ?`, fingerprintValue,
	).Scan(&eventCount)
	if countError != nil {
		return 0, fmt.Errorf(lookupFailureTemplateConstant, countError)
	}
	return eventCount, nil
}

type rowScanner interface {
	Scan(destinations ...any) error
}

func scanStoredResult(scanner rowScanner) (StoredResult, error) {
	var storedResult StoredResult
	var scopeValue string
	var detailsValue string
	var sourceValue string
	var partialValue int
	var firstScannedValue string
	var lastScannedValue string

	scanError := scanner.Scan(
		&storedResult.CanonicalID,
		&storedResult.Fingerprint.Value,
		&scopeValue,
		&storedResult.Host,
		&storedResult.Owner,
		&storedResult.Name,
		&storedResult.Points,
		&storedResult.Grade,
		&storedResult.Narrative,
		&storedResult.AssistedRatio,
		&storedResult.TotalCommits,
		&storedResult.AssistedCommits,
		&detailsValue,
		&sourceValue,
		&partialValue,
		&firstScannedValue,
		&lastScannedValue,
		&storedResult.ScanCount,
	)
	if scanError != nil {
		return StoredResult{}, scanError
	}

	storedResult.Fingerprint.Scope = fingerprint.Scope(scopeValue)
	storedResult.Source = report.Source(sourceValue)
	storedResult.Partial = partialValue != 0
	if decodeError := json.Unmarshal([]byte(detailsValue), &storedResult.Details); decodeError != nil {
		return StoredResult{}, decodeError
	}
	if parsedTime, parseError := time.Parse(time.RFC3339, firstScannedValue); parseError == nil {
		storedResult.FirstScannedAt = parsedTime
	}
	if parsedTime, parseError := time.Parse(time.RFC3339, lastScannedValue); parseError == nil {
		storedResult.LastScannedAt = parsedTime
	}
	return storedResult, nil
}

func boolToInteger(value bool) int {
	if value {
		return 1
	}
	return 0
}
