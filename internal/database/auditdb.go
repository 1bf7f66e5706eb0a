package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/siteaudit/internal/model"
)

// DBFileName is the SQLite file created inside the database directory.
const DBFileName = "siteaudit.db"

// AuditDB provides SQLite-based storage for audit reports.
// It manages connection pooling and provides methods for saving and
// querying run history.
//
// Design decision: We store the full report as JSON next to a few
// denormalized summary columns rather than normalizing pages and
// findings into tables because:
//  1. The report is read back whole for display and comparison
//  2. Summary columns cover every history query without JSON parsing
//  3. The wire format and the storage format stay identical
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite DSN: mode=rw prevents creating new files,
	// mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- Audit runs store complete reports as JSON plus summary columns
	CREATE TABLE IF NOT EXISTS audit_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		host TEXT NOT NULL,
		seed_url TEXT NOT NULL,
		started_at TEXT NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		total_pages INTEGER NOT NULL,
		total_findings INTEGER NOT NULL,
		error_count INTEGER NOT NULL DEFAULT 0,
		warning_count INTEGER NOT NULL DEFAULT 0,
		info_count INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_host ON audit_runs(host);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON audit_runs(started_at);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// RunMetadata summarizes one stored run without its full report.
type RunMetadata struct {
	ID            int64
	Host          string
	SeedURL       string
	StartedAt     time.Time
	Cancelled     bool
	TotalPages    int
	TotalFindings int
	ErrorCount    int
	WarningCount  int
	InfoCount     int
}

// SaveRun persists a finished report and returns its row ID.
func (adb *AuditDB) SaveRun(ctx context.Context, report *model.Report) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	bySeverity := report.Summary.FindingsBySeverity
	query := `
	INSERT INTO audit_runs
		(host, seed_url, started_at, cancelled, total_pages, total_findings,
		 error_count, warning_count, info_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := adb.db.ExecContext(ctx, query,
		model.CanonicalHost(report.SeedURL),
		report.SeedURL,
		report.StartedAt.UTC().Format(time.RFC3339Nano),
		report.Cancelled,
		report.Summary.TotalPages,
		report.Summary.TotalFindings,
		bySeverity[model.SeverityError.String()],
		bySeverity[model.SeverityWarning.String()],
		bySeverity[model.SeverityInfo.String()],
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit run: %w", err)
	}

	return result.LastInsertId()
}

// GetRunByID retrieves one stored report by row ID.
// Returns nil without error when the ID is unknown.
func (adb *AuditDB) GetRunByID(ctx context.Context, id int64) (*model.Report, error) {
	var reportJSON string
	err := adb.db.QueryRowContext(ctx,
		`SELECT report_json FROM audit_runs WHERE id = ?`, id,
	).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit run: %w", err)
	}
	return decodeReport(reportJSON)
}

// GetLatestRuns retrieves the most recent n reports for a host, newest
// first.
func (adb *AuditDB) GetLatestRuns(ctx context.Context, host string, n int) ([]*model.Report, error) {
	rows, err := adb.db.QueryContext(ctx, `
	SELECT report_json FROM audit_runs
	WHERE host = ?
	ORDER BY started_at DESC, id DESC
	LIMIT ?`, host, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit runs: %w", err)
	}
	defer rows.Close()

	var reports []*model.Report
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit run: %w", err)
		}
		report, err := decodeReport(reportJSON)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

// GetRunHistory retrieves summary metadata for every run of a host,
// newest first.
func (adb *AuditDB) GetRunHistory(ctx context.Context, host string) ([]RunMetadata, error) {
	rows, err := adb.db.QueryContext(ctx, `
	SELECT id, host, seed_url, started_at, cancelled, total_pages,
	       total_findings, error_count, warning_count, info_count
	FROM audit_runs
	WHERE host = ?
	ORDER BY started_at DESC, id DESC`, host)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var history []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var startedAt string
		if err := rows.Scan(
			&meta.ID,
			&meta.Host,
			&meta.SeedURL,
			&startedAt,
			&meta.Cancelled,
			&meta.TotalPages,
			&meta.TotalFindings,
			&meta.ErrorCount,
			&meta.WarningCount,
			&meta.InfoCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}
		meta.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		history = append(history, meta)
	}
	return history, rows.Err()
}

// ListAuditedHosts returns every host with at least one stored run,
// ordered by most recent run.
func (adb *AuditDB) ListAuditedHosts(ctx context.Context) ([]string, error) {
	rows, err := adb.db.QueryContext(ctx, `
	SELECT host FROM audit_runs
	GROUP BY host
	ORDER BY MAX(started_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("failed to scan host: %w", err)
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// decodeReport parses a stored report JSON blob.
func decodeReport(reportJSON string) (*model.Report, error) {
	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse stored report: %w", err)
	}
	return &report, nil
}
