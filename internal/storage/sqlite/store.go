// Package sqlite provides the default persistent scan store backed by
// modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/webshepherd/webshepherd/internal/scan"
)

const maxCommonIssues = 5

// timeLayout pads fractional seconds to a fixed width so stored UTC
// timestamps compare lexicographically in chronological order. Variable
// width forms such as RFC3339Nano break the created_at >= ? comparison
// in Stats.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	scan_id               TEXT PRIMARY KEY,
	url                   TEXT NOT NULL,
	status                TEXT NOT NULL,
	score                 REAL,
	findings              TEXT,
	total_checks          INTEGER NOT NULL DEFAULT 0,
	passed_checks         INTEGER NOT NULL DEFAULT 0,
	warnings              INTEGER NOT NULL DEFAULT 0,
	failures              INTEGER NOT NULL DEFAULT 0,
	perceivable_issues    INTEGER NOT NULL DEFAULT 0,
	operable_issues       INTEGER NOT NULL DEFAULT 0,
	understandable_issues INTEGER NOT NULL DEFAULT 0,
	robust_issues         INTEGER NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL,
	completed_at          TEXT,
	duration_ms           INTEGER,
	error_message         TEXT
);
CREATE INDEX IF NOT EXISTS idx_scans_created_at ON scans(created_at);

CREATE TABLE IF NOT EXISTS scan_issues (
	scan_id     TEXT NOT NULL,
	rule_code   TEXT NOT NULL,
	issue_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_issues_scan ON scan_issues(scan_id);
`

// Store persists scans in a local SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (and if needed creates) the database at path and applies the
// schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent scan completions.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	return &Store{db: db}, nil
}

// Create inserts a new scan record.
func (s *Store) Create(ctx context.Context, record scan.Scan) error {
	findings, err := marshalFindings(record.Findings)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO scans (
	scan_id, url, status, score, findings,
	total_checks, passed_checks, warnings, failures,
	perceivable_issues, operable_issues, understandable_issues, robust_issues,
	created_at, completed_at, duration_ms, error_message
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		record.ID, record.URL, string(record.Status), nullFloat(record.Score), findings,
		record.Counters.TotalChecks, record.Counters.PassedChecks,
		record.Counters.Warnings, record.Counters.Failures,
		record.Issues.Perceivable, record.Issues.Operable,
		record.Issues.Understandable, record.Issues.Robust,
		record.CreatedAt.UTC().Format(timeLayout), nullTime(record.CompletedAt),
		nullInt(record.DurationMs), nullString(record.Error),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// Get fetches a scan by ID.
func (s *Store) Get(ctx context.Context, id string) (scan.Scan, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT scan_id, url, status, score, findings,
	total_checks, passed_checks, warnings, failures,
	perceivable_issues, operable_issues, understandable_issues, robust_issues,
	created_at, completed_at, duration_ms, error_message
FROM scans WHERE scan_id = ?`, id)
	record, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return scan.Scan{}, scan.ErrNotFound
	}
	if err != nil {
		return scan.Scan{}, fmt.Errorf("select scan: %w", err)
	}
	return record, nil
}

// Update replaces the stored record wholesale and rewrites its issue rows.
func (s *Store) Update(ctx context.Context, record scan.Scan) error {
	findings, err := marshalFindings(record.Findings)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
UPDATE scans SET
	url = ?, status = ?, score = ?, findings = ?,
	total_checks = ?, passed_checks = ?, warnings = ?, failures = ?,
	perceivable_issues = ?, operable_issues = ?, understandable_issues = ?, robust_issues = ?,
	created_at = ?, completed_at = ?, duration_ms = ?, error_message = ?
WHERE scan_id = ?`,
		record.URL, string(record.Status), nullFloat(record.Score), findings,
		record.Counters.TotalChecks, record.Counters.PassedChecks,
		record.Counters.Warnings, record.Counters.Failures,
		record.Issues.Perceivable, record.Issues.Operable,
		record.Issues.Understandable, record.Issues.Robust,
		record.CreatedAt.UTC().Format(timeLayout), nullTime(record.CompletedAt),
		nullInt(record.DurationMs), nullString(record.Error),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	if affected == 0 {
		return scan.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_issues WHERE scan_id = ?`, record.ID); err != nil {
		return fmt.Errorf("clear scan issues: %w", err)
	}
	for _, f := range record.Findings {
		if f.Severity == scan.SeverityPass {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO scan_issues (scan_id, rule_code, issue_count) VALUES (?,?,?)`,
			record.ID, f.RuleCode, f.Count,
		); err != nil {
			return fmt.Errorf("insert scan issue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// Stats aggregates counters across all stored scans.
func (s *Store) Stats(ctx context.Context, dayStart time.Time) (scan.Stats, error) {
	stats := scan.Stats{CommonIssues: []scan.IssueCount{}}

	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
	COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
	COALESCE(AVG(score), 0)
FROM scans`, dayStart.UTC().Format(timeLayout))
	if err := row.Scan(&stats.TotalScans, &stats.ScansToday, &stats.AverageScore); err != nil {
		return scan.Stats{}, fmt.Errorf("aggregate scans: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT rule_code, SUM(issue_count) AS total
FROM scan_issues
GROUP BY rule_code
ORDER BY total DESC, rule_code ASC
LIMIT ?`, maxCommonIssues)
	if err != nil {
		return scan.Stats{}, fmt.Errorf("aggregate issues: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read side only

	for rows.Next() {
		var issue scan.IssueCount
		if err := rows.Scan(&issue.Rule, &issue.Count); err != nil {
			return scan.Stats{}, fmt.Errorf("scan issue row: %w", err)
		}
		stats.CommonIssues = append(stats.CommonIssues, issue)
	}
	if err := rows.Err(); err != nil {
		return scan.Stats{}, fmt.Errorf("iterate issue rows: %w", err)
	}
	return stats, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite database: %w", err)
	}
	return nil
}

func scanRow(row *sql.Row) (scan.Scan, error) {
	var (
		record      scan.Scan
		status      string
		score       sql.NullFloat64
		findings    sql.NullString
		createdAt   string
		completedAt sql.NullString
		durationMs  sql.NullInt64
		errMsg      sql.NullString
	)
	err := row.Scan(
		&record.ID, &record.URL, &status, &score, &findings,
		&record.Counters.TotalChecks, &record.Counters.PassedChecks,
		&record.Counters.Warnings, &record.Counters.Failures,
		&record.Issues.Perceivable, &record.Issues.Operable,
		&record.Issues.Understandable, &record.Issues.Robust,
		&createdAt, &completedAt, &durationMs, &errMsg,
	)
	if err != nil {
		return scan.Scan{}, err
	}

	record.Status = scan.Status(status)
	if score.Valid {
		record.Score = &score.Float64
	}
	if findings.Valid && findings.String != "" {
		if err := json.Unmarshal([]byte(findings.String), &record.Findings); err != nil {
			return scan.Scan{}, fmt.Errorf("unmarshal findings: %w", err)
		}
	}
	record.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return scan.Scan{}, fmt.Errorf("parse created_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return scan.Scan{}, fmt.Errorf("parse completed_at: %w", err)
		}
		record.CompletedAt = &t
	}
	if durationMs.Valid {
		record.DurationMs = &durationMs.Int64
	}
	if errMsg.Valid {
		record.Error = errMsg.String
	}
	return record, nil
}

func marshalFindings(findings []scan.Finding) (any, error) {
	if findings == nil {
		return nil, nil
	}
	data, err := json.Marshal(findings)
	if err != nil {
		return nil, fmt.Errorf("marshal findings: %w", err)
	}
	return string(data), nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(timeLayout)
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
