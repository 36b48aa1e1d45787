// Package postgres provides a pgx-backed scan store for deployments that
// outgrow the embedded SQLite database.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webshepherd/webshepherd/internal/scan"
)

const maxCommonIssues = 5

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists scans in Postgres.
type Store struct {
	pool dbPool
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := &Store{pool: pool}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool dbPool) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS scans (
	scan_id               TEXT PRIMARY KEY,
	url                   TEXT NOT NULL,
	status                TEXT NOT NULL,
	score                 DOUBLE PRECISION,
	findings              JSONB,
	total_checks          INTEGER NOT NULL DEFAULT 0,
	passed_checks         INTEGER NOT NULL DEFAULT 0,
	warnings              INTEGER NOT NULL DEFAULT 0,
	failures              INTEGER NOT NULL DEFAULT 0,
	perceivable_issues    INTEGER NOT NULL DEFAULT 0,
	operable_issues       INTEGER NOT NULL DEFAULT 0,
	understandable_issues INTEGER NOT NULL DEFAULT 0,
	robust_issues         INTEGER NOT NULL DEFAULT 0,
	created_at            TIMESTAMPTZ NOT NULL,
	completed_at          TIMESTAMPTZ,
	duration_ms           BIGINT,
	error_message         TEXT
);
CREATE TABLE IF NOT EXISTS scan_issues (
	scan_id     TEXT NOT NULL,
	rule_code   TEXT NOT NULL,
	issue_count INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_issues_scan ON scan_issues(scan_id)`)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Create inserts a new scan record.
func (s *Store) Create(ctx context.Context, record scan.Scan) error {
	findings, err := marshalFindings(record.Findings)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO scans (
	scan_id, url, status, score, findings,
	total_checks, passed_checks, warnings, failures,
	perceivable_issues, operable_issues, understandable_issues, robust_issues,
	created_at, completed_at, duration_ms, error_message
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		record.ID, record.URL, string(record.Status), record.Score, findings,
		record.Counters.TotalChecks, record.Counters.PassedChecks,
		record.Counters.Warnings, record.Counters.Failures,
		record.Issues.Perceivable, record.Issues.Operable,
		record.Issues.Understandable, record.Issues.Robust,
		record.CreatedAt, record.CompletedAt, record.DurationMs, nullString(record.Error),
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// Get fetches a scan by ID.
func (s *Store) Get(ctx context.Context, id string) (scan.Scan, error) {
	row := s.pool.QueryRow(ctx, `
SELECT scan_id, url, status, score, findings,
	total_checks, passed_checks, warnings, failures,
	perceivable_issues, operable_issues, understandable_issues, robust_issues,
	created_at, completed_at, duration_ms, error_message
FROM scans WHERE scan_id = $1`, id)

	var (
		record   scan.Scan
		status   string
		findings []byte
		errMsg   *string
	)
	err := row.Scan(
		&record.ID, &record.URL, &status, &record.Score, &findings,
		&record.Counters.TotalChecks, &record.Counters.PassedChecks,
		&record.Counters.Warnings, &record.Counters.Failures,
		&record.Issues.Perceivable, &record.Issues.Operable,
		&record.Issues.Understandable, &record.Issues.Robust,
		&record.CreatedAt, &record.CompletedAt, &record.DurationMs, &errMsg,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return scan.Scan{}, scan.ErrNotFound
	}
	if err != nil {
		return scan.Scan{}, fmt.Errorf("select scan: %w", err)
	}

	record.Status = scan.Status(status)
	if len(findings) > 0 {
		if err := json.Unmarshal(findings, &record.Findings); err != nil {
			return scan.Scan{}, fmt.Errorf("unmarshal findings: %w", err)
		}
	}
	if errMsg != nil {
		record.Error = *errMsg
	}
	return record, nil
}

// Update replaces the stored record wholesale and rewrites its issue rows.
func (s *Store) Update(ctx context.Context, record scan.Scan) error {
	findings, err := marshalFindings(record.Findings)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
UPDATE scans SET
	url = $2, status = $3, score = $4, findings = $5,
	total_checks = $6, passed_checks = $7, warnings = $8, failures = $9,
	perceivable_issues = $10, operable_issues = $11,
	understandable_issues = $12, robust_issues = $13,
	created_at = $14, completed_at = $15, duration_ms = $16, error_message = $17
WHERE scan_id = $1`,
		record.ID, record.URL, string(record.Status), record.Score, findings,
		record.Counters.TotalChecks, record.Counters.PassedChecks,
		record.Counters.Warnings, record.Counters.Failures,
		record.Issues.Perceivable, record.Issues.Operable,
		record.Issues.Understandable, record.Issues.Robust,
		record.CreatedAt, record.CompletedAt, record.DurationMs, nullString(record.Error),
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scan.ErrNotFound
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM scan_issues WHERE scan_id = $1`, record.ID); err != nil {
		return fmt.Errorf("clear scan issues: %w", err)
	}
	for _, f := range record.Findings {
		if f.Severity == scan.SeverityPass {
			continue
		}
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO scan_issues (scan_id, rule_code, issue_count) VALUES ($1,$2,$3)`,
			record.ID, f.RuleCode, f.Count,
		); err != nil {
			return fmt.Errorf("insert scan issue: %w", err)
		}
	}
	return nil
}

// Stats aggregates counters across all stored scans.
func (s *Store) Stats(ctx context.Context, dayStart time.Time) (scan.Stats, error) {
	stats := scan.Stats{CommonIssues: []scan.IssueCount{}}

	row := s.pool.QueryRow(ctx, `
SELECT COUNT(*),
	COUNT(*) FILTER (WHERE created_at >= $1),
	COALESCE(AVG(score), 0)
FROM scans`, dayStart)
	if err := row.Scan(&stats.TotalScans, &stats.ScansToday, &stats.AverageScore); err != nil {
		return scan.Stats{}, fmt.Errorf("aggregate scans: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
SELECT rule_code, SUM(issue_count) AS total
FROM scan_issues
GROUP BY rule_code
ORDER BY total DESC, rule_code ASC
LIMIT $1`, maxCommonIssues)
	if err != nil {
		return scan.Stats{}, fmt.Errorf("aggregate issues: %w", err)
	}
	defer rows.Close()

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

// Close releases the underlying pool resources.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func marshalFindings(findings []scan.Finding) ([]byte, error) {
	if findings == nil {
		return nil, nil
	}
	data, err := json.Marshal(findings)
	if err != nil {
		return nil, fmt.Errorf("marshal findings: %w", err)
	}
	return data, nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
