package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/webshepherd/webshepherd/internal/scan"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock)
	require.NoError(t, err)
	return store, mock
}

// anyUpdateArgs returns one wildcard matcher per parameter of the UPDATE
// statement; pgxmock requires the expected argument count to match even when
// the values themselves are not being asserted.
func anyUpdateArgs() []any {
	args := make([]any, 17)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestCreateInsertsRow(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	createdAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	record := scan.Scan{
		ID:        "abc123",
		URL:       "https://example.com",
		Status:    scan.StatusPending,
		CreatedAt: createdAt,
	}

	mock.ExpectExec("INSERT INTO scans").
		WithArgs(
			"abc123", "https://example.com", "pending", (*float64)(nil), []byte(nil),
			0, 0, 0, 0,
			0, 0, 0, 0,
			createdAt, (*time.Time)(nil), (*int64)(nil), (*string)(nil),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Create(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT scan_id, url, status").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, scan.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCompletedRecord(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	createdAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	completedAt := createdAt.Add(2 * time.Second)
	score := 87.0
	duration := int64(2000)
	findings := []byte(`[{"rule_code":"IMG_ALT_MISSING","severity":"fail","message":"m","wcag_reference":"1.1.1","wcag_level":"AA","principle":"Perceivable","count":2}]`)

	rows := pgxmock.NewRows([]string{
		"scan_id", "url", "status", "score", "findings",
		"total_checks", "passed_checks", "warnings", "failures",
		"perceivable_issues", "operable_issues", "understandable_issues", "robust_issues",
		"created_at", "completed_at", "duration_ms", "error_message",
	}).AddRow(
		"abc123", "https://example.com", "complete", &score, findings,
		10, 9, 0, 1,
		1, 0, 0, 0,
		createdAt, &completedAt, &duration, (*string)(nil),
	)

	mock.ExpectQuery("SELECT scan_id, url, status").
		WithArgs("abc123").
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, scan.StatusComplete, got.Status)
	require.Equal(t, 87.0, *got.Score)
	require.Len(t, got.Findings, 1)
	require.Equal(t, "IMG_ALT_MISSING", got.Findings[0].RuleCode)
	require.Equal(t, 2, got.Findings[0].Count)
	require.Equal(t, scan.Counters{TotalChecks: 10, PassedChecks: 9, Failures: 1}, got.Counters)
	require.True(t, completedAt.Equal(*got.CompletedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateRewritesIssueRows(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	createdAt := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	record := scan.Scan{
		ID:        "abc123",
		URL:       "https://example.com",
		Status:    scan.StatusComplete,
		CreatedAt: createdAt,
		Findings: []scan.Finding{
			{RuleCode: "IMG_ALT_MISSING", Severity: scan.SeverityFail, Count: 2},
			{RuleCode: "PAGE_TITLE_MISSING", Severity: scan.SeverityPass, Count: 1},
		},
	}

	mock.ExpectExec("UPDATE scans SET").
		WithArgs(anyUpdateArgs()...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM scan_issues").
		WithArgs("abc123").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	// Only the non-pass finding becomes an issue row.
	mock.ExpectExec("INSERT INTO scan_issues").
		WithArgs("abc123", "IMG_ALT_MISSING", 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Update(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMissingRecord(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE scans SET").
		WithArgs(anyUpdateArgs()...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Update(context.Background(), scan.Scan{ID: "missing", Status: scan.StatusProcessing})
	require.ErrorIs(t, err, scan.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsQueries(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	dayStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(dayStart).
		WillReturnRows(pgxmock.NewRows([]string{"count", "today", "avg"}).AddRow(3, 2, 70.0))
	mock.ExpectQuery("SELECT rule_code, SUM").
		WithArgs(maxCommonIssues).
		WillReturnRows(pgxmock.NewRows([]string{"rule_code", "total"}).
			AddRow("IMG_ALT_MISSING", 5).
			AddRow("DUPLICATE_ID", 1))

	stats, err := store.Stats(context.Background(), dayStart)
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalScans)
	require.Equal(t, 2, stats.ScansToday)
	require.Equal(t, 70.0, stats.AverageScore)
	require.Equal(t, []scan.IssueCount{
		{Rule: "IMG_ALT_MISSING", Count: 5},
		{Rule: "DUPLICATE_ID", Count: 1},
	}, stats.CommonIssues)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.Error(t, err)
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	require.Error(t, err)
}
