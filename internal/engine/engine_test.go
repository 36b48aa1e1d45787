package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/fetcher"
	"github.com/webshepherd/webshepherd/internal/scan"
	"github.com/webshepherd/webshepherd/internal/storage/memory"
)

type stubFetcher struct {
	body []byte
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (scan.FetchResult, error) {
	if f.err != nil {
		return scan.FetchResult{}, f.err
	}
	return scan.FetchResult{Body: f.body, FinalURL: url, StatusCode: 200}, nil
}

type fakeIDGen struct {
	ids []string
}

func (g *fakeIDGen) NewID() (string, error) {
	if len(g.ids) == 0 {
		return "", errors.New("out of ids")
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

const goodPage = `<!DOCTYPE html>
<html lang="en">
<head><title>Test Page for Scanning</title></head>
<body><h1>Heading</h1><a href="/more">Full details</a></body>
</html>`

func newTestEngine(t *testing.T, f scan.Fetcher) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)}
	idGen := &fakeIDGen{ids: []string{"scan-1", "scan-2", "scan-3"}}
	return New(store, f, idGen, clock, Config{ExecTimeout: 5 * time.Second}, zap.NewNop()), store
}

func TestSubmitReturnsPendingImmediately(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, &stubFetcher{body: []byte(goodPage)})

	record, err := eng.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "scan-1", record.ID)
	require.Equal(t, scan.StatusPending, record.Status)
	require.Nil(t, record.Score)
	require.Empty(t, record.Findings)

	eng.Wait()
}

func TestScanCompletesWithScoreAndFindings(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, &stubFetcher{body: []byte(goodPage)})

	record, err := eng.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	eng.Wait()

	final, err := eng.Get(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, scan.StatusComplete, final.Status)
	require.NotNil(t, final.Score)
	require.NotEmpty(t, final.Findings)
	require.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.DurationMs)
	require.Empty(t, final.Error)
	require.Equal(t, final.Counters.TotalChecks, len(final.Findings))
}

func TestFetchFailureMarksScanFailed(t *testing.T) {
	t.Parallel()

	cause := &fetcher.Error{Kind: fetcher.KindUnreachable, URL: "https://down.example", Reason: "connection refused"}
	eng, _ := newTestEngine(t, &stubFetcher{err: cause})

	record, err := eng.Submit(context.Background(), "https://down.example")
	require.NoError(t, err)
	eng.Wait()

	final, err := eng.Get(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, scan.StatusFailed, final.Status)
	require.Contains(t, final.Error, "unreachable")
	require.NotNil(t, final.CompletedAt)

	// A failed scan carries no partial results.
	require.Nil(t, final.Score)
	require.Empty(t, final.Findings)
}

func TestTerminalRecordIsStable(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, &stubFetcher{body: []byte(goodPage)})

	record, err := eng.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	eng.Wait()

	first, err := eng.Get(context.Background(), record.ID)
	require.NoError(t, err)
	second, err := eng.Get(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.True(t, first.Status.Terminal())
}

func TestGetUnknownScan(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, &stubFetcher{body: []byte(goodPage)})
	_, err := eng.Get(context.Background(), "nope")
	require.ErrorIs(t, err, scan.ErrNotFound)
}

func TestConcurrentSubmissionsAllComplete(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, &stubFetcher{body: []byte(goodPage)})

	var ids []string
	for _, url := range []string{"https://a.example", "https://b.example", "https://c.example"} {
		record, err := eng.Submit(context.Background(), url)
		require.NoError(t, err)
		ids = append(ids, record.ID)
	}
	eng.Wait()

	for _, id := range ids {
		final, err := eng.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, scan.StatusComplete, final.Status)
	}
}

func TestStatsReflectCompletedScans(t *testing.T) {
	t.Parallel()

	eng, _ := newTestEngine(t, &stubFetcher{body: []byte(goodPage)})

	_, err := eng.Submit(context.Background(), "https://example.com")
	require.NoError(t, err)
	eng.Wait()

	stats, err := eng.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.TotalScans)
	require.Equal(t, 1, stats.ScansToday)
	require.Greater(t, stats.AverageScore, 0.0)
}
