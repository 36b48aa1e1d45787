// Package memory provides an in-memory scan store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/webshepherd/webshepherd/internal/scan"
)

const maxCommonIssues = 5

// Store keeps scan records in a mutex-guarded map. Records are cloned on the
// way in and out so callers can never alias store-owned state.
type Store struct {
	mu    sync.RWMutex
	scans map[string]scan.Scan
}

// New constructs a Store.
func New() *Store {
	return &Store{scans: make(map[string]scan.Scan)}
}

// Create stores a new scan record.
func (s *Store) Create(_ context.Context, record scan.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scans[record.ID]; exists {
		return scan.ErrAlreadyExists
	}
	s.scans[record.ID] = clone(record)
	return nil
}

// Get fetches a scan by ID.
func (s *Store) Get(_ context.Context, id string) (scan.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.scans[id]
	if !ok {
		return scan.Scan{}, scan.ErrNotFound
	}
	return clone(record), nil
}

// Update replaces the stored record wholesale.
func (s *Store) Update(_ context.Context, record scan.Scan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[record.ID]; !ok {
		return scan.ErrNotFound
	}
	s.scans[record.ID] = clone(record)
	return nil
}

// Stats aggregates counters across all stored scans.
func (s *Store) Stats(_ context.Context, dayStart time.Time) (scan.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := scan.Stats{CommonIssues: []scan.IssueCount{}}
	var scoreSum float64
	var scored int
	issueTotals := make(map[string]int)

	for _, record := range s.scans {
		stats.TotalScans++
		if !record.CreatedAt.Before(dayStart) {
			stats.ScansToday++
		}
		if record.Score != nil {
			scoreSum += *record.Score
			scored++
		}
		for _, f := range record.Findings {
			if f.Severity == scan.SeverityPass {
				continue
			}
			issueTotals[f.RuleCode] += f.Count
		}
	}

	if scored > 0 {
		stats.AverageScore = scoreSum / float64(scored)
	}
	stats.CommonIssues = topIssues(issueTotals, maxCommonIssues)
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func topIssues(totals map[string]int, limit int) []scan.IssueCount {
	issues := make([]scan.IssueCount, 0, len(totals))
	for rule, count := range totals {
		issues = append(issues, scan.IssueCount{Rule: rule, Count: count})
	}
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Count != issues[j].Count {
			return issues[i].Count > issues[j].Count
		}
		return issues[i].Rule < issues[j].Rule
	})
	if len(issues) > limit {
		issues = issues[:limit]
	}
	return issues
}

func clone(record scan.Scan) scan.Scan {
	cp := record
	if record.Findings != nil {
		cp.Findings = make([]scan.Finding, len(record.Findings))
		copy(cp.Findings, record.Findings)
	}
	if record.Score != nil {
		v := *record.Score
		cp.Score = &v
	}
	if record.CompletedAt != nil {
		t := *record.CompletedAt
		cp.CompletedAt = &t
	}
	if record.DurationMs != nil {
		d := *record.DurationMs
		cp.DurationMs = &d
	}
	return cp
}
