// Package scan defines core types shared across subsystems.
package scan

import "time"

// Status represents the lifecycle state of a scan.
type Status string

// Scan status values persisted in the scan store.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Severity classifies the outcome of a single rule check.
type Severity string

// Finding severity values.
const (
	SeverityPass    Severity = "pass"
	SeverityWarning Severity = "warning"
	SeverityFail    Severity = "fail"
)

// Principle is one of the four WCAG top-level categories.
type Principle string

// WCAG principles used for summary grouping.
const (
	PrinciplePerceivable    Principle = "Perceivable"
	PrincipleOperable       Principle = "Operable"
	PrincipleUnderstandable Principle = "Understandable"
	PrincipleRobust         Principle = "Robust"
)

// Level is a WCAG conformance level.
type Level string

// WCAG conformance levels reported by rules.
const (
	LevelA  Level = "A"
	LevelAA Level = "AA"
)

// Finding is one rule's verdict against one document.
// Findings are immutable once produced.
type Finding struct {
	RuleCode      string    `json:"rule_code"`
	Severity      Severity  `json:"severity"`
	Message       string    `json:"message"`
	Element       string    `json:"element,omitempty"`
	WCAGReference string    `json:"wcag_reference"`
	WCAGLevel     Level     `json:"wcag_level"`
	Principle     Principle `json:"principle"`
	Remediation   string    `json:"remediation,omitempty"`
	Count         int       `json:"count"`
}

// Counters tracks per-severity finding totals for a scan.
type Counters struct {
	TotalChecks  int `json:"total_checks"`
	PassedChecks int `json:"passed_checks"`
	Warnings     int `json:"warnings"`
	Failures     int `json:"failures"`
}

// PrincipleCounts groups non-pass findings by WCAG principle.
type PrincipleCounts struct {
	Perceivable    int `json:"perceivable_issues"`
	Operable       int `json:"operable_issues"`
	Understandable int `json:"understandable_issues"`
	Robust         int `json:"robust_issues"`
}

// Scan is the unit of work representing one URL's evaluation.
//
// Status transitions are monotonic: pending -> processing -> complete|failed.
// Score and Findings are only set together when the scan completes; Error is
// only set when it fails.
type Scan struct {
	ID          string          `json:"scan_id"`
	URL         string          `json:"url"`
	Status      Status          `json:"status"`
	Score       *float64        `json:"score,omitempty"`
	Findings    []Finding       `json:"findings,omitempty"`
	Counters    Counters        `json:"counters"`
	Issues      PrincipleCounts `json:"issues"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	DurationMs  *int64          `json:"scan_duration_ms,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// IssueCount is one entry of the most-common-issues summary.
type IssueCount struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// Stats aggregates counters across all scans in the store.
type Stats struct {
	TotalScans   int          `json:"total_scans"`
	ScansToday   int          `json:"scans_today"`
	AverageScore float64      `json:"average_score"`
	CommonIssues []IssueCount `json:"common_issues"`
}
