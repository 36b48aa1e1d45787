package rules

import "github.com/webshepherd/webshepherd/internal/scan"

// Score deductions per finding. Failures cost more than warnings; the score
// never leaves [0, 100].
const (
	failWeight    = 10.0
	warningWeight = 3.0
)

// Aggregate reduces a finding sequence into a score, severity counters, and
// per-principle issue counts. It is pure: identical inputs yield identical
// outputs.
func Aggregate(findings []scan.Finding) (float64, scan.Counters, scan.PrincipleCounts) {
	counters := scan.Counters{TotalChecks: len(findings)}
	var issues scan.PrincipleCounts

	for _, f := range findings {
		switch f.Severity {
		case scan.SeverityPass:
			counters.PassedChecks++
			continue
		case scan.SeverityWarning:
			counters.Warnings++
		case scan.SeverityFail:
			counters.Failures++
		}
		switch f.Principle {
		case scan.PrinciplePerceivable:
			issues.Perceivable++
		case scan.PrincipleOperable:
			issues.Operable++
		case scan.PrincipleUnderstandable:
			issues.Understandable++
		case scan.PrincipleRobust:
			issues.Robust++
		}
	}

	score := 100.0 - failWeight*float64(counters.Failures) - warningWeight*float64(counters.Warnings)
	if score < 0 {
		score = 0
	}
	return score, counters, issues
}
