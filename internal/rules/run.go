package rules

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/webshepherd/webshepherd/internal/htmldoc"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// Run evaluates the full registry against the document in fixed order. A rule
// that panics contributes a single fail finding describing the fault instead
// of aborting the scan.
func Run(doc *htmldoc.Document, url string, logger *zap.Logger) []scan.Finding {
	if logger == nil {
		logger = zap.NewNop()
	}
	var findings []scan.Finding
	for _, rule := range Registry() {
		findings = append(findings, evaluate(rule, doc, url, logger)...)
	}
	return findings
}

func evaluate(rule Rule, doc *htmldoc.Document, url string, logger *zap.Logger) (out []scan.Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("rule panicked",
				zap.String("rule", rule.Code()),
				zap.Any("panic", rec),
			)
			out = []scan.Finding{{
				RuleCode:      rule.Code(),
				Severity:      scan.SeverityFail,
				Message:       fmt.Sprintf("Rule %s could not be evaluated: %v", rule.Code(), rec),
				WCAGReference: rule.Reference(),
				WCAGLevel:     rule.Level(),
				Principle:     rule.Principle(),
				Remediation:   "Report this page to the WebShepherd maintainers",
				Count:         1,
			}}
		}
	}()
	return rule.Evaluate(doc, url)
}
