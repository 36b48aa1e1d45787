// Package rules implements the fixed WCAG 2.1 rule set, the engine that runs
// it, and the aggregation of findings into a score.
package rules

import (
	"github.com/webshepherd/webshepherd/internal/htmldoc"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// Rule is one stateless accessibility check. Evaluate must tolerate any
// parseable document; the engine converts panics into fail findings so one
// broken rule never aborts a scan.
type Rule interface {
	Code() string
	Reference() string
	Level() scan.Level
	Principle() scan.Principle
	Evaluate(doc *htmldoc.Document, url string) []scan.Finding
}

// meta carries the WCAG identity shared by every finding a rule produces.
type meta struct {
	code      string
	reference string
	level     scan.Level
	principle scan.Principle
}

func (m meta) Code() string              { return m.code }
func (m meta) Reference() string         { return m.reference }
func (m meta) Level() scan.Level         { return m.level }
func (m meta) Principle() scan.Principle { return m.principle }

func (m meta) finding(severity scan.Severity, message, remediation, element string, count int) scan.Finding {
	return scan.Finding{
		RuleCode:      m.code,
		Severity:      severity,
		Message:       message,
		Element:       element,
		WCAGReference: m.reference,
		WCAGLevel:     m.level,
		Principle:     m.principle,
		Remediation:   remediation,
		Count:         count,
	}
}

func (m meta) pass(message string) scan.Finding {
	return m.finding(scan.SeverityPass, message, "N/A - Check passed", "", 1)
}

// Registry returns the rule set in its fixed execution order. The order is
// part of the contract: identical documents must yield identical finding
// sequences.
func Registry() []Rule {
	return []Rule{
		imageAltRule{meta{"IMG_ALT_MISSING", "1.1.1", scan.LevelAA, scan.PrinciplePerceivable}},
		htmlLangRule{meta{"HTML_LANG_MISSING", "3.1.1", scan.LevelAA, scan.PrincipleUnderstandable}},
		pageTitleRule{meta{"PAGE_TITLE_MISSING", "2.4.2", scan.LevelAA, scan.PrincipleOperable}},
		formLabelRule{meta{"FORM_LABEL_MISSING", "3.3.2", scan.LevelAA, scan.PrincipleOperable}},
		buttonNameRule{meta{"BUTTON_NAME_MISSING", "4.1.2", scan.LevelAA, scan.PrincipleOperable}},
		linkTextRule{meta{"LINK_TEXT_EMPTY", "2.4.4", scan.LevelAA, scan.PrincipleOperable}},
		headingHierarchyRule{meta{"HEADING_SKIP_LEVEL", "1.3.1", scan.LevelAA, scan.PrincipleUnderstandable}},
		h1ExistsRule{meta{"H1_MISSING_OR_MULTIPLE", "2.4.6", scan.LevelAA, scan.PrincipleUnderstandable}},
		duplicateIDRule{meta{"DUPLICATE_ID", "4.1.1", scan.LevelAA, scan.PrincipleRobust}},
		ariaRoleRule{meta{"ARIA_ROLE_INVALID", "4.1.2", scan.LevelAA, scan.PrincipleRobust}},
	}
}
