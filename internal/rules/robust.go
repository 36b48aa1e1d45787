package rules

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webshepherd/webshepherd/internal/htmldoc"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// duplicateIDRule checks 4.1.1: id attribute values must be unique within the
// document.
type duplicateIDRule struct{ meta }

func (r duplicateIDRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	ids := doc.IDs()
	seen := make(map[string]struct{}, len(ids))
	var duplicates []string
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			if !contains(duplicates, id) {
				duplicates = append(duplicates, id)
			}
			continue
		}
		seen[id] = struct{}{}
	}

	if len(duplicates) > 0 {
		preview := duplicates
		if len(preview) > 5 {
			preview = preview[:5]
		}
		quoted := make([]string, len(preview))
		for i, d := range preview {
			quoted[i] = fmt.Sprintf("%q", d)
		}
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			fmt.Sprintf("%d duplicate IDs found: %s", len(duplicates), strings.Join(quoted, ", ")),
			"Ensure all ID attributes are unique within the document",
			"",
			len(duplicates),
		)}
	}
	if len(ids) > 0 {
		return []scan.Finding{r.pass(fmt.Sprintf("All %d IDs are unique", len(ids)))}
	}
	return []scan.Finding{r.pass("No ID attributes found")}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ariaRoleRule checks 4.1.2: role attribute values must be valid ARIA 1.2
// roles.
type ariaRoleRule struct{ meta }

var validARIARoles = map[string]struct{}{
	"alert": {}, "alertdialog": {}, "application": {}, "article": {},
	"banner": {}, "button": {}, "checkbox": {}, "columnheader": {},
	"combobox": {}, "complementary": {}, "contentinfo": {}, "definition": {},
	"dialog": {}, "directory": {}, "document": {}, "feed": {}, "figure": {},
	"form": {}, "grid": {}, "gridcell": {}, "group": {}, "heading": {},
	"img": {}, "link": {}, "list": {}, "listbox": {}, "listitem": {},
	"log": {}, "main": {}, "marquee": {}, "math": {}, "menu": {},
	"menubar": {}, "menuitem": {}, "menuitemcheckbox": {}, "menuitemradio": {},
	"navigation": {}, "none": {}, "note": {}, "option": {},
	"presentation": {}, "progressbar": {}, "radio": {}, "radiogroup": {},
	"region": {}, "row": {}, "rowgroup": {}, "rowheader": {}, "scrollbar": {},
	"search": {}, "searchbox": {}, "separator": {}, "slider": {},
	"spinbutton": {}, "status": {}, "switch": {}, "tab": {}, "table": {},
	"tablist": {}, "tabpanel": {}, "term": {}, "textbox": {}, "timer": {},
	"toolbar": {}, "tooltip": {}, "tree": {}, "treegrid": {}, "treeitem": {},
}

func (r ariaRoleRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	withRole := doc.Find("[role]")
	var invalidRoles []string
	var firstInvalid *goquery.Selection

	withRole.Each(func(_ int, sel *goquery.Selection) {
		role := strings.ToLower(htmldoc.Attr(sel, "role"))
		if role == "" {
			return
		}
		if _, ok := validARIARoles[role]; !ok {
			invalidRoles = append(invalidRoles, role)
			if firstInvalid == nil {
				firstInvalid = sel
			}
		}
	})

	if len(invalidRoles) > 0 {
		preview := invalidRoles
		if len(preview) > 5 {
			preview = preview[:5]
		}
		quoted := make([]string, len(preview))
		for i, role := range preview {
			quoted[i] = fmt.Sprintf("%q", role)
		}
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			fmt.Sprintf("%d invalid ARIA roles found: %s", len(invalidRoles), strings.Join(quoted, ", ")),
			"Use only valid ARIA 1.2 role values",
			htmldoc.Snippet(firstInvalid),
			len(invalidRoles),
		)}
	}
	if withRole.Length() > 0 {
		return []scan.Finding{r.pass(fmt.Sprintf("All %d ARIA roles are valid", withRole.Length()))}
	}
	return []scan.Finding{r.pass("No ARIA roles found")}
}
