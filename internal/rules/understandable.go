package rules

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webshepherd/webshepherd/internal/htmldoc"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// htmlLangRule checks 3.1.1 Language of Page: <html> must carry a non-empty
// lang attribute.
type htmlLangRule struct{ meta }

func (r htmlLangRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	lang, hasTag := doc.HTMLLang()
	if !hasTag {
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			"No <html> tag found",
			"Ensure document has a valid <html> tag with lang attribute",
			"", 1,
		)}
	}
	if lang == "" {
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			"<html> tag missing lang attribute",
			"Add lang attribute to <html> tag (e.g., <html lang='en'>)",
			"", 1,
		)}
	}
	return []scan.Finding{r.pass(fmt.Sprintf("Page language is set to %q", lang))}
}

// headingHierarchyRule checks 1.3.1: heading levels must not skip a step, and
// the first heading should be an h1.
type headingHierarchyRule struct{ meta }

func (r headingHierarchyRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	headings := doc.Find("h1, h2, h3, h4, h5, h6")
	if headings.Length() == 0 {
		return []scan.Finding{r.finding(
			scan.SeverityWarning,
			"No heading elements found on page",
			"Add heading structure (h1-h6) to organize content",
			"", 1,
		)}
	}

	var issues []string
	prev := 0
	headings.Each(func(i int, sel *goquery.Selection) {
		name := goquery.NodeName(sel)
		level := int(name[1] - '0')
		switch {
		case i == 0 && level != 1:
			issues = append(issues, fmt.Sprintf("first heading is %s, should start with h1", name))
		case i > 0 && level > prev+1:
			text := htmldoc.Truncate(htmldoc.Text(sel), 30)
			issues = append(issues, fmt.Sprintf("skipped from h%d to h%d at heading %q", prev, level, text))
		}
		prev = level
	})

	if len(issues) > 0 {
		return []scan.Finding{r.finding(
			scan.SeverityWarning,
			fmt.Sprintf("Heading hierarchy has %d issues", len(issues)),
			"Use sequential heading levels (h1 -> h2 -> h3) without skipping",
			issues[0],
			len(issues),
		)}
	}
	return []scan.Finding{r.pass(fmt.Sprintf("Heading hierarchy is correct (%d headings)", headings.Length()))}
}

// h1ExistsRule checks 2.4.6: the page should have exactly one <h1>.
type h1ExistsRule struct{ meta }

func (r h1ExistsRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	h1s := doc.Find("h1")
	switch h1s.Length() {
	case 0:
		return []scan.Finding{r.finding(
			scan.SeverityWarning,
			"No <h1> element found on page",
			"Add a single <h1> element to serve as the main page heading",
			"", 1,
		)}
	case 1:
		text := htmldoc.Truncate(htmldoc.Text(h1s.First()), 50)
		return []scan.Finding{r.pass(fmt.Sprintf("Page has one <h1>: %q", text))}
	default:
		var texts []string
		h1s.Slice(0, min(3, h1s.Length())).Each(func(_ int, sel *goquery.Selection) {
			text := htmldoc.Truncate(htmldoc.Text(sel), 30)
			texts = append(texts, text)
		})
		return []scan.Finding{r.finding(
			scan.SeverityWarning,
			fmt.Sprintf("Multiple <h1> elements found (%d): %s", h1s.Length(), strings.Join(texts, ", ")),
			"Use only one <h1> per page for the main heading",
			"",
			h1s.Length(),
		)}
	}
}
