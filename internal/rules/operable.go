package rules

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/webshepherd/webshepherd/internal/htmldoc"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// pageTitleRule checks 2.4.2 Page Titled.
type pageTitleRule struct{ meta }

func (r pageTitleRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	title, ok := doc.Title()
	switch {
	case !ok:
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			"Page has no <title> element",
			"Add a descriptive <title> element in the <head> section",
			"", 1,
		)}
	case title == "":
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			"Page title is empty",
			"Provide a descriptive, meaningful page title",
			"<title></title>", 1,
		)}
	case len(title) < 3:
		return []scan.Finding{r.finding(
			scan.SeverityWarning,
			fmt.Sprintf("Page title is very short: %q", title),
			"Provide a more descriptive page title (at least a few words)",
			fmt.Sprintf("<title>%s</title>", title), 1,
		)}
	default:
		return []scan.Finding{r.pass(fmt.Sprintf("Page has title: %q", title))}
	}
}

// formLabelRule checks 3.3.2: visible form controls need an associated label.
// A label counts if it targets the control's id, wraps the control, or the
// control carries aria-label, aria-labelledby, or title.
type formLabelRule struct{ meta }

func (r formLabelRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	inputs := doc.Find("input, textarea, select")
	var unlabeled []*goquery.Selection

	inputs.Each(func(_ int, sel *goquery.Selection) {
		inputType := strings.ToLower(htmldoc.Attr(sel, "type"))
		switch inputType {
		case "hidden", "submit", "button", "reset":
			return
		}
		if hasLabel(doc, sel) {
			return
		}
		unlabeled = append(unlabeled, sel)
	})

	if len(unlabeled) > 0 {
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			fmt.Sprintf("%d form inputs missing labels", len(unlabeled)),
			"Add <label> elements with 'for' attribute, or use aria-label",
			htmldoc.Snippet(unlabeled[0]),
			len(unlabeled),
		)}
	}
	if inputs.Length() > 0 {
		return []scan.Finding{r.pass(fmt.Sprintf("All %d form inputs have labels", inputs.Length()))}
	}
	return []scan.Finding{r.pass("No form inputs found on page")}
}

func hasLabel(doc *htmldoc.Document, sel *goquery.Selection) bool {
	if id := htmldoc.Attr(sel, "id"); id != "" {
		if doc.Find(fmt.Sprintf("label[for=%q]", id)).Length() > 0 {
			return true
		}
	}
	if sel.Closest("label").Length() > 0 {
		return true
	}
	return htmldoc.Attr(sel, "aria-label") != "" ||
		htmldoc.Attr(sel, "aria-labelledby") != "" ||
		htmldoc.Attr(sel, "title") != ""
}

// buttonNameRule checks 4.1.2 for buttons: every button-like control needs an
// accessible name from text, value, aria-label, aria-labelledby, or title.
type buttonNameRule struct{ meta }

func (r buttonNameRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	buttons := doc.Find("button, input[type='button'], [role='button']")
	var unnamed []*goquery.Selection

	buttons.Each(func(_ int, sel *goquery.Selection) {
		if htmldoc.Text(sel) != "" ||
			htmldoc.Attr(sel, "value") != "" ||
			htmldoc.Attr(sel, "aria-label") != "" ||
			htmldoc.Attr(sel, "aria-labelledby") != "" ||
			htmldoc.Attr(sel, "title") != "" {
			return
		}
		unnamed = append(unnamed, sel)
	})

	if len(unnamed) > 0 {
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			fmt.Sprintf("%d buttons missing accessible names", len(unnamed)),
			"Add text content, value, aria-label, or title to buttons",
			htmldoc.Snippet(unnamed[0]),
			len(unnamed),
		)}
	}
	if buttons.Length() > 0 {
		return []scan.Finding{r.pass(fmt.Sprintf("All %d buttons have accessible names", buttons.Length()))}
	}
	return []scan.Finding{r.pass("No buttons found on page")}
}

// linkTextRule checks 2.4.4: links need text that makes sense out of context.
// Links with no accessible text at all fail; links whose whole text is a
// generic phrase get a warning.
type linkTextRule struct{ meta }

var genericLinkText = map[string]struct{}{
	"click here": {},
	"read more":  {},
	"more":       {},
	"here":       {},
	"link":       {},
}

func (r linkTextRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	links := doc.Find("a")
	var empty, vague []*goquery.Selection

	links.Each(func(_ int, sel *goquery.Selection) {
		text := strings.ToLower(htmldoc.Text(sel))
		if text == "" {
			text = strings.ToLower(htmldoc.Attr(sel, "aria-label"))
		}
		if text == "" {
			text = strings.ToLower(htmldoc.Attr(sel.Find("img").First(), "alt"))
		}
		switch {
		case text == "":
			empty = append(empty, sel)
		default:
			if _, generic := genericLinkText[text]; generic {
				vague = append(vague, sel)
			}
		}
	})

	var findings []scan.Finding
	if len(empty) > 0 {
		findings = append(findings, r.finding(
			scan.SeverityFail,
			fmt.Sprintf("%d links have no text or accessible name", len(empty)),
			"Add descriptive text or aria-label to links",
			htmldoc.Snippet(empty[0]),
			len(empty),
		))
	}
	if len(vague) > 0 {
		findings = append(findings, r.finding(
			scan.SeverityWarning,
			fmt.Sprintf("%d links have vague text (e.g., 'click here')", len(vague)),
			"Use descriptive link text that makes sense out of context",
			htmldoc.Snippet(vague[0]),
			len(vague),
		))
	}
	if len(findings) > 0 {
		return findings
	}
	if links.Length() > 0 {
		return []scan.Finding{r.pass(fmt.Sprintf("All %d links have meaningful text", links.Length()))}
	}
	return []scan.Finding{r.pass("No links found on page")}
}
