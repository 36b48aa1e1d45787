// Package htmldoc wraps goquery with the document accessors the rule set needs.
package htmldoc

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// SnippetLength bounds serialized element previews attached to findings.
const SnippetLength = 100

// ParseError indicates the byte stream could not be decoded as a document.
// Malformed-but-decodable markup never produces one; the underlying HTML5
// parser repairs broken trees.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse html: %s", e.Reason)
}

// Document is a parsed, queryable HTML tree. Parsing the same bytes always
// yields a structurally equivalent Document.
type Document struct {
	doc *goquery.Document
}

// Parse builds a Document from raw HTML bytes.
func Parse(body []byte) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}
	return &Document{doc: doc}, nil
}

// Find returns all nodes matching the CSS selector in document order.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Title returns the page title text and whether a <title> element exists.
func (d *Document) Title() (string, bool) {
	sel := d.doc.Find("title")
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.First().Text()), true
}

// HTMLLang returns the lang attribute of <html> and whether the tag exists.
func (d *Document) HTMLLang() (lang string, hasTag bool) {
	sel := d.doc.Find("html")
	if sel.Length() == 0 {
		return "", false
	}
	lang, _ = sel.First().Attr("lang")
	return strings.TrimSpace(lang), true
}

// IDs returns every id attribute value in document order, duplicates included.
func (d *Document) IDs() []string {
	var ids []string
	d.doc.Find("[id]").Each(func(_ int, sel *goquery.Selection) {
		if id, ok := sel.Attr("id"); ok {
			ids = append(ids, id)
		}
	})
	return ids
}

// Snippet serializes the first node of the selection, truncated for previews.
func Snippet(sel *goquery.Selection) string {
	html, err := goquery.OuterHtml(sel.First())
	if err != nil {
		return ""
	}
	return Truncate(strings.TrimSpace(html), SnippetLength)
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Attr returns the trimmed value of an attribute, or "" when absent.
func Attr(sel *goquery.Selection, name string) string {
	val, _ := sel.Attr(name)
	return strings.TrimSpace(val)
}

// Text returns the trimmed text content of the selection.
func Text(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}
