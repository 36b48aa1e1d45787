package rules

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/webshepherd/webshepherd/internal/htmldoc"
	"github.com/webshepherd/webshepherd/internal/scan"
)

// imageAltRule checks 1.1.1 Non-text Content: every <img> needs an alt
// attribute. An explicit alt="" marks a decorative image and is allowed.
type imageAltRule struct{ meta }

func (r imageAltRule) Evaluate(doc *htmldoc.Document, _ string) []scan.Finding {
	var missing []*goquery.Selection
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		if _, ok := sel.Attr("alt"); !ok {
			missing = append(missing, sel)
		}
	})

	if len(missing) > 0 {
		return []scan.Finding{r.finding(
			scan.SeverityFail,
			fmt.Sprintf("%d images missing alt attribute", len(missing)),
			"Add descriptive alt text to all images. Use alt='' for decorative images.",
			htmldoc.Snippet(missing[0]),
			len(missing),
		)}
	}
	return []scan.Finding{r.pass("All images have alt attributes")}
}
