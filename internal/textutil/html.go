package textutil

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockElements = "p, div, li, br, h1, h2, h3, h4, h5, h6, tr, blockquote"

// PlainText strips markup from an HTML fragment and collapses whitespace. Input that fails to
// parse is returned with whitespace collapsed.
func PlainText(html string) string {
	if !strings.Contains(html, "<") {
		return collapse(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapse(html)
	}
	doc.Find("script, style").Remove()
	doc.Find(blockElements).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
