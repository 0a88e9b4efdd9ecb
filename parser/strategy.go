// Package parser locates and normalizes listing data in fetched pages.
package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractFunc maps a matched element to a candidate title and href.
// An empty href means the element carries no usable link.
type ExtractFunc func(*goquery.Selection) (title, href string)

// Strategy is a named rule for locating candidate listing elements.
// Strategies are evaluated in slice order; the first one producing at
// least one usable match wins and later strategies are never tried.
type Strategy struct {
	Name     string
	Selector string
	Extract  ExtractFunc // nil means anchor extraction
}

// DefaultStrategies returns the built-in strategy chain, ordered from
// site-specific (precise) to generic (high recall). Callers targeting a
// custom site prepend their own strategies rather than replacing the
// chain.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "quote_container", Selector: "div.quote", Extract: quoteExtract},
		{Name: "structural_class", Selector: "article.product_pod h3 a"},
		{Name: "semantic_class", Selector: "a.thread_title"},
		{Name: "href_pattern", Selector: "a[href*='thread'], a[href*='topic']"},
		{Name: "heading_anchor", Selector: "h3 a, h2 a"},
		{Name: "bare_anchor", Selector: "a[href]"},
	}
}

// quoteExtract handles quote containers, where the title lives in child
// elements rather than the link text: the quote body plus its author,
// linked to the author page.
func quoteExtract(s *goquery.Selection) (string, string) {
	text := strings.TrimSpace(s.Find("span.text").First().Text())
	if text == "" {
		return "", ""
	}
	if author := strings.TrimSpace(s.Find("small.author").First().Text()); author != "" {
		text = text + " by " + author
	}
	href, _ := s.Find("a[href]").First().Attr("href")
	return text, href
}

// anchorExtract handles the common case where the matched element is an
// anchor. The title attribute wins over text content when present, since
// listing sites often truncate the visible text.
func anchorExtract(s *goquery.Selection) (string, string) {
	title := strings.TrimSpace(s.AttrOr("title", ""))
	if title == "" {
		title = s.Text()
	}
	href, _ := s.Attr("href")
	return title, href
}
