package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PriceNA is the sentinel emitted when no price can be found. Downstream
// consumers always receive a string, never an empty value.
const PriceNA = "N/A"

// Details holds the secondary fields pulled from a listing page.
type Details struct {
	Price       string
	Description string
}

var (
	// Currency symbol before the amount: $1,299.99 / £12 / €5.50
	symbolPriceRe = regexp.MustCompile(`[$£€]\s?\d[\d,]*(?:\.\d{1,2})?`)
	// Amount followed by an ISO currency code: 1299.99 USD
	codePriceRe = regexp.MustCompile(`\d[\d,]*(?:\.\d{1,2})?\s?(?:USD|EUR|GBP|RUB)\b`)

	priceSelectors = []string{
		"p.price_color",
		"span.price",
		"div.price",
		".price",
	}

	detailSelectors = []string{
		"div.post_body",
		"div[id^='post_message']",
		"div.item-description",
		"div.post-content",
		"div.message-content",
		"div.content",
	}
)

// ExtractDetails pulls price and description from a listing page. Price
// extraction tries labeled elements first, then falls back to currency
// patterns over the page text; absence yields the PriceNA sentinel.
// Description is the first dedicated detail block, else the longest
// contiguous text block on the page.
func ExtractDetails(doc *goquery.Document) Details {
	return Details{
		Price:       extractPrice(doc),
		Description: extractDescription(doc),
	}
}

func extractPrice(doc *goquery.Document) string {
	for _, selector := range priceSelectors {
		text := NormalizeTitle(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		if match := firstPriceMatch(text); match != "" {
			return match
		}
		return text
	}

	if match := firstPriceMatch(doc.Text()); match != "" {
		return match
	}
	return PriceNA
}

func firstPriceMatch(text string) string {
	if match := symbolPriceRe.FindString(text); match != "" {
		return strings.Join(strings.Fields(match), "")
	}
	if match := codePriceRe.FindString(text); match != "" {
		return NormalizeTitle(match)
	}
	return ""
}

func extractDescription(doc *goquery.Document) string {
	for _, selector := range detailSelectors {
		text := NormalizeTitle(doc.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}

	// Fallback: longest text block on the page.
	longest := ""
	doc.Find("p, li, td, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := NormalizeTitle(s.Text())
		if len(text) > len(longest) {
			longest = text
		}
	})
	return longest
}

// TrimForDisplay bounds text at max runes for report output, appending an
// ellipsis when anything was cut.
func TrimForDisplay(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
