package parser

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-listings/models"
)

// ErrNoMatch indicates that no strategy produced a usable listing.
// Callers treat it as a reportable, non-fatal outcome.
var ErrNoMatch = errors.New("parser: no strategy matched")

// Listings pages are full of navigation chrome ("...", page numbers,
// arrows); anything shorter than this is not a listing title.
const minTitleLen = 4

// ExtractListings applies strategies in priority order against doc and
// returns the matches of the first strategy that yields at least one
// usable listing, in document order. Hrefs are resolved against base;
// listings whose href cannot be resolved to an absolute URL are dropped
// individually. Returns ErrNoMatch when every strategy comes up empty.
func ExtractListings(doc *goquery.Document, base *url.URL, strategies []Strategy) ([]models.RawListing, string, error) {
	for _, strategy := range strategies {
		matched := doc.Find(strategy.Selector)
		slog.Debug("trying strategy",
			slog.String("strategy", strategy.Name),
			slog.String("selector", strategy.Selector),
			slog.Int("elements", matched.Length()),
		)
		if matched.Length() == 0 {
			continue
		}

		listings := collectListings(matched, base, strategy)
		if len(listings) > 0 {
			slog.Debug("strategy matched",
				slog.String("strategy", strategy.Name),
				slog.Int("listings", len(listings)),
			)
			return listings, strategy.Name, nil
		}
	}
	return nil, "", ErrNoMatch
}

func collectListings(matched *goquery.Selection, base *url.URL, strategy Strategy) []models.RawListing {
	extract := strategy.Extract
	if extract == nil {
		extract = anchorExtract
	}

	var listings []models.RawListing
	seen := make(map[string]struct{})

	matched.Each(func(_ int, s *goquery.Selection) {
		title, href := extract(s)
		title = NormalizeTitle(title)
		if len(title) < minTitleLen || href == "" {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}

		absolute, err := ResolveHref(base, href)
		if err != nil {
			slog.Warn("dropping listing with malformed href",
				slog.String("strategy", strategy.Name),
				slog.String("href", href),
				slog.Any("error", err),
			)
			return
		}

		seen[href] = struct{}{}
		listings = append(listings, models.RawListing{
			Title: title,
			URL:   absolute,
		})
	})

	return listings
}

// NormalizeTitle collapses internal whitespace runs and trims the result.
func NormalizeTitle(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// ResolveHref resolves a possibly-relative href against base and verifies
// the result is an absolute URL with a host. Resolution goes through the
// URL parser rather than string concatenation so relative paths without a
// leading separator cannot produce malformed URLs.
func ResolveHref(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	resolved := base.ResolveReference(ref)
	if !resolved.IsAbs() || resolved.Host == "" {
		return "", errors.New("resolved URL is not absolute")
	}
	return resolved.String(), nil
}

// ValidateListing ensures a record satisfies the output invariant:
// non-empty title and a syntactically valid absolute URL. Records failing
// validation are dropped by the sink, never emitted with blank fields.
func ValidateListing(l *models.Listing) error {
	if l == nil {
		return errors.New("listing is nil")
	}
	if strings.TrimSpace(l.Title) == "" {
		return errors.New("listing missing title")
	}
	parsed, err := url.Parse(l.URL)
	if err != nil {
		return err
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return errors.New("listing URL is not absolute")
	}
	if l.Price == "" {
		return errors.New("listing price must be set (use N/A when unknown)")
	}
	return nil
}
