// Package extract parses search result pages into product candidates.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/law-makers/pricewatch/internal/sites"
	"github.com/law-makers/pricewatch/pkg/models"
)

// DefaultLimit is the number of candidates taken from a page when neither
// the caller nor the site profile sets one.
const DefaultLimit = 5

// Extract returns up to limit candidates from doc in document order. A site's
// max_results overrides limit. Containers missing a title, price or link are
// skipped.
func Extract(doc *goquery.Document, profile sites.Profile, limit int) []models.Candidate {
	if doc == nil {
		return nil
	}
	if profile.MaxResults > 0 {
		limit = profile.MaxResults
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	var (
		candidates []models.Candidate
		skipped    int
	)
	doc.Find(profile.ContainerSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		c, ok := candidateFrom(sel, profile)
		if !ok {
			skipped++
			return true
		}
		candidates = append(candidates, c)
		return len(candidates) < limit
	})

	log.Debug().
		Str("site", profile.ID).
		Int("candidates", len(candidates)).
		Int("skipped", skipped).
		Msg("Extracted candidates")

	return candidates
}

func candidateFrom(sel *goquery.Selection, profile sites.Profile) (models.Candidate, bool) {
	title := cleanText(sel.Find(profile.TitleSelector).First().Text())
	if title == "" {
		return models.Candidate{}, false
	}

	price := cleanText(sel.Find(profile.PriceSelector).First().Text())
	if price == "" {
		return models.Candidate{}, false
	}

	href, exists := linkOf(sel, profile.LinkSelector)
	if !exists {
		return models.Candidate{}, false
	}

	return models.Candidate{
		Title:    title,
		RawPrice: price,
		RawLink:  profile.ResolveLink(href),
	}, true
}

// linkOf finds the href under the container, falling back to the container
// itself when it is the anchor.
func linkOf(sel *goquery.Selection, selector string) (string, bool) {
	link := sel.Find(selector).First()
	if link.Length() == 0 && sel.Is(selector) {
		link = sel
	}
	href, exists := link.Attr("href")
	href = strings.TrimSpace(href)
	return href, exists && href != ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
