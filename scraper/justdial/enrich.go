package justdial

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"justdial-scraper/models"
	"justdial-scraper/services"
	"justdial-scraper/utils"
)

// Dedup keeps the first occurrence of every item id, preserving order.
// Pairs missing either half are dropped.
func Dedup(pairs []models.CollectedPair) []models.CollectedPair {
	seen := utils.NewKeySet()
	out := make([]models.CollectedPair, 0, len(pairs))
	for _, p := range pairs {
		if p.ItemID == "" || p.SecondaryToken == "" {
			continue
		}
		if !seen.Add(p.ItemID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ListingFields are the attributes read from one listing's DOM node.
type ListingFields struct {
	Title     string
	DetailURL string
	Rating    string
	Address   string
}

// ParseListingNode extracts listing fields from the node's outer HTML. A
// missing field yields "", only an empty node is an error.
func ParseListingNode(html, pageURL string) (ListingFields, error) {
	var f ListingFields
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return f, fmt.Errorf("parse listing node: %w", err)
	}
	if doc.Find("body").Children().Length() == 0 {
		return f, ErrElementNotFound
	}

	anchor := doc.Find("a").First()
	f.Title = strings.TrimSpace(anchor.AttrOr("title", ""))
	f.DetailURL = absoluteURL(pageURL, anchor.AttrOr("href", ""))
	f.Rating = strings.TrimSpace(doc.Find("li[class*='resultbox_totalrate']").First().Text())
	f.Address = strings.TrimSpace(doc.Find("address").First().Text())
	return f, nil
}

func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" {
		return href
	}
	return b.ResolveReference(ref).String()
}

// Enricher turns deduplicated pairs into records using the rendered DOM.
// It performs no network I/O of its own.
type Enricher struct {
	session Session
	cleaner *services.Cleaner
	logger  *utils.Logger
	now     func() time.Time
}

func NewEnricher(session Session, cleaner *services.Cleaner, logger *utils.Logger) *Enricher {
	return &Enricher{session: session, cleaner: cleaner, logger: logger, now: time.Now}
}

// Enrich returns one pending record per pair whose listing node could be
// located. Pairs without a node are logged and skipped. A session loss is
// returned so the caller can abort the run.
func (e *Enricher) Enrich(ctx context.Context, pageURL string, pairs []models.CollectedPair) ([]models.Record, error) {
	records := make([]models.Record, 0, len(pairs))
	for _, p := range pairs {
		html, err := e.session.ElementHTML(ctx, p.ItemID)
		if errors.Is(err, ErrSessionLost) {
			return records, err
		}
		if err != nil {
			e.logger.Warn("[enrich] Skipping %s: listing node not found (%v)", p.ItemID, err)
			continue
		}

		fields, err := ParseListingNode(html, pageURL)
		if err != nil {
			e.logger.Warn("[enrich] Skipping %s: %v", p.ItemID, err)
			continue
		}
		if fields.Title == "" || fields.Rating == "" || fields.Address == "" {
			e.logger.Debug("[enrich] %s has missing fields: title=%q rating=%q address=%q",
				p.ItemID, fields.Title, fields.Rating, fields.Address)
		}

		records = append(records, models.Record{
			ItemID:         p.ItemID,
			SecondaryToken: p.SecondaryToken,
			Title:          fields.Title,
			Rating:         fields.Rating,
			Address:        fields.Address,
			DetailURL:      fields.DetailURL,
			SourceURL:      pageURL,
			Resolution:     models.ResolutionPending,
			ScrapedAt:      e.now(),
		})
	}
	return e.cleaner.Clean(records), nil
}
