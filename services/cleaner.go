package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

var (
	// ratingRegexp captures a leading numeric rating in the 0.0–5.0 range
	ratingRegexp = regexp.MustCompile(`^\s*([0-5](?:\.\d{1,2})?)(?:\s|★|$)`)
)

// Cleaner normalises enriched records and drops the ones that cannot be
// anchored to a human-readable listing.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean returns normalised records in input order. Records with an empty
// item id, a repeated item id, or neither title nor address are dropped.
func (c *Cleaner) Clean(raw []models.Record) []models.Record {
	seen := make(map[string]struct{})
	result := make([]models.Record, 0, len(raw))

	for _, r := range raw {
		id := strings.TrimSpace(r.ItemID)
		if id == "" {
			c.logger.Warn("[cleaner] Dropping record with empty item id: %s", r.Title)
			continue
		}

		if _, dup := seen[id]; dup {
			c.logger.Debug("[cleaner] Duplicate item id skipped: %s", id)
			continue
		}

		r.ItemID = id
		r.Title = normaliseText(r.Title)
		r.Address = normaliseText(r.Address)
		r.Rating = c.parseRating(r.Rating)
		r.DetailURL = strings.TrimSpace(r.DetailURL)

		if r.Title == "" && r.Address == "" {
			c.logger.Warn("[cleaner] Dropping %s: no title or address to anchor it", id)
			continue
		}
		seen[id] = struct{}{}

		result = append(result, r)
	}

	if dropped := len(raw) - len(result); dropped > 0 {
		c.logger.Info("[cleaner] Cleaned %d → %d records (dropped %d)", len(raw), len(result), dropped)
	}
	return result
}

// parseRating extracts a 0.0–5.0 rating from text such as "4.3 ★ 120 Ratings"
// and returns it formatted with one decimal, or "" when none is present.
func (c *Cleaner) parseRating(raw string) string {
	match := ratingRegexp.FindStringSubmatch(raw)
	if len(match) < 2 {
		return ""
	}
	val, err := strconv.ParseFloat(match[1], 64)
	if err != nil || val < 0 || val > 5 {
		return ""
	}
	return strconv.FormatFloat(val, 'f', 1, 64)
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
