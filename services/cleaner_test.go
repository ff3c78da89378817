package services

import (
	"testing"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewLogger() }

func TestCleanerParseRating(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw  string
		want string
	}{
		{"4.3", "4.3"},
		{"4.4 ★", "4.4"},
		{"4.4★", "4.4"},
		{"5", "5.0"},
		{"3.9\n120 Ratings", "3.9"},
		{"", ""},
		{"New", ""},
		{"6.0", ""},
	}

	for _, tt := range tests {
		got := c.parseRating(tt.raw)
		if got != tt.want {
			t.Errorf("parseRating(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerNormalisesText(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.Record{
		{ItemID: " 022P1 ", Title: "  Fresh   Mart\n", Address: "Shanti Nagar,\t Mira Road East"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 record, got %d", len(cleaned))
	}
	if cleaned[0].ItemID != "022P1" {
		t.Errorf("ItemID: got %q", cleaned[0].ItemID)
	}
	if cleaned[0].Title != "Fresh Mart" {
		t.Errorf("Title: got %q", cleaned[0].Title)
	}
	if cleaned[0].Address != "Shanti Nagar, Mira Road East" {
		t.Errorf("Address: got %q", cleaned[0].Address)
	}
}

func TestCleanerDropsUnanchored(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.Record{
		{ItemID: "1", Title: "", Address: "  "},
		{ItemID: "2", Title: "", Address: "Thane"},
		{ItemID: "", Title: "No id"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 || cleaned[0].ItemID != "2" {
		t.Errorf("expected only record 2 to survive, got %+v", cleaned)
	}
}

func TestCleanerDeduplicatesItemID(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []models.Record{
		{ItemID: "1", Title: "A"},
		{ItemID: "1", Title: "B"},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 record after deduplication, got %d", len(cleaned))
	}
	if cleaned[0].Title != "A" {
		t.Errorf("first occurrence should win, got %q", cleaned[0].Title)
	}
}
