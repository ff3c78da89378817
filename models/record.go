package models

import "time"

// PageLocation is a validated listing page URL read from the input file.
type PageLocation string

func (p PageLocation) String() string { return string(p) }

// CollectedPair is one (docid, scd) pair captured from the listing API traffic.
type CollectedPair struct {
	ItemID         string `json:"docid"`
	SecondaryToken string `json:"scd"`
}

// ResolutionStatus records what the resolution stage did with a record.
type ResolutionStatus string

const (
	ResolutionPending    ResolutionStatus = "pending"
	ResolutionResolved   ResolutionStatus = "resolved"
	ResolutionNoNumber   ResolutionStatus = "no_number"
	ResolutionUnresolved ResolutionStatus = "unresolved"
)

// Record is the enriched entity written to every output file.
// Phone stays nil until resolution succeeds; Resolution tells why it is nil.
type Record struct {
	ItemID         string
	SecondaryToken string
	Title          string
	Rating         string
	Address        string
	DetailURL      string
	SourceURL      string
	Phone          *string
	Resolution     ResolutionStatus
	ScrapedAt      time.Time
}

// PhoneValue returns the resolved phone or "" when unresolved.
func (r *Record) PhoneValue() string {
	if r.Phone == nil {
		return ""
	}
	return *r.Phone
}

// Final reports whether resolution has been attempted on the record.
func (r *Record) Final() bool {
	return r.Resolution != "" && r.Resolution != ResolutionPending
}
