package justdial

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"justdial-scraper/models"
)

const (
	idColumn    = "docid"
	tokenColumn = "scd"
)

// listingResults is the tabular payload shared by the listing API and the
// first-paint data island.
type listingResults struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

func (r *listingResults) pairs() ([]models.CollectedPair, error) {
	if r == nil {
		return nil, errors.New("no results block")
	}
	idIdx, tokIdx := indexOf(r.Columns, idColumn), indexOf(r.Columns, tokenColumn)
	if idIdx < 0 || tokIdx < 0 {
		return nil, fmt.Errorf("columns %v lack %s/%s", r.Columns, idColumn, tokenColumn)
	}

	var out []models.CollectedPair
	for _, row := range r.Data {
		if idIdx >= len(row) || tokIdx >= len(row) {
			continue
		}
		id, tok := cellString(row[idIdx]), cellString(row[tokIdx])
		if id == "" || tok == "" {
			continue
		}
		out = append(out, models.CollectedPair{ItemID: id, SecondaryToken: tok})
	}
	return out, nil
}

// ParseListingPayload extracts (docid, scd) pairs from a listing API body.
func ParseListingPayload(raw []byte) ([]models.CollectedPair, error) {
	var body struct {
		Results *listingResults `json:"results"`
	}
	if err := decode(raw, &body); err != nil {
		return nil, fmt.Errorf("listing payload: %w", err)
	}
	return body.Results.pairs()
}

// NextData is the part of the page's __NEXT_DATA__ island the engine reads.
type NextData struct {
	Props struct {
		PageProps struct {
			ListData struct {
				NextDocID any             `json:"nextdocid"`
				Results   *listingResults `json:"results"`
			} `json:"listData"`
		} `json:"pageProps"`
	} `json:"props"`
}

// ParseNextData parses the text content of the __NEXT_DATA__ script.
func ParseNextData(raw string) (NextData, error) {
	var nd NextData
	if strings.TrimSpace(raw) == "" {
		return nd, errors.New("empty __NEXT_DATA__")
	}
	if err := decode([]byte(raw), &nd); err != nil {
		return nd, fmt.Errorf("__NEXT_DATA__: %w", err)
	}
	return nd, nil
}

// ExpectedCount is the number of ids the page declares in nextdocid, or 0
// when the field is absent or not a string.
func (nd NextData) ExpectedCount() int {
	s, ok := nd.Props.PageProps.ListData.NextDocID.(string)
	if !ok {
		return 0
	}
	n := 0
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

// SeedPairs returns the pairs embedded in the first-paint payload.
func (nd NextData) SeedPairs() []models.CollectedPair {
	pairs, err := nd.Props.PageProps.ListData.Results.pairs()
	if err != nil {
		return nil
	}
	return pairs
}

const nextDataScript = `(function() {
	var nd = document.getElementById("__NEXT_DATA__");
	return nd && nd.textContent ? nd.textContent : "";
})()`

// ReadNextData fetches and parses the page's data island.
func ReadNextData(ctx context.Context, session Session) (NextData, error) {
	var raw string
	if err := session.Evaluate(ctx, nextDataScript, &raw); err != nil {
		return NextData{}, fmt.Errorf("read __NEXT_DATA__: %w", err)
	}
	return ParseNextData(raw)
}

func decode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func cellString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
