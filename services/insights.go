package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

type SummaryService struct {
	logger *utils.Logger
}

func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

func (s *SummaryService) Generate(records []models.Record, pages []models.PageReport) *models.RunSummary {
	summary := &models.RunSummary{
		Pages:      pages,
		ByLocality: make(map[string]int),
	}

	if len(records) == 0 {
		return summary
	}

	summary.TotalRecords = len(records)

	var rated []*models.Record
	for i := range records {
		r := &records[i]
		switch r.Resolution {
		case models.ResolutionResolved:
			summary.Resolved++
		case models.ResolutionNoNumber:
			summary.NoNumber++
		default:
			summary.Unresolved++
		}
		if ratingValue(r.Rating) > 0 {
			rated = append(rated, r)
		}
		if loc := Locality(r.Address); loc != "" {
			summary.ByLocality[loc]++
		}
	}

	summary.ResolutionRate = round2(float64(summary.Resolved) * 100 / float64(summary.TotalRecords))

	// Top 5 by rating, stable on input order for ties
	sort.SliceStable(rated, func(i, j int) bool {
		return ratingValue(rated[i].Rating) > ratingValue(rated[j].Rating)
	})
	if len(rated) > 5 {
		summary.TopRated = rated[:5]
	} else {
		summary.TopRated = rated
	}

	return summary
}

// Locality is the last comma-separated segment of an address.
func Locality(address string) string {
	parts := strings.Split(address, ",")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

func (s *SummaryService) Print(r *models.RunSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 JUSTDIAL RUN SUMMARY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Records collected : \033[1m%d\033[0m\n", r.TotalRecords)
	fmt.Printf("  Numbers resolved  : \033[1;32m%d\033[0m (%.2f%%)\n", r.Resolved, r.ResolutionRate)
	fmt.Printf("  Redirect, no number: %d\n", r.NoNumber)
	fmt.Printf("  Unresolved        : %d\n", r.Unresolved)
	fmt.Println()

	fmt.Printf("\033[1;33m  Pages\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.Pages) == 0 {
		fmt.Printf("  No pages processed\n")
	}
	for i, p := range r.Pages {
		expected := "?"
		if p.Expected > 0 {
			expected = strconv.Itoa(p.Expected)
		}
		fmt.Printf("  \033[1m%d.\033[0m %-40s %d/%s ids, %d records [%s]\n",
			i+1, truncate(p.Location.String(), 38), p.Collected, expected, p.Records, p.Outcome)
		if p.Err != nil {
			fmt.Printf("     \033[1;31m%v\033[0m\n", p.Err)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Top 5 Highest Rated Listings\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.TopRated) == 0 {
		fmt.Printf("  No rated listings found\n")
	} else {
		for i, l := range r.TopRated {
			fmt.Printf("  \033[1m%d.\033[0m %-40s \033[1;32m%s ★\033[0m\n",
				i+1, truncate(l.Title, 38), l.Rating)
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Listings by Locality\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByLocality) == 0 {
		fmt.Printf("  No address data\n")
	} else {
		type locCount struct {
			loc   string
			count int
		}
		var locs []locCount
		for loc, cnt := range r.ByLocality {
			locs = append(locs, locCount{loc, cnt})
		}
		sort.Slice(locs, func(i, j int) bool {
			if locs[i].count != locs[j].count {
				return locs[i].count > locs[j].count
			}
			return locs[i].loc < locs[j].loc
		})
		for _, lc := range locs {
			bar := strings.Repeat("█", lc.count)
			fmt.Printf("  %-30s %s (%d)\n", truncate(lc.loc, 28), bar, lc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func ratingValue(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
