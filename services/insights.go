package services

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
	now    func() time.Time
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, now: time.Now}
}

func (s *InsightService) Generate(listings []models.EnrichedListing) *models.RunSummary {
	report := &models.RunSummary{
		ListingsByBranch: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)
	now := s.now().UTC()

	var total int64
	for i := range listings {
		l := &listings[i]

		if l.ExactAddress == models.AddressNotFound {
			report.AddressNotFound++
		} else {
			report.Geocoded++
		}

		if l.BranchDisplayName != nil && *l.BranchDisplayName != "" {
			report.ListingsByBranch[*l.BranchDisplayName]++
		}

		if l.Price != nil && *l.Price > 0 {
			p := *l.Price
			if report.PricedListings == 0 || p < report.MinPrice {
				report.MinPrice = p
			}
			if report.PricedListings == 0 || p > report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = l
			}
			report.PricedListings++
			total += p
		}

		if l.FirstVisibleDate != nil {
			if ts, ok := ParseListingDate(*l.FirstVisibleDate); ok {
				days := DaysBetween(ts, now)
				if report.LongestOnMarket == nil || days > report.MaxDaysOnMarket {
					report.LongestOnMarket = l
					report.MaxDaysOnMarket = days
				}
			}
		}
	}

	if report.PricedListings > 0 {
		report.AveragePrice = round2(float64(total) / float64(report.PricedListings))
	}

	return report
}

func (s *InsightService) Print(w io.Writer, r *models.RunSummary) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n%s\n", sep)
	fmt.Fprintf(w, "  RIGHTMOVE SEARCH SUMMARY\n")
	fmt.Fprintf(w, "%s\n\n", sep)

	fmt.Fprintf(w, "  Overview\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Listings exported      : %d\n", r.TotalListings)
	fmt.Fprintf(w, "  Geocoded addresses     : %d\n", r.Geocoded)
	fmt.Fprintf(w, "  Address not found      : %d\n", r.AddressNotFound)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  Asking Prices\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(w, "  Average price : £%.2f\n", r.AveragePrice)
		fmt.Fprintf(w, "  Minimum price : £%d\n", r.MinPrice)
		fmt.Fprintf(w, "  Maximum price : £%d\n", r.MaxPrice)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "  Most Expensive Listing\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(deref(r.MostExpensive.DisplayAddress), 50))
		fmt.Fprintf(w, "  Price : £%d\n", *r.MostExpensive.Price)
		fmt.Fprintln(w)
	}

	if r.LongestOnMarket != nil {
		fmt.Fprintf(w, "  Longest On Market\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(deref(r.LongestOnMarket.DisplayAddress), 50))
		fmt.Fprintf(w, "  Days  : %d\n", r.MaxDaysOnMarket)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Listings by Branch\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ListingsByBranch) == 0 {
		fmt.Fprintf(w, "  No branch data\n")
	} else {
		type branchCount struct {
			branch string
			count  int
		}
		var branches []branchCount
		for b, cnt := range r.ListingsByBranch {
			branches = append(branches, branchCount{b, cnt})
		}
		sort.Slice(branches, func(i, j int) bool {
			if branches[i].count != branches[j].count {
				return branches[i].count > branches[j].count
			}
			return branches[i].branch < branches[j].branch
		})
		for _, bc := range branches {
			bar := strings.Repeat("█", min(bc.count, 20))
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(bc.branch, 28), bar, bc.count)
		}
	}

	fmt.Fprintf(w, "\n%s\n\n", sep)
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

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
