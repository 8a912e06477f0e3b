package services

import (
	"strings"
	"time"

	"rightmove-scraper/config"
	"rightmove-scraper/models"
)

// SheetName is the name of the single worksheet in an exported run.
const SheetName = "Property Listings"

// Columns is the fixed column order of every assembled table.
var Columns = []string{
	"id",
	"house_number",
	"street_name",
	"post_code",
	"price",
	"branchDisplayName",
	"firstVisibleDate",
	"daysOnMarket",
	"propertyUrl",
	"contactUrl",
	"listingUpdateReason",
	"listingUpdateDate",
	"latitude",
	"longitude",
	"displayAddress",
	"exact_address",
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Assembler turns enriched listings into the exported table.
type Assembler struct {
	origin string
	now    func() time.Time
}

// NewAssembler creates an Assembler that prefixes listing links with the site origin.
func NewAssembler(cfg *config.Config) *Assembler {
	return &Assembler{origin: cfg.SiteOrigin, now: time.Now}
}

// Assemble builds one row per listing in input order, with the columns in
// the order given by Columns.
func (a *Assembler) Assemble(listings []models.EnrichedListing) *models.Table {
	now := a.now().UTC()
	t := &models.Table{
		Sheet:   SheetName,
		Columns: append([]string(nil), Columns...),
		Rows:    make([][]any, 0, len(listings)),
	}

	for _, l := range listings {
		var firstVisible, daysOnMarket any
		if l.FirstVisibleDate != nil {
			firstVisible = *l.FirstVisibleDate
			if ts, ok := ParseListingDate(*l.FirstVisibleDate); ok {
				daysOnMarket = DaysBetween(ts, now)
				firstVisible = ts
			}
		}

		t.Rows = append(t.Rows, []any{
			strOrNil(l.ID),
			l.HouseNumber,
			l.StreetName,
			l.PostCode,
			intOrNil(l.Price),
			strOrNil(l.BranchDisplayName),
			firstVisible,
			daysOnMarket,
			a.link(l.PropertyURL),
			a.link(l.ContactURL),
			strOrNil(l.ListingUpdateReason),
			strOrNil(l.ListingUpdateDate),
			floatOrNil(l.Latitude),
			floatOrNil(l.Longitude),
			strOrNil(l.DisplayAddress),
			l.ExactAddress,
		})
	}
	return t
}

func (a *Assembler) link(path *string) any {
	if path == nil {
		return nil
	}
	return AbsoluteURL(a.origin, *path)
}

// AbsoluteURL joins a site-relative path onto origin with exactly one slash
// between them. Paths that are already absolute URLs are returned unchanged.
func AbsoluteURL(origin, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(path, "/")
}

// ParseListingDate parses a listing timestamp. Values without an offset are
// taken as UTC. The result is in UTC, so its wall clock is the naive display value.
func ParseListingDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// DaysBetween returns the whole days elapsed from since to now, floored.
func DaysBetween(since, now time.Time) int {
	d := now.Sub(since)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func intOrNil(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
