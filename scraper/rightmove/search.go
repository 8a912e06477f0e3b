package rightmove

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

const searchPath = "/api/_search"

type searchPage struct {
	ResultCount *string              `json:"resultCount"`
	Properties  *[]models.RawListing `json:"properties"`
}

// SearchURL builds the search API URL for one page.
func (c *Client) SearchURL(locationID string, offset int) string {
	q := url.Values{}
	q.Set("areaSizeUnit", c.params.AreaSizeUnit)
	q.Set("channel", c.params.Channel)
	q.Set("currencyCode", c.params.CurrencyCode)
	q.Set("includeSSTC", strconv.FormatBool(c.params.IncludeSSTC))
	q.Set("index", strconv.Itoa(offset))
	q.Set("isFetching", "false")
	q.Set("locationIdentifier", locationID)
	q.Set("numberOfPropertiesPerPage", strconv.Itoa(c.pageSize))
	q.Set("radius", c.params.Radius)
	q.Set("sortType", c.params.SortType)
	q.Set("viewType", c.params.ViewType)
	return c.origin + searchPath + "?" + q.Encode()
}

// PageOffsets returns the offsets after the first page that must be requested
// for total results: multiples of pageSize below both total and ceiling.
func PageOffsets(total, pageSize, ceiling int) []int {
	var offsets []int
	for offset := pageSize; offset < total && offset < ceiling; offset += pageSize {
		offsets = append(offsets, offset)
	}
	return offsets
}

// ParseResultCount parses the API's comma-grouped count, e.g. "1,200".
func ParseResultCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, fmt.Errorf("invalid resultCount %q: %w", s, err)
	}
	return n, nil
}

func (c *Client) fetchPage(ctx context.Context, locationID string, offset int) (*searchPage, error) {
	u := c.SearchURL(locationID, offset)
	c.logger.Debug("[rightmove] Fetching offset %d", offset)

	body, err := c.get(ctx, fmt.Sprintf("search-page-%d", offset), u)
	if err != nil {
		return nil, &models.FetchError{Offset: offset, URL: u, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	source := fmt.Sprintf("search page at offset %d", offset)
	var page searchPage
	if err := dec.Decode(&page); err != nil {
		return nil, &models.DecodeError{Source: source, Err: err}
	}
	if page.Properties == nil {
		return nil, &models.DecodeError{Source: source, Err: errors.New("missing properties")}
	}
	return &page, nil
}

// FetchAll retrieves every listing for locationID up to the configured
// ceiling. The first page is fetched alone to learn the total; the remaining
// pages are fetched concurrently and appended as they arrive, so listings keep
// their order within a page but pages after the first may appear in any order.
func (c *Client) FetchAll(ctx context.Context, locationID string) ([]models.RawListing, error) {
	first, err := c.fetchPage(ctx, locationID, 0)
	if err != nil {
		return nil, err
	}
	if first.ResultCount == nil {
		return nil, &models.DecodeError{Source: "search page at offset 0", Err: errors.New("missing resultCount")}
	}
	total, err := ParseResultCount(*first.ResultCount)
	if err != nil {
		return nil, &models.DecodeError{Source: "search page at offset 0", Err: err}
	}

	results := *first.Properties
	offsets := PageOffsets(total, c.pageSize, c.maxResults)
	c.logger.Info("[rightmove] %s: %d results available, fetching %d more page(s)",
		locationID, total, len(offsets))

	tasks := make([]utils.Task[[]models.RawListing], 0, len(offsets))
	for _, offset := range offsets {
		tasks = append(tasks, func(ctx context.Context) ([]models.RawListing, error) {
			page, err := c.fetchPage(ctx, locationID, offset)
			if err != nil {
				return nil, err
			}
			return *page.Properties, nil
		})
	}

	err = utils.DrainCompleted(ctx, c.maxConcurrency, tasks, func(listings []models.RawListing) {
		results = append(results, listings...)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("[rightmove] Fetch complete: %d raw listings", len(results))
	return results, nil
}
