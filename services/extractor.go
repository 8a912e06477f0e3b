package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"rightmove-scraper/models"
)

// fieldPath binds one PropertyRecord field to its location in a RawListing.
type fieldPath struct {
	name string
	path string
	set  func(r *models.PropertyRecord, v any)
}

// propertyFields is the complete extraction mapping. Fields not listed here
// are never populated.
var propertyFields = []fieldPath{
	{"id", "id", func(r *models.PropertyRecord, v any) { r.ID = asString(v) }},
	{"phone", "customer.contactTelephone", func(r *models.PropertyRecord, v any) { r.Phone = asString(v) }},
	{"bedrooms", "bedrooms", func(r *models.PropertyRecord, v any) { r.Bedrooms = asInt(v) }},
	{"bathrooms", "bathrooms", func(r *models.PropertyRecord, v any) { r.Bathrooms = asInt(v) }},
	{"displayAddress", "displayAddress", func(r *models.PropertyRecord, v any) { r.DisplayAddress = asString(v) }},
	{"latitude", "location.latitude", func(r *models.PropertyRecord, v any) { r.Latitude = asFloat(v) }},
	{"longitude", "location.longitude", func(r *models.PropertyRecord, v any) { r.Longitude = asFloat(v) }},
	{"property_type", "propertySubType", func(r *models.PropertyRecord, v any) { r.PropertyType = asString(v) }},
	{"summary", "summary", func(r *models.PropertyRecord, v any) { r.Summary = asString(v) }},
	{"price", "price.amount", func(r *models.PropertyRecord, v any) { r.Price = asInt(v) }},
	{"size", "displaySize", func(r *models.PropertyRecord, v any) { r.Size = asString(v) }},
	{"propertyUrl", "propertyUrl", func(r *models.PropertyRecord, v any) { r.PropertyURL = asString(v) }},
	{"contactUrl", "contactUrl", func(r *models.PropertyRecord, v any) { r.ContactURL = asString(v) }},
	{"firstVisibleDate", "firstVisibleDate", func(r *models.PropertyRecord, v any) { r.FirstVisibleDate = asString(v) }},
	{"addedOrReduced", "addedOrReduced", func(r *models.PropertyRecord, v any) { r.AddedOrReduced = asString(v) }},
	{"listingUpdateReason", "listingUpdate.listingUpdateReason", func(r *models.PropertyRecord, v any) { r.ListingUpdateReason = asString(v) }},
	{"listingUpdateDate", "listingUpdate.listingUpdateDate", func(r *models.PropertyRecord, v any) { r.ListingUpdateDate = asString(v) }},
	{"branchDisplayName", "customer.branchDisplayName", func(r *models.PropertyRecord, v any) { r.BranchDisplayName = asString(v) }},
}

// Extractor maps raw search results onto PropertyRecords. It holds no state
// and is safe for concurrent use.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds a PropertyRecord from raw. Missing or mistyped fields are
// left nil; extraction never fails.
func (e *Extractor) Extract(raw models.RawListing) models.PropertyRecord {
	var rec models.PropertyRecord
	tree := map[string]any(raw)
	for _, f := range propertyFields {
		if v, ok := lookupPath(tree, f.path); ok {
			f.set(&rec, v)
		}
	}
	return rec
}

// ExtractAll extracts every listing, keeping order.
func (e *Extractor) ExtractAll(raw []models.RawListing) []models.PropertyRecord {
	out := make([]models.PropertyRecord, 0, len(raw))
	for _, r := range raw {
		out = append(out, e.Extract(r))
	}
	return out
}

// lookupPath walks a dotted path such as "price.amount" or "images[0].url"
// through nested maps and slices. It reports false when any step is missing,
// of the wrong kind, or the final value is JSON null.
func lookupPath(node any, path string) (any, bool) {
	if path == "" {
		return node, node != nil
	}
	for _, segment := range strings.Split(path, ".") {
		key, indexes, ok := splitSegment(segment)
		if !ok {
			return nil, false
		}
		if key != "" {
			m, isMap := node.(map[string]any)
			if !isMap {
				return nil, false
			}
			if node, ok = m[key]; !ok {
				return nil, false
			}
		}
		for _, idx := range indexes {
			s, isSlice := node.([]any)
			if !isSlice || idx < 0 || idx >= len(s) {
				return nil, false
			}
			node = s[idx]
		}
	}
	return node, node != nil
}

// splitSegment parses "name[1][2]" into "name" and [1 2].
func splitSegment(segment string) (string, []int, bool) {
	open := strings.IndexByte(segment, '[')
	if open < 0 {
		return segment, nil, segment != ""
	}
	key := segment[:open]
	rest := segment[open:]

	var indexes []int
	for rest != "" {
		if rest[0] != '[' {
			return "", nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return "", nil, false
		}
		n, err := strconv.Atoi(rest[1:end])
		if err != nil {
			return "", nil, false
		}
		indexes = append(indexes, n)
		rest = rest[end+1:]
	}
	return key, indexes, true
}

func asString(v any) *string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	default:
		return nil
	}
	return &s
}

func asFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case float64:
		f = t
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	return &f
}

func asInt(v any) *int64 {
	if num, ok := v.(json.Number); ok {
		if n, err := num.Int64(); err == nil {
			return &n
		}
	}
	f := asFloat(v)
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	n := int64(*f)
	return &n
}
