package models

import "time"

// AddressNotFound is written to ExactAddress when the geocoder has no result
// for a listing's coordinates.
const AddressNotFound = "Address not found"

// RawListing is one decoded element of the search API's "properties" array.
// Its shape is not guaranteed; fields are read through path lookups.
type RawListing map[string]any

// PropertyRecord is the fixed-schema record extracted from a RawListing.
// A nil field means the source record did not carry it.
type PropertyRecord struct {
	ID                  *string
	Phone               *string
	Bedrooms            *int64
	Bathrooms           *int64
	DisplayAddress      *string
	Latitude            *float64
	Longitude           *float64
	PropertyType        *string
	Summary             *string
	Price               *int64
	Size                *string
	PropertyURL         *string
	ContactURL          *string
	FirstVisibleDate    *string
	AddedOrReduced      *string
	ListingUpdateReason *string
	ListingUpdateDate   *string
	BranchDisplayName   *string
}

// HasCoordinates reports whether both latitude and longitude were extracted.
func (p PropertyRecord) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// GeocodedAddress is the structured address resolved from a listing's coordinates.
type GeocodedAddress struct {
	HouseNumber  string
	StreetName   string
	PostCode     string
	ExactAddress string
}

// MissingAddress returns the defaults used when geocoding yields nothing.
func MissingAddress() GeocodedAddress {
	return GeocodedAddress{ExactAddress: AddressNotFound}
}

// EnrichedListing is a PropertyRecord merged with its geocoded address.
type EnrichedListing struct {
	PropertyRecord
	GeocodedAddress
}

// AddressComponent is one typed part of a geocoder result.
type AddressComponent struct {
	LongName string
	Types    []string
}

// GeocodeCandidate is one reverse-geocoding result, best match first.
type GeocodeCandidate struct {
	FormattedAddress  string
	AddressComponents []AddressComponent
}

// Table is the assembled tabular output handed to an exporter.
type Table struct {
	Sheet   string
	Columns []string
	Rows    [][]any
}

// SearchRun is the aggregate output of one pipeline invocation.
type SearchRun struct {
	ID         string
	Query      string
	LocationID string
	StartedAt  time.Time
	FinishedAt time.Time
	OutputPath string
	Listings   []EnrichedListing
	Table      *Table
}

// RunSummary holds the computed statistics over a finished run.
type RunSummary struct {
	TotalListings    int
	Geocoded         int
	AddressNotFound  int
	PricedListings   int
	AveragePrice     float64
	MinPrice         int64
	MaxPrice         int64
	MostExpensive    *EnrichedListing
	LongestOnMarket  *EnrichedListing
	MaxDaysOnMarket  int
	ListingsByBranch map[string]int
}
