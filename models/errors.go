package models

import (
	"errors"
	"fmt"
)

// LookupError reports a typeahead response without the expected structure.
type LookupError struct {
	Query string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("location lookup %q: %v", e.Query, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// FetchError reports a search page request that failed after dispatch.
type FetchError struct {
	Offset int
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page at offset %d: %v", e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not the expected JSON.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// GeocodeError reports a reverse-geocoding transport or quota failure.
type GeocodeError struct {
	ListingID string
	Lat       float64
	Lng       float64
	Err       error
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("reverse geocode listing %s (%.6f,%.6f): %v", e.ListingID, e.Lat, e.Lng, e.Err)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// ConfigurationError reports a missing or invalid setting detected at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Key, e.Reason)
}

// StatusError is returned by the HTTP wrapper for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.Code, e.URL)
}

// ErrorKind classifies err for structured failure reports.
func ErrorKind(err error) string {
	var (
		cfgErr     *ConfigurationError
		lookupErr  *LookupError
		decodeErr  *DecodeError
		fetchErr   *FetchError
		geocodeErr *GeocodeError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &lookupErr):
		return "lookup"
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &geocodeErr):
		return "geocode"
	default:
		return "internal"
	}
}
