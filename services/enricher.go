package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"rightmove-scraper/config"
	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

// ReverseGeocoder resolves a coordinate pair to candidate addresses, best first.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) ([]models.GeocodeCandidate, error)
}

// Enricher attaches a geocoded address to every PropertyRecord.
type Enricher struct {
	geocoder    ReverseGeocoder
	logger      *utils.Logger
	retry       *utils.RetryConfig
	concurrency int
}

// NewEnricher creates an Enricher that geocodes through g.
func NewEnricher(g ReverseGeocoder, cfg *config.Config, logger *utils.Logger) *Enricher {
	return &Enricher{
		geocoder:    g,
		logger:      logger,
		concurrency: cfg.GeocodeConcurrency,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
			Retryable:   func(err error) bool { return !errors.Is(err, context.Canceled) },
		},
	}
}

// EnrichAll geocodes every record concurrently. The result has the same
// length and order as records regardless of which lookup finishes first.
// Any geocoder failure fails the whole batch.
func (e *Enricher) EnrichAll(ctx context.Context, records []models.PropertyRecord) ([]models.EnrichedListing, error) {
	e.logger.Info("[enricher] Geocoding %d listings", len(records))

	enriched, err := utils.GatherOrdered(ctx, e.concurrency, len(records),
		func(ctx context.Context, i int) (models.EnrichedListing, error) {
			addr, err := e.geocode(ctx, records[i])
			if err != nil {
				return models.EnrichedListing{}, err
			}
			return models.EnrichedListing{PropertyRecord: records[i], GeocodedAddress: addr}, nil
		})
	if err != nil {
		return nil, err
	}

	missing := 0
	for _, l := range enriched {
		if l.ExactAddress == models.AddressNotFound {
			missing++
		}
	}
	e.logger.Info("[enricher] Geocoded %d listings (%d without an address)", len(enriched), missing)
	return enriched, nil
}

func (e *Enricher) geocode(ctx context.Context, rec models.PropertyRecord) (models.GeocodedAddress, error) {
	id := ""
	if rec.ID != nil {
		id = *rec.ID
	}
	if !rec.HasCoordinates() {
		e.logger.Debug("[enricher] Listing %s has no coordinates", id)
		return models.MissingAddress(), nil
	}

	lat, lng := *rec.Latitude, *rec.Longitude
	var candidates []models.GeocodeCandidate
	err := e.retry.Do(ctx, fmt.Sprintf("geocode-%s", id), func() error {
		c, err := e.geocoder.ReverseGeocode(ctx, lat, lng)
		if err != nil {
			return err
		}
		candidates = c
		return nil
	})
	if err != nil {
		return models.GeocodedAddress{}, &models.GeocodeError{ListingID: id, Lat: lat, Lng: lng, Err: err}
	}
	return AddressFromCandidates(candidates), nil
}

// AddressFromCandidates reads the top-ranked candidate's street number, route
// and postal code. No candidates yields models.MissingAddress.
func AddressFromCandidates(candidates []models.GeocodeCandidate) models.GeocodedAddress {
	if len(candidates) == 0 {
		return models.MissingAddress()
	}

	top := candidates[0]
	addr := models.GeocodedAddress{ExactAddress: top.FormattedAddress}
	for _, c := range top.AddressComponents {
		if slices.Contains(c.Types, "street_number") {
			addr.HouseNumber = c.LongName
		}
		if slices.Contains(c.Types, "route") {
			addr.StreetName = c.LongName
		}
		if slices.Contains(c.Types, "postal_code") {
			addr.PostCode = c.LongName
		}
	}
	return addr
}
