// Package geocoder adapts the Google Maps Geocoding API to the reverse
// geocoding port used by the address enricher.
package geocoder

import (
	"context"
	"net/http"
	"strings"

	"googlemaps.github.io/maps"

	"rightmove-scraper/config"
	"rightmove-scraper/models"
)

// Google reverse-geocodes coordinates through the Maps Geocoding API.
// One instance is shared read-only by every concurrent lookup.
type Google struct {
	client *maps.Client
}

// NewGoogle builds the Maps client from cfg. The API key must already have
// been checked by cfg.Validate.
func NewGoogle(cfg *config.Config, httpClient *http.Client) (*Google, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(cfg.GoogleMapsAPIKey)}
	if httpClient != nil {
		opts = append(opts, maps.WithHTTPClient(httpClient))
	}
	if cfg.GeocodeRateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(cfg.GeocodeRateLimit))
	}
	if cfg.GeocodeBaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.GeocodeBaseURL))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, &models.ConfigurationError{Key: "GOOGLE_MAPS_API_KEY", Reason: err.Error()}
	}
	return &Google{client: client}, nil
}

// ReverseGeocode returns the candidate addresses for (lat, lng), best first.
// A ZERO_RESULTS answer is an empty slice, not an error.
func (g *Google) ReverseGeocode(ctx context.Context, lat, lng float64) ([]models.GeocodeCandidate, error) {
	results, err := g.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return nil, nil
		}
		return nil, err
	}
	return toCandidates(results), nil
}

func toCandidates(results []maps.GeocodingResult) []models.GeocodeCandidate {
	out := make([]models.GeocodeCandidate, 0, len(results))
	for _, r := range results {
		c := models.GeocodeCandidate{FormattedAddress: r.FormattedAddress}
		for _, ac := range r.AddressComponents {
			c.AddressComponents = append(c.AddressComponents, models.AddressComponent{
				LongName: ac.LongName,
				Types:    ac.Types,
			})
		}
		out = append(out, c)
	}
	return out
}
