package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rightmove-scraper/config"
	"rightmove-scraper/models"
	"rightmove-scraper/utils"
)

// fakeGeocoder answers from a function and counts calls.
type fakeGeocoder struct {
	mu     sync.Mutex
	calls  int
	answer func(lat, lng float64) ([]models.GeocodeCandidate, error)
}

func (f *fakeGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) ([]models.GeocodeCandidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.answer(lat, lng)
}

func (f *fakeGeocoder) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testConfig() *config.Config {
	return &config.Config{
		GoogleMapsAPIKey: "key",
		SiteOrigin:       "https://www.rightmove.co.uk",
		PageSize:         24,
		MaxResults:       1000,
		MaxRetries:       1,
		RetryBaseDelay:   time.Millisecond,
		Search:           config.DefaultSearchParams(),
		ExportFormat:     "csv",
	}
}

func quietLogger() *utils.Logger { return utils.NewWriterLogger(io.Discard) }

func ptr[T any](v T) *T { return &v }

func record(id string, lat, lng float64) models.PropertyRecord {
	return models.PropertyRecord{ID: ptr(id), Latitude: ptr(lat), Longitude: ptr(lng)}
}

func candidateFor(lat float64) []models.GeocodeCandidate {
	return []models.GeocodeCandidate{{
		FormattedAddress: fmt.Sprintf("%.0f High Street, Marlow SL7 1AB, UK", lat),
		AddressComponents: []models.AddressComponent{
			{LongName: fmt.Sprintf("%.0f", lat), Types: []string{"street_number"}},
			{LongName: "High Street", Types: []string{"route"}},
			{LongName: "Marlow", Types: []string{"postal_town"}},
			{LongName: "SL7 1AB", Types: []string{"postal_code"}},
		},
	}}
}

func TestEnrichAllPreservesInputOrder(t *testing.T) {
	// Earlier records answer later, so completion order is the reverse of input order.
	geo := &fakeGeocoder{answer: func(lat, lng float64) ([]models.GeocodeCandidate, error) {
		time.Sleep(time.Duration(50-10*lat) * time.Millisecond)
		return candidateFor(lat), nil
	}}
	records := []models.PropertyRecord{
		record("a", 0, 0), record("b", 1, 0), record("c", 2, 0), record("d", 3, 0), record("e", 4, 0),
	}

	got, err := NewEnricher(geo, testConfig(), quietLogger()).EnrichAll(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for i, want := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, want, *got[i].ID)
		assert.Equal(t, fmt.Sprintf("%d", i), got[i].HouseNumber)
		assert.Equal(t, "High Street", got[i].StreetName)
		assert.Equal(t, "SL7 1AB", got[i].PostCode)
	}
	assert.Equal(t, 5, geo.Calls())
}

func TestEnrichAllGeocodeMiss(t *testing.T) {
	geo := &fakeGeocoder{answer: func(lat, lng float64) ([]models.GeocodeCandidate, error) {
		return nil, nil
	}}

	got, err := NewEnricher(geo, testConfig(), quietLogger()).
		EnrichAll(context.Background(), []models.PropertyRecord{record("a", 51.5, -0.7)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].HouseNumber)
	assert.Equal(t, "", got[0].StreetName)
	assert.Equal(t, "", got[0].PostCode)
	assert.Equal(t, models.AddressNotFound, got[0].ExactAddress)
	assert.InDelta(t, 51.5, *got[0].Latitude, 1e-9, "existing fields are kept")
}

func TestEnrichAllSkipsRecordsWithoutCoordinates(t *testing.T) {
	geo := &fakeGeocoder{answer: func(lat, lng float64) ([]models.GeocodeCandidate, error) {
		return candidateFor(lat), nil
	}}
	records := []models.PropertyRecord{{ID: ptr("no-coords")}, record("b", 7, 0)}

	got, err := NewEnricher(geo, testConfig(), quietLogger()).EnrichAll(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, models.AddressNotFound, got[0].ExactAddress)
	assert.Equal(t, "7", got[1].HouseNumber)
	assert.Equal(t, 1, geo.Calls())
}

func TestEnrichAllFailureFailsBatch(t *testing.T) {
	quota := errors.New("OVER_QUERY_LIMIT")
	geo := &fakeGeocoder{answer: func(lat, lng float64) ([]models.GeocodeCandidate, error) {
		if lat == 2 {
			return nil, quota
		}
		return candidateFor(lat), nil
	}}
	records := []models.PropertyRecord{record("a", 1, 0), record("b", 2, 0), record("c", 3, 0)}

	got, err := NewEnricher(geo, testConfig(), quietLogger()).EnrichAll(context.Background(), records)
	assert.Nil(t, got)

	var geoErr *models.GeocodeError
	require.True(t, errors.As(err, &geoErr), "got %v", err)
	assert.Equal(t, "b", geoErr.ListingID)
	assert.ErrorIs(t, err, quota)
}

func TestEnrichAllRetriesGeocoder(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3

	var mu sync.Mutex
	failures := 2
	geo := &fakeGeocoder{answer: func(lat, lng float64) ([]models.GeocodeCandidate, error) {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return nil, errors.New("transient")
		}
		return candidateFor(lat), nil
	}}

	got, err := NewEnricher(geo, cfg, quietLogger()).
		EnrichAll(context.Background(), []models.PropertyRecord{record("a", 4, 0)})
	require.NoError(t, err)
	assert.Equal(t, "4", got[0].HouseNumber)
	assert.Equal(t, 3, geo.Calls())
}

func TestAddressFromCandidatesUsesTopResult(t *testing.T) {
	candidates := append(candidateFor(9), candidateFor(1)...)

	addr := AddressFromCandidates(candidates)
	assert.Equal(t, "9", addr.HouseNumber)
	assert.Equal(t, "9 High Street, Marlow SL7 1AB, UK", addr.ExactAddress)
}

func TestAddressFromCandidatesPartialComponents(t *testing.T) {
	addr := AddressFromCandidates([]models.GeocodeCandidate{{
		FormattedAddress:  "Marlow, UK",
		AddressComponents: []models.AddressComponent{{LongName: "Marlow", Types: []string{"locality", "political"}}},
	}})
	assert.Equal(t, models.GeocodedAddress{ExactAddress: "Marlow, UK"}, addr)
}
