package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rightmove-scraper/models"
	"rightmove-scraper/scraper/rightmove"
	"rightmove-scraper/utils"
)

type fakeRunner struct {
	path    string
	err     error
	queries []string
}

func (f *fakeRunner) Run(ctx context.Context, query string) (*models.SearchRun, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &models.SearchRun{ID: "run-1", Query: query, OutputPath: f.path}, nil
}

type fakeLister struct {
	locs []rightmove.Location
	err  error
}

func (f *fakeLister) Locations(ctx context.Context, query string) ([]rightmove.Location, error) {
	return f.locs, f.err
}

func newTestServer(t *testing.T, runner Runner, lister LocationLister) *httptest.Server {
	t.Helper()
	s := New(runner, lister, utils.NewWriterLogger(io.Discard), "marlow")
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "property_listings_2024-06-20_09-30-00_3f2a9c1e.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("PK-workbook"), 0644))
	runner := &fakeRunner{path: path}
	srv := newTestServer(t, runner, &fakeLister{})

	resp, body := get(t, srv.URL+"/download?q=Marlow")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PK-workbook", string(body))
	assert.Equal(t, `attachment; filename="property_listings_2024-06-20_09-30-00_3f2a9c1e.xlsx"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get("Content-Type"))
	assert.Equal(t, "run-1", resp.Header.Get("X-Run-Id"))
	assert.Equal(t, []string{"Marlow"}, runner.queries)
}

func TestDownloadPrefersLocationIdentifier(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n"), 0644))
	runner := &fakeRunner{path: path}
	srv := newTestServer(t, runner, &fakeLister{})

	resp, _ := get(t, srv.URL+"/download?q=Marlow&location=REGION%5E916")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, []string{"REGION^916"}, runner.queries)
}

func TestDownloadFailure(t *testing.T) {
	runner := &fakeRunner{err: &models.FetchError{Offset: 48, URL: "https://x", Err: errors.New("connection reset")}}
	srv := newTestServer(t, runner, &fakeLister{})

	resp, body := get(t, srv.URL+"/download")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "fetch", payload["kind"])
	assert.Contains(t, payload["error"], "offset 48")
	assert.Equal(t, []string{""}, runner.queries)
}

func TestLocations(t *testing.T) {
	lister := &fakeLister{locs: []rightmove.Location{
		{Identifier: "REGION^916", DisplayName: "Marlow, Buckinghamshire"},
		{Identifier: "STATION^6035", DisplayName: "Marlow Station"},
	}}
	srv := newTestServer(t, &fakeRunner{}, lister)

	resp, body := get(t, srv.URL+"/locations?q=marlow")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []rightmove.Location
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, lister.locs, got)
}

func TestLocationsErrors(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, &fakeLister{err: &models.LookupError{Query: "x", Err: errors.New("missing typeAheadLocations")}})

	resp, _ := get(t, srv.URL+"/locations")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := get(t, srv.URL+"/locations?q=x")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, string(body), `"kind":"lookup"`)
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{}, &fakeLister{})

	resp, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `action="/download"`)

	resp, body = get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, _ = get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(&fakeRunner{}, &fakeLister{}, utils.NewWriterLogger(io.Discard), "")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}
