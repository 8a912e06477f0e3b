package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"rightmove-scraper/models"
	"rightmove-scraper/scraper/rightmove"
	"rightmove-scraper/utils"
)

// Runner executes one search and writes its export.
type Runner interface {
	Run(ctx context.Context, query string) (*models.SearchRun, error)
}

// LocationLister returns typeahead candidates for a place name.
type LocationLister interface {
	Locations(ctx context.Context, query string) ([]rightmove.Location, error)
}

var contentTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv; charset=utf-8",
}

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Rightmove Listings Export</title></head>
<body>
  <h1>Rightmove Listings Export</h1>
  <form action="/download" method="get">
    <input type="text" name="q" placeholder="{{.}}">
    <button type="submit">Download spreadsheet</button>
  </form>
</body>
</html>
`))

// Server exposes the pipeline over HTTP.
type Server struct {
	runner       Runner
	locations    LocationLister
	logger       *utils.Logger
	defaultQuery string
}

func New(runner Runner, locations LocationLister, logger *utils.Logger, defaultQuery string) *Server {
	return &Server{runner: runner, locations: locations, logger: logger, defaultQuery: defaultQuery}
}

// Router returns the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/download", s.handleDownload).Methods(http.MethodGet)
	r.HandleFunc("/locations", s.handleLocations).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("[server] Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage.Execute(w, s.defaultQuery); err != nil {
		s.logger.Error("[server] Render index: %v", err)
	}
}

// handleDownload runs the pipeline once and streams the export back as an attachment.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("location")
	if query == "" {
		query = q.Get("q")
	}

	run, err := s.runner.Run(r.Context(), query)
	if err != nil {
		s.fail(w, err)
		return
	}

	name := filepath.Base(run.OutputPath)
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Run-Id", run.ID)
	http.ServeFile(w, r, run.OutputPath)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter", "kind": "lookup"})
		return
	}

	locs, err := s.locations.Locations(r.Context(), query)
	if err != nil {
		s.fail(w, err)
		return
	}
	if locs == nil {
		locs = []rightmove.Location{}
	}
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	kind := models.ErrorKind(err)
	s.logger.Error("[server] Request failed (%s): %v", kind, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error(), "kind": kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
