package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rightmove-scraper/config"
	"rightmove-scraper/models"
	"rightmove-scraper/scraper/rightmove"
	"rightmove-scraper/storage"
	"rightmove-scraper/utils"
)

// LocationResolver turns a place name into location identifiers, best first.
type LocationResolver interface {
	ResolveLocations(ctx context.Context, query string) ([]string, error)
}

// SearchFetcher retrieves every raw listing for a location identifier.
type SearchFetcher interface {
	FetchAll(ctx context.Context, locationID string) ([]models.RawListing, error)
}

// Pipeline runs one search end to end: resolve, fetch, extract, enrich,
// assemble and export. Its collaborators are fixed at construction and shared
// read-only by concurrent runs.
type Pipeline struct {
	cfg       *config.Config
	logger    *utils.Logger
	resolver  LocationResolver
	fetcher   SearchFetcher
	extractor *Extractor
	enricher  *Enricher
	assembler *Assembler
	writer    storage.TableWriter
	now       func() time.Time
}

// NewPipeline wires the pipeline's stages.
func NewPipeline(
	cfg *config.Config,
	logger *utils.Logger,
	resolver LocationResolver,
	fetcher SearchFetcher,
	geocoder ReverseGeocoder,
	writer storage.TableWriter,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		logger:    logger,
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: NewExtractor(),
		enricher:  NewEnricher(geocoder, cfg, logger),
		assembler: NewAssembler(cfg),
		writer:    writer,
		now:       time.Now,
	}
}

// Run searches for query, a place name or a location identifier such as
// "REGION^916". An empty query falls back to the configured identifier, then
// the configured place name. The export is written before Run returns.
func (p *Pipeline) Run(ctx context.Context, query string) (*models.SearchRun, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = p.cfg.LocationIdentifier
	}
	if query == "" {
		query = p.cfg.SearchQuery
	}

	run := &models.SearchRun{
		ID:        uuid.NewString(),
		Query:     query,
		StartedAt: p.now(),
	}
	p.logger.Info("[pipeline] Run %s started for %q", run.ID, query)

	locationID, err := p.resolve(ctx, query)
	if err != nil {
		return nil, err
	}
	run.LocationID = locationID

	raw, err := p.fetcher.FetchAll(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", locationID, err)
	}

	records := p.extractor.ExtractAll(raw)

	run.Listings, err = p.enricher.EnrichAll(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	run.Table = p.assembler.Assemble(run.Listings)
	run.OutputPath = storage.OutputName(p.cfg.OutputDir, run.StartedAt, run.ID, p.writer.Extension())
	if err := p.writer.WriteTable(run.OutputPath, run.Table); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	run.FinishedAt = p.now()
	p.logger.Info("[pipeline] Run %s wrote %d listings to %s in %v",
		run.ID, len(run.Listings), run.OutputPath, run.FinishedAt.Sub(run.StartedAt).Truncate(time.Millisecond))
	return run, nil
}

func (p *Pipeline) resolve(ctx context.Context, query string) (string, error) {
	if rightmove.IsLocationIdentifier(query) {
		return query, nil
	}

	ids, err := p.resolver.ResolveLocations(ctx, query)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", &models.LookupError{Query: query, Err: errors.New("no matching locations")}
	}
	p.logger.Debug("[pipeline] Using location %s (of %d candidates)", ids[0], len(ids))
	return ids[0], nil
}
