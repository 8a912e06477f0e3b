package storage

import (
	"fmt"
	"path/filepath"
	"time"

	"rightmove-scraper/models"
)

// TableWriter is the interface any export backend must satisfy.
type TableWriter interface {
	// WriteTable writes t to path, replacing any existing file.
	WriteTable(path string, t *models.Table) error
	// Extension is the file extension, dot included, of the files it writes.
	Extension() string
}

// NewTableWriter returns the writer for an export format ("xlsx" or "csv").
func NewTableWriter(format string) (TableWriter, error) {
	switch format {
	case "", "xlsx":
		return &XLSXWriter{}, nil
	case "csv":
		return &CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("storage: unsupported export format %q", format)
	}
}

// OutputName returns the export path for a run started at startedAt. The
// first eight characters of runID keep runs started in the same second apart.
func OutputName(dir string, startedAt time.Time, runID, ext string) string {
	name := "property_listings_" + startedAt.Format("2006-01-02_15-04-05")
	if runID != "" {
		name += "_" + runID[:min(8, len(runID))]
	}
	return filepath.Join(dir, name+ext)
}
