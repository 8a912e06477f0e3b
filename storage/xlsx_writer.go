package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"rightmove-scraper/models"
)

// XLSXWriter exports a table as a single-sheet Excel workbook.
type XLSXWriter struct{}

func (x *XLSXWriter) Extension() string { return ".xlsx" }

// WriteTable saves t to path. Intermediate directories are created automatically.
func (x *XLSXWriter) WriteTable(path string, t *models.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f, err := build(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", path, err)
	}
	return nil
}

// Encode writes t as a workbook to w.
func (x *XLSXWriter) Encode(w io.Writer, t *models.Table) error {
	f, err := build(t)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}

func build(t *models.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: write header: %w", err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("xlsx: cell name: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("xlsx: write row %d: %w", i+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("xlsx: flush: %w", err)
	}
	return f, nil
}
