// internal/output/excel.go
package output

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// ExcelOptions configures the Excel sink.
type ExcelOptions struct {
	Path  string `yaml:"path" json:"path"`
	Sheet string `yaml:"sheet" json:"sheet"`
}

// excelColumns is the fixed header row.
var excelColumns = []string{"Title", "Source URL", "Core Details", "Other Data", "Scraped At"}

// ExcelSink writes one row per record into a spreadsheet. The detail
// structures are stored as JSON text in their cells. Duplicates are tracked
// with an in-memory URL set; the workbook is written once on Close.
type ExcelSink struct {
	file  *excelize.File
	path  string
	sheet string
	row   int
	seen  map[string]struct{}
}

// NewExcelSink creates the workbook and its header row.
func NewExcelSink(options ExcelOptions) (*ExcelSink, error) {
	if options.Path == "" {
		return nil, fmt.Errorf("Excel output path is required")
	}
	if options.Sheet == "" {
		options.Sheet = "Tenders"
	}

	file := excelize.NewFile()
	defaultSheet := file.GetSheetName(0)
	if defaultSheet != options.Sheet {
		if err := file.SetSheetName(defaultSheet, options.Sheet); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	for i, column := range excelColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := file.SetCellValue(options.Sheet, cell, column); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	return &ExcelSink{
		file:  file,
		path:  options.Path,
		sheet: options.Sheet,
		row:   1,
		seen:  make(map[string]struct{}),
	}, nil
}

// Store appends one row.
func (s *ExcelSink) Store(_ context.Context, record *scraper.TenderRecord) error {
	if _, dup := s.seen[record.SourceURL]; dup {
		return scraper.ErrDuplicateRecord
	}

	doc, err := BuildDocument(record)
	if err != nil {
		return &PersistenceError{Backend: "excel", Err: err}
	}

	s.row++
	values := []interface{}{
		doc.Title,
		doc.SourceURL,
		string(doc.CoreDetails),
		string(doc.OtherData),
		doc.ScrapedAt.Format("2006-01-02 15:04:05"),
	}
	for i, value := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, s.row)
		if err != nil {
			return &PersistenceError{Backend: "excel", Err: err}
		}
		if err := s.file.SetCellValue(s.sheet, cell, value); err != nil {
			return &PersistenceError{Backend: "excel", Err: err}
		}
	}

	s.seen[record.SourceURL] = struct{}{}
	return nil
}

// Close writes the workbook to disk.
func (s *ExcelSink) Close() error {
	if s.file == nil {
		return nil
	}
	defer func() {
		s.file.Close()
		s.file = nil
	}()

	if err := s.file.SaveAs(s.path); err != nil {
		return fmt.Errorf("failed to save workbook to %s: %w", s.path, err)
	}
	return nil
}
