// internal/output/excel_test.go
package output

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

func TestExcelSinkWritesRowsAndSavesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.xlsx")
	sink, err := NewExcelSink(ExcelOptions{Path: path, Sheet: "Tenders"})
	if err != nil {
		t.Fatalf("NewExcelSink failed: %v", err)
	}

	ctx := context.Background()
	first := sampleRecord()
	second := sampleRecord()
	second.SourceURL = "https://portal.example/tenders/100"
	second.Title = "Second Tender"

	if err := sink.Store(ctx, first); err != nil {
		t.Fatalf("first Store failed: %v", err)
	}
	if err := sink.Store(ctx, second); err != nil {
		t.Fatalf("second Store failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to reopen workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows("Tenders")
	if err != nil {
		t.Fatalf("failed to read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header plus 2 data rows, got %d rows", len(rows))
	}
	if rows[0][0] != "Title" || rows[0][1] != "Source URL" {
		t.Errorf("Expected header row, got %v", rows[0])
	}
	if rows[1][0] != first.Title {
		t.Errorf("Expected first data row title %q, got %q", first.Title, rows[1][0])
	}
	if rows[2][1] != second.SourceURL {
		t.Errorf("Expected second data row source URL %q, got %q", second.SourceURL, rows[2][1])
	}
}

func TestExcelSinkRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tenders.xlsx")
	sink, err := NewExcelSink(ExcelOptions{Path: path})
	if err != nil {
		t.Fatalf("NewExcelSink failed: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	record := sampleRecord()
	if err := sink.Store(ctx, record); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	err = sink.Store(ctx, record)
	if !errors.Is(err, scraper.ErrDuplicateRecord) {
		t.Fatalf("Expected ErrDuplicateRecord, got %v", err)
	}
}
