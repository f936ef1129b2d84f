// internal/output/types.go

package output

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// Sink persists tender records, one at a time. Store returns nil on success,
// scraper.ErrDuplicateRecord when the record's source URL was already stored,
// and a *PersistenceError for backend failures. Duplicates and failures never
// abort a crawl.
type Sink = scraper.RecordSink

// PersistenceError wraps a backend failure while storing one record.
type PersistenceError struct {
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s sink: %v", e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// otherData is the JSON bundle stored beside the core details.
type otherData struct {
	Paragraphs []string        `json:"paragraphs"`
	Tables     []scraper.Table `json:"tables"`
}

// Document is the persisted shape of a record, shared by every backend:
// title and source URL as plain columns, core details and the
// paragraphs/tables bundle as JSON documents, plus the store timestamp.
type Document struct {
	Title       string          `json:"title"`
	SourceURL   string          `json:"source_url"`
	CoreDetails json.RawMessage `json:"core_details"`
	OtherData   json.RawMessage `json:"other_data"`
	ScrapedAt   time.Time       `json:"scraped_at"`
}

// BuildDocument serializes a record into its persisted shape. Core detail
// key order survives serialization.
func BuildDocument(record *scraper.TenderRecord) (*Document, error) {
	core, err := json.Marshal(record.CoreDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize core details: %w", err)
	}

	paragraphs := record.Paragraphs
	if paragraphs == nil {
		paragraphs = []string{}
	}
	tables := record.Tables
	if tables == nil {
		tables = []scraper.Table{}
	}
	other, err := json.Marshal(otherData{Paragraphs: paragraphs, Tables: tables})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize paragraphs and tables: %w", err)
	}

	return &Document{
		Title:       record.Title,
		SourceURL:   record.SourceURL,
		CoreDetails: core,
		OtherData:   other,
		ScrapedAt:   time.Now().UTC(),
	}, nil
}

// ParseRecord rebuilds a TenderRecord from its persisted shape. Core detail
// keys come back in their stored order.
func ParseRecord(doc *Document) (*scraper.TenderRecord, error) {
	details := scraper.NewOrderedMap()
	if err := json.Unmarshal(doc.CoreDetails, details); err != nil {
		return nil, fmt.Errorf("failed to parse core details: %w", err)
	}

	var other otherData
	if err := json.Unmarshal(doc.OtherData, &other); err != nil {
		return nil, fmt.Errorf("failed to parse paragraphs and tables: %w", err)
	}

	return &scraper.TenderRecord{
		Title:       doc.Title,
		CoreDetails: details,
		Paragraphs:  other.Paragraphs,
		Tables:      other.Tables,
		SourceURL:   doc.SourceURL,
	}, nil
}
