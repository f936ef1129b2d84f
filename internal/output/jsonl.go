// internal/output/jsonl.go
package output

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// JSONLOptions configures the JSON Lines sink.
type JSONLOptions struct {
	Path string `yaml:"path" json:"path"`
}

// JSONLSink appends one JSON document per line. Duplicates are tracked with
// an in-memory URL set, which is seeded from the existing file so appending
// to a previous run's output keeps the uniqueness guarantee.
type JSONLSink struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	seen    map[string]struct{}
}

// NewJSONLSink opens the output file for appending.
func NewJSONLSink(options JSONLOptions) (*JSONLSink, error) {
	if options.Path == "" {
		return nil, fmt.Errorf("JSONL output path is required")
	}
	if dir := filepath.Dir(options.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	seen, err := loadSeenURLs(options.Path)
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(options.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", options.Path, err)
	}

	writer := bufio.NewWriter(file)
	return &JSONLSink{
		file:    file,
		writer:  writer,
		encoder: json.NewEncoder(writer),
		seen:    seen,
	}, nil
}

// loadSeenURLs reads source URLs already present in the file, if any.
func loadSeenURLs(path string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil
		}
		return nil, fmt.Errorf("failed to read existing output %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var doc Document
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			continue
		}
		if doc.SourceURL != "" {
			seen[doc.SourceURL] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan existing output %s: %w", path, err)
	}
	return seen, nil
}

// Store appends one document line.
func (s *JSONLSink) Store(_ context.Context, record *scraper.TenderRecord) error {
	if _, dup := s.seen[record.SourceURL]; dup {
		return scraper.ErrDuplicateRecord
	}

	doc, err := BuildDocument(record)
	if err != nil {
		return &PersistenceError{Backend: "jsonl", Err: err}
	}
	if err := s.encoder.Encode(doc); err != nil {
		return &PersistenceError{Backend: "jsonl", Err: err}
	}

	s.seen[record.SourceURL] = struct{}{}
	return nil
}

// Close flushes and closes the output file.
func (s *JSONLSink) Close() error {
	if s.file == nil {
		return nil
	}
	flushErr := s.writer.Flush()
	closeErr := s.file.Close()
	s.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
