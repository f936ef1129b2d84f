// internal/scraper/types.go

package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Sentinel values recorded when a detail page omits an element the record
// shape always carries.
const (
	NoTitleFound = "No title found"
	NoValue      = "No value"
	NotAttached  = "Not attached"
)

// Keys the extractor always writes into CoreDetails.
const (
	PostedDateKey = "Posted"
	AttachmentKey = "Attachment"
)

// TenderReference is the normalized absolute URL of a tender detail page.
type TenderReference string

func (r TenderReference) String() string {
	return string(r)
}

// TenderRecord is the structured result of extracting one detail page.
type TenderRecord struct {
	Title       string
	CoreDetails *OrderedMap
	Paragraphs  []string
	Tables      []Table
	SourceURL   string
}

// Table holds one HTML table as extracted from a detail page. Headers come
// from th cells, or from the first row when the table declares no th cells.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// RecordSink persists extracted records. Implementations report a duplicate
// source URL as ErrDuplicateRecord, distinct from persistence failures.
type RecordSink interface {
	Store(ctx context.Context, record *TenderRecord) error
	Close() error
}

// OrderedMap is a string-to-string map that preserves insertion order, both
// in iteration and through JSON round-trips. Detail pages carry their
// label/value pairs in a meaningful order, so a plain map would lose
// information.
type OrderedMap struct {
	keys   []string
	values map[string]string
}

// NewOrderedMap creates an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]string)}
}

// Set stores a value under key. A repeated key keeps its original position.
func (m *OrderedMap) Set(key, value string) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it is present.
func (m *OrderedMap) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in insertion order. The slice is shared; callers must
// not modify it.
func (m *OrderedMap) Keys() []string {
	return m.keys
}

// Len returns the number of entries.
func (m *OrderedMap) Len() int {
	return len(m.keys)
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, recording keys in document order.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]string)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("value for key %q: %w", key, err)
		}
		m.Set(key, value)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
