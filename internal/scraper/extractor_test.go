// internal/scraper/extractor_test.go
package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse fixture HTML: %v", err)
	}
	return doc
}

func newTestExtractor() *Extractor {
	return NewExtractor(nil, SelectorConfig{}, nil)
}

func TestBuildRecordCoreDetails(t *testing.T) {
	html := `<html><head><title>Supply of Office Furniture</title></head><body>
	<div class="tender-detail-outer">
		<div class="tender-detail-label">Bid closing date</div>
		<div class="tender-detail-value">Sep 15, 2026</div>
	</div>
	<div class="tender-detail-outer">
		<div class="tender-detail-label">Region</div>
		<div class="tender-detail-value">
			<a href="/tenders/region/1">Addis Ababa</a> (capital)
		</div>
	</div>
	<div class="tender-detail-outer">
		<div class="tender-detail-label">Bid document price</div>
	</div>
	<div class="post-date tender-detail-value">Aug 29, 2026</div>
	</body></html>`

	record := newTestExtractor().buildRecord(parseDoc(t, html), "https://portal.example/tenders/99")

	if record.Title != "Supply of Office Furniture" {
		t.Errorf("Expected title from <title> tag, got %q", record.Title)
	}
	if record.SourceURL != "https://portal.example/tenders/99" {
		t.Errorf("Expected source URL to be preserved, got %q", record.SourceURL)
	}

	tests := []struct {
		label string
		want  string
	}{
		{"Bid closing date", "Sep 15, 2026"},
		{"Region", "Addis Ababa"}, // nested link text, not the container text
		{"Bid document price", NoValue},
		{PostedDateKey, "Aug 29, 2026"},
		{AttachmentKey, NotAttached},
	}
	for _, tt := range tests {
		got, ok := record.CoreDetails.Get(tt.label)
		if !ok {
			t.Errorf("Expected core detail %q to be present", tt.label)
			continue
		}
		if got != tt.want {
			t.Errorf("Expected %s=%q, got %q", tt.label, tt.want, got)
		}
	}

	// Section order must survive, with Posted and Attachment appended last.
	expectedKeys := []string{"Bid closing date", "Region", "Bid document price", PostedDateKey, AttachmentKey}
	if !reflect.DeepEqual(record.CoreDetails.Keys(), expectedKeys) {
		t.Errorf("Expected key order %v, got %v", expectedKeys, record.CoreDetails.Keys())
	}
}

func TestBuildRecordTitleSentinel(t *testing.T) {
	record := newTestExtractor().buildRecord(parseDoc(t, `<html><body><p>no title here</p></body></html>`), "https://portal.example/tenders/1")
	if record.Title != NoTitleFound {
		t.Errorf("Expected sentinel %q, got %q", NoTitleFound, record.Title)
	}
}

func TestBuildRecordAttachmentAbsolutized(t *testing.T) {
	html := `<html><head><title>T</title></head><body>
	<a class="btn" href="/documents/tor-99.pdf">Download TOR</a>
	</body></html>`

	record := newTestExtractor().buildRecord(parseDoc(t, html), "https://portal.example/tenders/99")

	got, _ := record.CoreDetails.Get(AttachmentKey)
	if got != "https://portal.example/documents/tor-99.pdf" {
		t.Errorf("Expected absolutized attachment href, got %q", got)
	}
}

func TestBuildRecordParagraphsExcludeTableDescendants(t *testing.T) {
	html := `<html><head><title>T</title></head><body>
	<p>First free paragraph.</p>
	<table><tr><td><p>Inside a table cell.</p></td></tr></table>
	<div><p>Second free paragraph.</p></div>
	<p>   </p>
	</body></html>`

	record := newTestExtractor().buildRecord(parseDoc(t, html), "https://portal.example/tenders/1")

	expected := []string{"First free paragraph.", "Second free paragraph."}
	if !reflect.DeepEqual(record.Paragraphs, expected) {
		t.Errorf("Expected paragraphs %v, got %v", expected, record.Paragraphs)
	}
}

func TestExtractTables(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []Table
	}{
		{
			name: "headers from th cells",
			html: `<table>
				<tr><th>Item</th><th>Qty</th></tr>
				<tr><td>Cement</td><td>100</td></tr>
				<tr><td>Rebar</td><td>50</td></tr>
			</table>`,
			want: []Table{{
				Headers: []string{"Item", "Qty"},
				Rows:    [][]string{{"Cement", "100"}, {"Rebar", "50"}},
			}},
		},
		{
			name: "first row promoted when no th cells",
			html: `<table>
				<tr><td>Item</td><td>Qty</td></tr>
				<tr><td>Cement</td><td>100</td></tr>
			</table>`,
			want: []Table{{
				Headers: []string{"Item", "Qty"},
				Rows:    [][]string{{"Cement", "100"}},
			}},
		},
		{
			name: "zero-cell rows dropped",
			html: `<table>
				<tr><th>Item</th></tr>
				<tr></tr>
				<tr><td>Cement</td></tr>
				<tr><th>not a data cell</th></tr>
			</table>`,
			want: []Table{{
				Headers: []string{"Item", "not a data cell"},
				Rows:    [][]string{{"Cement"}},
			}},
		},
		{
			name: "multiple tables in page order",
			html: `<table><tr><th>A</th></tr><tr><td>1</td></tr></table>
				<table><tr><th>B</th></tr><tr><td>2</td></tr></table>`,
			want: []Table{
				{Headers: []string{"A"}, Rows: [][]string{{"1"}}},
				{Headers: []string{"B"}, Rows: [][]string{{"2"}}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTables(parseDoc(t, "<html><body>"+tt.html+"</body></html>"))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected tables %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestExtractNonSuccessStatusIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	session, err := NewSession(SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	extractor := NewExtractor(session, SelectorConfig{}, nil)

	record, err := extractor.Extract(context.Background(), TenderReference(server.URL+"/tenders/1"))
	if record != nil {
		t.Error("Expected no record for a non-2xx detail page")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %T: %v", err, err)
	}
	if fetchErr.StatusCode != http.StatusForbidden {
		t.Errorf("Expected status 403 in error, got %d", fetchErr.StatusCode)
	}
}

func TestExtractFullDetailPage(t *testing.T) {
	html := `<html><head><title>Road Maintenance Tender</title></head><body>
	<div class="tender-detail-outer">
		<div class="tender-detail-label">Region</div>
		<div class="tender-detail-value"><a href="#">Oromia</a></div>
	</div>
	<div class="post-date tender-detail-value">Aug 20, 2026</div>
	<a class="btn" href="/files/tor.pdf">TOR</a>
	<p>Interested bidders may obtain documents at the address below.</p>
	<table><tr><th>Item</th><th>Qty</th></tr><tr><td>Cement</td><td>100</td></tr></table>
	</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer server.Close()

	session, err := NewSession(SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	extractor := NewExtractor(session, SelectorConfig{}, nil)

	record, err := extractor.Extract(context.Background(), TenderReference(server.URL+"/tenders/7"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if record.Title != "Road Maintenance Tender" {
		t.Errorf("Expected title 'Road Maintenance Tender', got %q", record.Title)
	}
	if region, _ := record.CoreDetails.Get("Region"); region != "Oromia" {
		t.Errorf("Expected Region 'Oromia', got %q", region)
	}
	if attachment, _ := record.CoreDetails.Get(AttachmentKey); attachment != server.URL+"/files/tor.pdf" {
		t.Errorf("Expected absolutized attachment, got %q", attachment)
	}
	if len(record.Paragraphs) != 1 {
		t.Errorf("Expected 1 paragraph, got %d", len(record.Paragraphs))
	}
	if len(record.Tables) != 1 || len(record.Tables[0].Rows) != 1 {
		t.Fatalf("Expected one table with one row, got %+v", record.Tables)
	}
}
