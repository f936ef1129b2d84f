// internal/scraper/crawler_test.go
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// stubSink records stores and returns scripted errors keyed by call number
// (1-based).
type stubSink struct {
	stored   []*TenderRecord
	calls    int
	failures map[int]error
	closed   bool
}

func (s *stubSink) Store(_ context.Context, record *TenderRecord) error {
	s.calls++
	if err, ok := s.failures[s.calls]; ok {
		return err
	}
	s.stored = append(s.stored, record)
	return nil
}

func (s *stubSink) Close() error {
	s.closed = true
	return nil
}

// newPortalServer stands up a complete portal: login page and POST, one or
// two listing pages, and detail pages. detailCount controls how many tender
// links the first listing page carries. rejectLogin makes every login
// attempt fail.
func newPortalServer(detailCount int, rejectLogin bool, listingHits *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/login" && r.Method == http.MethodGet:
			w.Write([]byte(loginPageHTML))

		case r.URL.Path == "/login" && r.Method == http.MethodPost:
			if rejectLogin {
				w.Write([]byte(loginPageHTML))
			} else {
				w.Write([]byte(`<html><body>Dashboard</body></html>`))
			}

		case r.URL.Path == "/tenders":
			if listingHits != nil {
				*listingHits++
			}
			if r.URL.Query().Get("page") != "0" {
				w.Write([]byte(`<html><body></body></html>`))
				return
			}
			var links strings.Builder
			for i := 1; i <= detailCount; i++ {
				fmt.Fprintf(&links, `<a href="/tenders/%d">Tender %d</a>`, i, i)
			}
			fmt.Fprintf(w, `<html><body>%s</body></html>`, links.String())

		case strings.HasPrefix(r.URL.Path, "/tenders/"):
			id := strings.TrimPrefix(r.URL.Path, "/tenders/")
			fmt.Fprintf(w, `<html><head><title>Tender %s</title></head><body>
				<div class="tender-detail-outer">
					<div class="tender-detail-label">Region</div>
					<div class="tender-detail-value">Amhara</div>
				</div>
				<p>Details for tender %s.</p>
			</body></html>`, id, id)

		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestCrawler(t *testing.T, server *httptest.Server, sink RecordSink) *Crawler {
	t.Helper()
	session, err := NewSession(SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	authenticator := NewAuthenticator(session, DefaultAuthConfig(server.URL+"/login"), nil)
	paginator := NewPaginator(session, testPaginatorConfig(server.URL+"/tenders"), nil)
	extractor := NewExtractor(session, SelectorConfig{}, nil)

	return NewCrawler(authenticator, paginator, extractor, sink, CrawlerConfig{
		Identifier: "user@example.com",
		Secret:     "hunter2",
		Delay:      0,
	}, nil, nil)
}

func TestCrawlerRunStoresAllRecords(t *testing.T) {
	server := newPortalServer(3, false, nil)
	defer server.Close()

	sink := &stubSink{}
	crawler := newTestCrawler(t, server, sink)

	summary, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.PagesScanned != 1 {
		t.Errorf("Expected 1 page scanned, got %d", summary.PagesScanned)
	}
	if summary.ReferencesFound != 3 {
		t.Errorf("Expected 3 references, got %d", summary.ReferencesFound)
	}
	if summary.Fetched != 3 || summary.Stored != 3 {
		t.Errorf("Expected 3 fetched and stored, got %d/%d", summary.Fetched, summary.Stored)
	}
	if summary.Skipped != 0 || summary.Duplicates != 0 || summary.StoreErrors != 0 {
		t.Errorf("Expected clean run, got skipped=%d duplicates=%d errors=%d",
			summary.Skipped, summary.Duplicates, summary.StoreErrors)
	}
	if summary.Stop != StopExhausted {
		t.Errorf("Expected stop reason %v, got %v", StopExhausted, summary.Stop)
	}

	if len(sink.stored) != 3 {
		t.Fatalf("Expected sink to hold 3 records, got %d", len(sink.stored))
	}
	if region, _ := sink.stored[0].CoreDetails.Get("Region"); region != "Amhara" {
		t.Errorf("Expected extracted Region 'Amhara', got %q", region)
	}
}

func TestCrawlerStoreFailureDoesNotAbort(t *testing.T) {
	server := newPortalServer(5, false, nil)
	defer server.Close()

	sink := &stubSink{failures: map[int]error{3: fmt.Errorf("connection refused")}}
	crawler := newTestCrawler(t, server, sink)

	summary, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Fetched != 5 {
		t.Errorf("Expected all 5 references fetched, got %d", summary.Fetched)
	}
	if summary.Stored != 4 {
		t.Errorf("Expected 4 stored, got %d", summary.Stored)
	}
	if summary.StoreErrors != 1 {
		t.Errorf("Expected exactly 1 store error, got %d", summary.StoreErrors)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Stage != "store" {
		t.Errorf("Expected one store-stage failure, got %+v", summary.Failures)
	}
}

func TestCrawlerCountsDuplicatesSeparately(t *testing.T) {
	server := newPortalServer(3, false, nil)
	defer server.Close()

	sink := &stubSink{failures: map[int]error{2: ErrDuplicateRecord}}
	crawler := newTestCrawler(t, server, sink)

	summary, err := crawler.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", summary.Duplicates)
	}
	if summary.StoreErrors != 0 {
		t.Errorf("Expected duplicates not to count as store errors, got %d", summary.StoreErrors)
	}
	if summary.Stored != 2 {
		t.Errorf("Expected 2 stored, got %d", summary.Stored)
	}
	if len(summary.Failures) != 0 {
		t.Errorf("Expected duplicates not to appear in the failure list, got %+v", summary.Failures)
	}
}

func TestCrawlerAuthFailureAbortsBeforeListing(t *testing.T) {
	var listingHits int
	server := newPortalServer(3, true, &listingHits)
	defer server.Close()

	sink := &stubSink{}
	crawler := newTestCrawler(t, server, sink)

	summary, err := crawler.Run(context.Background())
	if err == nil {
		t.Fatal("Expected error for rejected login, got nil")
	}
	if summary != nil {
		t.Errorf("Expected no summary on auth failure, got %+v", summary)
	}
	if listingHits != 0 {
		t.Errorf("Expected zero listing fetches after auth failure, got %d", listingHits)
	}
	if len(sink.stored) != 0 {
		t.Errorf("Expected zero records stored after auth failure, got %d", len(sink.stored))
	}
}

func TestCrawlerCancellationBetweenFetches(t *testing.T) {
	server := newPortalServer(4, false, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sink := &cancelAfterFirstStore{cancel: cancel}
	crawler := newTestCrawler(t, server, sink)

	summary, err := crawler.Run(ctx)
	if err == nil {
		t.Fatal("Expected cancellation error, got nil")
	}
	if summary == nil {
		t.Fatal("Expected partial summary on cancellation")
	}
	if summary.Stored != 1 {
		t.Errorf("Expected exactly the pre-cancel record stored, got %d", summary.Stored)
	}
}

// cancelAfterFirstStore cancels the crawl context during the first store, so
// the limiter wait before the second fetch observes the cancellation.
type cancelAfterFirstStore struct {
	cancel context.CancelFunc
	calls  int
}

func (s *cancelAfterFirstStore) Store(_ context.Context, _ *TenderRecord) error {
	s.calls++
	if s.calls == 1 {
		s.cancel()
	}
	return nil
}

func (s *cancelAfterFirstStore) Close() error { return nil }
