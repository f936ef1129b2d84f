// internal/scraper/pagination.go

package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/TenderScrapexter/internal/utils"
)

// PaginatorConfig configures the listing-page walk.
type PaginatorConfig struct {
	// ListingURL is the first listing page; the page index is appended to it
	// as a query parameter.
	ListingURL string

	// PageParam is the query parameter carrying the page index. Defaults to
	// "page". The index starts at 0.
	PageParam string

	// DetailPrefix is the path prefix a link must carry, with a non-empty
	// remainder, to count as a tender detail link.
	DetailPrefix string

	// ExcludedFragments disqualify a link when any of them occurs in its raw
	// href. They filter listing navigation and free-section links that share
	// the detail prefix.
	ExcludedFragments []string
}

// StopReason reports what ended a listing scan.
type StopReason int

const (
	// StopNone means the scan has not terminated.
	StopNone StopReason = iota
	// StopExhausted means a page yielded zero qualifying links.
	StopExhausted
	// StopFetchFailed means a listing fetch failed or answered non-2xx.
	StopFetchFailed
)

func (r StopReason) String() string {
	switch r {
	case StopExhausted:
		return "exhausted"
	case StopFetchFailed:
		return "fetch_failed"
	default:
		return "none"
	}
}

// Paginator walks numbered listing pages lazily and yields qualifying detail
// links. The sequence is finite: it ends at the first page that fails to
// fetch or yields no qualifying links. Reset makes the same Paginator
// restartable from page 0.
type Paginator struct {
	session *Session
	config  PaginatorConfig
	logger  utils.Logger

	page     int
	done     bool
	lastStop StopReason
}

// NewPaginator creates a paginator positioned at page 0.
func NewPaginator(session *Session, config PaginatorConfig, logger utils.Logger) *Paginator {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if config.PageParam == "" {
		config.PageParam = "page"
	}

	return &Paginator{
		session: session,
		config:  config,
		logger:  logger.WithField("component", "paginator"),
	}
}

// NextPage fetches the next listing page and returns its qualifying detail
// links, absolutized and deduplicated in first-appearance order. It returns
// (nil, nil) once the sequence has terminated; LastStop reports why. Links
// are not deduplicated across pages; global uniqueness belongs to the sink.
func (p *Paginator) NextPage(ctx context.Context) ([]TenderReference, error) {
	if p.done {
		return nil, nil
	}

	pageURL, err := p.pageURL(p.page)
	if err != nil {
		p.done = true
		p.lastStop = StopFetchFailed
		return nil, err
	}

	resp, err := p.session.Get(ctx, pageURL)
	if err != nil {
		p.done = true
		p.lastStop = StopFetchFailed
		return nil, fmt.Errorf("listing page %d: %w", p.page, err)
	}
	if !resp.IsSuccess() {
		p.logger.Warnf("listing page %d returned status %d; ending scan", p.page, resp.StatusCode)
		p.done = true
		p.lastStop = StopFetchFailed
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		p.done = true
		p.lastStop = StopFetchFailed
		return nil, &ParseError{URL: resp.URL, Missing: "parseable HTML body"}
	}

	refs := p.extractReferences(doc, resp.URL)
	if len(refs) == 0 {
		p.logger.Infof("listing page %d has no tender links; scan complete", p.page)
		p.done = true
		p.lastStop = StopExhausted
		return nil, nil
	}

	p.logger.Debugf("listing page %d yielded %d tender links", p.page, len(refs))
	p.page++
	return refs, nil
}

// Scan drains the paginator, concatenating every page's references.
func (p *Paginator) Scan(ctx context.Context) ([]TenderReference, error) {
	var all []TenderReference
	for {
		refs, err := p.NextPage(ctx)
		if err != nil {
			return all, err
		}
		if refs == nil {
			return all, nil
		}
		all = append(all, refs...)
	}
}

// Reset rewinds the paginator to page 0 so the scan can start over.
func (p *Paginator) Reset() {
	p.page = 0
	p.done = false
	p.lastStop = StopNone
}

// LastStop reports what terminated the most recent scan.
func (p *Paginator) LastStop() StopReason {
	return p.lastStop
}

// pageURL builds the listing URL for a page index.
func (p *Paginator) pageURL(page int) (string, error) {
	u, err := url.Parse(p.config.ListingURL)
	if err != nil {
		return "", fmt.Errorf("invalid listing URL %q: %w", p.config.ListingURL, err)
	}
	q := u.Query()
	q.Set(p.config.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// extractReferences collects qualifying detail links from one listing page,
// absolutized against base and deduplicated in first-appearance order.
func (p *Paginator) extractReferences(doc *goquery.Document, base string) []TenderReference {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}

	seen := make(map[TenderReference]struct{})
	var refs []TenderReference

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, ok := p.qualify(baseURL, href)
		if !ok {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	})

	return refs
}

// qualify decides whether href is a tender detail link and returns its
// normalized absolute form. A link qualifies when its path starts with the
// detail prefix, the remainder after the prefix is non-empty, and no excluded
// fragment occurs in the raw href.
func (p *Paginator) qualify(base *url.URL, href string) (TenderReference, bool) {
	if href == "" {
		return "", false
	}
	for _, fragment := range p.config.ExcludedFragments {
		if fragment != "" && strings.Contains(href, fragment) {
			return "", false
		}
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(parsed)

	if !strings.HasPrefix(resolved.Path, p.config.DetailPrefix) {
		return "", false
	}
	remainder := strings.Trim(resolved.Path[len(p.config.DetailPrefix):], "/")
	if remainder == "" {
		return "", false
	}

	resolved.Fragment = ""
	return TenderReference(resolved.String()), true
}
