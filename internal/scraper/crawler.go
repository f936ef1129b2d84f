// internal/scraper/crawler.go

package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/valpere/TenderScrapexter/internal/utils"
)

// Outcome labels used for counting and metrics.
const (
	OutcomeStored     = "stored"
	OutcomeDuplicate  = "duplicate"
	OutcomeSkipped    = "skipped"
	OutcomeStoreError = "store_error"
)

// CrawlMetrics receives crawl-level observations. Implementations must be
// safe for nil-free sequential use; a nil CrawlMetrics disables recording.
type CrawlMetrics interface {
	RecordAuth(result string)
	RecordPage()
	RecordOutcome(outcome string)
	ObserveCrawlDuration(seconds float64)
}

// CrawlerConfig carries the crawl parameters that are not component wiring.
type CrawlerConfig struct {
	// Identifier and Secret are the portal credentials.
	Identifier string
	Secret     string

	// Delay is the fixed pause between successive detail-page fetches.
	Delay time.Duration
}

// Failure describes one reference that could not be fully processed.
type Failure struct {
	URL   string `json:"url"`
	Stage string `json:"stage"`
	Err   string `json:"error"`
}

// Summary aggregates the outcome counts of one crawl.
type Summary struct {
	PagesScanned    int           `json:"pages_scanned"`
	ReferencesFound int           `json:"references_found"`
	Fetched         int           `json:"fetched"`
	Skipped         int           `json:"skipped"`
	Stored          int           `json:"stored"`
	Duplicates      int           `json:"duplicates"`
	StoreErrors     int           `json:"store_errors"`
	Failures        []Failure     `json:"failures,omitempty"`
	Stop            StopReason    `json:"-"`
	Duration        time.Duration `json:"-"`
}

// Crawler drives the full pipeline: authenticate once, walk the listing
// pages, and extract and store every reference, pacing detail fetches with a
// fixed delay. Per-reference failures are counted, never fatal;
// authentication failure aborts before any listing fetch.
type Crawler struct {
	authenticator *Authenticator
	paginator     *Paginator
	extractor     *Extractor
	sink          RecordSink
	config        CrawlerConfig
	metrics       CrawlMetrics
	logger        utils.Logger
}

// NewCrawler wires the pipeline components together. metrics may be nil.
func NewCrawler(
	authenticator *Authenticator,
	paginator *Paginator,
	extractor *Extractor,
	sink RecordSink,
	config CrawlerConfig,
	metrics CrawlMetrics,
	logger utils.Logger,
) *Crawler {
	if logger == nil {
		logger = utils.NewLogger()
	}

	return &Crawler{
		authenticator: authenticator,
		paginator:     paginator,
		extractor:     extractor,
		sink:          sink,
		config:        config,
		metrics:       metrics,
		logger:        logger.WithField("component", "crawler"),
	}
}

// Run executes one crawl and returns its summary. Cancellation through ctx
// takes effect between fetches; the in-flight request is allowed to finish.
func (c *Crawler) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()

	if err := c.authenticator.Login(ctx, c.config.Identifier, c.config.Secret); err != nil {
		if c.metrics != nil {
			c.metrics.RecordAuth("failure")
		}
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordAuth("success")
	}

	limiter := newFetchLimiter(c.config.Delay)
	summary := &Summary{}

	for {
		refs, err := c.paginator.NextPage(ctx)
		if err != nil {
			// Listing fetch failures end the scan; what was gathered so far
			// still gets reported.
			c.logger.Errorf("listing scan ended early: %v", err)
			break
		}
		if refs == nil {
			break
		}

		summary.PagesScanned++
		summary.ReferencesFound += len(refs)
		if c.metrics != nil {
			c.metrics.RecordPage()
		}

		for _, ref := range refs {
			if err := limiter.Wait(ctx); err != nil {
				summary.Stop = c.paginator.LastStop()
				summary.Duration = time.Since(start)
				return summary, err
			}
			c.processReference(ctx, ref, summary)
		}
	}

	summary.Stop = c.paginator.LastStop()
	summary.Duration = time.Since(start)
	if c.metrics != nil {
		c.metrics.ObserveCrawlDuration(summary.Duration.Seconds())
	}

	c.logger.WithFields(map[string]interface{}{
		"pages":      summary.PagesScanned,
		"references": summary.ReferencesFound,
		"stored":     summary.Stored,
		"duplicates": summary.Duplicates,
		"skipped":    summary.Skipped,
		"errors":     summary.StoreErrors,
		"stop":       summary.Stop.String(),
	}).Info("crawl complete")

	return summary, nil
}

// processReference extracts and stores one reference, folding the outcome
// into the summary.
func (c *Crawler) processReference(ctx context.Context, ref TenderReference, summary *Summary) {
	record, err := c.extractor.Extract(ctx, ref)
	if err != nil {
		summary.Skipped++
		summary.Failures = append(summary.Failures, Failure{URL: ref.String(), Stage: "extract", Err: err.Error()})
		c.recordOutcome(OutcomeSkipped)
		c.logger.Warnf("skipping %s: %v", ref, err)
		return
	}
	summary.Fetched++

	switch err := c.sink.Store(ctx, record); {
	case err == nil:
		summary.Stored++
		c.recordOutcome(OutcomeStored)
	case errors.Is(err, ErrDuplicateRecord):
		summary.Duplicates++
		c.recordOutcome(OutcomeDuplicate)
		c.logger.Debugf("duplicate record %s", ref)
	default:
		summary.StoreErrors++
		summary.Failures = append(summary.Failures, Failure{URL: ref.String(), Stage: "store", Err: err.Error()})
		c.recordOutcome(OutcomeStoreError)
		c.logger.Errorf("failed to store %s: %v", ref, err)
	}
}

func (c *Crawler) recordOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordOutcome(outcome)
	}
}

// newFetchLimiter builds the inter-fetch pacer. The first fetch is
// immediate; each subsequent one waits out the delay.
func newFetchLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
