// cmd/tenderscrapexter/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valpere/TenderScrapexter/internal/config"
	"github.com/valpere/TenderScrapexter/internal/monitoring"
	"github.com/valpere/TenderScrapexter/internal/output"
	"github.com/valpere/TenderScrapexter/internal/scraper"
	"github.com/valpere/TenderScrapexter/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// main handles CLI arguments and routes to the appropriate command.
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: tenderscrapexter run <config.yaml>\n")
			os.Exit(1)
		}
		if err := runCrawl(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		if len(os.Args) < 3 {
			fmt.Fprintf(os.Stderr, "Error: config file required\n")
			fmt.Fprintf(os.Stderr, "Usage: tenderscrapexter validate <config.yaml>\n")
			os.Exit(1)
		}
		if _, err := config.LoadFromFile(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✓ Configuration file '%s' is valid\n", os.Args[2])

	case "template":
		if err := config.WriteTemplate(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "version", "--version":
		printVersion()

	case "help", "--help", "-h":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runCrawl wires the pipeline from configuration and executes one crawl.
func runCrawl(configFile string) error {
	cfg, err := config.LoadFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := utils.NewLoggerWithLevel(utils.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics(monitoring.Options{
			Namespace:     cfg.Metrics.Namespace,
			ListenAddress: cfg.Metrics.ListenAddress,
			Path:          cfg.Metrics.Path,
		}, logger)
		go func() {
			if err := metrics.Serve(ctx); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
	}

	session, err := scraper.NewSession(scraper.SessionConfig{
		Timeout:   cfg.Request.Timeout.Std(),
		UserAgent: cfg.Request.UserAgent,
		Headers:   cfg.Request.Headers,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	loginURL, err := cfg.Portal.LoginURL()
	if err != nil {
		return fmt.Errorf("invalid login URL: %w", err)
	}
	listingURL, err := cfg.Portal.ListingURL()
	if err != nil {
		return fmt.Errorf("invalid listing URL: %w", err)
	}

	authenticator := scraper.NewAuthenticator(session, scraper.DefaultAuthConfig(loginURL), logger)
	paginator := scraper.NewPaginator(session, scraper.PaginatorConfig{
		ListingURL:        listingURL,
		PageParam:         cfg.Portal.PageParam,
		DetailPrefix:      cfg.Portal.DetailPrefix,
		ExcludedFragments: cfg.Portal.ExcludedFragments,
	}, logger)
	extractor := scraper.NewExtractor(session, cfg.Selectors, logger)

	sink, err := output.NewSink(ctx, &cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to create output sink: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Errorf("failed to close sink: %v", err)
		}
	}()

	var crawlMetrics scraper.CrawlMetrics
	if metrics != nil {
		crawlMetrics = metrics
	}

	crawler := scraper.NewCrawler(authenticator, paginator, extractor, sink, scraper.CrawlerConfig{
		Identifier: cfg.Credentials.Identifier,
		Secret:     cfg.Credentials.Secret,
		Delay:      cfg.Request.Delay.Std(),
	}, crawlMetrics, logger)

	summary, err := crawler.Run(ctx)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

// printSummary renders the crawl outcome for the terminal.
func printSummary(s *scraper.Summary) {
	fmt.Printf("Crawl finished in %s (%s)\n", s.Duration.Round(time.Millisecond), s.Stop)
	fmt.Printf("  Pages scanned:    %d\n", s.PagesScanned)
	fmt.Printf("  References found: %d\n", s.ReferencesFound)
	fmt.Printf("  Fetched:          %d\n", s.Fetched)
	fmt.Printf("  Stored:           %d\n", s.Stored)
	fmt.Printf("  Duplicates:       %d\n", s.Duplicates)
	fmt.Printf("  Skipped:          %d\n", s.Skipped)
	fmt.Printf("  Store errors:     %d\n", s.StoreErrors)
	for _, failure := range s.Failures {
		fmt.Printf("  ! %s [%s]: %s\n", failure.URL, failure.Stage, failure.Err)
	}
}

// printUsage displays help information.
func printUsage() {
	fmt.Println("TenderScrapexter - Authenticated Tender Portal Crawler")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  tenderscrapexter run <config.yaml>       Run a crawl with the configuration file")
	fmt.Println("  tenderscrapexter validate <config.yaml>  Validate a configuration file")
	fmt.Println("  tenderscrapexter template                Print a starter configuration")
	fmt.Println("  tenderscrapexter version                 Show version information")
	fmt.Println("  tenderscrapexter help                    Show this help message")
}

// printVersion displays version information.
func printVersion() {
	fmt.Printf("TenderScrapexter %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}
