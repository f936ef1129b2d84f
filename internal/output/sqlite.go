// internal/output/sqlite.go
package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// SQLiteOptions configures the SQLite sink.
type SQLiteOptions struct {
	Path  string `yaml:"path" json:"path"`
	Table string `yaml:"table" json:"table"`
}

// SQLiteSink stores records in a local SQLite database. Detail columns hold
// JSON text; the unique source_url column reports duplicates through the
// constraint error code.
type SQLiteSink struct {
	db    *sql.DB
	table string
}

// NewSQLiteSink opens (or creates) the database file and the target table.
func NewSQLiteSink(options SQLiteOptions) (*SQLiteSink, error) {
	if options.Path == "" {
		return nil, fmt.Errorf("SQLite database path is required")
	}
	if options.Table == "" {
		options.Table = "tenders"
	}

	db, err := sql.Open("sqlite3", options.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	sink := &SQLiteSink{db: db, table: options.Table}
	if err := sink.createTable(); err != nil {
		db.Close()
		return nil, err
	}

	return sink, nil
}

func (s *SQLiteSink) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %q (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL UNIQUE,
			core_details TEXT NOT NULL,
			other_data TEXT NOT NULL,
			scraped_at TIMESTAMP NOT NULL
		)`, s.table)

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", s.table, err)
	}
	return nil
}

// Store inserts one record.
func (s *SQLiteSink) Store(ctx context.Context, record *scraper.TenderRecord) error {
	doc, err := BuildDocument(record)
	if err != nil {
		return &PersistenceError{Backend: "sqlite", Err: err}
	}

	query := fmt.Sprintf(`
		INSERT INTO %q (title, source_url, core_details, other_data, scraped_at)
		VALUES (?, ?, ?, ?, ?)`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		doc.Title, doc.SourceURL, string(doc.CoreDetails), string(doc.OtherData), doc.ScrapedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return scraper.ErrDuplicateRecord
		}
		return &PersistenceError{Backend: "sqlite", Err: err}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
