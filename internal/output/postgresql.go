// internal/output/postgresql.go
package output

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// PostgreSQLOptions configures the PostgreSQL sink.
type PostgreSQLOptions struct {
	ConnectionString string `yaml:"connection_string" json:"connection_string"`
	Schema           string `yaml:"schema" json:"schema"`
	Table            string `yaml:"table" json:"table"`
	CreateTable      bool   `yaml:"create_table" json:"create_table"`
}

// PostgreSQLSink stores records in a PostgreSQL table with JSONB detail
// columns. A unique index on source_url makes the database the authority on
// duplicates: the insert uses ON CONFLICT DO NOTHING and reports a zero-row
// result as scraper.ErrDuplicateRecord.
type PostgreSQLSink struct {
	db     *sql.DB
	schema string
	table  string
}

// NewPostgreSQLSink connects to PostgreSQL and prepares the target table.
func NewPostgreSQLSink(options PostgreSQLOptions) (*PostgreSQLSink, error) {
	if options.ConnectionString == "" {
		return nil, fmt.Errorf("PostgreSQL connection string is required")
	}
	if options.Table == "" {
		return nil, fmt.Errorf("PostgreSQL table name is required")
	}
	if options.Schema == "" {
		options.Schema = "public"
	}

	db, err := sql.Open("postgres", options.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	sink := &PostgreSQLSink{
		db:     db,
		schema: options.Schema,
		table:  options.Table,
	}

	if options.CreateTable {
		if err := sink.createTable(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return sink, nil
}

func (s *PostgreSQLSink) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL UNIQUE,
			core_details JSONB NOT NULL,
			other_data JSONB NOT NULL,
			scraped_at TIMESTAMPTZ NOT NULL
		)`,
		quoteIdentifier(s.schema), quoteIdentifier(s.table))

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table '%s.%s': %w", s.schema, s.table, err)
	}
	return nil
}

// Store inserts one record.
func (s *PostgreSQLSink) Store(ctx context.Context, record *scraper.TenderRecord) error {
	doc, err := BuildDocument(record)
	if err != nil {
		return &PersistenceError{Backend: "postgresql", Err: err}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.%s (title, source_url, core_details, other_data, scraped_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_url) DO NOTHING`,
		quoteIdentifier(s.schema), quoteIdentifier(s.table))

	result, err := s.db.ExecContext(ctx, query,
		doc.Title, doc.SourceURL, []byte(doc.CoreDetails), []byte(doc.OtherData), doc.ScrapedAt)
	if err != nil {
		return &PersistenceError{Backend: "postgresql", Err: err}
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return &PersistenceError{Backend: "postgresql", Err: err}
	}
	if inserted == 0 {
		return scraper.ErrDuplicateRecord
	}
	return nil
}

// Close closes the database connection.
func (s *PostgreSQLSink) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// quoteIdentifier quotes a SQL identifier for PostgreSQL.
func quoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
