// internal/output/mysql.go
package output

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// mysqlDuplicateEntry is the MySQL errno for a unique-key violation.
const mysqlDuplicateEntry = 1062

// MySQLOptions configures the MySQL sink.
type MySQLOptions struct {
	DSN         string `yaml:"dsn" json:"dsn"`
	Table       string `yaml:"table" json:"table"`
	CreateTable bool   `yaml:"create_table" json:"create_table"`
}

// MySQLSink stores records in a MySQL table with JSON detail columns and a
// unique key on source_url. Duplicate inserts surface as errno 1062 and are
// translated to scraper.ErrDuplicateRecord.
type MySQLSink struct {
	db    *sql.DB
	table string
}

// NewMySQLSink connects to MySQL and prepares the target table.
func NewMySQLSink(options MySQLOptions) (*MySQLSink, error) {
	if options.DSN == "" {
		return nil, fmt.Errorf("MySQL DSN is required")
	}
	if options.Table == "" {
		return nil, fmt.Errorf("MySQL table name is required")
	}

	db, err := sql.Open("mysql", options.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	sink := &MySQLSink{db: db, table: options.Table}

	if options.CreateTable {
		if err := sink.createTable(); err != nil {
			db.Close()
			return nil, err
		}
	}

	return sink, nil
}

func (s *MySQLSink) createTable() error {
	// source_url is capped at 512 chars so the unique key fits within the
	// index length limits of utf8mb4 tables.
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+
		"id BIGINT AUTO_INCREMENT PRIMARY KEY, "+
		"title TEXT NOT NULL, "+
		"source_url VARCHAR(512) NOT NULL, "+
		"core_details JSON NOT NULL, "+
		"other_data JSON NOT NULL, "+
		"scraped_at DATETIME NOT NULL, "+
		"UNIQUE KEY uniq_source_url (source_url)"+
		")", s.table)

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table '%s': %w", s.table, err)
	}
	return nil
}

// Store inserts one record.
func (s *MySQLSink) Store(ctx context.Context, record *scraper.TenderRecord) error {
	doc, err := BuildDocument(record)
	if err != nil {
		return &PersistenceError{Backend: "mysql", Err: err}
	}

	query := fmt.Sprintf("INSERT INTO `%s` (title, source_url, core_details, other_data, scraped_at) VALUES (?, ?, ?, ?, ?)", s.table)

	_, err = s.db.ExecContext(ctx, query,
		doc.Title, doc.SourceURL, []byte(doc.CoreDetails), []byte(doc.OtherData), doc.ScrapedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return scraper.ErrDuplicateRecord
		}
		return &PersistenceError{Backend: "mysql", Err: err}
	}
	return nil
}

// Close closes the database connection.
func (s *MySQLSink) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}
