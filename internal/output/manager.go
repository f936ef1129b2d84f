// internal/output/manager.go
package output

import (
	"context"
	"fmt"
	"strings"
)

// Supported sink formats.
const (
	FormatPostgreSQL = "postgresql"
	FormatMySQL      = "mysql"
	FormatSQLite     = "sqlite"
	FormatMongoDB    = "mongodb"
	FormatExcel      = "excel"
	FormatJSONL      = "jsonl"
)

// Config selects and configures one sink backend.
type Config struct {
	Format     string            `yaml:"format" json:"format"`
	PostgreSQL PostgreSQLOptions `yaml:"postgresql,omitempty" json:"postgresql,omitempty"`
	MySQL      MySQLOptions      `yaml:"mysql,omitempty" json:"mysql,omitempty"`
	SQLite     SQLiteOptions     `yaml:"sqlite,omitempty" json:"sqlite,omitempty"`
	MongoDB    MongoDBOptions    `yaml:"mongodb,omitempty" json:"mongodb,omitempty"`
	Excel      ExcelOptions      `yaml:"excel,omitempty" json:"excel,omitempty"`
	JSONL      JSONLOptions      `yaml:"jsonl,omitempty" json:"jsonl,omitempty"`
}

// Validate checks that the configured format is known.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Format) {
	case FormatPostgreSQL, FormatMySQL, FormatSQLite, FormatMongoDB, FormatExcel, FormatJSONL:
		return nil
	case "":
		return fmt.Errorf("output format is required")
	default:
		return fmt.Errorf("unsupported output format: %s", c.Format)
	}
}

// NewSink builds the configured sink. ctx bounds backend connection setup.
func NewSink(ctx context.Context, cfg *Config) (Sink, error) {
	switch strings.ToLower(cfg.Format) {
	case FormatPostgreSQL:
		return NewPostgreSQLSink(cfg.PostgreSQL)
	case FormatMySQL:
		return NewMySQLSink(cfg.MySQL)
	case FormatSQLite:
		return NewSQLiteSink(cfg.SQLite)
	case FormatMongoDB:
		return NewMongoDBSink(ctx, cfg.MongoDB)
	case FormatExcel:
		return NewExcelSink(cfg.Excel)
	case FormatJSONL:
		return NewJSONLSink(cfg.JSONL)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Format)
	}
}
