// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/TenderScrapexter/internal/output"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes, expanding ${ENV}
// references before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := expandEnvironmentVariables(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// expandEnvironmentVariables substitutes environment variables in the
// configuration text.
func expandEnvironmentVariables(content string) string {
	return os.ExpandEnv(content)
}

// applyDefaults fills unset fields with the portal defaults.
func applyDefaults(cfg *Config) {
	if cfg.Name == "" {
		cfg.Name = "tender-crawl"
	}
	if cfg.Portal.LoginPath == "" {
		cfg.Portal.LoginPath = "/login"
	}
	if cfg.Portal.ListingPath == "" {
		cfg.Portal.ListingPath = "/tenders"
	}
	if cfg.Portal.PageParam == "" {
		cfg.Portal.PageParam = "page"
	}
	if cfg.Portal.DetailPrefix == "" {
		cfg.Portal.DetailPrefix = "/tenders/"
	}
	if cfg.Portal.ExcludedFragments == nil {
		cfg.Portal.ExcludedFragments = []string{"page=", "/tenders/free", "/tenders/home"}
	}

	if cfg.Request.Timeout == 0 {
		cfg.Request.Timeout = Duration(30 * time.Second)
	}
	if cfg.Request.Delay == 0 {
		cfg.Request.Delay = Duration(1 * time.Second)
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = output.FormatJSONL
		if cfg.Output.JSONL.Path == "" {
			cfg.Output.JSONL.Path = "output/tenders.jsonl"
		}
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = ":9090"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "tenderscrapexter"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// GenerateTemplate returns a starter configuration with the portal defaults
// and environment references for the credentials.
func GenerateTemplate() *Config {
	cfg := &Config{
		Name: "tender-crawl",
		Portal: PortalConfig{
			BaseURL: "https://tender.2merkato.com",
		},
		Credentials: CredentialsConfig{
			Identifier: "${TENDER_PORTAL_USER}",
			Secret:     "${TENDER_PORTAL_PASSWORD}",
		},
		Output: output.Config{
			Format: output.FormatJSONL,
			JSONL:  output.JSONLOptions{Path: "output/tenders.jsonl"},
		},
	}
	applyDefaults(cfg)
	return cfg
}

// WriteTemplate renders the template configuration as YAML.
func WriteTemplate(w io.Writer) error {
	data, err := yaml.Marshal(GenerateTemplate())
	if err != nil {
		return fmt.Errorf("failed to marshal template: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write template: %v", err)
	}
	return nil
}
