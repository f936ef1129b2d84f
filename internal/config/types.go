// internal/config/types.go
package config

import (
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/valpere/TenderScrapexter/internal/output"
	"github.com/valpere/TenderScrapexter/internal/scraper"
)

// Duration wraps time.Duration so YAML values can be written as "30s" or
// "1.5s" instead of nanosecond integers.
type Duration time.Duration

// UnmarshalYAML parses a duration string, accepting bare integers as seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		var seconds int64
		if secErr := value.Decode(&seconds); secErr == nil {
			*d = Duration(time.Duration(seconds) * time.Second)
			return nil
		}
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in its string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for one crawl.
type Config struct {
	Name        string                 `yaml:"name"`
	Portal      PortalConfig           `yaml:"portal"`
	Credentials CredentialsConfig      `yaml:"credentials"`
	Request     RequestConfig          `yaml:"request"`
	Selectors   scraper.SelectorConfig `yaml:"selectors"`
	Output      output.Config          `yaml:"output"`
	Metrics     MetricsConfig          `yaml:"metrics"`
	LogLevel    string                 `yaml:"log_level"`
}

// PortalConfig locates the portal and its listing structure.
type PortalConfig struct {
	BaseURL     string `yaml:"base_url"`
	LoginPath   string `yaml:"login_path"`
	ListingPath string `yaml:"listing_path"`

	// PageParam is the listing query parameter carrying the page index.
	PageParam string `yaml:"page_param"`

	// DetailPrefix is the path prefix of tender detail links.
	DetailPrefix string `yaml:"detail_prefix"`

	// ExcludedFragments disqualify listing links whose href contains any of
	// them.
	ExcludedFragments []string `yaml:"excluded_fragments"`
}

// LoginURL joins the base URL and login path.
func (p *PortalConfig) LoginURL() (string, error) {
	return url.JoinPath(p.BaseURL, p.LoginPath)
}

// ListingURL joins the base URL and listing path.
func (p *PortalConfig) ListingURL() (string, error) {
	return url.JoinPath(p.BaseURL, p.ListingPath)
}

// CredentialsConfig carries the portal login. Values are normally supplied
// through ${ENV} references in the YAML.
type CredentialsConfig struct {
	Identifier string `yaml:"identifier"`
	Secret     string `yaml:"secret"`
}

// RequestConfig tunes the HTTP session and crawl pacing.
type RequestConfig struct {
	Timeout   Duration          `yaml:"timeout"`
	Delay     Duration          `yaml:"delay"`
	UserAgent string            `yaml:"user_agent"`
	Headers   map[string]string `yaml:"headers"`
}

// MetricsConfig configures the optional metrics endpoint.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
	Path          string `yaml:"path"`
	Namespace     string `yaml:"namespace"`
}

// Validate checks the configuration for the run command.
func (c *Config) Validate() error {
	if c.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	parsed, err := url.Parse(c.Portal.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("portal.base_url must be an absolute http(s) URL, got %q", c.Portal.BaseURL)
	}
	if c.Portal.DetailPrefix == "" {
		return fmt.Errorf("portal.detail_prefix is required")
	}
	if c.Credentials.Identifier == "" {
		return fmt.Errorf("credentials.identifier is required")
	}
	if c.Credentials.Secret == "" {
		return fmt.Errorf("credentials.secret is required")
	}
	if c.Request.Timeout < 0 {
		return fmt.Errorf("request.timeout cannot be negative")
	}
	if c.Request.Delay < 0 {
		return fmt.Errorf("request.delay cannot be negative")
	}
	if err := c.Output.Validate(); err != nil {
		return err
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics.listen_address is required when metrics are enabled")
	}
	return nil
}
