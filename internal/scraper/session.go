// internal/scraper/session.go

package scraper

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// SessionConfig configures the HTTP session shared by all portal requests.
type SessionConfig struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// DefaultSessionConfig returns a config with sensible portal defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Timeout:   30 * time.Second,
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	}
}

// Response is the decoded result of a session request. Body is always UTF-8;
// URL is the final URL after redirects.
type Response struct {
	StatusCode int
	Body       []byte
	URL        string
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Session is a cookie-jar-backed HTTP client. Cookies set by the portal
// accumulate transparently across requests, so one successful login
// authenticates every later request. A Session is owned by a single crawl and
// is not safe for concurrent use.
type Session struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
}

// NewSession creates a session with a fresh cookie jar.
func NewSession(cfg SessionConfig) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultSessionConfig().Timeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultSessionConfig().UserAgent
	}

	return &Session{
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		userAgent: userAgent,
		headers:   cfg.Headers,
	}, nil
}

// Get performs a GET request and returns the decoded response. Non-2xx
// statuses are returned in the Response, not as errors; callers decide what a
// given status means for their phase.
func (s *Session) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	return s.do(req)
}

// PostForm submits values as an application/x-www-form-urlencoded POST.
func (s *Session) PostForm(ctx context.Context, rawURL string, values url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, &TransportError{URL: rawURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *Session) do(req *http.Request) (*Response, error) {
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: req.URL.String(), Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       decodeCharset(resp.Header.Get("Content-Type"), body),
		URL:        resp.Request.URL.String(),
	}, nil
}

// decodeCharset converts body to UTF-8 according to the Content-Type charset
// parameter. Absent, UTF-8, or unrecognized charsets pass the bytes through.
func decodeCharset(contentType string, body []byte) []byte {
	if contentType == "" {
		return body
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	name := params["charset"]
	if name == "" || strings.EqualFold(name, "utf-8") {
		return body
	}

	enc, err := htmlindex.Get(name)
	if err != nil || enc == nil {
		return body
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return body
	}
	return decoded
}
