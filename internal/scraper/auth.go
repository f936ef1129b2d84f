// internal/scraper/auth.go

package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/TenderScrapexter/internal/utils"
)

// AuthConfig configures the login flow. Field names and selectors default to
// the tender portal's form contract.
type AuthConfig struct {
	LoginURL string

	// CSRFSelector locates the hidden token input on the login page.
	CSRFSelector string

	// RejectedSelector is markup whose presence in the post-login body means
	// the submission was rejected, regardless of status code.
	RejectedSelector string

	// Form field names.
	IdentifierField string
	SecretField     string
	CSRFField       string
	CaptchaField    string
}

// DefaultAuthConfig returns the portal's login form contract.
func DefaultAuthConfig(loginURL string) AuthConfig {
	return AuthConfig{
		LoginURL:         loginURL,
		CSRFSelector:     `input[name="_csrf"]`,
		RejectedSelector: "form#authForm",
		IdentifierField:  "emailOrMobile",
		SecretField:      "password",
		CSRFField:        "_csrf",
		CaptchaField:     "captcha",
	}
}

// Authenticator performs the CSRF-protected form login that promotes a
// session from anonymous to authenticated.
type Authenticator struct {
	session *Session
	config  AuthConfig
	logger  utils.Logger
}

// NewAuthenticator creates an authenticator over the given session.
func NewAuthenticator(session *Session, config AuthConfig, logger utils.Logger) *Authenticator {
	if logger == nil {
		logger = utils.NewLogger()
	}
	if config.CSRFSelector == "" {
		config = DefaultAuthConfig(config.LoginURL)
	}

	return &Authenticator{
		session: session,
		config:  config,
		logger:  logger.WithField("component", "authenticator"),
	}
}

// Login fetches a fresh CSRF token and submits the credentials. The portal
// answers a rejected login with HTTP 200 and the login form again, so success
// is decided by page content: a body still carrying the login form means
// ErrAuthRejected. Each call fetches its own token; tokens are never reused.
func (a *Authenticator) Login(ctx context.Context, identifier, secret string) error {
	token, err := a.fetchCSRFToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{
		a.config.IdentifierField: {identifier},
		a.config.SecretField:     {secret},
		a.config.CSRFField:       {token},
		a.config.CaptchaField:    {""},
	}

	resp, err := a.session.PostForm(ctx, a.config.LoginURL, form)
	if err != nil {
		return fmt.Errorf("login submission failed: %w", err)
	}
	if !resp.IsSuccess() {
		return &TransportError{URL: a.config.LoginURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return &ParseError{URL: resp.URL, Missing: "parseable HTML body"}
	}
	if doc.Find(a.config.RejectedSelector).Length() > 0 {
		a.logger.Warn("portal returned the login form again")
		return ErrAuthRejected
	}

	a.logger.Info("authenticated")
	return nil
}

// fetchCSRFToken loads the login page and pulls the hidden token input.
func (a *Authenticator) fetchCSRFToken(ctx context.Context) (string, error) {
	resp, err := a.session.Get(ctx, a.config.LoginURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch login page: %w", err)
	}
	if !resp.IsSuccess() {
		return "", &TransportError{URL: a.config.LoginURL, StatusCode: resp.StatusCode}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return "", &ParseError{URL: resp.URL, Missing: "parseable HTML body"}
	}

	token, exists := doc.Find(a.config.CSRFSelector).First().Attr("value")
	if !exists || token == "" {
		return "", &ParseError{URL: resp.URL, Missing: a.config.CSRFSelector}
	}

	a.logger.Debug("fetched CSRF token")
	return token, nil
}
