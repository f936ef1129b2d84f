// internal/scraper/session_test.go
package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSessionCookiesPersistAcrossRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/set":
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc123", Path: "/"})
			w.Write([]byte("set"))
		case "/check":
			cookie, err := r.Cookie("sid")
			if err != nil || cookie.Value != "abc123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte("authenticated"))
		}
	}))
	defer server.Close()

	session, err := NewSession(SessionConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	ctx := context.Background()
	if _, err := session.Get(ctx, server.URL+"/set"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}

	resp, err := session.Get(ctx, server.URL+"/check")
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 with cookie sent, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "authenticated" {
		t.Errorf("Expected body 'authenticated', got %q", string(resp.Body))
	}
}

func TestSessionPostFormSendsEncodedBody(t *testing.T) {
	var gotContentType, gotField string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotField = r.PostFormValue("emailOrMobile")
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	session, err := NewSession(SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	values := map[string][]string{"emailOrMobile": {"user@example.com"}}
	if _, err := session.PostForm(context.Background(), server.URL, values); err != nil {
		t.Fatalf("PostForm failed: %v", err)
	}

	if gotContentType != "application/x-www-form-urlencoded" {
		t.Errorf("Expected form content type, got %q", gotContentType)
	}
	if gotField != "user@example.com" {
		t.Errorf("Expected posted field 'user@example.com', got %q", gotField)
	}
}

func TestSessionDecodesLegacyCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte("caf\xe9")) // "café" in Latin-1
	}))
	defer server.Close()

	session, err := NewSession(SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	resp, err := session.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(resp.Body) != "café" {
		t.Errorf("Expected decoded body 'café', got %q", string(resp.Body))
	}
}

func TestSessionNetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	session, err := NewSession(SessionConfig{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	_, err = session.Get(context.Background(), url)
	if err == nil {
		t.Fatal("Expected error for closed server, got nil")
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("Expected *TransportError, got %T: %v", err, err)
	}
}

func TestSessionNonSuccessStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("gone"))
	}))
	defer server.Close()

	session, err := NewSession(SessionConfig{})
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	resp, err := session.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error for non-2xx response, got %v", err)
	}
	if resp.IsSuccess() {
		t.Error("Expected IsSuccess to be false for status 404")
	}
	if !strings.Contains(string(resp.Body), "gone") {
		t.Errorf("Expected body to survive non-2xx status, got %q", string(resp.Body))
	}
}
