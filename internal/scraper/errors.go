// internal/scraper/errors.go

package scraper

import (
	"errors"
	"fmt"
)

// ErrAuthRejected indicates the portal answered the login submission with the
// login form again, meaning the credentials were not accepted.
var ErrAuthRejected = errors.New("authentication rejected by portal")

// ErrDuplicateRecord is returned by a RecordSink when a record with the same
// source URL has already been persisted. The crawler counts it separately from
// persistence failures.
var ErrDuplicateRecord = errors.New("record already stored")

// TransportError indicates a request could not be completed: the network call
// failed outright, the context expired, or a phase that demands success
// received a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s returned status %d", e.URL, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError indicates markup the pipeline depends on is absent from an
// otherwise successful response.
type ParseError struct {
	URL     string
	Missing string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("page %s is missing %s", e.URL, e.Missing)
}

// FetchError indicates a detail page answered with a non-2xx status. The
// reference is skipped and counted; no partial record is produced.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("detail page %s returned status %d", e.URL, e.StatusCode)
}
