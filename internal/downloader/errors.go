package downloader

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidConnections = errors.New("downloader: connections must be at least 1")
	ErrInvalidSize        = errors.New("downloader: total size must not be negative")
)

// SizeUnknownError is returned when the server does not declare a usable
// Content-Length for the resource.
type SizeUnknownError struct {
	URL   string
	Value string
}

func (e *SizeUnknownError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("size unknown for %s: no Content-Length", e.URL)
	}
	return fmt.Sprintf("size unknown for %s: invalid Content-Length %q", e.URL, e.Value)
}

// RangeUnsupportedError is returned when the server answers a range request
// with the full resource, or with a different interval than requested.
// ContentRange holds the interval the server sent, if any.
type RangeUnsupportedError struct {
	URL          string
	Range        RangeSpec
	StatusCode   int
	ContentRange string
}

func (e *RangeUnsupportedError) Error() string {
	if e.ContentRange != "" {
		return fmt.Sprintf("range %s of %s not honored: server sent %q",
			e.Range.Header(), e.URL, e.ContentRange)
	}
	return fmt.Sprintf("range %s of %s not honored: server returned %d %s",
		e.Range.Header(), e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// TransportError covers connection faults and unexpected statuses.
// StatusCode is zero when no response was received.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s %s: status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s %s: unexpected status %d %s", e.Op, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
