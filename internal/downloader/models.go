package downloader

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultReadIncrement bounds a single body read during a range fetch.
const DefaultReadIncrement = 1024 * 1024

// Config holds the configuration for a download
type Config struct {
	URL           string
	Connections   int
	ReadIncrement int
	Client        ClientConfig
}

// RangeSpec is one planned byte interval [Start, End], inclusive on both ends.
type RangeSpec struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes covered by the range.
func (r RangeSpec) Len() int64 {
	return r.End - r.Start + 1
}

// Header returns the value for the Range request header.
func (r RangeSpec) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

func (r RangeSpec) String() string {
	return fmt.Sprintf("#%d[%d-%d]", r.Index, r.Start, r.End)
}

// FetchResult pairs a range index with the bytes fetched for it.
type FetchResult struct {
	Index   int
	Payload []byte
}

// Sink counts the bytes received for a single range. Only the owning fetch
// writes to it; anything else may read it concurrently.
type Sink struct {
	Index  int
	Target int64

	received atomic.Int64
	done     atomic.Bool
}

// NewSink returns a sink for the given range.
func NewSink(spec RangeSpec) *Sink {
	return &Sink{Index: spec.Index, Target: spec.Len()}
}

// Add advances the counter by n bytes.
func (s *Sink) Add(n int64) {
	s.received.Add(n)
}

// Received returns the number of bytes received so far.
func (s *Sink) Received() int64 {
	return s.received.Load()
}

// Done reports whether the owning fetch completed successfully.
func (s *Sink) Done() bool {
	return s.done.Load()
}

func (s *Sink) finish() {
	s.done.Store(true)
}

// Info describes the remote resource as reported by the probe.
type Info struct {
	Size         int64
	FileName     string
	ContentType  string
	AcceptRanges bool
}

// Doer executes HTTP requests. *http.Client and *Client satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Engine handles the download process
type Engine struct {
	ID     uuid.UUID
	Config Config
	Client Doer

	log   zerolog.Logger
	start time.Time

	mu    sync.RWMutex
	info  Info
	sinks []*Sink
}

// Progress returns the sinks of the running download, ordered by range
// index. It returns nil until the ranges have been planned.
func (e *Engine) Progress() []*Sink {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sinks
}

// Info returns what the probe learned about the resource.
func (e *Engine) Info() Info {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.info
}

// Totals sums received and target bytes across all sinks.
func Totals(sinks []*Sink) (received, target int64) {
	for _, s := range sinks {
		received += s.Received()
		target += s.Target
	}
	return received, target
}
