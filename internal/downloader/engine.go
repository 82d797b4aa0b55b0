package downloader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// NewEngine creates a new download engine with its own HTTP client.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.Client.MaxConns = max(cfg.Client.MaxConns, cfg.Connections)
	client, err := NewClient(cfg.Client)
	if err != nil {
		return nil, err
	}
	return NewEngineWithClient(cfg, client), nil
}

// NewEngineWithClient creates an engine that sends its requests through
// client.
func NewEngineWithClient(cfg Config, client Doer) *Engine {
	if cfg.ReadIncrement <= 0 {
		cfg.ReadIncrement = DefaultReadIncrement
	}
	id := uuid.New()
	return &Engine{
		ID:     id,
		Config: cfg,
		Client: client,
		log:    log.With().Str("op", "downloader/engine").Str("download", id.String()).Logger(),
	}
}

// Download probes the resource, splits it into ranges, fetches them
// concurrently and returns the reassembled bytes. Any failure aborts the
// whole download: running fetches are cancelled and no bytes are returned.
func (e *Engine) Download(ctx context.Context) ([]byte, error) {
	e.start = time.Now()
	if c, ok := e.Client.(*Client); ok {
		defer c.CloseIdleConnections()
	}

	// 1. Probe
	info, err := Probe(ctx, e.Client, e.Config.URL)
	if err != nil {
		e.log.Error().Err(err).Str("url", e.Config.URL).Msg("probe failed")
		return nil, err
	}
	e.mu.Lock()
	e.info = info
	e.mu.Unlock()
	e.log.Debug().Int64("size", info.Size).Bool("acceptRanges", info.AcceptRanges).Str("contentType", info.ContentType).Msg("probed resource")
	if !info.AcceptRanges {
		e.log.Warn().Str("url", e.Config.URL).Msg("server does not advertise byte ranges")
	}

	// 2. Plan
	specs, err := Plan(info.Size, e.Config.Connections)
	if err != nil {
		return nil, err
	}
	sinks := make([]*Sink, len(specs))
	for i, spec := range specs {
		sinks[i] = NewSink(spec)
	}
	e.mu.Lock()
	e.sinks = sinks
	e.mu.Unlock()
	e.log.Info().Int64("size", info.Size).Int("ranges", len(specs)).Int("requested", e.Config.Connections).Msg("planned ranges")

	// 3. Fetch
	results, err := e.fetchAll(ctx, specs, sinks)
	if err != nil {
		return nil, err
	}

	// 4. Assemble
	data, err := Assemble(results)
	if err != nil {
		return nil, err
	}
	e.log.Info().Int("bytes", len(data)).Dur("elapsed", time.Since(e.start)).Msg("download assembled")
	return data, nil
}

func (e *Engine) fetchAll(ctx context.Context, specs []RangeSpec, sinks []*Sink) ([]FetchResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	// Buffered so no fetch blocks on a slow collector; results arrive in
	// completion order.
	resultCh := make(chan FetchResult, len(specs))

	for i, spec := range specs {
		spec, sink := spec, sinks[i]
		g.Go(func() error {
			res, err := Fetch(gctx, e.Client, e.Config.URL, spec, sink, e.Config.ReadIncrement)
			if err != nil {
				if errors.Is(err, context.Canceled) && gctx.Err() != nil {
					e.log.Debug().Stringer("range", spec).Int64("received", sink.Received()).Msg("fetch cancelled")
				} else {
					e.log.Error().Err(err).Stringer("range", spec).Msg("fetch failed")
				}
				return err
			}
			e.log.Debug().Stringer("range", spec).Int("bytes", len(res.Payload)).Msg("fetch complete")
			resultCh <- res
			return nil
		})
	}

	err := g.Wait()
	close(resultCh)
	if err != nil {
		return nil, err
	}

	results := make([]FetchResult, 0, len(specs))
	for res := range resultCh {
		results = append(results, res)
	}
	return results, nil
}

// Assemble concatenates payloads ordered by range index, regardless of the
// order in which they are given. Indexes must be exactly 0..len-1.
func Assemble(results []FetchResult) ([]byte, error) {
	ordered := make([]FetchResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})

	total := 0
	for i, res := range ordered {
		if res.Index != i {
			return nil, fmt.Errorf("assemble: expected range %d, found %d", i, res.Index)
		}
		total += len(res.Payload)
	}

	data := make([]byte, 0, total)
	for _, res := range ordered {
		data = append(data, res.Payload...)
	}
	return data, nil
}
