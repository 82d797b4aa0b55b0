package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"splitget/internal/config"
	"splitget/internal/downloader"
	"splitget/internal/logging"
	"splitget/internal/output"
	"splitget/internal/ui"
)

const plainReportInterval = 2 * time.Second

// download fetches url into memory and writes it to its destination. The
// destination is only touched once every range has arrived.
func download(ctx context.Context, url string, cfg config.Config, showProgress bool) (string, int, error) {
	logger := logging.Component("cli")

	engine, err := downloader.NewEngine(cfg.Downloader(url))
	if err != nil {
		return "", 0, err
	}
	logger.Info().Str("url", url).Int("connections", cfg.Connections).Str("download", engine.ID.String()).Msg("starting download")

	var data []byte
	if showProgress {
		data, err = runWithUI(ctx, engine, url)
	} else {
		data, err = runPlain(ctx, engine, logger)
	}
	if err != nil {
		return "", 0, err
	}

	dest := cfg.Output
	if dest == "" {
		dest = output.Unique(output.FileName(url, engine.Info().FileName))
	}
	if err := output.Save(dest, data); err != nil {
		return "", 0, err
	}
	logger.Info().Str("output", dest).Int("bytes", len(data)).Msg("download saved")
	return dest, len(data), nil
}

func runWithUI(ctx context.Context, engine *downloader.Engine, url string) ([]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewModel(url, engine.Progress))

	var data []byte
	var err error
	done := make(chan struct{})
	go func() {
		defer close(done)
		data, err = engine.Download(ctx)
		p.Send(ui.DoneMsg{Err: err})
	}()

	final, runErr := p.Run()
	if m, ok := final.(ui.Model); ok && m.Interrupted() {
		cancel()
	}
	if runErr != nil {
		cancel()
	}
	<-done

	if err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, fmt.Errorf("progress display failed: %w", runErr)
	}
	return data, nil
}

// runPlain is used when stdout is not a terminal: progress goes to the log.
func runPlain(ctx context.Context, engine *downloader.Engine, logger zerolog.Logger) ([]byte, error) {
	stopReport := make(chan struct{})
	reportDone := make(chan struct{})
	go func() {
		defer close(reportDone)
		ticker := time.NewTicker(plainReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stopReport:
				return
			case <-ticker.C:
				sinks := engine.Progress()
				if sinks == nil {
					continue
				}
				received, target := downloader.Totals(sinks)
				finished := 0
				for _, s := range sinks {
					if s.Done() {
						finished++
					}
				}
				logger.Info().
					Str("received", humanize.IBytes(uint64(received))).
					Str("total", humanize.IBytes(uint64(target))).
					Int("rangesDone", finished).
					Int("ranges", len(sinks)).
					Msg("progress")
			}
		}
	}()

	data, err := engine.Download(ctx)
	close(stopReport)
	<-reportDone
	return data, err
}

func formatSize(n int) string {
	return humanize.IBytes(uint64(n))
}
