package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nowplaying/internal/platform/metrics"
)

// Poller runs ingestion cycles: select the on-air metadata, then record it.
// Cycles never overlap.
type Poller struct {
	selector *Selector
	writer   *Writer
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewPoller wires a selector and writer. Metrics may be nil.
func NewPoller(selector *Selector, writer *Writer, log *slog.Logger, m *metrics.Metrics) *Poller {
	return &Poller{selector: selector, writer: writer, log: log, metrics: m}
}

// RunOnce runs a single cycle. Only a *StorageError is returned; every
// other failure ends the cycle with nothing recorded.
func (p *Poller) RunOnce(ctx context.Context) error {
	start := time.Now()
	log := p.log.With(slog.String("cycle_id", uuid.NewString()))
	log.Info("poll cycle started")

	md := p.selector.Select(ctx)
	entry, err := p.writer.Write(ctx, md)
	elapsed := time.Since(start)
	p.metrics.ObserveCycle(elapsed, entry != nil, err != nil)

	if err != nil {
		log.Error("poll cycle failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", elapsed))
		return err
	}
	log.Info("poll cycle finished",
		slog.Bool("recorded", entry != nil),
		slog.Duration("duration", elapsed))
	return nil
}

// Run executes a cycle immediately and then every interval until ctx is
// cancelled. Cycle errors are logged and do not stop the loop.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("poll interval must be positive")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = p.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
