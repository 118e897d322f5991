package ingest

import (
	"context"
	"log/slog"

	"nowplaying/internal/platform/metrics"
	"nowplaying/internal/stream"
	"nowplaying/internal/tags"
)

// DefaultCandidates is how many of the newest segments a cycle inspects.
const DefaultCandidates = 3

// Source is where the selector reads the stream from. *stream.Client
// satisfies it.
type Source interface {
	Manifest(ctx context.Context) (*stream.Manifest, error)
	Segment(ctx context.Context, ref string) ([]byte, error)
}

// Selector finds the metadata of the track currently on air.
type Selector struct {
	source     Source
	extractor  *tags.Extractor
	candidates int
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewSelector returns a Selector inspecting at most candidates segments per
// call. If candidates <= 0, DefaultCandidates is used. Metrics may be nil.
func NewSelector(source Source, extractor *tags.Extractor, candidates int, log *slog.Logger, m *metrics.Metrics) *Selector {
	if candidates <= 0 {
		candidates = DefaultCandidates
	}
	return &Selector{source: source, extractor: extractor, candidates: candidates, log: log, metrics: m}
}

// Select returns the first usable metadata found in the newest segments,
// newest first, or an empty Metadata. Fetch and parse failures are logged
// and never returned.
func (s *Selector) Select(ctx context.Context) tags.Metadata {
	m, err := s.source.Manifest(ctx)
	if err != nil {
		s.metrics.IncFetchFailures("manifest")
		s.log.Warn("manifest fetch failed", slog.String("error", err.Error()))
		return tags.Metadata{}
	}

	refs := m.Latest(s.candidates)
	if len(refs) == 0 {
		s.log.Info("manifest lists no segments")
		return tags.Metadata{}
	}

	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		data, err := s.source.Segment(ctx, ref)
		if err != nil {
			s.metrics.IncFetchFailures("segment")
			s.log.Warn("segment fetch failed",
				slog.String("segment", ref),
				slog.String("error", err.Error()))
			continue
		}

		md := s.extractor.Extract(data)
		if md.Usable() {
			s.log.Debug("metadata found",
				slog.String("segment", ref),
				slog.String("artist", md.Artist),
				slog.String("title", md.Title))
			return md
		}
		s.log.Debug("segment has no usable metadata", slog.String("segment", ref))
	}

	s.log.Info("no usable metadata in recent segments", slog.Int("inspected", len(refs)))
	return tags.Metadata{}
}
