package playlist

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"nowplaying/internal/platform/metrics"
)

const (
	// DefaultLimit is used when a request gives no usable limit.
	DefaultLimit = 100
	// MaxLimit caps every request.
	MaxLimit = 1000
	// searchWindow is how many recent entries a search filters over.
	searchWindow = 1000
)

// ClampLimit maps a requested limit to [1, MaxLimit]; non-positive values
// select DefaultLimit.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Filter holds case-insensitive substring criteria. Empty fields match
// everything.
type Filter struct {
	Artist string
	Title  string
	Album  string
	Year   string
}

// Match reports whether e satisfies every non-empty criterion. An entry
// without a year never matches a year criterion.
func (f Filter) Match(e Entry) bool {
	if !containsFold(e.Artist, f.Artist) || !containsFold(e.Title, f.Title) || !containsFold(e.Album, f.Album) {
		return false
	}
	if f.Year == "" {
		return true
	}
	if e.Year == nil {
		return false
	}
	return strings.Contains(strconv.Itoa(*e.Year), strings.TrimSpace(f.Year))
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Service answers playlist queries over a Store. When the store fails the
// synthetic dataset is served instead so callers always get a result.
type Service struct {
	store      Store
	fallback   Store
	table      string
	configured bool
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewService returns a Service reading table from backend. Metrics may be nil.
func NewService(backend *Backend, table string, log *slog.Logger, m *metrics.Metrics) (*Service, error) {
	fallback, err := NewSyntheticStore()
	if err != nil {
		return nil, err
	}
	return &Service{
		store:      backend.Store,
		fallback:   fallback,
		table:      table,
		configured: backend.Configured,
		log:        log,
		metrics:    m,
	}, nil
}

// StorageConfigured reports whether a real store was configured.
func (s *Service) StorageConfigured() bool {
	return s.configured
}

// Recent returns up to limit entries, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	entries, err := s.load(ctx, ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	s.metrics.IncQueries("list")
	return entries, nil
}

// Search filters the newest entries by f and returns at most limit matches,
// newest first.
func (s *Service) Search(ctx context.Context, f Filter, limit int) ([]Entry, error) {
	entries, err := s.load(ctx, searchWindow)
	if err != nil {
		return nil, err
	}

	limit = ClampLimit(limit)
	out := make([]Entry, 0, min(limit, len(entries)))
	for _, e := range entries {
		if len(out) == limit {
			break
		}
		if f.Match(e) {
			out = append(out, e)
		}
	}
	s.metrics.IncQueries("search")
	return out, nil
}

func (s *Service) load(ctx context.Context, limit int) ([]Entry, error) {
	entries, err := s.store.Query(ctx, s.table, limit)
	if err != nil {
		s.log.Warn("store query failed, serving synthetic data",
			slog.String("table", s.table),
			slog.String("error", err.Error()))
		s.metrics.IncSyntheticFallbacks()
		entries, err = s.fallback.Query(ctx, s.table, limit)
		if err != nil {
			return nil, fmt.Errorf("synthetic query: %w", err)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})
	return entries, nil
}
