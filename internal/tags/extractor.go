package tags

import (
	"fmt"
	"log/slog"
)

// ParseError reports that a strategy could not read its tag format. The
// Extractor logs it and moves on; it never reaches callers of Extract.
type ParseError struct {
	Strategy string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Strategy reads one tag convention out of raw segment bytes. An empty
// Metadata with a nil error means the format was not present.
type Strategy interface {
	Name() string
	Extract(data []byte) (Metadata, error)
}

// Extractor tries strategies in order, returning results from the first one
// that yields usable metadata.
type Extractor struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewExtractor returns an Extractor over the given strategies. With none,
// DefaultStrategies is used.
func NewExtractor(log *slog.Logger, strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies, log: log}
}

// DefaultStrategies is container atoms first, then legacy ID3 frames.
func DefaultStrategies() []Strategy {
	return []Strategy{MP4Strategy{}, ID3Strategy{}}
}

// Extract returns the first usable metadata found in data, or an empty
// Metadata. It never fails.
func (e *Extractor) Extract(data []byte) Metadata {
	for _, s := range e.strategies {
		md, err := safeExtract(s, data)
		if err != nil {
			e.log.Debug("tag strategy failed",
				slog.String("strategy", s.Name()),
				slog.String("error", err.Error()))
			continue
		}
		if md.Usable() {
			e.log.Debug("tag strategy matched", slog.String("strategy", s.Name()))
			return md
		}
	}
	return Metadata{}
}

// safeExtract runs one strategy, turning errors and panics into *ParseError.
func safeExtract(s Strategy, data []byte) (md Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			md = Metadata{}
			err = &ParseError{Strategy: s.Name(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	md, err = s.Extract(data)
	if err != nil {
		return Metadata{}, &ParseError{Strategy: s.Name(), Err: err}
	}
	return normalize(md), nil
}
