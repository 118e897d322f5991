package playlist

import (
	"context"
	"log/slog"
)

// Backend is the store chosen at startup, plus whether it is a real
// persistent store or the synthetic stand-in.
type Backend struct {
	Store      Store
	Configured bool
	close      func() error
}

// Close releases the backend's connections, if any.
func (b *Backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// OpenBackend selects the store for the query service: Redis when redisURL
// is set, otherwise the synthetic dataset. A Redis server that cannot be
// reached at startup also falls back to synthetic data so the API stays up.
func OpenBackend(ctx context.Context, redisURL string, log *slog.Logger) (*Backend, error) {
	if redisURL != "" {
		rs, err := OpenRedisStore(ctx, redisURL)
		if err == nil {
			log.Info("using redis store")
			return &Backend{Store: rs, Configured: true, close: rs.Close}, nil
		}
		log.Warn("redis store unavailable, serving synthetic data", slog.String("error", err.Error()))
	} else {
		log.Warn("storage not configured, serving synthetic data")
	}

	syn, err := NewSyntheticStore()
	if err != nil {
		return nil, err
	}
	return &Backend{Store: syn, Configured: redisURL != ""}, nil
}
