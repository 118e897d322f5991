package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nowplaying/internal/playlist"
	"nowplaying/internal/tags"
)

// StorageError reports that an entry could not be written to the history
// table. It is the only error a poll cycle surfaces.
type StorageError struct {
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("write to table %q: %v", e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Writer appends usable metadata to the play history.
type Writer struct {
	store playlist.Store
	table string
	log   *slog.Logger
	now   func() time.Time

	mu      sync.Mutex
	lastKey int64
}

// NewWriter returns a Writer appending to table in store.
func NewWriter(store playlist.Store, table string, log *slog.Logger) *Writer {
	return &Writer{store: store, table: table, log: log, now: time.Now}
}

// Write records md as a new entry captured now. Metadata that is not
// usable is skipped and (nil, nil) returned. Failures are not retried.
func (w *Writer) Write(ctx context.Context, md tags.Metadata) (*playlist.Entry, error) {
	if !md.Usable() {
		w.log.Info("no metadata to record")
		return nil, nil
	}

	at := w.captureTime()
	e := playlist.Entry{
		PartitionKey: md.Artist,
		RowKey:       playlist.RowKeyAt(at),
		Timestamp:    playlist.FormatTimestamp(at),
		Artist:       md.Artist,
		Title:        md.Title,
		Album:        md.Album,
		Year:         md.Year,
	}

	if err := w.store.Insert(ctx, w.table, e); err != nil {
		return nil, &StorageError{Table: w.table, Err: err}
	}

	w.log.Info("track recorded",
		slog.String("artist", e.Artist),
		slog.String("title", e.Title),
		slog.String("row_key", e.RowKey))
	return &e, nil
}

// captureTime returns now, nudged forward so it is strictly after every
// time this writer has already issued.
func (w *Writer) captureTime() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()

	n := w.now().UnixNano()
	if n <= w.lastKey {
		n = w.lastKey + 1
	}
	w.lastKey = n
	return time.Unix(0, n).UTC()
}
