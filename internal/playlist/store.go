package playlist

import (
	"context"
	"errors"
	"sync"
)

// ErrDuplicateEntry is returned by Insert when the (PartitionKey, RowKey)
// pair already exists in the table.
var ErrDuplicateEntry = errors.New("entry already exists")

// ErrReadOnly is returned by stores that cannot accept writes.
var ErrReadOnly = errors.New("store is read-only")

// Store is the table-style persistence abstraction for play history.
// Implementations can be in-memory, Redis-backed or synthetic; callers do
// not need to know which one they hold.
type Store interface {
	// Insert appends e to table. It fails with ErrDuplicateEntry when the
	// key pair is taken, or with a transport error.
	Insert(ctx context.Context, table string, e Entry) error

	// Query returns up to limit entries from table in no guaranteed order.
	Query(ctx context.Context, table string, limit int) ([]Entry, error)
}

type entryKey struct {
	partition string
	row       string
}

// InMemoryStore is a concurrency-safe in-memory Store.
type InMemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[entryKey]Entry
	order  map[string][]entryKey
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tables: make(map[string]map[entryKey]Entry),
		order:  make(map[string][]entryKey),
	}
}

// Insert implements Store.Insert.
func (s *InMemoryStore) Insert(_ context.Context, table string, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.tables[table]
	if !ok {
		rows = make(map[entryKey]Entry)
		s.tables[table] = rows
	}

	k := entryKey{partition: e.PartitionKey, row: e.RowKey}
	if _, exists := rows[k]; exists {
		return ErrDuplicateEntry
	}
	rows[k] = e
	s.order[table] = append(s.order[table], k)
	return nil
}

// Query implements Store.Query. The most recently inserted entries are
// returned, newest first.
func (s *InMemoryStore) Query(_ context.Context, table string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := s.order[table]
	n := len(keys)
	if limit >= 0 && n > limit {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(keys) - 1; i >= len(keys)-n; i-- {
		out = append(out, s.tables[table][keys[i]])
	}
	return out, nil
}

// Len returns the number of entries in table.
func (s *InMemoryStore) Len(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order[table])
}
