package playlist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 5 * time.Second
	// keySep separates partition and row key inside a hash field.
	keySep = "\x1f"
)

// RedisStore keeps each table as a hash of JSON entries keyed by
// partition+row, plus a sorted set of those fields scored by capture time.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// OpenRedisStore connects to the Redis server at rawURL
// (redis://[user:pass@]host:port/db) and verifies it answers PING.
func OpenRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func entriesKey(table string) string  { return table + ":entries" }
func timelineKey(table string) string { return table + ":timeline" }

func entryField(e Entry) string { return e.PartitionKey + keySep + e.RowKey }

// Insert implements Store.Insert. The hash write and the timeline index are
// applied in one MULTI/EXEC; a taken field leaves both untouched.
func (s *RedisStore) Insert(ctx context.Context, table string, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	field := entryField(e)

	var added *redis.BoolCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.HSetNX(ctx, entriesKey(table), field, payload)
		pipe.ZAddNX(ctx, timelineKey(table), redis.Z{
			Score:  float64(e.Time().UnixMilli()),
			Member: field,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis insert into %s: %w", table, err)
	}
	if !added.Val() {
		return ErrDuplicateEntry
	}
	return nil
}

// Query implements Store.Query, returning the newest entries first.
func (s *RedisStore) Query(ctx context.Context, table string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}
	fields, err := s.client.ZRevRange(ctx, timelineKey(table), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis timeline %s: %w", table, err)
	}
	if len(fields) == 0 {
		return []Entry{}, nil
	}

	vals, err := s.client.HMGet(ctx, entriesKey(table), fields...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis entries %s: %w", table, err)
	}

	out := make([]Entry, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
