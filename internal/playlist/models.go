package playlist

import (
	"fmt"
	"time"
)

// TimestampLayout is RFC 3339 in UTC with fixed-width microseconds, so
// timestamps sort lexicographically in time order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Entry is one play recorded in the history table. Entries are immutable
// once written.
type Entry struct {
	// PartitionKey groups plays by artist; empty when the artist is unknown.
	PartitionKey string `json:"partitionKey"`
	// RowKey is unique and increasing within a partition.
	RowKey    string `json:"rowKey"`
	Timestamp string `json:"timestamp"`
	Artist    string `json:"artist"`
	Title     string `json:"title"`
	Album     string `json:"album"`
	Year      *int   `json:"year"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// RowKeyAt renders t as zero-padded Unix nanoseconds.
func RowKeyAt(t time.Time) string {
	return fmt.Sprintf("%019d", t.UnixNano())
}

// Time parses the entry timestamp. The zero time is returned for values
// that are not RFC 3339.
func (e Entry) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
