package playlist

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed synthetic.yaml
var syntheticYAML []byte

type syntheticTrack struct {
	Artist string `yaml:"artist"`
	Title  string `yaml:"title"`
	Album  string `yaml:"album"`
	Year   int    `yaml:"year"`
}

type syntheticDataset struct {
	Anchor time.Time        `yaml:"anchor"`
	Count  int              `yaml:"count"`
	Tracks []syntheticTrack `yaml:"tracks"`
}

// SyntheticStore is a read-only Store serving a fixed demo history, so the
// query API stays usable without storage credentials.
type SyntheticStore struct {
	entries []Entry
}

// NewSyntheticStore decodes the embedded dataset.
func NewSyntheticStore() (*SyntheticStore, error) {
	return newSyntheticStore(syntheticYAML)
}

func newSyntheticStore(raw []byte) (*SyntheticStore, error) {
	var ds syntheticDataset
	if err := yaml.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("decode synthetic dataset: %w", err)
	}
	if len(ds.Tracks) == 0 {
		return nil, fmt.Errorf("synthetic dataset has no tracks")
	}

	entries := make([]Entry, 0, ds.Count)
	for i := 0; i < ds.Count; i++ {
		tr := ds.Tracks[i%len(ds.Tracks)]
		minutesAgo := i * (2 + i%3)
		at := ds.Anchor.Add(-time.Duration(minutesAgo) * time.Minute)
		year := tr.Year
		entries = append(entries, Entry{
			PartitionKey: tr.Artist,
			RowKey:       RowKeyAt(at),
			Timestamp:    FormatTimestamp(at),
			Artist:       tr.Artist,
			Title:        tr.Title,
			Album:        tr.Album,
			Year:         &year,
		})
	}
	return &SyntheticStore{entries: entries}, nil
}

// Insert implements Store.Insert; the synthetic store never accepts writes.
func (s *SyntheticStore) Insert(context.Context, string, Entry) error {
	return ErrReadOnly
}

// Query implements Store.Query. The table name is ignored.
func (s *SyntheticStore) Query(_ context.Context, _ string, limit int) ([]Entry, error) {
	n := len(s.entries)
	if limit >= 0 && n > limit {
		n = limit
	}
	out := make([]Entry, n)
	copy(out, s.entries[:n])
	return out, nil
}
