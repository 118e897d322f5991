// Package tags extracts now-playing metadata from stream segment bytes.
package tags

import (
	"strconv"
	"strings"
)

// Metadata is the track information carried by one segment.
// Year is nil when missing or unparsable.
type Metadata struct {
	Artist string
	Title  string
	Album  string
	Year   *int
}

// Usable reports whether at least one of artist, title or album is set.
func (m Metadata) Usable() bool {
	return m.Artist != "" || m.Title != "" || m.Album != ""
}

// normalize trims whitespace and NUL padding left by fixed-width encoders.
func normalize(m Metadata) Metadata {
	m.Artist = clean(m.Artist)
	m.Title = clean(m.Title)
	m.Album = clean(m.Album)
	return m
}

func clean(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// parseYear returns the year held in the first four characters of a date
// string such as "1973", "1973-01-01" or "1973-01-01T00:00:00Z".
func parseYear(date string) *int {
	date = clean(date)
	if len(date) < 4 {
		return nil
	}
	head := date[:4]
	for i := 0; i < len(head); i++ {
		if head[i] < '0' || head[i] > '9' {
			return nil
		}
	}
	y, err := strconv.Atoi(head)
	if err != nil {
		return nil
	}
	return &y
}
