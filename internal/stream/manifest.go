package stream

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Segment is one media segment reference from a manifest. URI is relative
// to the stream base URL; Duration comes from the preceding #EXTINF, or 0.
type Segment struct {
	URI      string
	Duration float64
}

// Manifest is a parsed HLS media playlist. Segments are in manifest order,
// which is chronological: the last element is the newest segment.
type Manifest struct {
	MediaSequence  int64
	TargetDuration int
	Ended          bool
	Segments       []Segment
}

// URIs returns the segment references in manifest order.
func (m *Manifest) URIs() []string {
	out := make([]string, 0, len(m.Segments))
	for _, s := range m.Segments {
		out = append(out, s.URI)
	}
	return out
}

// Latest returns the n newest segment references, oldest first.
// Fewer are returned when the manifest is shorter.
func (m *Manifest) Latest(n int) []string {
	uris := m.URIs()
	if n <= 0 {
		return nil
	}
	if len(uris) > n {
		uris = uris[len(uris)-n:]
	}
	return uris
}

// ParseManifest reads a line-oriented playlist. A line is a segment
// reference iff it is non-empty after trimming and does not start with '#'.
// Directives the tracker cares about are captured; unparsable values are
// ignored. A manifest with no references yields an empty segment list.
func ParseManifest(r io.Reader) (*Manifest, error) {
	m := &Manifest{Segments: []Segment{}}
	pending := 0.0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			m.Segments = append(m.Segments, Segment{URI: line, Duration: pending})
			pending = 0
			continue
		}

		tag, value, _ := strings.Cut(line, ":")
		switch tag {
		case "#EXTINF":
			durStr, _, _ := strings.Cut(value, ",")
			if d, err := strconv.ParseFloat(strings.TrimSpace(durStr), 64); err == nil && d >= 0 {
				pending = d
			}
		case "#EXT-X-MEDIA-SEQUENCE":
			if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
				m.MediaSequence = n
			}
		case "#EXT-X-TARGETDURATION":
			if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				m.TargetDuration = n
			}
		case "#EXT-X-ENDLIST":
			m.Ended = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return m, nil
}

// BuildManifest renders m as an HLS live playlist. When TargetDuration is
// zero it is derived from the longest segment.
func BuildManifest(m *Manifest) string {
	var b strings.Builder

	target := m.TargetDuration
	if target <= 0 {
		target = targetDuration(m.Segments)
	}

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:7\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", target)
	fmt.Fprintf(&b, "#EXT-X-MEDIA-SEQUENCE:%d\n", m.MediaSequence)

	for _, seg := range m.Segments {
		fmt.Fprintf(&b, "#EXTINF:%.3f,\n", seg.Duration)
		b.WriteString(seg.URI)
		b.WriteString("\n")
	}

	if m.Ended {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}

// targetDuration is the ceiling of the longest segment, at least 1.
func targetDuration(segments []Segment) int {
	longest := 0.0
	for _, seg := range segments {
		longest = math.Max(longest, seg.Duration)
	}
	if longest <= 0 {
		return 1
	}
	return int(math.Ceil(longest))
}
