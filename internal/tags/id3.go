package tags

import (
	"bytes"

	"github.com/bogem/id3v2/v2"
)

var id3Marker = []byte("ID3")

// Recording date frames, most specific first: TDRC is ID3v2.4, TYER v2.3.
var id3DateFrames = []string{"TDRC", "TYER"}

// ID3Strategy reads an ID3v2 tag that starts at the first "ID3" marker in
// the segment, wherever that marker is.
type ID3Strategy struct{}

func (ID3Strategy) Name() string { return "id3v2" }

func (ID3Strategy) Extract(data []byte) (Metadata, error) {
	idx := bytes.Index(data, id3Marker)
	if idx < 0 {
		return Metadata{}, nil
	}

	tag, err := id3v2.ParseReader(bytes.NewReader(data[idx:]), id3v2.Options{Parse: true})
	if err != nil {
		return Metadata{}, err
	}

	md := Metadata{
		Artist: tag.Artist(),
		Title:  tag.Title(),
		Album:  tag.Album(),
	}
	for _, id := range id3DateFrames {
		if text := tag.GetTextFrame(id).Text; text != "" {
			md.Year = parseYear(text)
			break
		}
	}
	return md, nil
}
