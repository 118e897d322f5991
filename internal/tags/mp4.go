package tags

import (
	"bytes"
	"encoding/binary"
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/abema/go-mp4"
)

// iTunes item list atoms.
var (
	atomArtist = mp4.BoxType{0xA9, 'A', 'R', 'T'}
	atomTitle  = mp4.BoxType{0xA9, 'n', 'a', 'm'}
	atomAlbum  = mp4.BoxType{0xA9, 'a', 'l', 'b'}
	atomDate   = mp4.BoxType{0xA9, 'd', 'a', 'y'}
)

var errTruncatedBox = errors.New("box extends past end of segment")

// MP4Strategy reads iTunes-style metadata from the ilst box of an ISO-BMFF
// container, found under moov/udta/meta, moov/meta or a top-level meta.
type MP4Strategy struct{}

func (MP4Strategy) Name() string { return "mp4" }

func (MP4Strategy) Extract(data []byte) (Metadata, error) {
	values := make(map[mp4.BoxType]string, 4)
	size := uint64(len(data))
	truncated := false

	_, err := mp4.ReadBoxStructure(bytes.NewReader(data), func(h *mp4.ReadHandle) (interface{}, error) {
		bi := h.BoxInfo
		if bi.Size > size || bi.Offset > size-bi.Size {
			truncated = true
			return nil, nil
		}

		if bi.Type == mp4.BoxTypeData() {
			if !bi.UnderIlstMeta || len(h.Path) < 2 {
				return nil, nil
			}
			item := h.Path[len(h.Path)-2]
			if _, seen := values[item]; seen || !isWantedItem(item) {
				return nil, nil
			}
			box, _, err := h.ReadPayload()
			if err != nil {
				return nil, err
			}
			if d, ok := box.(*mp4.Data); ok {
				if s, ok := dataText(d); ok {
					values[item] = s
				}
			}
			return nil, nil
		}

		if expandable(h.Path) {
			_, err := h.Expand()
			return nil, err
		}
		return nil, nil
	})

	if len(values) == 0 {
		if err != nil {
			return Metadata{}, err
		}
		if truncated {
			return Metadata{}, errTruncatedBox
		}
		return Metadata{}, nil
	}

	return Metadata{
		Artist: values[atomArtist],
		Title:  values[atomTitle],
		Album:  values[atomAlbum],
		Year:   parseYear(values[atomDate]),
	}, nil
}

func isWantedItem(t mp4.BoxType) bool {
	return t == atomArtist || t == atomTitle || t == atomAlbum || t == atomDate
}

// expandable reports whether path leads towards one of the wanted ilst items:
// [moov [udta]] meta ilst <item>.
func expandable(path mp4.BoxPath) bool {
	p := []mp4.BoxType(path)
	if len(p) > 0 && p[0] == mp4.BoxTypeMoov() {
		p = p[1:]
		if len(p) == 0 {
			return true
		}
		if p[0] == mp4.BoxTypeUdta() {
			p = p[1:]
			if len(p) == 0 {
				return true
			}
		}
	}

	if len(p) == 0 || p[0] != mp4.BoxTypeMeta() {
		return false
	}
	if len(p) == 1 {
		return true
	}
	if p[1] != mp4.BoxTypeIlst() {
		return false
	}
	if len(p) == 2 {
		return true
	}
	return len(p) == 3 && isWantedItem(p[2])
}

// dataText decodes a value atom holding text.
func dataText(d *mp4.Data) (string, bool) {
	switch d.DataType {
	case mp4.DataTypeStringUTF8, mp4.DataTypeStringMac:
		return string(d.Data), true
	case mp4.DataTypeStringUTF16:
		if len(d.Data)%2 != 0 {
			return "", false
		}
		units := make([]uint16, len(d.Data)/2)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(d.Data[2*i:])
		}
		return string(utf16.Decode(units)), true
	case mp4.DataTypeBinary:
		// some encoders leave the type unset on text items
		if utf8.Valid(d.Data) {
			return string(d.Data), true
		}
	}
	return "", false
}
