package tags

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/bogem/id3v2/v2"
)

// box encodes one ISO-BMFF box with a 32-bit size header.
func box(typ string, payload ...[]byte) []byte {
	body := bytes.Join(payload, nil)
	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out, uint32(8+len(body)))
	copy(out[4:], typ)
	return append(out, body...)
}

// fullBox prepends a zero version/flags word.
func fullBox(typ string, payload ...[]byte) []byte {
	return box(typ, append([][]byte{{0, 0, 0, 0}}, payload...)...)
}

// item encodes an ilst entry holding one UTF-8 value atom.
func item(name, text string) []byte {
	data := box("data", []byte{0, 0, 0, 1}, []byte{0, 0, 0, 0}, []byte(text))
	return box(name, data)
}

func hdlrMdir() []byte {
	payload := make([]byte, 0, 21)
	payload = append(payload, 0, 0, 0, 0)
	payload = append(payload, []byte("mdir")...)
	payload = append(payload, make([]byte, 12)...)
	payload = append(payload, 0)
	return fullBox("hdlr", payload)
}

func ftyp() []byte {
	return box("ftyp", []byte("M4A "), []byte{0, 0, 0, 0}, []byte("M4A isom"))
}

// mp4WithTags builds ftyp + moov/udta/meta/ilst carrying the given items,
// followed by an mdat holding trailer.
func mp4WithTags(trailer []byte, items ...[]byte) []byte {
	ilst := box("ilst", items...)
	meta := fullBox("meta", hdlrMdir(), ilst)
	moov := box("moov", box("udta", meta))
	return bytes.Join([][]byte{ftyp(), moov, box("mdat", trailer)}, nil)
}

// mp4WithoutTags is a container with a moov but no metadata.
func mp4WithoutTags(trailer []byte) []byte {
	moov := box("moov", box("free", make([]byte, 16)))
	return bytes.Join([][]byte{ftyp(), moov, box("mdat", trailer)}, nil)
}

func id3Tag(t *testing.T, artist, title, album, date string) []byte {
	t.Helper()
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetArtist(artist)
	tag.SetTitle(title)
	tag.SetAlbum(album)
	if date != "" {
		tag.AddTextFrame("TDRC", tag.DefaultEncoding(), date)
	}
	var buf bytes.Buffer
	if _, err := tag.WriteTo(&buf); err != nil {
		t.Fatalf("write id3 fixture: %v", err)
	}
	return buf.Bytes()
}
