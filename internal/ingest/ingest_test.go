package ingest

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bogem/id3v2/v2"

	"nowplaying/internal/platform/logger"
	"nowplaying/internal/platform/metrics"
	"nowplaying/internal/playlist"
	"nowplaying/internal/stream"
	"nowplaying/internal/tags"
)

// fakeSource serves segments whose bytes are "artist|title", or an error.
type fakeSource struct {
	mu          sync.Mutex
	manifest    *stream.Manifest
	manifestErr error
	segments    map[string]string
	failing     map[string]bool
	fetched     []string
}

func newFakeSource(refs ...string) *fakeSource {
	m := &stream.Manifest{}
	for _, r := range refs {
		m.Segments = append(m.Segments, stream.Segment{URI: r, Duration: 2})
	}
	return &fakeSource{manifest: m, segments: map[string]string{}, failing: map[string]bool{}}
}

func (f *fakeSource) Manifest(context.Context) (*stream.Manifest, error) {
	if f.manifestErr != nil {
		return nil, f.manifestErr
	}
	return f.manifest, nil
}

func (f *fakeSource) Segment(_ context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, ref)
	if f.failing[ref] {
		return nil, &stream.FetchError{URL: ref, StatusCode: http.StatusNotFound}
	}
	return []byte(f.segments[ref]), nil
}

// pipeStrategy reads "artist|title" payloads.
type pipeStrategy struct{}

func (pipeStrategy) Name() string { return "pipe" }

func (pipeStrategy) Extract(data []byte) (tags.Metadata, error) {
	artist, title, ok := strings.Cut(string(data), "|")
	if !ok {
		return tags.Metadata{}, nil
	}
	return tags.Metadata{Artist: artist, Title: title}, nil
}

func newTestSelector(src Source) *Selector {
	return NewSelector(src, tags.NewExtractor(logger.Discard(), pipeStrategy{}), 0, logger.Discard(), metrics.New())
}

func TestSelector_OnlyOldestCandidateUsable(t *testing.T) {
	src := newFakeSource("seg1", "seg2", "seg3", "seg4", "seg5")
	src.segments["seg1"] = "Too|Old"
	src.segments["seg3"] = "Queen|Bohemian Rhapsody"

	md := newTestSelector(src).Select(context.Background())

	if md.Artist != "Queen" || md.Title != "Bohemian Rhapsody" {
		t.Errorf("unexpected metadata: %+v", md)
	}
	want := []string{"seg5", "seg4", "seg3"}
	if strings.Join(src.fetched, ",") != strings.Join(want, ",") {
		t.Errorf("fetched %v, want %v", src.fetched, want)
	}
}

func TestSelector_NewestUsableWins(t *testing.T) {
	src := newFakeSource("seg1", "seg2", "seg3")
	src.segments["seg2"] = "Old|Song"
	src.segments["seg3"] = "New|Song"

	md := newTestSelector(src).Select(context.Background())

	if md.Artist != "New" {
		t.Errorf("expected newest segment to win, got %+v", md)
	}
	if len(src.fetched) != 1 {
		t.Errorf("expected one fetch, got %v", src.fetched)
	}
}

func TestSelector_FetchFailureSkipsSegment(t *testing.T) {
	src := newFakeSource("seg1", "seg2", "seg3")
	src.failing["seg3"] = true
	src.segments["seg2"] = "Band|Track"

	md := newTestSelector(src).Select(context.Background())

	if md.Artist != "Band" {
		t.Errorf("expected fallback to seg2, got %+v", md)
	}
}

func TestSelector_ManifestFailure(t *testing.T) {
	src := newFakeSource()
	src.manifestErr = &stream.FetchError{URL: "stream.m3u8", Err: context.DeadlineExceeded}

	md := newTestSelector(src).Select(context.Background())

	if md.Usable() || md.Artist != "" {
		t.Errorf("expected empty metadata, got %+v", md)
	}
	if len(src.fetched) != 0 {
		t.Errorf("no segment should be fetched, got %v", src.fetched)
	}
}

func TestSelector_EmptyManifest(t *testing.T) {
	src := newFakeSource()
	if md := newTestSelector(src).Select(context.Background()); md.Usable() {
		t.Errorf("expected empty metadata, got %+v", md)
	}
}

func TestSelector_Exhausted(t *testing.T) {
	src := newFakeSource("a", "b", "c", "d")
	src.segments["a"] = "Never|Reached"

	md := newTestSelector(src).Select(context.Background())

	if md.Usable() {
		t.Errorf("expected empty metadata, got %+v", md)
	}
	if len(src.fetched) != DefaultCandidates {
		t.Errorf("expected %d attempts, got %d", DefaultCandidates, len(src.fetched))
	}
}

func TestWriter_SkipsUnusableMetadata(t *testing.T) {
	store := playlist.NewInMemoryStore()
	w := NewWriter(store, "history", logger.Discard())

	year := 1999
	for _, md := range []tags.Metadata{{}, {Year: &year}} {
		e, err := w.Write(context.Background(), md)
		if err != nil || e != nil {
			t.Errorf("Write(%+v) = %v, %v; want nil, nil", md, e, err)
		}
	}
	if store.Len("history") != 0 {
		t.Errorf("expected zero writes, got %d", store.Len("history"))
	}
}

func TestWriter_PartialMetadataIsRecorded(t *testing.T) {
	store := playlist.NewInMemoryStore()
	w := NewWriter(store, "history", logger.Discard())

	e, err := w.Write(context.Background(), tags.Metadata{Title: "Untitled Jam"})
	if err != nil || e == nil {
		t.Fatalf("Write = %v, %v", e, err)
	}
	if e.PartitionKey != "" || e.Year != nil {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestWriter_BuildsEntry(t *testing.T) {
	store := playlist.NewInMemoryStore()
	w := NewWriter(store, "history", logger.Discard())
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	year := 1975

	e, err := w.Write(context.Background(), tags.Metadata{Artist: "Queen", Title: "Bohemian Rhapsody", Album: "A Night at the Opera", Year: &year})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if e.PartitionKey != "Queen" || e.RowKey != playlist.RowKeyAt(at) {
		t.Errorf("unexpected keys: %+v", e)
	}
	if e.Timestamp != "2024-03-01T10:00:00.000000Z" {
		t.Errorf("unexpected timestamp %q", e.Timestamp)
	}
	if e.Year == nil || *e.Year != 1975 || e.Album != "A Night at the Opera" {
		t.Errorf("unexpected fields: %+v", e)
	}
}

func TestWriter_SameInstantGetsDistinctRowKeys(t *testing.T) {
	store := playlist.NewInMemoryStore()
	w := NewWriter(store, "history", logger.Discard())
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return at }
	md := tags.Metadata{Artist: "Queen", Title: "Bohemian Rhapsody"}

	first, err := w.Write(context.Background(), md)
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Write(context.Background(), md)
	if err != nil {
		t.Fatalf("second write collided: %v", err)
	}
	if first.RowKey >= second.RowKey {
		t.Errorf("row keys not increasing: %q then %q", first.RowKey, second.RowKey)
	}
}

type brokenStore struct{}

func (brokenStore) Insert(context.Context, string, playlist.Entry) error {
	return errors.New("connection reset")
}
func (brokenStore) Query(context.Context, string, int) ([]playlist.Entry, error) { return nil, nil }

func TestWriter_StorageError(t *testing.T) {
	w := NewWriter(brokenStore{}, "history", logger.Discard())

	_, err := w.Write(context.Background(), tags.Metadata{Artist: "A", Title: "B"})

	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
	if se.Table != "history" {
		t.Errorf("unexpected table %q", se.Table)
	}
}

func TestPoller_TwoCyclesRecordTwice(t *testing.T) {
	src := newFakeSource("seg1", "seg2")
	src.segments["seg2"] = "Queen|Bohemian Rhapsody"
	store := playlist.NewInMemoryStore()
	p := NewPoller(newTestSelector(src), NewWriter(store, "history", logger.Discard()), logger.Discard(), metrics.New())

	for i := 0; i < 2; i++ {
		if err := p.RunOnce(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
	}

	got, _ := store.Query(context.Background(), "history", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].RowKey == got[1].RowKey {
		t.Error("expected distinct row keys")
	}
	if got[0].Artist != got[1].Artist || got[0].Title != got[1].Title {
		t.Errorf("expected equal content, got %+v and %+v", got[0], got[1])
	}
}

func TestPoller_EmptyCycleIsNotAnError(t *testing.T) {
	src := newFakeSource()
	src.manifestErr = errors.New("unreachable")
	store := playlist.NewInMemoryStore()
	p := NewPoller(newTestSelector(src), NewWriter(store, "history", logger.Discard()), logger.Discard(), nil)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if store.Len("history") != 0 {
		t.Error("expected no writes")
	}
}

func TestPoller_SurfacesStorageError(t *testing.T) {
	src := newFakeSource("seg1")
	src.segments["seg1"] = "A|B"
	p := NewPoller(newTestSelector(src), NewWriter(brokenStore{}, "history", logger.Discard()), logger.Discard(), metrics.New())

	var se *StorageError
	if err := p.RunOnce(context.Background()); !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	src := newFakeSource("seg1")
	src.segments["seg1"] = "A|B"
	store := playlist.NewInMemoryStore()
	p := NewPoller(newTestSelector(src), NewWriter(store, "history", logger.Discard()), logger.Discard(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, 20*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if store.Len("history") < 2 {
		t.Errorf("expected several cycles, got %d entries", store.Len("history"))
	}

	if err := p.Run(context.Background(), 0); err == nil {
		t.Error("expected error for zero interval")
	}
}

func TestPoller_EndToEndOverHTTP(t *testing.T) {
	tag := id3v2.NewEmptyTag()
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetArtist("Nirvana")
	tag.SetTitle("Smells Like Teen Spirit")
	tag.SetAlbum("Nevermind")
	tag.AddTextFrame("TDRC", tag.DefaultEncoding(), "1991")
	var seg bytes.Buffer
	seg.WriteString("leading audio bytes")
	if _, err := tag.WriteTo(&seg); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/live/stream.m3u8":
			w.Write([]byte(stream.BuildManifest(&stream.Manifest{Segments: []stream.Segment{
				{URI: "seg1.ts", Duration: 2},
				{URI: "seg2.ts", Duration: 2},
			}})))
		case "/live/seg2.ts":
			w.Write(seg.Bytes())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := stream.NewClient(srv.URL+"/live", stream.Options{})
	if err != nil {
		t.Fatal(err)
	}
	store := playlist.NewInMemoryStore()
	sel := NewSelector(client, tags.NewExtractor(logger.Discard()), 3, logger.Discard(), nil)
	p := NewPoller(sel, NewWriter(store, "history", logger.Discard()), logger.Discard(), nil)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Query(context.Background(), "history", 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	e := got[0]
	if e.Artist != "Nirvana" || e.Album != "Nevermind" || e.Year == nil || *e.Year != 1991 {
		t.Errorf("unexpected entry: %+v", e)
	}
}
