package submit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rekam/capture"
	"rekam/entries"
)

type fakeStore struct {
	mu      sync.Mutex
	list    []entries.Entry
	created []entries.NewEntry
	calls   atomic.Int32
	err     error
	block   chan struct{}
}

func (s *fakeStore) ListEntries(context.Context) ([]entries.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entries.Entry(nil), s.list...), nil
}

func (s *fakeStore) CreateEntry(ctx context.Context, e entries.NewEntry) error {
	s.calls.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, e)
	s.list = append(s.list, entries.Entry{ID: "1", Name: e.Name, Address: e.Address})
	return nil
}

type fixture struct {
	store *fakeStore
	clips *capture.ClipStore
	form  *Form
	timer *capture.Timer
	cache *entries.Cache
	coord *Coordinator
}

func newFixture() *fixture {
	f := &fixture{
		store: &fakeStore{},
		clips: capture.NewClipStore(),
		form:  &Form{},
		timer: capture.NewTimer(capture.WithInterval(time.Hour)),
	}
	f.cache = entries.NewCache(f.store)
	f.coord = NewCoordinator(Deps{
		Store:   f.store,
		Clips:   f.clips,
		Form:    f.form,
		Timer:   f.timer,
		Cache:   f.cache,
		Timeout: time.Second,
	})
	return f
}

func (f *fixture) fill(name, address string, audio string) {
	f.form.SetName(name)
	f.form.SetAddress(address)
	if audio != "" {
		f.clips.Set(capture.Artifact{Data: []byte(audio), MediaType: "audio/webm"})
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name, address, audio string
		missing              []string
	}{
		{"", "Elm 1", "AB", []string{FieldName}},
		{"Ann", " ", "AB", []string{FieldAddress}},
		{"Ann", "Elm 1", "", []string{FieldRecording}},
		{"", "", "", []string{FieldName, FieldAddress, FieldRecording}},
	}
	for _, tt := range tests {
		f := newFixture()
		f.fill(tt.name, tt.address, tt.audio)

		err := f.coord.Submit(context.Background(), tt.name, tt.address)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) || len(ve.Missing) != len(tt.missing) {
			t.Fatalf("missing = %v, want %v", ve, tt.missing)
		}
		for i := range tt.missing {
			if ve.Missing[i] != tt.missing[i] {
				t.Errorf("missing = %v, want %v", ve.Missing, tt.missing)
			}
		}
		if f.store.calls.Load() != 0 {
			t.Error("store called despite validation failure")
		}
	}
}

func TestSubmitRejectsEmptyArtifact(t *testing.T) {
	f := newFixture()
	f.fill("Ann", "Elm 1", "")
	f.clips.Set(capture.Artifact{MediaType: "audio/webm"})

	if err := f.coord.Submit(context.Background(), "Ann", "Elm 1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if f.store.calls.Load() != 0 {
		t.Error("store called with empty artifact")
	}
}

func TestSubmitSuccessResets(t *testing.T) {
	f := newFixture()
	f.fill("Ann", "Elm 1", "AB")
	f.timer.Start()
	f.timer.Stop()

	if err := f.coord.Submit(context.Background(), "Ann", "Elm 1"); err != nil {
		t.Fatal(err)
	}
	if len(f.store.created) != 1 {
		t.Fatalf("created %d entries", len(f.store.created))
	}
	got := f.store.created[0]
	if got.Name != "Ann" || got.Address != "Elm 1" || string(got.Audio) != "AB" || got.MediaType != "audio/webm" {
		t.Errorf("created = %+v", got)
	}
	if _, _, ok := f.clips.Current(); ok {
		t.Error("clip store not cleared")
	}
	if f.form.Name() != "" || f.form.Address() != "" {
		t.Error("form not cleared")
	}
	if f.timer.Elapsed() != 0 {
		t.Errorf("timer = %d", f.timer.Elapsed())
	}
	if f.cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", f.cache.Len())
	}
	if f.coord.Submitted() != 1 || f.coord.Submitting() {
		t.Errorf("submitted=%d submitting=%v", f.coord.Submitted(), f.coord.Submitting())
	}
}

func TestSubmitFailurePreservesState(t *testing.T) {
	f := newFixture()
	f.store.list = []entries.Entry{{ID: "old"}}
	if err := f.cache.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	f.fill("Ann", "Elm 1", "AB")
	f.store.err = &entries.StatusError{Op: "create entry", Status: 500}

	err := f.coord.Submit(context.Background(), "Ann", "Elm 1")
	var ue *UploadError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want UploadError", err)
	}
	var se *entries.StatusError
	if !errors.As(err, &se) || se.Status != 500 {
		t.Errorf("cause = %v", ue.Err)
	}

	a, _, ok := f.clips.Current()
	if !ok || string(a.Data) != "AB" {
		t.Error("clip changed after failed submit")
	}
	if f.form.Name() != "Ann" || f.form.Address() != "Elm 1" {
		t.Error("form changed after failed submit")
	}
	if list := f.cache.Entries(); len(list) != 1 || list[0].ID != "old" {
		t.Errorf("cache = %+v", list)
	}
	if f.coord.Submitting() {
		t.Error("still submitting")
	}
}

func TestSubmitInFlight(t *testing.T) {
	f := newFixture()
	f.fill("Ann", "Elm 1", "AB")
	f.store.block = make(chan struct{})

	errc := make(chan error, 1)
	go func() { errc <- f.coord.Submit(context.Background(), "Ann", "Elm 1") }()

	deadline := time.Now().Add(2 * time.Second)
	for !f.coord.Submitting() {
		if time.Now().After(deadline) {
			t.Fatal("first submit never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := f.coord.Submit(context.Background(), "Ann", "Elm 1"); !errors.Is(err, ErrInFlight) {
		t.Errorf("second submit err = %v, want ErrInFlight", err)
	}
	close(f.store.block)
	if err := <-errc; err != nil {
		t.Fatal(err)
	}
	if n := f.store.calls.Load(); n != 1 {
		t.Errorf("store called %d times, want 1", n)
	}
}

func TestSubmitKeepsNewerClip(t *testing.T) {
	f := newFixture()
	f.fill("Ann", "Elm 1", "AB")
	f.store.block = make(chan struct{})

	errc := make(chan error, 1)
	go func() { errc <- f.coord.Submit(context.Background(), "Ann", "Elm 1") }()
	for f.store.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	newer := f.clips.Set(capture.Artifact{Data: []byte("CD")})
	close(f.store.block)
	if err := <-errc; err != nil {
		t.Fatal(err)
	}

	if _, loc, ok := f.clips.Current(); !ok || loc != newer {
		t.Error("newer clip was cleared by an older submission")
	}
}
