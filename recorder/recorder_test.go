package recorder

import (
	"context"
	"errors"
	"testing"
	"time"
)

func collect(t *testing.T, s Stream) ([]byte, error) {
	t.Helper()
	var data []byte
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				t.Fatal("events closed without a final event")
			}
			if ev.Kind == EventFinal {
				return data, ev.Err
			}
			data = append(data, ev.Data...)
		case <-timeout:
			t.Fatal("timed out waiting for final event")
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{errors.New("Permission denied by user"), ErrPermissionDenied},
		{errors.New("app not authorized to use microphone"), ErrPermissionDenied},
		{errors.New("no such device"), ErrDeviceUnavailable},
		{ErrPermissionDenied, ErrPermissionDenied},
	}
	for _, tt := range tests {
		got := classify(tt.err)
		if !errors.Is(got, tt.want) {
			t.Errorf("classify(%q) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}

func TestFakeStreamOrder(t *testing.T) {
	f := NewFake()
	s, err := f.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	fs := f.Last()
	fs.Push([]byte("A"))
	fs.Push(nil)
	fs.Push([]byte("B"))
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}

	data, err := collect(t, s)
	if err != nil {
		t.Fatalf("final err = %v", err)
	}
	if string(data) != "AB" {
		t.Errorf("data = %q, want AB", data)
	}
	if fs.Push([]byte("C")) {
		t.Error("Push after Stop should report false")
	}
	if _, ok := <-s.Events(); ok {
		t.Error("events should be closed after the final event")
	}
}

func TestFakeStopTwiceSingleFinal(t *testing.T) {
	f := NewFake()
	s, _ := f.Open(context.Background())
	s.Stop()
	s.Stop()

	finals := 0
	for ev := range s.Events() {
		if ev.Kind == EventFinal {
			finals++
		}
	}
	if finals != 1 {
		t.Errorf("got %d final events, want 1", finals)
	}
}

func TestFakeOpenFailure(t *testing.T) {
	f := NewFake()
	f.FailOpen(errors.New("permission denied"))
	if _, err := f.Open(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if f.Opened() != 0 {
		t.Errorf("Opened = %d, want 0", f.Opened())
	}

	f.FailOpen(nil)
	if _, err := f.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestFakeCloseDropsPending(t *testing.T) {
	f := NewFake()
	s, _ := f.Open(context.Background())
	fs := f.Last()
	s.Close()
	if !fs.Closed() {
		t.Error("Closed should report true")
	}

	done := make(chan struct{})
	go func() {
		// detached pipe never blocks the producer
		for i := 0; i < 200; i++ {
			fs.Push([]byte{byte(i)})
		}
		fs.End(nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked after Close")
	}
}

func TestFakeCloseEndsEvents(t *testing.T) {
	f := NewFake()
	s, _ := f.Open(context.Background())
	f.Last().Push([]byte("A"))
	s.Close()

	done := make(chan struct{})
	go func() {
		for range s.Events() {
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events channel still open after Close")
	}
	if f.Last().Push([]byte("B")) {
		t.Error("Push accepted after Close")
	}
}
