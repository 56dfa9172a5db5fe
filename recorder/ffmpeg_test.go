package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeFFmpeg writes a shell script standing in for ffmpeg.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in")
	}
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFFmpegArgs(t *testing.T) {
	f := NewFFmpeg(FFmpegConfig{})
	args := f.args()
	want := map[string]string{"-f": "pulse", "-i": "default", "-c:a": "libopus"}
	for i := 0; i < len(args)-1; i++ {
		if w, ok := want[args[i]]; ok && args[i+1] == w {
			delete(want, args[i])
		}
	}
	if len(want) != 0 {
		t.Errorf("missing args %v in %v", want, args)
	}
	if args[len(args)-1] != "-" {
		t.Errorf("last arg = %q, want stdout", args[len(args)-1])
	}
}

func TestFFmpegStreamsStdout(t *testing.T) {
	bin := fakeFFmpeg(t, "printf 'hello'; exec sleep 5")
	r := NewFFmpeg(FFmpegConfig{Command: bin})

	s, err := r.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.MediaType() != WebMMediaType {
		t.Errorf("MediaType = %q", s.MediaType())
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	data, err := collect(t, s)
	if err != nil {
		t.Fatalf("final err = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q, want hello", data)
	}
}

func TestFFmpegEarlyExit(t *testing.T) {
	bin := fakeFFmpeg(t, "echo 'Permission denied' >&2; exit 1")
	r := NewFFmpeg(FFmpegConfig{Command: bin})

	_, err := r.Open(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	r := NewFFmpeg(FFmpegConfig{Command: filepath.Join(t.TempDir(), "nope")})
	if _, err := r.Open(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("err = %v, want ErrDeviceUnavailable", err)
	}
}
