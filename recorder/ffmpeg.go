package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

const (
	ffmpegStartupWindow = 250 * time.Millisecond
	ffmpegStopGrace     = 1200 * time.Millisecond
)

// FFmpegConfig selects the capture input handed to ffmpeg.
type FFmpegConfig struct {
	Command     string
	InputFormat string // pulse, alsa, avfoundation, dshow
	InputDevice string
}

// FFmpeg records through an ffmpeg subprocess that writes webm/opus to stdout.
type FFmpeg struct {
	cfg FFmpegConfig
}

func NewFFmpeg(cfg FFmpegConfig) *FFmpeg {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return &FFmpeg{cfg: cfg}
}

func (f *FFmpeg) Name() string      { return "ffmpeg" }
func (f *FFmpeg) MediaType() string { return WebMMediaType }

func (f *FFmpeg) args() []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", f.cfg.InputFormat,
		"-i", f.cfg.InputDevice,
		"-ac", "1",
		"-ar", "48000",
		"-c:a", "libopus",
		"-b:a", "32k",
		"-f", "webm",
		"-",
	}
}

func (f *FFmpeg) Open(ctx context.Context) (Stream, error) {
	s := &ffmpegStream{pipe: newPipe(), device: f.cfg.InputDevice, exited: make(chan struct{})}

	// not CommandContext: the process must outlive the request that opened it
	cmd := exec.Command(f.cfg.Command, f.args()...)
	cmd.Stdout = chunkWriter{s.pipe}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, classify(fmt.Errorf("failed to start ffmpeg: %w", err))
	}
	s.process = cmd.Process

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	select {
	case err := <-waitErr:
		s.detach()
		detail := bytes.TrimSpace(s.stderr.Bytes())
		if err == nil {
			err = errors.New("exited")
		}
		return nil, classify(fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail))
	case <-ctx.Done():
		s.detach()
		_ = cmd.Process.Kill()
		<-waitErr
		return nil, ctx.Err()
	case <-time.After(ffmpegStartupWindow):
	}

	go func() {
		err := <-waitErr
		close(s.exited)
		s.finish(s.exitErr(err))
	}()
	return s, nil
}

type chunkWriter struct{ p *pipe }

func (w chunkWriter) Write(b []byte) (int, error) {
	if len(b) > 0 {
		buf := make([]byte, len(b))
		copy(buf, b)
		w.p.chunk(buf)
	}
	return len(b), nil
}

type ffmpegStream struct {
	*pipe
	device  string
	process *os.Process
	stderr  lockedBuffer
	exited  chan struct{}

	stopOnce sync.Once
	stopping atomic.Bool
}

func (s *ffmpegStream) Events() <-chan Event { return s.events }
func (s *ffmpegStream) MediaType() string    { return WebMMediaType }
func (s *ffmpegStream) Device() string       { return s.device }

// Stop interrupts ffmpeg so it writes the container trailer; it is killed
// if it has not exited after ffmpegStopGrace.
func (s *ffmpegStream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.stopping.Store(true)
		err = s.process.Signal(os.Interrupt)
		go func() {
			select {
			case <-s.exited:
			case <-time.After(ffmpegStopGrace):
				_ = s.process.Kill()
			}
		}()
	})
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (s *ffmpegStream) Close() error {
	s.detach()
	err := s.process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (s *ffmpegStream) exitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && s.stopping.Load() {
		return nil
	}
	if detail := bytes.TrimSpace(s.stderr.Bytes()); len(detail) > 0 {
		return fmt.Errorf("%w: %s", err, detail)
	}
	return err
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
