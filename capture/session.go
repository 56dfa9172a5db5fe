// Package capture owns the recording lifecycle: the capture session, its
// elapsed-time counter and the store holding the finalized clip.
package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"rekam/log"
	"rekam/recorder"
)

type State int

const (
	Idle State = iota
	Capturing
	Stopped
)

func (s State) String() string {
	switch s {
	case Capturing:
		return "capturing"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Session drives one recorder at a time. Every Start opens a new stream and
// bumps the generation; events from older streams are dropped.
//
// The timer's tick callback runs while the session may hold its lock and
// must not call back into the Session.
type Session struct {
	rec    recorder.Recorder
	timer  *Timer
	clips  *ClipStore
	notify func()

	mu        sync.Mutex
	state     State
	gen       uint64
	stream    recorder.Stream
	chunks    [][]byte
	finalized chan struct{}
	lastErr   error
}

type SessionOption func(*Session)

// WithNotify registers fn to run after every state change and after each
// finalization. fn runs without the session lock held.
func WithNotify(fn func()) SessionOption {
	return func(s *Session) { s.notify = fn }
}

func NewSession(rec recorder.Recorder, timer *Timer, clips *ClipStore, opts ...SessionOption) *Session {
	s := &Session{
		rec:       rec,
		timer:     timer,
		clips:     clips,
		finalized: make(chan struct{}),
	}
	close(s.finalized)
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Finalized is closed once the current session's artifact is published.
// With no session started it is already closed.
func (s *Session) Finalized() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalized
}

// Err returns the error carried by the last final event, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Session) Recorder() string { return s.rec.Name() }

// Start opens the recorder and begins a new capture. On failure the session
// and the clip store are left as they were.
func (s *Session) Start(ctx context.Context) error {
	stream, err := s.rec.Open(ctx)
	if err != nil {
		log.Warnf("capture start failed: %v", err)
		return fmt.Errorf("start capture: %w", err)
	}

	s.mu.Lock()
	prior := s.stream
	s.gen++
	gen := s.gen
	s.stream = stream
	s.chunks = nil
	s.lastErr = nil
	s.state = Capturing
	s.finalized = make(chan struct{})
	s.clips.Clear()
	s.mu.Unlock()

	if prior != nil {
		prior.Close()
	}
	s.timer.Start()
	log.CaptureStarted(stream.Device())
	go s.pump(gen, stream)
	s.changed()
	return nil
}

// Stop asks the recorder to finalize. The artifact is published when the
// final event arrives; wait on Finalized for it.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state != Capturing {
		s.mu.Unlock()
		return nil
	}
	s.state = Stopped
	stream := s.stream
	s.mu.Unlock()

	s.timer.Stop()
	err := stream.Stop()
	s.changed()
	if err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	return nil
}

// Close detaches any active stream without finalizing it.
func (s *Session) Close() {
	s.mu.Lock()
	stream := s.stream
	wasCapturing := s.state == Capturing
	s.gen++
	s.stream = nil
	s.chunks = nil
	if wasCapturing {
		s.state = Stopped
	}
	s.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	if wasCapturing {
		s.timer.Stop()
	}
}

func (s *Session) pump(gen uint64, stream recorder.Stream) {
	for ev := range stream.Events() {
		if !s.apply(gen, stream, ev) {
			return
		}
	}
}

// apply handles one event; it reports false once the stream is finished or
// no longer current.
func (s *Session) apply(gen uint64, stream recorder.Stream, ev recorder.Event) bool {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}

	if ev.Kind == recorder.EventChunk {
		if len(ev.Data) > 0 {
			s.chunks = append(s.chunks, ev.Data)
		}
		s.mu.Unlock()
		return true
	}

	// the timer is stopped and read under the lock so a Start cannot
	// slip in and have its new run stopped or measured
	lost := s.state == Capturing
	if lost {
		s.timer.Stop()
	}
	artifact := Artifact{
		Data:      bytes.Join(s.chunks, nil),
		MediaType: stream.MediaType(),
		Chunks:    len(s.chunks),
		Elapsed:   s.timer.Elapsed(),
	}
	s.state = Stopped
	s.chunks = nil
	s.stream = nil
	s.lastErr = ev.Err
	s.clips.Set(artifact)
	close(s.finalized)
	s.mu.Unlock()

	if lost {
		log.Warnf("capture ended while recording: %v", ev.Err)
	} else if ev.Err != nil {
		log.Warnf("capture finalized with error: %v", ev.Err)
	}
	log.CaptureFinalized(artifact.MediaType, artifact.Chunks, len(artifact.Data), artifact.Elapsed)
	s.changed()
	return false
}

func (s *Session) changed() {
	if s.notify != nil {
		s.notify()
	}
}
