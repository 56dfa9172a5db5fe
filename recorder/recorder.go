// Package recorder adapts microphone sources into finite event streams:
// zero or more chunk events followed by exactly one final event.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const WebMMediaType = "audio/webm"

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("microphone unavailable")
)

type EventKind int

const (
	EventChunk EventKind = iota
	EventFinal
)

func (k EventKind) String() string {
	if k == EventFinal {
		return "final"
	}
	return "chunk"
}

type Event struct {
	Kind EventKind
	Data []byte
	// Err is set on the final event when the capture ended abnormally.
	Err error
}

// Stream is one open capture. Stop asks the source to finalize; the final
// event follows asynchronously. Close releases the source without waiting
// for finalization and may drop the final event.
type Stream interface {
	Events() <-chan Event
	Stop() error
	Close() error
	MediaType() string
	Device() string
}

type Recorder interface {
	Name() string
	// MediaType is the type of the clips this recorder produces.
	MediaType() string
	Open(ctx context.Context) (Stream, error)
}

// classify maps a source error onto ErrPermissionDenied or ErrDeviceUnavailable.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range []string{"permission", "denied", "not authorized", "not permitted"} {
		if strings.Contains(msg, kw) {
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}

type pipe struct {
	events chan Event
	closed chan struct{}

	mu        sync.Mutex
	finished  bool
	closeOnce sync.Once
}

func newPipe() *pipe {
	return &pipe{
		events: make(chan Event, 64),
		closed: make(chan struct{}),
	}
}

func (p *pipe) chunk(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return false
	}
	select {
	case p.events <- Event{Kind: EventChunk, Data: data}:
		return true
	case <-p.closed:
		return false
	}
}

func (p *pipe) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	select {
	case p.events <- Event{Kind: EventFinal, Err: err}:
	case <-p.closed:
	}
	close(p.events)
}

func (p *pipe) detach() {
	p.closeOnce.Do(func() { close(p.closed) })
}
