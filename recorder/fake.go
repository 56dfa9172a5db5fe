package recorder

import (
	"context"
	"sync"
)

// Fake is a scripted recorder: the test (or -test mode) pushes chunks into
// the most recently opened stream.
type Fake struct {
	mu        sync.Mutex
	openErr   error
	mediaType string
	streams   []*FakeStream
}

func NewFake() *Fake {
	return &Fake{mediaType: WebMMediaType}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) MediaType() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mediaType
}

// FailOpen makes subsequent Open calls return err (nil restores success).
func (f *Fake) FailOpen(err error) {
	f.mu.Lock()
	f.openErr = err
	f.mu.Unlock()
}

func (f *Fake) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, classify(f.openErr)
	}
	s := &FakeStream{pipe: newPipe(), mediaType: f.mediaType}
	f.streams = append(f.streams, s)
	return s, nil
}

// Last returns the most recently opened stream, or nil.
func (f *Fake) Last() *FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.streams) == 0 {
		return nil
	}
	return f.streams[len(f.streams)-1]
}

func (f *Fake) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.streams)
}

type FakeStream struct {
	*pipe
	mediaType string

	stateMu  sync.Mutex
	stopped  bool
	detached bool
}

func (s *FakeStream) Events() <-chan Event { return s.events }
func (s *FakeStream) MediaType() string    { return s.mediaType }
func (s *FakeStream) Device() string       { return "fake" }

// Push delivers one chunk; it reports false once the stream has finished.
func (s *FakeStream) Push(data []byte) bool {
	buf := make([]byte, len(data))
	copy(buf, data)
	return s.chunk(buf)
}

func (s *FakeStream) Stop() error {
	s.stateMu.Lock()
	s.stopped = true
	s.stateMu.Unlock()
	s.finish(nil)
	return nil
}

// End finishes the stream as if the source went away.
func (s *FakeStream) End(err error) {
	s.finish(err)
}

func (s *FakeStream) Close() error {
	s.stateMu.Lock()
	s.detached = true
	s.stateMu.Unlock()
	s.detach()
	s.finish(nil)
	return nil
}

func (s *FakeStream) Stopped() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.stopped
}

func (s *FakeStream) Closed() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.detached
}

// Streams returns every stream opened so far, oldest first.
func (f *Fake) Streams() []*FakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeStream(nil), f.streams...)
}
