package audio

import (
	"sync"
)

const fakeChunkFrames = 1024

// FakeContext replays in-memory 16-bit mono PCM through capture devices.
// StartErr, when set, is returned by every capture's Start.
type FakeContext struct {
	PCM      []byte
	StartErr error
}

func NewFakeContext(pcm []byte) *FakeContext {
	return &FakeContext{PCM: pcm}
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.PCM, startErr: f.StartErr}, nil
}

// FakeCapture delivers its whole PCM buffer in fixed-size chunks as soon as
// it starts. Delivered is closed once the last chunk has been handed over.
type FakeCapture struct {
	pcm      []byte
	startErr error

	mu        sync.Mutex
	cb        DataCallback
	delivered chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) DeviceName() string { return "fake" }

func (f *FakeCapture) Delivered() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered
}

func (f *FakeCapture) Start() error {
	if f.startErr != nil {
		return f.startErr
	}

	f.mu.Lock()
	f.delivered = make(chan struct{})
	cb := f.cb
	done := f.delivered
	f.mu.Unlock()

	chunkBytes := fakeChunkFrames * 2
	for pos := 0; pos < len(f.pcm) && cb != nil; pos += chunkBytes {
		end := min(pos+chunkBytes, len(f.pcm))
		chunk := make([]byte, end-pos)
		copy(chunk, f.pcm[pos:end])
		cb(chunk, uint32(len(chunk)/2))
	}
	close(done)
	return nil
}

func (f *FakeCapture) Stop()  {}
func (f *FakeCapture) Close() {}
