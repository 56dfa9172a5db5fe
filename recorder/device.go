package recorder

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"rekam/audio"
	"rekam/encoder"
)

// Device records from a native capture device and streams the clip as FLAC.
type Device struct {
	ctx        audio.Context
	deviceName string
}

func NewDevice(ctx audio.Context, deviceName string) *Device {
	return &Device{ctx: ctx, deviceName: deviceName}
}

func (d *Device) Name() string      { return "device" }
func (d *Device) MediaType() string { return encoder.FlacMediaType }

func (d *Device) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := audio.FindDevice(d.ctx, d.deviceName)
	if err != nil {
		return nil, classify(err)
	}
	capture, err := d.ctx.NewCapture(info, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		return nil, classify(err)
	}

	enc, err := encoder.NewFlac()
	if err != nil {
		capture.Close()
		return nil, err
	}

	s := &deviceStream{
		pipe:    newPipe(),
		capture: capture,
		enc:     enc,
	}
	// header first so every later chunk appends to a valid stream
	if header := enc.Drain(); len(header) > 0 {
		s.chunk(header)
	}

	capture.SetCallback(s.feed)
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		s.detach()
		return nil, classify(err)
	}
	return s, nil
}

type deviceStream struct {
	*pipe
	capture audio.CaptureDevice
	enc     encoder.Encoder

	bufMu     sync.Mutex
	sampleBuf []int16
	stopped   bool
	stopOnce  sync.Once
}

func (s *deviceStream) Events() <-chan Event { return s.events }
func (s *deviceStream) MediaType() string    { return s.enc.MediaType() }
func (s *deviceStream) Device() string       { return s.capture.DeviceName() }

func (s *deviceStream) feed(data []byte, _ uint32) {
	s.bufMu.Lock()
	defer s.bufMu.Unlock()
	if s.stopped {
		return
	}
	for i := 0; i+1 < len(data); i += 2 {
		s.sampleBuf = append(s.sampleBuf, int16(binary.LittleEndian.Uint16(data[i:])))
	}
	for len(s.sampleBuf) >= encoder.BlockSize {
		if err := s.enc.EncodeBlock(s.sampleBuf[:encoder.BlockSize]); err != nil {
			s.stopped = true
			go s.fail(err)
			return
		}
		s.sampleBuf = s.sampleBuf[encoder.BlockSize:]
	}
	if out := s.enc.Drain(); len(out) > 0 {
		s.chunk(out)
	}
}

func (s *deviceStream) fail(err error) {
	s.stopOnce.Do(func() {
		s.capture.Stop()
		s.capture.ClearCallback()
		s.capture.Close()
		s.finish(fmt.Errorf("encoding: %w", err))
	})
}

func (s *deviceStream) Stop() error {
	var stopErr error
	s.stopOnce.Do(func() {
		s.capture.Stop()
		s.capture.ClearCallback()

		s.bufMu.Lock()
		s.stopped = true
		if len(s.sampleBuf) > 0 {
			stopErr = s.enc.EncodeBlock(s.sampleBuf)
			s.sampleBuf = nil
		}
		s.bufMu.Unlock()

		if err := s.enc.Close(); err != nil && stopErr == nil {
			stopErr = err
		}
		if out := s.enc.Drain(); len(out) > 0 {
			s.chunk(out)
		}
		s.capture.Close()
		s.finish(stopErr)
	})
	return stopErr
}

func (s *deviceStream) Close() error {
	s.detach()
	s.stopOnce.Do(func() {
		s.capture.Stop()
		s.capture.ClearCallback()
		s.bufMu.Lock()
		s.stopped = true
		s.bufMu.Unlock()
		s.capture.Close()
		s.finish(nil)
	})
	return nil
}
