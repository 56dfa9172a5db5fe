// Package app wires the capture session, the submission coordinator and the
// entry cache into one state holder driven by the UI.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"rekam/capture"
	"rekam/entries"
	"rekam/log"
	"rekam/recorder"
	"rekam/submit"
)

const (
	MsgMissingFields = "Please fill all fields and record audio."
	MsgInFlight      = "A submission is already in progress."
	MsgSubmitted     = "Data submitted successfully!"
	MsgMicDenied     = "Microphone access was denied."
	MsgMicMissing    = "No microphone is available."
)

type Deps struct {
	Recorder recorder.Recorder
	Store    entries.Store
	Timeout  time.Duration
	Sink     EventSink
	// TimerOptions override the one-second ticker, mainly for tests.
	TimerOptions []capture.TimerOption
}

// App is the single owner of UI-visible state.
type App struct {
	Form    *submit.Form
	Timer   *capture.Timer
	Clips   *capture.ClipStore
	Session *capture.Session
	Cache   *entries.Cache
	Submit  *submit.Coordinator

	sinkMu sync.RWMutex
	sink   EventSink
}

func New(d Deps) *App {
	a := &App{
		Form:  &submit.Form{},
		Clips: capture.NewClipStore(),
		Cache: entries.NewCache(d.Store),
		sink:  d.Sink,
	}
	if a.sink == nil {
		a.sink = nopSink{}
	}
	timerOpts := append([]capture.TimerOption{capture.OnTick(a.tick)}, d.TimerOptions...)
	a.Timer = capture.NewTimer(timerOpts...)
	a.Session = capture.NewSession(d.Recorder, a.Timer, a.Clips, capture.WithNotify(a.changed))
	a.Submit = submit.NewCoordinator(submit.Deps{
		Store:   d.Store,
		Clips:   a.Clips,
		Form:    a.Form,
		Timer:   a.Timer,
		Cache:   a.Cache,
		Timeout: d.Timeout,
		Notify:  a.changed,
	})
	return a
}

// SetSink replaces the event sink; the TUI attaches itself after creation.
func (a *App) SetSink(s EventSink) {
	if s == nil {
		s = nopSink{}
	}
	a.sinkMu.Lock()
	a.sink = s
	a.sinkMu.Unlock()
	a.changed()
}

func (a *App) getSink() EventSink {
	a.sinkMu.RLock()
	defer a.sinkMu.RUnlock()
	return a.sink
}

// Load fetches the initial entry list. A failure leaves the list empty and
// raises no alert.
func (a *App) Load(ctx context.Context) {
	_ = a.Cache.Refresh(ctx)
	a.changed()
}

func (a *App) SetName(v string) {
	a.Form.SetName(v)
	a.changed()
}

func (a *App) SetAddress(v string) {
	a.Form.SetAddress(v)
	a.changed()
}

func (a *App) StartRecording(ctx context.Context) error {
	err := a.Session.Start(ctx)
	if err != nil {
		a.alert(startMessage(err))
	}
	return err
}

func (a *App) StopRecording() error {
	err := a.Session.Stop()
	if err != nil {
		log.Warnf("stop recording: %v", err)
	}
	return err
}

func (a *App) ToggleRecording(ctx context.Context) error {
	if a.Session.State() == capture.Capturing {
		return a.StopRecording()
	}
	return a.StartRecording(ctx)
}

// SubmitForm submits the current form fields with the current clip and
// alerts the user with the outcome.
func (a *App) SubmitForm(ctx context.Context) error {
	err := a.Submit.Submit(ctx, a.Form.Name(), a.Form.Address())
	switch {
	case err == nil:
		a.alert(MsgSubmitted)
	case errors.Is(err, submit.ErrValidation):
		a.alert(MsgMissingFields)
	case errors.Is(err, submit.ErrInFlight):
		a.alert(MsgInFlight)
	default:
		a.alert(err.Error())
	}
	return err
}

// Close detaches any running capture.
func (a *App) Close() {
	a.Session.Close()
	a.Timer.Stop()
	log.SessionEnd(a.Submit.Submitted())
}

func (a *App) Snapshot() Snapshot {
	s := Snapshot{
		State:      a.Session.State(),
		Elapsed:    a.Timer.Elapsed(),
		Name:       a.Form.Name(),
		Address:    a.Form.Address(),
		Submitting: a.Submit.Submitting(),
		Submitted:  a.Submit.Submitted(),
		Entries:    a.Cache.Entries(),
		Recorder:   a.Session.Recorder(),
	}
	if art, loc, ok := a.Clips.Current(); ok {
		s.Clip = &ClipInfo{
			Locator:   loc,
			MediaType: art.MediaType,
			Size:      len(art.Data),
			Elapsed:   art.Elapsed,
		}
	}
	return s
}

func (a *App) changed() {
	a.getSink().Changed(a.Snapshot())
}

func (a *App) tick(elapsed int) {
	a.getSink().Tick(elapsed)
}

func (a *App) alert(text string) {
	a.getSink().Alert(text)
}

func startMessage(err error) string {
	switch {
	case errors.Is(err, recorder.ErrPermissionDenied):
		return MsgMicDenied
	case errors.Is(err, recorder.ErrDeviceUnavailable):
		return MsgMicMissing
	default:
		return err.Error()
	}
}
