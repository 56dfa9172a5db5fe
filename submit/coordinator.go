// Package submit validates a filled-in form and uploads it with the recorded
// clip to the remote store.
package submit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"rekam/capture"
	"rekam/entries"
	"rekam/log"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrInFlight   = errors.New("a submission is already in progress")
)

const (
	FieldName      = "name"
	FieldAddress   = "address"
	FieldRecording = "recording"
)

// ValidationError lists the fields that were missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "please fill all fields and record audio (missing: " + strings.Join(e.Missing, ", ") + ")"
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UploadError wraps a failed CreateEntry call.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "submission failed: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

type ClipSource interface {
	Current() (capture.Artifact, string, bool)
	ClearIf(locator string) bool
}

type Refresher interface {
	Refresh(ctx context.Context) error
}

type Resetter interface {
	Reset()
}

type Coordinator struct {
	store   entries.Store
	clips   ClipSource
	form    *Form
	timer   Resetter
	cache   Refresher
	timeout time.Duration
	notify  func()

	mu         sync.Mutex
	submitting bool
	submitted  int
}

type Deps struct {
	Store   entries.Store
	Clips   ClipSource
	Form    *Form
	Timer   Resetter
	Cache   Refresher
	Timeout time.Duration
	// Notify runs when the in-flight state changes.
	Notify func()
}

func NewCoordinator(d Deps) *Coordinator {
	if d.Timeout <= 0 {
		d.Timeout = entries.DefaultTimeout
	}
	return &Coordinator{
		store:   d.Store,
		clips:   d.Clips,
		form:    d.Form,
		timer:   d.Timer,
		cache:   d.Cache,
		timeout: d.Timeout,
		notify:  d.Notify,
	}
}

func (c *Coordinator) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Submitted is the number of successful submissions so far.
func (c *Coordinator) Submitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Validate reports the missing fields without touching the network.
func Validate(name, address string, artifact capture.Artifact, present bool) error {
	var missing []string
	if strings.TrimSpace(name) == "" {
		missing = append(missing, FieldName)
	}
	if strings.TrimSpace(address) == "" {
		missing = append(missing, FieldAddress)
	}
	if !present || artifact.Empty() {
		missing = append(missing, FieldRecording)
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Submit uploads name, address and the current clip. On success the clip,
// the form and the timer display are reset and the entry list refreshed; on
// failure nothing local changes.
func (c *Coordinator) Submit(ctx context.Context, name, address string) error {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrInFlight
	}
	artifact, locator, present := c.clips.Current()
	if err := Validate(name, address, artifact, present); err != nil {
		c.mu.Unlock()
		return err
	}
	c.submitting = true
	c.mu.Unlock()
	c.changed()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.store.CreateEntry(reqCtx, entries.NewEntry{
		Name:      name,
		Address:   address,
		Audio:     artifact.Data,
		MediaType: artifact.MediaType,
	})
	cancel()

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		c.submitted++
	}
	c.mu.Unlock()

	if err != nil {
		log.SubmitResult(false, err)
		c.changed()
		return &UploadError{Err: err}
	}

	log.SubmitResult(true, nil)
	log.SubmissionText(name, address, locator)
	c.form.Clear()
	// a capture started during the upload keeps its clip and its timer
	if c.clips.ClearIf(locator) {
		c.timer.Reset()
	}
	c.changed()

	refreshCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	// failures are logged by the cache and leave it empty
	_ = c.cache.Refresh(refreshCtx)
	c.changed()
	return nil
}

func (c *Coordinator) changed() {
	if c.notify != nil {
		c.notify()
	}
}
