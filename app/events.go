package app

import (
	"rekam/capture"
	"rekam/entries"
)

// EventSink abstracts the display layer so the TUI and the headless test
// mode receive the same state changes.
type EventSink interface {
	// Changed delivers a fresh snapshot after any state change.
	Changed(s Snapshot)
	// Tick reports the elapsed seconds while recording.
	Tick(elapsed int)
	// Alert is a blocking notification the user must acknowledge.
	Alert(text string)
}

type ClipInfo struct {
	Locator   string
	MediaType string
	Size      int
	Elapsed   int
}

type Snapshot struct {
	State      capture.State
	Elapsed    int
	Name       string
	Address    string
	Clip       *ClipInfo
	Submitting bool
	Submitted  int
	Entries    []entries.Entry
	Recorder   string
}

type nopSink struct{}

func (nopSink) Changed(Snapshot) {}
func (nopSink) Tick(int)         {}
func (nopSink) Alert(string)     {}
