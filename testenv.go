package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"rekam/app"
	"rekam/beep"
	"rekam/capture"
	"rekam/config"
	"rekam/entries"
	"rekam/log"
	"rekam/recorder"
)

// lineSink prints alerts so scripted runs can assert on them.
type lineSink struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *lineSink) Changed(app.Snapshot) {}
func (s *lineSink) Tick(int)              {}

func (s *lineSink) Alert(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "ALERT\t%s\n", text)
}

func (s *lineSink) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// runTestMode drives the app from line commands on in:
//
//	NAME <text>, ADDRESS <text>, START, CHUNK <text>, STOP, WAIT,
//	SUBMIT, LIST, STATE, SLEEP <ms>, QUIT
//
// CHUNK only works with the scripted recorder.
func runTestMode(store entries.Store, cfg *config.Config, rec recorder.Recorder, in io.Reader, out io.Writer) int {
	beep.Disable()

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()
	log.SessionStart(rec.Name(), cfg.APIBase)

	sink := &lineSink{out: out}
	a := app.New(app.Deps{
		Recorder: rec,
		Store:    store,
		Timeout:  cfg.RequestTimeout,
		Sink:     sink,
	})
	defer a.Close()

	ctx := context.Background()
	a.Load(ctx)
	fake, _ := rec.(*recorder.Fake)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		switch strings.ToUpper(cmd) {
		case "":
		case "NAME":
			a.SetName(arg)
		case "ADDRESS":
			a.SetAddress(arg)
		case "START":
			a.StartRecording(ctx)
		case "CHUNK":
			if fake == nil || fake.Last() == nil {
				sink.printf("ERROR\tCHUNK needs the scripted recorder and a started capture\n")
				continue
			}
			fake.Last().Push([]byte(arg))
		case "STOP":
			a.StopRecording()
		case "WAIT":
			select {
			case <-a.Session.Finalized():
			case <-time.After(10 * time.Second):
				sink.printf("ERROR\ttimed out waiting for the clip\n")
			}
		case "SUBMIT":
			a.SubmitForm(ctx)
		case "LIST":
			for _, e := range a.Snapshot().Entries {
				sink.printf("ENTRY\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Address, e.AudioURL)
			}
		case "STATE":
			snap := a.Snapshot()
			clip := "-"
			if snap.Clip != nil {
				clip = fmt.Sprintf("%s:%d", snap.Clip.MediaType, snap.Clip.Size)
			}
			sink.printf("STATE\t%s\t%s\t%s\t%s\t%s\n", snap.State, capture.FormatElapsed(snap.Elapsed), snap.Name, snap.Address, clip)
		case "SLEEP":
			if ms, err := strconv.Atoi(arg); err == nil {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}
		case "QUIT":
			return 0
		default:
			sink.printf("ERROR\tunknown command %q\n", cmd)
		}
	}
	return 0
}
