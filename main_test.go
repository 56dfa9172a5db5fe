package main

import (
	"sync"
	"testing"

	"rekam/app"
	"rekam/recorder"
)

func TestGracefulShutdownReleasesBeforeExit(t *testing.T) {
	var (
		order []string
		code  = -1
	)
	exit = func(c int) {
		order = append(order, "exit")
		code = c
	}
	shutdownOnce = sync.Once{}
	t.Cleanup(func() {
		exit = osExit
		shutdownOnce = sync.Once{}
	})

	a := app.New(app.Deps{Recorder: recorder.NewFake(), Store: emptyStore{}})
	release := func() { order = append(order, "release") }

	gracefulShutdown(a, release, 3)
	gracefulShutdown(a, release, 0)

	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if len(order) != 2 || order[0] != "release" || order[1] != "exit" {
		t.Errorf("order = %v, want [release exit]", order)
	}
}
