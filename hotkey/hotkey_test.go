package hotkey

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWatchCallsOnPress(t *testing.T) {
	hk := NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pressed := make(chan struct{}, 2)
	if err := Watch(ctx, hk, func() { pressed <- struct{}{} }); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		hk.SimKeydown()
		select {
		case <-pressed:
		case <-time.After(2 * time.Second):
			t.Fatalf("press %d not delivered", i+1)
		}
	}
}

func TestWatchUnregistersOnCancel(t *testing.T) {
	hk := NewFake()
	ctx, cancel := context.WithCancel(context.Background())
	if err := Watch(ctx, hk, func() {}); err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case <-hk.Unregistered():
	case <-time.After(2 * time.Second):
		t.Fatal("hotkey not unregistered after cancel")
	}
}

func TestWatchRegisterError(t *testing.T) {
	hk := NewFake()
	boom := errors.New("no display")
	hk.FailRegister(boom)

	err := Watch(context.Background(), hk, func() { t.Error("onPress called") })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}
