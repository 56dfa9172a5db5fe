// Package hotkey registers a system-wide key combination that toggles
// recording while the terminal does not have focus.
package hotkey

import (
	"context"
	"fmt"
)

// Combo is the global toggle combination.
const Combo = "Ctrl+Shift+Space"

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
}

// Watch registers hk and calls onPress for every keydown until ctx is done.
// hk is unregistered when the watch ends.
func Watch(ctx context.Context, hk Hotkey, onPress func()) error {
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register %s: %w", Combo, err)
	}
	go func() {
		defer hk.Unregister()
		for {
			select {
			case <-ctx.Done():
				return
			case <-hk.Keydown():
				onPress()
			}
		}
	}()
	return nil
}
