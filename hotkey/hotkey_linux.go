//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// evdev key codes and values
const (
	evKey = 1

	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keySpace  = 57

	valRelease = 0
	valPress   = 1
)

// input_event on 64-bit: timeval(16) type(2) code(2) value(4)
const inputEventSize = 24

var errNoKeyboards = errors.New("no keyboard devices found (is the user in the 'input' group?)")

// combo tracks modifier state across events from one keyboard.
type combo struct {
	ctrl, shift, space bool
}

// feed applies one key event and reports whether it completed the combination.
// Autorepeat events change nothing.
func (c *combo) feed(code uint16, value int32) bool {
	if value != valPress && value != valRelease {
		return false
	}
	down := value == valPress
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = down
	case keyLShift, keyRShift:
		c.shift = down
	case keySpace:
		fired := down && !c.space && c.ctrl && c.shift
		c.space = down
		return fired
	}
	return false
}

func decodeEvent(b []byte) (typ, code uint16, value int32) {
	return binary.LittleEndian.Uint16(b[16:]),
		binary.LittleEndian.Uint16(b[18:]),
		int32(binary.LittleEndian.Uint32(b[20:]))
}

type evdevHotkey struct {
	keydown chan struct{}
	files   []*os.File
	once    sync.Once
}

func New() Hotkey {
	return &evdevHotkey{keydown: make(chan struct{}, 1)}
}

func (h *evdevHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("scanning input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return errNoKeyboards
	}
	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		go h.read(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any of %d keyboard(s) (run: sudo usermod -aG input $USER, then re-login)", len(keyboards))
	}
	return nil
}

// read exits when Unregister closes f.
func (h *evdevHotkey) read(f *os.File) {
	buf := make([]byte, inputEventSize*16)
	var c combo
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for i := 0; i+inputEventSize <= n; i += inputEventSize {
			typ, code, value := decodeEvent(buf[i:])
			if typ != evKey || !c.feed(code, value) {
				continue
			}
			select {
			case h.keydown <- struct{}{}:
			default:
			}
		}
	}
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		for _, f := range h.files {
			f.Close()
		}
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }

func findKeyboards() ([]string, error) {
	dir, err := os.ReadDir("/dev/input")
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range dir {
		if strings.HasPrefix(e.Name(), "event") && hasKeys(e.Name()) {
			keyboards = append(keyboards, filepath.Join("/dev/input", e.Name()))
		}
	}
	return keyboards, nil
}

// hasKeys reports whether the device advertises a full key bitmap, which
// mice and power buttons do not.
func hasKeys(event string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", event, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("scanning input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errNoKeyboards
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s (%s)", len(keyboards), path, Combo), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER)", len(keyboards))
}
