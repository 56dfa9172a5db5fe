//go:build linux

package hotkey

import (
	"encoding/binary"
	"testing"
)

func TestComboFires(t *testing.T) {
	tests := []struct {
		name   string
		events [][2]int
		want   []bool
	}{
		{
			name:   "ctrl shift space",
			events: [][2]int{{keyLCtrl, 1}, {keyLShift, 1}, {keySpace, 1}},
			want:   []bool{false, false, true},
		},
		{
			name:   "right modifiers",
			events: [][2]int{{keyRShift, 1}, {keyRCtrl, 1}, {keySpace, 1}},
			want:   []bool{false, false, true},
		},
		{
			name:   "space without shift",
			events: [][2]int{{keyLCtrl, 1}, {keySpace, 1}},
			want:   []bool{false, false},
		},
		{
			name:   "autorepeat does not refire",
			events: [][2]int{{keyLCtrl, 1}, {keyLShift, 1}, {keySpace, 1}, {keySpace, 2}, {keySpace, 2}},
			want:   []bool{false, false, true, false, false},
		},
		{
			name:   "release and press again",
			events: [][2]int{{keyLCtrl, 1}, {keyLShift, 1}, {keySpace, 1}, {keySpace, 0}, {keySpace, 1}},
			want:   []bool{false, false, true, false, true},
		},
		{
			name:   "modifier released",
			events: [][2]int{{keyLCtrl, 1}, {keyLShift, 1}, {keyLShift, 0}, {keySpace, 1}},
			want:   []bool{false, false, false, false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c combo
			for i, ev := range tt.events {
				if got := c.feed(uint16(ev[0]), int32(ev[1])); got != tt.want[i] {
					t.Errorf("event %d %v: got %v, want %v", i, ev, got, tt.want[i])
				}
			}
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	b := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(b[16:], evKey)
	binary.LittleEndian.PutUint16(b[18:], keySpace)
	binary.LittleEndian.PutUint32(b[20:], 1)

	typ, code, value := decodeEvent(b)
	if typ != evKey || code != keySpace || value != 1 {
		t.Errorf("got (%d, %d, %d)", typ, code, value)
	}
}
