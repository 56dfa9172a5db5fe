package capture

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestClipStoreSetReplaces(t *testing.T) {
	c := NewClipStore()
	first := c.Set(Artifact{Data: []byte("one"), MediaType: "audio/webm"})
	if !strings.HasPrefix(first, "blob:rekam/") {
		t.Errorf("locator = %q", first)
	}
	second := c.Set(Artifact{Data: []byte("two"), MediaType: "audio/webm"})
	if first == second {
		t.Fatal("locators should differ")
	}

	if _, err := c.Open(first); !errors.Is(err, ErrLocatorExpired) {
		t.Errorf("Open(first) err = %v, want ErrLocatorExpired", err)
	}
	r, err := c.Open(second)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(r)
	if string(b) != "two" {
		t.Errorf("data = %q", b)
	}
}

func TestClipStoreClearIf(t *testing.T) {
	c := NewClipStore()
	old := c.Set(Artifact{Data: []byte("a")})
	cur := c.Set(Artifact{Data: []byte("b")})

	if c.ClearIf(old) {
		t.Error("ClearIf with stale locator should not clear")
	}
	if _, _, ok := c.Current(); !ok {
		t.Fatal("store emptied by stale ClearIf")
	}
	if !c.ClearIf(cur) {
		t.Error("ClearIf with current locator should clear")
	}
	if _, loc, ok := c.Current(); ok || loc != "" {
		t.Errorf("Current after clear = %q, %v", loc, ok)
	}
	if _, err := c.Open(cur); !errors.Is(err, ErrLocatorExpired) {
		t.Errorf("Open after clear err = %v", err)
	}
}

func TestClipStoreClear(t *testing.T) {
	c := NewClipStore()
	c.Set(Artifact{Data: []byte("x")})
	c.Clear()
	a, _, ok := c.Current()
	if ok || !a.Empty() {
		t.Errorf("Current after Clear = %+v, %v", a, ok)
	}
}
