package main

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"rekam/app"
	"rekam/beep"
	"rekam/entries"
	"rekam/recorder"
)

type emptyStore struct{}

func (emptyStore) ListEntries(ctx context.Context) ([]entries.Entry, error) { return nil, nil }
func (emptyStore) CreateEntry(context.Context, entries.NewEntry) error      { return nil }

func newTestModel() tuiModel {
	beep.Disable()
	a := app.New(app.Deps{Recorder: recorder.NewFake(), Store: emptyStore{}})
	return tuiModel{app: a, snap: a.Snapshot(), width: 80, height: 40}
}

func typeString(m tuiModel, s string) tuiModel {
	for _, r := range s {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(tuiModel)
	}
	return m
}

func TestTUITypingUpdatesForm(t *testing.T) {
	m := newTestModel()
	m = typeString(m, "Ann")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(tuiModel)
	m = typeString(m, "Elm")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyBackspace})
	m = next.(tuiModel)

	if got := m.app.Form.Name(); got != "Ann" {
		t.Errorf("name = %q", got)
	}
	if got := m.app.Form.Address(); got != "El" {
		t.Errorf("address = %q", got)
	}
}

func TestTUIAlertBlocksInput(t *testing.T) {
	m := newTestModel()
	next, _ := m.Update(AlertMsg{Text: "Please fill all fields and record audio."})
	m = next.(tuiModel)
	m = typeString(m, "x")
	if m.app.Form.Name() != "" {
		t.Error("typing went through while an alert was shown")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(tuiModel)
	if len(m.alerts) != 0 {
		t.Error("alert not dismissed")
	}
	m = typeString(m, "x")
	if m.app.Form.Name() != "x" {
		t.Error("typing blocked after dismissal")
	}
}

func TestTUIViewShowsTimer(t *testing.T) {
	m := newTestModel()
	if v := m.View(); !strings.Contains(v, "00:00") || !strings.Contains(v, "Form Data") {
		t.Errorf("view missing timer or title:\n%s", v)
	}
}
