package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/typerush/internal/generator"
	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/race"
	"github.com/verte-zerg/typerush/internal/records"
	"github.com/verte-zerg/typerush/internal/syncer"
)

type memKV struct {
	values map[string]string
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memKV) Remove(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

type fixedStatus syncer.Status

func (s fixedStatus) Status() syncer.Status { return syncer.Status(s) }

func newModel(t *testing.T, status SyncStatus) (*Model, *records.Store) {
	t.Helper()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	st, err := records.Open(context.Background(), &memKV{values: map[string]string{}}, now)
	if err != nil {
		t.Fatalf("open records: %v", err)
	}
	session := race.New(race.Config{
		Quotes:    []model.Quote{{ID: 1, Text: "hi you", Source: "Greeting"}},
		Rewards:   []string{"Mew"},
		Generator: generator.NewWithSeed(7),
		Records:   st,
		Now:       now,
	})
	return NewModel(Config{Session: session, Sync: status, Player: "Ash"}), st
}

func press(m *Model, keys string) {
	for _, r := range keys {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
		if r == ' ' {
			msg = tea.KeyMsg{Type: tea.KeySpace}
		}
		m.Update(msg)
	}
}

func TestRaceFlowThroughUpdate(t *testing.T) {
	m, st := newModel(t, nil)
	if !strings.Contains(m.View(), "enter: start race") {
		t.Fatalf("expected idle prompt, got %q", m.View())
	}
	press(m, "x")
	if m.session.State() != race.StateIdle {
		t.Fatalf("typing while idle must not start a race")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected starting a race to schedule a tick")
	}
	if m.session.State() != race.StateRacing {
		t.Fatalf("expected racing state")
	}
	if _, cmd := m.Update(tickMsg(time.Now())); cmd == nil {
		t.Fatalf("expected ticks to continue while racing")
	}

	press(m, "hx")
	if m.session.Cursor() != 1 || m.session.Errors() != 1 {
		t.Fatalf("unexpected cursor %d errors %d", m.session.Cursor(), m.session.Errors())
	}
	press(m, "i you")
	if m.session.State() != race.StateFinished {
		t.Fatalf("expected finished race")
	}
	if st.Len() != 1 {
		t.Fatalf("expected race to be saved")
	}
	view := m.View()
	for _, want := range []string{"Race complete", "You caught Mew!", "New overall record!"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
	if _, cmd := m.Update(tickMsg(time.Now())); cmd != nil {
		t.Fatalf("ticks must stop once nothing changes")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.session.State() != race.StateRacing {
		t.Fatalf("enter after a race must start the next one")
	}
}

func TestFooterShowsLiveStats(t *testing.T) {
	m, _ := newModel(t, fixedStatus(syncer.StatusFailed))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	press(m, "hi")
	footer := m.renderFooter()
	for _, want := range []string{"WPM", "100%", "1/2 words", "sync failed", "Ash"} {
		if !strings.Contains(footer, want) {
			t.Fatalf("expected %q in footer %q", want, footer)
		}
	}
}

func TestQuitKeys(t *testing.T) {
	m, _ := newModel(t, nil)
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd == nil {
			t.Fatalf("expected quit command for %v", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("expected quit message for %v", key)
		}
	}
}
