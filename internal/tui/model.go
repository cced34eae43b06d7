// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/race"
	"github.com/verte-zerg/typerush/internal/syncer"
)

const tickInterval = 100 * time.Millisecond

// SyncStatus reports the reconciler state shown in the footer.
type SyncStatus interface {
	Status() syncer.Status
}

// Config wires the UI to a typing session.
type Config struct {
	Session *race.Session
	Sync    SyncStatus
	// Player is shown in the footer when signed in.
	Player string
	// Quote starts the first race on a fixed quote instead of a random one.
	Quote *model.Quote
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	session *race.Session
	sync    SyncStatus
	player  string
	quote   *model.Quote
	bar     progress.Model

	width   int
	height  int
	ticking bool
	err     error
}

type tickMsg time.Time

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = pendingStyle.Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C89A3A"))
	recordStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#52C41A"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs a typing TUI model.
func NewModel(cfg Config) *Model {
	return &Model{
		session: cfg.Session,
		sync:    cfg.Sync,
		player:  cfg.Player,
		quote:   cfg.Quote,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		// Ticks only trigger a redraw of the clock and sync status.
		if m.needsTicks() {
			return m, tick()
		}
		m.ticking = false
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyTab:
		return m, m.startRace()
	}

	switch m.session.State() {
	case race.StateIdle, race.StateFinished:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeySpace {
			return m, m.startRace()
		}
		return m, nil
	case race.StateRacing:
		var runes []rune
		switch msg.Type {
		case tea.KeySpace:
			runes = []rune{' '}
		case tea.KeyRunes:
			runes = msg.Runes
		default:
			return m, nil
		}
		for _, r := range runes {
			if err := m.session.HandleKeyPress(context.Background(), r); err != nil {
				m.err = err
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) startRace() tea.Cmd {
	m.err = nil
	if m.quote != nil {
		m.session.StartQuote(*m.quote)
		m.quote = nil
	} else if _, err := m.session.StartRace(); err != nil {
		m.err = err
		return nil
	}
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tick()
}

func (m *Model) needsTicks() bool {
	if m.session.State() == race.StateRacing {
		return true
	}
	res := m.session.Result()
	return res != nil && res.Sync != nil && res.Sync.Status() == syncer.StatusPending
}

// View implements tea.Model.
func (m *Model) View() string {
	var content string
	switch m.session.State() {
	case race.StateRacing:
		content = m.raceView()
	case race.StateFinished:
		content = m.resultView()
	default:
		content = m.idleView()
	}
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 0
	}
	return max(1, int(float64(m.width)*0.70))
}

func (m *Model) idleView() string {
	lines := []string{titleStyle.Render("typerush"), ""}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.err.Error()), "")
	}
	lines = append(lines, pendingStyle.Render("enter: start race · esc: quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) raceView() string {
	styled := buildStyledRunes(m.session.Text(), m.session.Cursor(), m.session.LastKeyCorrect())
	width := m.contentWidth()
	text := wrapStyledRunes(styled, width)
	if width > 0 {
		text = lipgloss.NewStyle().Width(width).Render(text)
		m.bar.Width = width
	}
	q := m.session.Quote()
	lines := []string{
		m.bar.ViewAs(m.session.Progress()),
		"",
		text,
		"",
		footerStyle.Render(q.Source),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) resultView() string {
	res := m.session.Result()
	var lines []string
	if res == nil {
		lines = append(lines, titleStyle.Render("Race not recorded"))
		if m.err != nil {
			lines = append(lines, errorStyle.Render(m.err.Error()))
		}
		lines = append(lines, "", pendingStyle.Render("enter: next race · esc: quit"))
		return strings.Join(lines, "\n")
	}
	rec := res.Record
	lines = append(lines,
		titleStyle.Render("Race complete"),
		"",
		fmt.Sprintf("%d WPM · %.0f%% accuracy · %s · %d errors", rec.WPM, rec.Accuracy, res.FormattedTime, rec.Errors),
	)
	if rec.RewardName != "" {
		lines = append(lines, fmt.Sprintf("You caught %s!", rec.RewardName))
	}
	if res.IsNewOverallRecord {
		lines = append(lines, recordStyle.Render("New overall record!"))
	}
	if res.IsNewQuoteRecord {
		msg := "New best on this quote!"
		if res.PreviousRecord != nil {
			msg = fmt.Sprintf("New best on this quote! (was %d WPM)", res.PreviousRecord.WPM)
		}
		lines = append(lines, recordStyle.Render(msg))
	} else if res.PreviousRecord != nil {
		lines = append(lines, pendingStyle.Render(fmt.Sprintf("Best on this quote: %d WPM", res.PreviousRecord.WPM)))
	}
	if m.err != nil {
		lines = append(lines, errorStyle.Render("Failed to save race: "+m.err.Error()))
	}
	lines = append(lines, "", pendingStyle.Render("enter: next race · esc: quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	segments := []string{
		fmt.Sprintf("%d WPM", m.session.WPM()),
		fmt.Sprintf("%d%%", m.session.Accuracy()),
		m.session.FormattedTime(),
	}
	if typed, total := m.session.WordCount(); total > 0 {
		segments = append(segments, fmt.Sprintf("%d/%d words", typed, total))
	}
	if label := m.syncLabel(); label != "" {
		segments = append(segments, label)
	}
	if m.player != "" {
		segments = append(segments, m.player)
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) syncLabel() string {
	if res := m.session.Result(); res != nil && res.Sync != nil {
		return taskLabel(res.Sync)
	}
	if m.sync == nil {
		return ""
	}
	switch m.sync.Status() {
	case syncer.StatusPending:
		return "syncing"
	case syncer.StatusOK:
		return "synced"
	case syncer.StatusFailed:
		return "sync failed"
	default:
		return ""
	}
}

func taskLabel(task *syncer.Task) string {
	switch task.Status() {
	case syncer.StatusPending:
		return "syncing"
	case syncer.StatusOK:
		return "synced"
	case syncer.StatusFailed:
		return "sync failed"
	default:
		if errors.Is(task.Err(), syncer.ErrOffline) {
			return "offline"
		}
		return "saved locally"
	}
}
