// Package statsui provides the Bubble Tea stats browser.
package statsui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/typerush/internal/model"
	"github.com/verte-zerg/typerush/internal/records"
	"github.com/verte-zerg/typerush/internal/stats"
)

const (
	tabOverview = iota
	tabHistory
	tabQuotes
)

const (
	filterQuote = iota
	filterReward
	filterSince
)

var sortCycle = []model.SortField{
	model.SortByDate,
	model.SortByWPM,
	model.SortByAccuracy,
	model.SortByTime,
	model.SortByErrors,
}

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Source is the local record store browsed by the UI.
type Source interface {
	Snapshot() model.PersonalStore
	Query(q model.HistoryQuery) model.HistoryPage
	BestPerQuote() []records.QuoteBest
}

// Config wires the browser to local data.
type Config struct {
	Records Source
	// Sources maps quote ids to their attribution.
	Sources    map[int]string
	RewardPool int
	TrendDays  int
	Now        func() time.Time
}

// Model implements the Bubble Tea stats browser.
type Model struct {
	src     Source
	sources map[int]string
	pool    int
	days    int
	now     func() time.Time

	dash  stats.Dashboard
	query model.HistoryQuery
	total int

	tabs      []string
	activeTab int
	overview  viewport.Model
	history   table.Model
	quotes    table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a stats browser model.
func NewModel(cfg Config) *Model {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	m := &Model{
		src:      cfg.Records,
		sources:  cfg.Sources,
		pool:     cfg.RewardPool,
		days:     cfg.TrendDays,
		now:      cfg.Now,
		query:    model.HistoryQuery{SortBy: model.SortByDate},
		tabs:     []string{"Overview", "History", "Quotes"},
		overview: viewport.New(0, 0),
		history:  newTable(historyColumns()),
		quotes:   newTable(quoteColumns()),
	}
	m.initInputs()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderOverview()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startFilter()
		case "s":
			m.query.SortBy = nextSort(m.query.SortBy)
			m.refreshHistory()
			return m, nil
		case "r":
			m.query.Ascending = !m.query.Ascending
			m.refreshHistory()
			return m, nil
		case "g", "home":
			m.gotoEdge(true)
			return m, nil
		case "G", "end":
			m.gotoEdge(false)
			return m, nil
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabHistory:
			m.history, cmd = m.history.Update(msg)
		case tabQuotes:
			m.quotes, cmd = m.quotes.Update(msg)
		default:
			m.overview, cmd = m.overview.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Quote id: "),
		newFilterInput("Reward: "),
		newFilterInput("Since (YYYY-MM-DD): "),
	}
	m.setInputsFromQuery()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(1),
	)
	t.SetStyles(tableStyles())
	return t
}

func historyColumns() []table.Column {
	return []table.Column{
		{Title: "Date", Width: 16},
		{Title: "Quote", Width: 5},
		{Title: "WPM", Width: 4},
		{Title: "Acc", Width: 5},
		{Title: "Time", Width: 8},
		{Title: "Errors", Width: 6},
		{Title: "Reward", Width: 12},
	}
}

func quoteColumns() []table.Column {
	return []table.Column{
		{Title: "Quote", Width: 5},
		{Title: "Source", Width: 28},
		{Title: "Best WPM", Width: 8},
		{Title: "Acc", Width: 5},
		{Title: "Date", Width: 10},
	}
}

func tableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.overview.Width = m.width
	m.overview.Height = bodyHeight
	for _, t := range []*table.Model{&m.history, &m.quotes} {
		t.SetWidth(m.width)
		t.SetHeight(maxInt(1, bodyHeight-1))
		adjustTableHeight(t, bodyHeight)
	}
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

// adjustTableHeight corrects the row count so the rendered table, header
// included, fills exactly bodyHeight lines.
func adjustTableHeight(t *table.Model, bodyHeight int) {
	target := maxInt(1, bodyHeight)
	for i := 0; i < 2; i++ {
		viewHeight := lipgloss.Height(t.View())
		if viewHeight == target {
			return
		}
		t.SetHeight(maxInt(1, t.Height()+target-viewHeight))
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.history.Blur()
	m.quotes.Blur()
	switch m.activeTab {
	case tabHistory:
		m.history.Focus()
	case tabQuotes:
		m.quotes.Focus()
	}
}

func (m *Model) gotoEdge(top bool) {
	switch m.activeTab {
	case tabHistory:
		if top {
			m.history.GotoTop()
		} else {
			m.history.GotoBottom()
		}
	case tabQuotes:
		if top {
			m.quotes.GotoTop()
		} else {
			m.quotes.GotoBottom()
		}
	default:
		if top {
			m.overview.GotoTop()
		} else {
			m.overview.GotoBottom()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	quote := "any"
	if m.query.QuoteID != nil {
		quote = strconv.Itoa(*m.query.QuoteID)
	}
	reward := "any"
	if m.query.RewardName != "" {
		reward = m.query.RewardName
	}
	since := "any"
	if m.query.Since != nil {
		since = m.query.Since.Format(time.DateOnly)
	}
	order := "desc"
	if m.query.Ascending {
		order = "asc"
	}
	summary := fmt.Sprintf("Filter: quote=%s  reward=%s  since=%s  sort=%s %s  races=%d",
		quote, reward, since, m.query.SortBy, order, m.total)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Sort: s  Reverse: r  Filter: /  Quit: q")
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Filter history (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	switch m.activeTab {
	case tabHistory:
		if len(m.history.Rows()) == 0 {
			return fitLines("No races found.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.history.View()), m.width, height)
	case tabQuotes:
		if len(m.quotes.Rows()) == 0 {
			return fitLines("No personal bests yet.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.quotes.View()), m.width, height)
	default:
		return fitLines(m.overview.View(), m.width, height)
	}
}

func (m *Model) refresh() {
	m.dash = stats.Build(m.src.Snapshot(), m.pool, m.now(), m.days)
	m.quotes.SetRows(quoteRows(m.src.BestPerQuote(), m.sources))
	m.refreshHistory()
	m.renderOverview()
}

func (m *Model) refreshHistory() {
	q := m.query
	q.Limit = 0
	page := m.src.Query(q)
	m.total = page.Total
	m.history.SetRows(historyRows(page.Records))
	m.history.GotoTop()
}

func (m *Model) renderOverview() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.overview.SetContent(renderOverview(m.dash, width))
}

func renderOverview(d stats.Dashboard, width int) string {
	if d.TotalRaces == 0 {
		return "No races yet."
	}
	var buf bytes.Buffer
	if err := stats.RenderDashboard(&buf, d, width); err != nil {
		return fmt.Sprintf("Failed to render stats: %v", err)
	}
	return strings.TrimRight(renderSummaryCards(d, width)+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(d stats.Dashboard, width int) string {
	cards := []string{
		metricCard("Races", strconv.Itoa(d.TotalRaces)),
		metricCard("Avg WPM", strconv.Itoa(d.AverageWPM)),
		metricCard("Best WPM", strconv.Itoa(d.BestWPM)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", d.AverageAccuracy)),
		metricCard("Time", d.TotalTime),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func historyRows(recs []model.RaceRecord) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, table.Row{
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(rec.QuoteID),
			strconv.Itoa(rec.WPM),
			fmt.Sprintf("%.0f%%", rec.Accuracy),
			stats.FormatTotalTime(rec.TimeSeconds),
			strconv.Itoa(rec.Errors),
			rec.RewardName,
		})
	}
	return rows
}

func quoteRows(bests []records.QuoteBest, sources map[int]string) []table.Row {
	rows := make([]table.Row, 0, len(bests))
	for _, b := range bests {
		rows = append(rows, table.Row{
			strconv.Itoa(b.QuoteID),
			sources[b.QuoteID],
			strconv.Itoa(b.WPM),
			fmt.Sprintf("%.0f%%", b.Accuracy),
			b.CreatedAt.Local().Format(time.DateOnly),
		})
	}
	return rows
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromQuery()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshHistory()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) setInputsFromQuery() {
	if len(m.filterInputs) == 0 {
		return
	}
	if m.query.QuoteID != nil {
		m.filterInputs[filterQuote].SetValue(strconv.Itoa(*m.query.QuoteID))
	} else {
		m.filterInputs[filterQuote].SetValue("")
	}
	m.filterInputs[filterReward].SetValue(m.query.RewardName)
	if m.query.Since != nil {
		m.filterInputs[filterSince].SetValue(m.query.Since.Format(time.DateOnly))
	} else {
		m.filterInputs[filterSince].SetValue("")
	}
}

func (m *Model) applyFilter() error {
	var quoteID *int
	if raw := strings.TrimSpace(m.filterInputs[filterQuote].Value()); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid quote id (use a positive integer)")
		}
		quoteID = &id
	}

	var since *time.Time
	if raw := strings.TrimSpace(m.filterInputs[filterSince].Value()); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	m.query.QuoteID = quoteID
	m.query.RewardName = strings.TrimSpace(m.filterInputs[filterReward].Value())
	m.query.Since = since
	return nil
}

func nextSort(cur model.SortField) model.SortField {
	for i, f := range sortCycle {
		if f == cur {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return model.SortByDate
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
