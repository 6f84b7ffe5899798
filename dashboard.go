package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"go.uber.org/zap"
)

const (
	// How often the UI re-reads the published snapshot. Independent from the
	// poller interval, which controls how often Slurm itself is queried.
	redrawInterval = time.Second

	panelChromeWidth = 8
	minColumnWidth   = 4
	maxColumnWidth   = 32
	markerColumnW    = 2
	stateColumn      = "STATE"
	stdoutColumn     = "STDOUT"
)

type viewKind int

const (
	viewJobs viewKind = iota
	viewNodes
)

func (v viewKind) String() string {
	if v == viewNodes {
		return "Partitions"
	}
	return "Jobs"
}

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmCancel
	confirmClear
)

// KeyMap defines the keybindings.
type KeyMap struct {
	Quit          key.Binding
	Select        key.Binding
	ClearSel      key.Binding
	CancelSel     key.Binding
	MineFilter    key.Binding
	RunningFilter key.Binding
	SwitchView    key.Binding
	Inspect       key.Binding
	TailLogs      key.Binding
	Refresh       key.Binding
	Filter        key.Binding
	Pause         key.Binding
	Up            key.Binding
	Down          key.Binding
	ToggleHelp    key.Binding
}

var keys = KeyMap{
	Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Select:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	ClearSel:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear selection")),
	CancelSel:     key.NewBinding(key.WithKeys("backspace", "delete"), key.WithHelp("bksp", "cancel selected")),
	MineFilter:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "my jobs")),
	RunningFilter: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "running")),
	SwitchView:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "jobs/partitions")),
	Inspect:       key.NewBinding(key.WithKeys("enter", "d"), key.WithHelp("d/ent", "details")),
	TailLogs:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "tail stdout")),
	Refresh:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
	Filter:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
	Pause:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
	Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	ToggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Select, k.CancelSel, k.Filter, k.MineFilter, k.RunningFilter, k.SwitchView, k.ToggleHelp}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.ClearSel, k.CancelSel},
		{k.Filter, k.MineFilter, k.RunningFilter, k.SwitchView, k.Inspect},
		{k.TailLogs, k.Refresh, k.Pause, k.ToggleHelp, k.Quit},
	}
}

type tickMsg time.Time
type refreshedMsg struct{ err error }
type detailMsg struct {
	jobID  string
	record Record
	header []string
	err    error
}
type cancelDoneMsg struct {
	cancelled []string
	failures  []CancelFailure
}
type tailReadyMsg struct {
	jobID string
	path  string
	err   error
}

// Model is the rendering consumer of the Inspector. All Slurm state it draws
// comes from published snapshots; everything it changes goes through the
// Inspector's guarded operations.
type Model struct {
	inspector *Inspector
	runner    Runner
	log       *zap.Logger
	selection *Selection

	table        table.Model
	detailsTable table.Model
	filterInput  textinput.Model
	help         help.Model

	view      viewKind
	jobs      Snapshot
	nodes     Snapshot
	filtered  []Record
	updatedAt time.Time

	tailModel  TailModel
	inTailView bool
	tailLines  int

	inDetailView bool
	detailID     string
	detailState  string

	confirm   confirmKind
	paused    bool
	inputMode bool

	width  int
	height int

	err          error
	status       string
	statusExpiry time.Time
}

func NewModel(inspector *Inspector, runner Runner, cfg *Config, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}

	t := table.New(table.WithFocused(true), table.WithHeight(10))
	s := table.DefaultStyles()
	s.Header = tableHeaderStyle
	s.Selected = tableSelectedStyle
	t.SetStyles(s)

	dt := table.New(table.WithFocused(true), table.WithHeight(10))
	dt.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "Filter"
	ti.CharLimit = 50
	ti.Width = 20
	ti.Prompt = ""
	ti.PromptStyle = lipgloss.NewStyle().Foreground(subtle)
	ti.TextStyle = lipgloss.NewStyle().Foreground(textStrong)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(subtle)
	ti.Cursor.Style = lipgloss.NewStyle().Foreground(highlight)

	m := Model{
		inspector:    inspector,
		runner:       runner,
		log:          log,
		selection:    NewSelection(),
		table:        t,
		detailsTable: dt,
		filterInput:  ti,
		help:         help.New(),
		view:         viewJobs,
		tailLines:    cfg.TailLines,
	}

	m.readSnapshots()

	width, height := detectTerminalSize()
	m.applyWindowSize(width, height)

	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), initialWindowSizeCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if m.status != "" && time.Now().After(m.statusExpiry) {
		m.status = ""
	}

	if tick, ok := msg.(tickMsg); ok {
		cmds = append(cmds, m.tickCmd())
		if m.inTailView {
			m.tailModel, cmd = m.tailModel.Update(tick)
			cmds = append(cmds, cmd)
			return m, tea.Batch(cmds...)
		}
		if !m.paused {
			m.readSnapshots()
			m.rebuildTable()
		}
		return m, tea.Batch(cmds...)
	}

	if m.confirm != confirmNone {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "y", "Y":
				kind := m.confirm
				m.confirm = confirmNone
				if kind == confirmCancel {
					cmds = append(cmds, m.cancelSelectedCmd())
				} else {
					m.selection.Clear()
					m.rebuildTable()
				}
				return m, tea.Batch(cmds...)
			case "n", "N", "esc", "q":
				m.confirm = confirmNone
				return m, nil
			}
		}
		return m, nil
	}

	if m.inTailView {
		if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, tailKeys.Quit) {
			m.inTailView = false
			return m, m.refreshCmd()
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && key.Matches(keyMsg, tailKeys.ToggleHelp) {
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		if size, ok := msg.(tea.WindowSizeMsg); ok {
			m.applyWindowSize(size.Width, size.Height)
		}
		m.tailModel, cmd = m.tailModel.Update(msg)
		return m, cmd
	}

	if m.inDetailView {
		switch msg := msg.(type) {
		case tea.WindowSizeMsg:
			m.applyWindowSize(msg.Width, msg.Height)
			return m, nil
		case tea.KeyMsg:
			if key.Matches(msg, keys.ToggleHelp) {
				m.help.ShowAll = !m.help.ShowAll
				return m, nil
			}
			switch msg.String() {
			case "esc", "q", "d", "enter":
				m.inDetailView = false
				return m, nil
			case "y":
				if row := m.detailsTable.SelectedRow(); len(row) == 2 {
					m.setStatus("copied " + row[0])
					return m, osc52CopyCmd(row[1])
				}
				return m, nil
			}
		}
		m.detailsTable, cmd = m.detailsTable.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width
		height := msg.Height
		if width <= 0 || height <= 0 {
			// Some terminals briefly report zero dimensions during resizes.
			if m.width > 0 && m.height > 0 {
				width, height = m.width, m.height
			} else {
				width, height = detectTerminalSize()
			}
		}
		m.applyWindowSize(width, height)

	case refreshedMsg:
		m.err = msg.err
		m.readSnapshots()
		m.rebuildTable()

	case detailMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error())
			break
		}
		m.detailID = msg.jobID
		m.detailState, _ = msg.record.Get(stateColumn)
		m.detailsTable.SetRows(detailRows(msg.record, msg.header))
		m.detailsTable.SetCursor(0)
		m.inDetailView = true

	case cancelDoneMsg:
		for _, id := range msg.cancelled {
			m.selection.Remove(id)
		}
		if len(msg.failures) > 0 {
			m.log.Warn("batch cancel incomplete",
				zap.Int("cancelled", len(msg.cancelled)),
				zap.Int("failed", len(msg.failures)))
			first := msg.failures[0]
			text := fmt.Sprintf("cancel failed for %s: %s", first.JobID, first.Stderr)
			if len(msg.failures) > 1 {
				text = fmt.Sprintf("%s (+%d more)", text, len(msg.failures)-1)
			}
			m.setStatus(text)
		} else if len(msg.cancelled) > 0 {
			m.setStatus(fmt.Sprintf("cancelled %d job(s)", len(msg.cancelled)))
		}
		m.rebuildTable()
		cmds = append(cmds, m.refreshCmd())

	case tailReadyMsg:
		if msg.err != nil {
			m.setStatus(msg.err.Error())
			break
		}
		m.tailModel = NewTailModel(m.runner, msg.jobID, msg.path, m.tailLines, m.width, m.height)
		m.inTailView = true
		cmds = append(cmds, m.tailModel.Init())

	case tea.KeyMsg:
		if m.inputMode {
			switch msg.String() {
			case "enter", "esc":
				m.inputMode = false
				m.table.Focus()
				m.filterInput.Blur()
			default:
				m.filterInput, cmd = m.filterInput.Update(msg)
				cmds = append(cmds, cmd)
				m.rebuildTable()
				return m, tea.Batch(cmds...)
			}
			return m, tea.Batch(cmds...)
		}

		switch {
		case key.Matches(msg, keys.ToggleHelp):
			m.help.ShowAll = !m.help.ShowAll
			m.applyWindowSize(m.width, m.height)
			return m, nil

		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Filter):
			if m.view == viewJobs {
				m.inputMode = true
				m.filterInput.Focus()
				m.table.Blur()
			}
			return m, nil

		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused

		case key.Matches(msg, keys.Refresh):
			cmds = append(cmds, m.refreshCmd())

		case key.Matches(msg, keys.SwitchView):
			if m.view == viewJobs {
				m.view = viewNodes
				cmds = append(cmds, m.refreshNodesCmd())
			} else {
				m.view = viewJobs
			}
			m.rebuildTable()

		case key.Matches(msg, keys.MineFilter):
			m.inspector.ToggleUserFilter()
			cmds = append(cmds, m.refreshCmd())

		case key.Matches(msg, keys.RunningFilter):
			m.inspector.ToggleRunningFilter()
			cmds = append(cmds, m.refreshCmd())

		case key.Matches(msg, keys.Select):
			if m.view == viewJobs {
				if id := m.cursorJobID(); id != "" {
					m.selection.Toggle(id)
					m.rebuildTable()
					m.table.MoveDown(1)
				}
			}

		case key.Matches(msg, keys.ClearSel):
			if m.view == viewJobs && m.selection.Len() > 0 {
				m.confirm = confirmClear
			}

		case key.Matches(msg, keys.CancelSel):
			if m.view == viewJobs && m.selection.Len() > 0 {
				m.confirm = confirmCancel
			}

		case key.Matches(msg, keys.Inspect):
			if m.view == viewJobs {
				if id := m.cursorJobID(); id != "" {
					cmds = append(cmds, m.detailCmd(id))
				}
			}

		case key.Matches(msg, keys.TailLogs):
			if m.view == viewJobs {
				if id := m.cursorJobID(); id != "" {
					m.setStatus("resolving stdout path for " + id)
					cmds = append(cmds, m.openTailCmd(id))
				}
			}

		default:
			// Unbound keys go to the table for cursor movement.
			m.table, cmd = m.table.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, tea.Batch(cmds...)
}

// readSnapshots copies the current snapshot references out of the Inspector.
// The snapshots themselves are immutable, so everything after this is
// lock-free.
func (m *Model) readSnapshots() {
	m.jobs, m.updatedAt = m.inspector.Jobs()
	if nodes, at := m.inspector.Nodes(); !at.IsZero() {
		m.nodes = nodes
	}
	if err := m.inspector.LastError(); err != nil {
		m.err = err
	} else if _, isQuery := m.err.(*QueryError); isQuery {
		// Background refresh recovered; drop the stale banner.
		m.err = nil
	}
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusExpiry = time.Now().Add(4 * time.Second)
}

func (m *Model) cursorJobID() string {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return ""
	}
	return m.filtered[i].ID()
}

// rebuildTable rederives the display rows from the current snapshot, filter
// text and selection. Never cached: every snapshot swap invalidates it.
func (m *Model) rebuildTable() {
	snap := m.jobs
	if m.view == viewNodes {
		snap = m.nodes
		m.filtered = snap.Rows
	} else {
		m.filtered = FilterJobs(snap, m.filterInput.Value())
	}

	contentWidth := m.tableContentWidth()
	cols := columnsForSnapshot(snap.Header, m.filtered, contentWidth)

	rows := make([]table.Row, 0, len(m.filtered))
	for _, rec := range m.filtered {
		row := make(table.Row, 0, len(cols))
		marker := " "
		if m.view == viewJobs && m.selection.Has(rec.ID()) {
			marker = markedRowStyle.Render("●")
		}
		row = append(row, marker)
		for _, h := range snap.Header {
			v, _ := rec.Get(h)
			row = append(row, v)
		}
		rows = append(rows, row)
	}

	cursor := m.table.Cursor()
	m.table.SetRows([]table.Row{})
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if cursor >= len(rows) {
		cursor = len(rows) - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	m.table.SetCursor(cursor)
}

// columnsForSnapshot sizes one table column per header token, plus a leading
// selection-marker column. Columns get their natural content width, shrunk
// from the widest down when the window cannot fit them.
func columnsForSnapshot(header []string, rows []Record, contentWidth int) []table.Column {
	cols := []table.Column{{Title: " ", Width: markerColumnW}}
	if len(header) == 0 {
		return cols
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
		if widths[i] < minColumnWidth {
			widths[i] = minColumnWidth
		}
	}
	for _, rec := range rows {
		for i, h := range header {
			if v, ok := rec.Get(h); ok {
				if w := runewidth.StringWidth(v); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	available := contentWidth - markerColumnW - 2*len(header)
	if available < len(header)*minColumnWidth {
		available = len(header) * minColumnWidth
	}

	total := 0
	for i := range widths {
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
		total += widths[i]
	}

	// Shrink the widest column until everything fits.
	for total > available {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			break
		}
		widths[widest]--
		total--
	}

	for i, h := range header {
		cols = append(cols, table.Column{Title: h, Width: widths[i]})
	}
	return cols
}

// detailRows orders a detail record by its header, skipping columns that were
// absent from the row. Absent stays distinct from empty: an empty value shows
// as "(empty)", an absent column does not show at all.
func detailRows(rec Record, header []string) []table.Row {
	rows := make([]table.Row, 0, len(header))
	for _, h := range header {
		v, ok := rec.Get(h)
		if !ok {
			continue
		}
		if v == "" {
			v = "(empty)"
		}
		rows = append(rows, table.Row{h, v})
	}
	return rows
}

func (m Model) View() string {
	if m.inTailView {
		return lipgloss.JoinVertical(lipgloss.Left,
			m.tailModel.View(),
			m.help.View(tailKeys),
		)
	}

	if m.inDetailView {
		return m.viewDetailOverlay()
	}

	if m.confirm != confirmNone {
		text := fmt.Sprintf("Clear selection of %d job(s)?\n\n[y/N]", m.selection.Len())
		if m.confirm == confirmCancel {
			text = fmt.Sprintf("Cancel %d selected job(s)?\n\n[y/N]", m.selection.Len())
		}
		return lipgloss.Place(m.width, m.height,
			lipgloss.Center, lipgloss.Center,
			dialogStyle.Render(text),
		)
	}

	header := m.renderHeaderArea()
	tablePanel := m.renderTablePanel()
	helpSection := m.help.View(keys)

	sections := []string{header, tablePanel, helpSection}
	if line := m.statusLine(); line != "" {
		sections = append(sections, line)
	}

	view := lipgloss.JoinVertical(lipgloss.Left, sections...)
	view = clampViewHeight(view, m.height)
	view = clampViewWidth(view, m.width)
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, view)
}

func (m Model) renderHeaderArea() string {
	required := []string{
		filterBoxStyle.Render(m.filterInput.View()),
		metaPillStyle.Render(m.view.String()),
	}

	minePill := metaMutedPillStyle.Render("Mine")
	if m.inspector.UserFilterOn() {
		minePill = metaActivePillStyle.Render("Mine")
	}
	runningPill := metaMutedPillStyle.Render("Running")
	if m.inspector.RunningFilterOn() {
		runningPill = metaActivePillStyle.Render("Running")
	}
	required = append(required, minePill, runningPill)

	if m.selection.Len() > 0 {
		required = append(required, metaPillStyle.Render(fmt.Sprintf("[%d] Selected", m.selection.Len())))
	}
	if m.paused {
		required = append(required, metaMutedPillStyle.Background(accentOrange).Render("Paused"))
	}
	if m.err != nil {
		required = append(required, metaAlertPillStyle.Render("Error "+shortenText(m.err.Error(), 32)))
	}

	optional := []string{}
	if m.view == viewJobs && m.width >= 90 {
		if pill := m.jobStatsPill(); pill != "" {
			optional = append(optional, pill)
		}
	}
	if !m.updatedAt.IsZero() {
		optional = append(optional, metaMutedPillStyle.Render("Updated "+m.updatedAt.Format("15:04:05")))
	}

	parts := append([]string{}, required...)
	parts = append(parts, optional...)
	for len(parts) > 0 && lipgloss.Width(joinWithGap(parts, 1)) > m.width {
		parts = parts[:len(parts)-1]
	}

	return lipgloss.NewStyle().MaxWidth(m.width).Render(joinWithGap(parts, 1))
}

type jobStats struct {
	Running   int
	Pending   int
	Completed int
	Failed    int
	Other     int
}

func (m Model) collectJobStats() jobStats {
	stats := jobStats{}
	for _, rec := range m.filtered {
		state, _ := rec.Get(stateColumn)
		switch StateCode(state) {
		case "R", "CG":
			stats.Running++
		case "PD", "CF", "PR", "RQ", "RS", "S", "ST", "RH", "RF":
			stats.Pending++
		case "CD":
			stats.Completed++
		case "F", "TO", "NF", "OOM", "CA":
			stats.Failed++
		default:
			stats.Other++
		}
	}
	return stats
}

func (m Model) jobStatsPill() string {
	stats := m.collectJobStats()
	parts := []string{}
	if stats.Running > 0 {
		parts = append(parts, fmt.Sprintf("R%d", stats.Running))
	}
	if stats.Pending > 0 {
		parts = append(parts, fmt.Sprintf("P%d", stats.Pending))
	}
	if stats.Failed > 0 {
		parts = append(parts, fmt.Sprintf("F%d", stats.Failed))
	}
	if stats.Completed > 0 {
		parts = append(parts, fmt.Sprintf("C%d", stats.Completed))
	}
	if stats.Other > 0 {
		parts = append(parts, fmt.Sprintf("O%d", stats.Other))
	}
	if len(parts) == 0 {
		return ""
	}
	return metaMutedPillStyle.Render(strings.Join(parts, " "))
}

func (m Model) renderTablePanel() string {
	title := panelTitleStyle.Render(fmt.Sprintf("%s (%d)", m.view.String(), len(m.filtered)))
	if m.inputMode {
		title = lipgloss.JoinHorizontal(lipgloss.Left, title,
			filterHintStyle.Render("  filtering - enter/esc to leave"))
	}

	style := listStyle
	if w := m.tableBlockWidth(); w > 0 {
		style = style.Width(w)
	}
	if !m.inputMode {
		style = style.BorderForeground(highlight)
	}

	body := m.table.View()
	if len(m.filtered) == 0 {
		body = placeholderStyle.Render("No rows to display.")
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(body))
}

func (m Model) viewDetailOverlay() string {
	titlePill := metaPillStyle.Render("Details " + m.detailID)
	badge := renderStateBadge(m.detailState)
	hint := metaMutedPillStyle.Render("Esc/q/d close")
	top := joinWithGap([]string{titlePill, badge, hint}, 1)
	top = lipgloss.NewStyle().MaxWidth(m.width).Render(top)

	reserved := lipgloss.Height(top) + lipgloss.Height(m.help.View(keys))
	bodyH := m.height - reserved
	if bodyH < 5 {
		bodyH = 5
	}

	w := m.width - panelChromeWidth
	if w < 10 {
		w = 10
	}
	keyW := (w * 25) / 100
	if keyW < 8 {
		keyW = 8
	}
	valW := w - keyW - 1
	if valW < 1 {
		valW = 1
	}
	dt := m.detailsTable
	dt.SetWidth(w)
	dt.SetColumns([]table.Column{
		{Title: "Key", Width: keyW},
		{Title: "Value", Width: valW},
	})
	dt.SetHeight(bodyH - 3)

	panel := detailsStyle.Width(m.width - 2).Render(dt.View())

	view := lipgloss.JoinVertical(lipgloss.Left, top, panel, m.help.View(keys))
	view = clampViewHeight(view, m.height)
	view = clampViewWidth(view, m.width)
	return lipgloss.Place(m.width, m.height, lipgloss.Left, lipgloss.Top, view)
}

func renderStateBadge(state string) string {
	code := StateCode(state)
	if code == "" {
		return ""
	}
	caption := strings.ToUpper(strings.TrimSpace(state))
	if caption != code {
		caption = fmt.Sprintf("%s (%s)", caption, code)
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(textOnAccent).
		Background(statusColor(code)).
		Render(caption)
}

func (m Model) statusLine() string {
	if m.status == "" {
		return ""
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(statusLineStyle.Render(m.status))
}

func (m Model) tableBlockWidth() int {
	w := m.width - 2
	if w < 1 {
		w = 1
	}
	return w
}

func (m Model) tableContentWidth() int {
	w := m.tableBlockWidth() - 4
	if w < 10 {
		w = 10
	}
	return w
}

func (m *Model) applyWindowSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	m.width = width
	m.height = height

	m.help.Width = width - 2

	switch {
	case width >= 110:
		m.filterInput.Width = 20
	case width >= 80:
		m.filterInput.Width = 12
	default:
		m.filterInput.Width = 10
	}

	headerHeight := lipgloss.Height(m.renderHeaderArea())
	helpHeight := lipgloss.Height(m.help.View(keys))
	reserved := headerHeight + helpHeight + 1 // panel title

	_, frameHeight := listStyle.GetFrameSize()
	tableHeight := height - reserved - frameHeight
	if tableHeight < minContentHeight {
		tableHeight = minContentHeight
	}
	m.table.SetHeight(tableHeight)
	m.table.SetWidth(m.tableContentWidth())

	if m.inTailView {
		m.tailModel.width = width
		m.tailModel.height = height
	}

	m.rebuildTable()
}

const minContentHeight = 3

// --- Commands ---

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(redrawInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func initialWindowSizeCmd() tea.Cmd {
	return func() tea.Msg {
		width, height := detectTerminalSize()
		return tea.WindowSizeMsg{Width: width, Height: height}
	}
}

func detectTerminalSize() (int, int) {
	width, height, err := term.GetSize(os.Stdout.Fd())
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24
	}
	return width, height
}

// refreshCmd triggers an on-demand refresh of whatever view is showing. It
// goes through the same guarded Inspector path as the Poller's scheduled
// refresh, so the two interleave safely.
func (m Model) refreshCmd() tea.Cmd {
	view := m.view
	inspector := m.inspector
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if view == viewNodes {
			err = inspector.RefreshNodes(ctx)
		} else {
			err = inspector.RefreshJobs(ctx)
		}
		return refreshedMsg{err: err}
	}
}

func (m Model) refreshNodesCmd() tea.Cmd {
	inspector := m.inspector
	return func() tea.Msg {
		return refreshedMsg{err: inspector.RefreshNodes(context.Background())}
	}
}

func (m Model) detailCmd(jobID string) tea.Cmd {
	inspector := m.inspector
	return func() tea.Msg {
		rec, header, err := inspector.JobDetail(context.Background(), jobID)
		return detailMsg{jobID: jobID, record: rec, header: header, err: err}
	}
}

func (m Model) cancelSelectedCmd() tea.Cmd {
	ids := m.selection.IDs()
	inspector := m.inspector
	return func() tea.Msg {
		pending := NewSelectionFrom(ids)
		failures := CancelSelected(context.Background(), inspector, pending)
		cancelled := make([]string, 0, len(ids))
		for _, id := range ids {
			if !pending.Has(id) {
				cancelled = append(cancelled, id)
			}
		}
		return cancelDoneMsg{cancelled: cancelled, failures: failures}
	}
}

func (m Model) openTailCmd(jobID string) tea.Cmd {
	inspector := m.inspector
	return func() tea.Msg {
		rec, _, err := inspector.JobDetail(context.Background(), jobID)
		if err != nil {
			return tailReadyMsg{jobID: jobID, err: err}
		}
		path, ok := rec.Get(stdoutColumn)
		if !ok || path == "" {
			return tailReadyMsg{jobID: jobID, err: fmt.Errorf("job %s has no stdout path", jobID)}
		}
		return tailReadyMsg{jobID: jobID, path: path}
	}
}

// --- Render helpers ---

func joinWithGap(parts []string, gap int) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	if len(filtered) == 0 {
		return ""
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	if gap <= 0 {
		return lipgloss.JoinHorizontal(lipgloss.Left, filtered...)
	}
	spacer := lipgloss.NewStyle().Width(gap).Render(" ")
	row := filtered[0]
	for _, part := range filtered[1:] {
		row = lipgloss.JoinHorizontal(lipgloss.Left, row, spacer, part)
	}
	return row
}

func shortenText(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func clampViewWidth(view string, width int) string {
	if width <= 0 {
		return view
	}
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if lipgloss.Width(line) > width {
			lines[i] = truncate.String(line, uint(width))
		}
	}
	return strings.Join(lines, "\n")
}

func clampViewHeight(view string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(strings.ReplaceAll(view, "\r\n", "\n"), "\n")
	if len(lines) <= height {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:height], "\n")
}
