package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// TailKeyMap defines keybindings for the tail view.
type TailKeyMap struct {
	Quit       key.Binding
	Follow     key.Binding
	Bottom     key.Binding
	Top        key.Binding
	Reload     key.Binding
	CopyAll    key.Binding
	ToggleHelp key.Binding
}

func (k TailKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Follow, k.Reload, k.Bottom, k.Top, k.CopyAll, k.ToggleHelp}
}

func (k TailKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Follow, k.Reload, k.Bottom, k.Top},
		{k.CopyAll, k.ToggleHelp, k.Quit},
	}
}

var tailKeys = TailKeyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q/esc", "back")),
	Follow:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "follow")),
	Bottom:     key.NewBinding(key.WithKeys("b", "G"), key.WithHelp("b/G", "bottom")),
	Top:        key.NewBinding(key.WithKeys("t", "g"), key.WithHelp("t/g", "top")),
	Reload:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reload")),
	CopyAll:    key.NewBinding(key.WithKeys("Y", "ctrl+y"), key.WithHelp("Y", "copy all")),
	ToggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
}

type tailChunkMsg struct {
	lines []string
	err   error
}

// TailModel shows the last lines of a job's stdout file. Content comes from
// the external tail command rather than an open file handle, so remote or
// rotated logs behave the same as a plain file and nothing is left open when
// the view closes. While following, the content is re-fetched on the main
// redraw tick.
type TailModel struct {
	jobID string
	path  string
	count int

	runner Runner

	view   viewport.Model
	lines  []string
	follow bool
	err    error

	width  int
	height int
}

func NewTailModel(runner Runner, jobID, path string, count, width, height int) TailModel {
	m := TailModel{
		jobID:  jobID,
		path:   path,
		count:  count,
		runner: runner,
		follow: true,
		width:  width,
		height: height,
	}
	m.view = viewport.New(m.contentWidth(), m.contentHeight())
	return m
}

func (m TailModel) Init() tea.Cmd {
	return m.fetchCmd()
}

func (m TailModel) fetchCmd() tea.Cmd {
	return func() tea.Msg {
		lines, err := TailFile(context.Background(), m.runner, m.count, m.path)
		return tailChunkMsg{lines: lines, err: err}
	}
}

func (m TailModel) contentWidth() int {
	w := m.width - panelChromeWidth
	if w < 10 {
		w = 10
	}
	return w
}

func (m TailModel) contentHeight() int {
	// Room for the title row, the help row and the panel border.
	h := m.height - 6
	if h < 3 {
		h = 3
	}
	return h
}

func (m TailModel) Update(msg tea.Msg) (TailModel, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		m.view.Width = m.contentWidth()
		m.view.Height = m.contentHeight()
		m.setContent()

	case tickMsg:
		if m.follow {
			cmds = append(cmds, m.fetchCmd())
		}

	case tailChunkMsg:
		m.err = msg.err
		if msg.err == nil {
			m.lines = msg.lines
			m.setContent()
			if m.follow {
				m.view.GotoBottom()
			}
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, tailKeys.Follow):
			m.follow = !m.follow
			if m.follow {
				m.view.GotoBottom()
			}
			return m, tea.Batch(cmds...)
		case key.Matches(msg, tailKeys.Reload):
			cmds = append(cmds, m.fetchCmd())
			return m, tea.Batch(cmds...)
		case key.Matches(msg, tailKeys.Bottom):
			m.view.GotoBottom()
			return m, tea.Batch(cmds...)
		case key.Matches(msg, tailKeys.Top):
			// Manual scrolling implies the user stopped following.
			m.follow = false
			m.view.GotoTop()
			return m, tea.Batch(cmds...)
		case key.Matches(msg, tailKeys.CopyAll):
			if len(m.lines) > 0 {
				cmds = append(cmds, osc52CopyCmd(strings.Join(m.lines, "\n")))
			}
			return m, tea.Batch(cmds...)
		}
	}

	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *TailModel) setContent() {
	if len(m.lines) == 0 {
		m.view.SetContent(placeholderStyle.Render("(no output yet)"))
		return
	}
	m.view.SetContent(wordwrap.String(strings.Join(m.lines, "\n"), m.view.Width))
}

func (m TailModel) View() string {
	title := metaPillStyle.Render(fmt.Sprintf("Tail %s", m.jobID))
	pathPill := metaMutedPillStyle.Render(shortenText(m.path, m.width-20))

	state := "Following"
	if !m.follow {
		state = "Paused"
	}
	statePill := metaMutedPillStyle.Render(state)

	top := joinWithGap([]string{title, statePill, pathPill}, 1)
	top = lipgloss.NewStyle().MaxWidth(m.width).Render(top)

	body := m.view.View()
	if m.err != nil {
		body = metaAlertPillStyle.Render(shortenText(m.err.Error(), m.width-8)) + "\n" + body
	}
	panel := detailsStyle.Width(m.width - 2).Render(body)

	view := lipgloss.JoinVertical(lipgloss.Left, top, panel)
	view = clampViewHeight(view, m.height)
	return clampViewWidth(view, m.width)
}

func osc52CopyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		seq := osc52.New(text).Limit(100 * 1024)

		term := strings.ToLower(os.Getenv("TERM"))
		if tmux := os.Getenv("TMUX"); tmux != "" || strings.HasPrefix(term, "tmux") {
			seq = seq.Tmux()
		} else if strings.HasPrefix(term, "screen") {
			seq = seq.Screen()
		}

		_, _ = seq.WriteTo(os.Stdout)
		return nil
	}
}
