package main

import "github.com/charmbracelet/lipgloss"

var (
	subtle        = theme.TextMuted
	highlight     = theme.Accent
	panelBorder   = theme.Border
	panelBg       = theme.Surface
	panelBgAccent = theme.SurfaceAlt
	accentPink    = theme.AccentPink
	accentOrange  = theme.AccentOrange
	accentGreen   = theme.AccentGreen
	danger        = theme.Danger
	textStrong    = theme.TextStrong
	textOnAccent  = theme.TextOnAccent
	selectionBg   = theme.SelectionBg
	selectionFg   = theme.SelectionFg

	metaPillStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1).
			Bold(true).
			Align(lipgloss.Center)

	metaMutedPillStyle = metaPillStyle.
				Foreground(subtle).
				BorderForeground(panelBorder)

	metaActivePillStyle = metaPillStyle.
				Foreground(textOnAccent).
				Background(highlight).
				BorderForeground(highlight)

	metaAlertPillStyle = metaPillStyle.
				Background(accentPink).
				Foreground(textOnAccent).
				BorderForeground(accentPink)

	filterBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Background(panelBg).
			Padding(0, 1)

	filterHintStyle = lipgloss.NewStyle().
			Foreground(subtle)

	statusLineStyle = lipgloss.NewStyle().
			Foreground(accentOrange)

	listStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Background(panelBgAccent).
			Padding(0, 1)

	detailsStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Background(panelBgAccent).
			Padding(0, 1)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(subtle).
			Bold(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(subtle).
				Italic(true)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentPink).
			Background(panelBg).
			Padding(2, 4).
			Align(lipgloss.Center).
			Width(50)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(subtle).
				Bold(true).
				Align(lipgloss.Left).
				Padding(0, 1)

	tableSelectedStyle = lipgloss.NewStyle().
				Foreground(selectionFg).
				Background(selectionBg).
				Padding(0, 1)

	markedRowStyle = lipgloss.NewStyle().
			Foreground(accentPink).
			Bold(true)
)

var statusColorMap = map[string]lipgloss.TerminalColor{
	"R":   accentGreen,
	"CG":  accentGreen,
	"PD":  accentOrange,
	"CF":  accentOrange,
	"PR":  accentOrange,
	"RQ":  accentOrange,
	"RS":  accentOrange,
	"S":   accentOrange,
	"ST":  accentOrange,
	"RH":  accentOrange,
	"RF":  accentOrange,
	"CD":  theme.AccentBlue,
	"CA":  accentPink,
	"F":   danger,
	"TO":  danger,
	"NF":  danger,
	"OOM": danger,
}

func statusColor(state string) lipgloss.TerminalColor {
	if c, ok := statusColorMap[state]; ok {
		return c
	}
	return theme.TextDim
}
