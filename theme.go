package main

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	envTheme    = "SLURMVISION_THEME"
	envSurfaces = "SLURMVISION_SURFACES"
)

type ThemeMode string

const (
	ThemeAuto  ThemeMode = "auto"
	ThemeDark  ThemeMode = "dark"
	ThemeLight ThemeMode = "light"
)

type SurfaceMode string

const (
	SurfaceSolid       SurfaceMode = "solid"
	SurfaceTransparent SurfaceMode = "transparent"
)

type Theme struct {
	Mode     ThemeMode
	Surfaces SurfaceMode

	Text         lipgloss.TerminalColor
	TextMuted    lipgloss.TerminalColor
	TextStrong   lipgloss.TerminalColor
	TextOnAccent lipgloss.TerminalColor
	TextDim      lipgloss.TerminalColor

	Accent     lipgloss.TerminalColor
	Border     lipgloss.TerminalColor
	Surface    lipgloss.TerminalColor
	SurfaceAlt lipgloss.TerminalColor

	AccentPink   lipgloss.TerminalColor
	AccentCyan   lipgloss.TerminalColor
	AccentOrange lipgloss.TerminalColor
	AccentGreen  lipgloss.TerminalColor
	AccentBlue   lipgloss.TerminalColor
	Danger       lipgloss.TerminalColor

	SelectionBg lipgloss.TerminalColor
	SelectionFg lipgloss.TerminalColor
}

var theme = loadTheme()

func loadTheme() Theme {
	mode := parseThemeMode(os.Getenv(envTheme))
	surfaces := parseSurfaceMode(os.Getenv(envSurfaces))

	if mode == ThemeDark {
		lipgloss.SetHasDarkBackground(true)
	} else if mode == ThemeLight {
		lipgloss.SetHasDarkBackground(false)
	}

	return newTheme(mode, surfaces)
}

func parseThemeMode(value string) ThemeMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dark":
		return ThemeDark
	case "light":
		return ThemeLight
	default:
		return ThemeAuto
	}
}

func parseSurfaceMode(value string) SurfaceMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "solid":
		return SurfaceSolid
	default:
		return SurfaceTransparent
	}
}

func newTheme(mode ThemeMode, surfaces SurfaceMode) Theme {
	return Theme{
		Mode:         mode,
		Surfaces:     surfaces,
		Text:         lipgloss.NoColor{},
		TextMuted:    pickColor(mode, "#6B7394", "#B6B8C9"),
		TextStrong:   pickColor(mode, "#0B0D19", "#F8F8F2"),
		TextOnAccent: pickColor(mode, "#F8FBFF", "#282A36"),
		TextDim:      pickColor(mode, "#8890A8", "#7D8297"),

		Accent: pickColor(mode, "#6C63FF", "#A78BFA"),
		Border: pickColor(mode, "#D7DBF5", "#44475A"),

		Surface:    pickSurface(mode, surfaces, "#F7F8FE", "#282A36"),
		SurfaceAlt: pickSurface(mode, surfaces, "#FFFFFF", "#2F3344"),

		AccentPink:   lipgloss.Color("#FF79C6"),
		AccentCyan:   lipgloss.Color("#8BE9FD"),
		AccentOrange: lipgloss.Color("#FFB86C"),
		AccentGreen:  lipgloss.Color("#50FA7B"),
		AccentBlue:   lipgloss.Color("#6EA8FE"),
		Danger:       lipgloss.Color("#FF5555"),

		SelectionBg: pickColor(mode, "#E6E9F6", "#44475A"),
		SelectionFg: pickColor(mode, "#0B0D19", "#F8F8F2"),
	}
}

func pickColor(mode ThemeMode, light, dark string) lipgloss.TerminalColor {
	switch mode {
	case ThemeDark:
		return lipgloss.Color(dark)
	case ThemeLight:
		return lipgloss.Color(light)
	default:
		return lipgloss.AdaptiveColor{Light: light, Dark: dark}
	}
}

func pickSurface(mode ThemeMode, surfaces SurfaceMode, light, dark string) lipgloss.TerminalColor {
	if surfaces == SurfaceTransparent {
		return lipgloss.NoColor{}
	}
	return pickColor(mode, light, dark)
}
