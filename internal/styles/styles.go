// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"hash/fnv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorRed    = lipgloss.Color("#d75f6b")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")

	// Row tints for the alternating message bands.
	ColorBandLight = lipgloss.Color("#1f2335")
	ColorBandDark  = lipgloss.Color("#16161e")
)

// senderPalette is cycled through by SenderColor.
var senderPalette = []lipgloss.Color{
	"#7aa2f7", // blue
	"#9ece6a", // green
	"#e0af68", // yellow
	"#bb9af7", // magenta
	"#7dcfff", // cyan
	"#ff9e64", // orange
	"#f7768e", // red
	"#73daca", // teal
}

// Banner ASCII art for the header.
const Banner = `
 ╦ ╦╦ ╦╔╦╗╔╦╗╦  ╔═╗
 ╠═╣║ ║ ║║ ║║║  ║╣
 ╩ ╩╚═╝═╩╝═╩╝╩═╝╚═╝`

// BannerStyle styles the ASCII art banner.
var BannerStyle = lipgloss.NewStyle().
	Foreground(ColorBlue).
	Bold(true)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// MutedStyle styles timestamps and secondary text.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// SenderColor returns a stable color for a participant ID.
func SenderColor(id string) lipgloss.Color {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return senderPalette[h.Sum32()%uint32(len(senderPalette))]
}

// SenderStyle renders a participant's name in their color.
func SenderStyle(id string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(SenderColor(id)).Bold(true)
}

// FormTheme returns the huh theme used by interactive prompts.
func FormTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = t.Focused.Title.Foreground(ColorBlue).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorGray)
	t.Focused.Base = t.Focused.Base.BorderForeground(ColorBlue)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(ColorBlue)
	t.Focused.TextInput.Prompt = t.Focused.TextInput.Prompt.Foreground(ColorBlue)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorRed)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorRed)
	t.Focused.FocusedButton = t.Focused.FocusedButton.Background(ColorBlue).Foreground(lipgloss.Color("#1a1b26"))

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())

	return t
}
