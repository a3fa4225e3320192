package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/styles"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.ColorBlue).
			PaddingLeft(1)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(styles.ColorGray).
				PaddingLeft(1)

	ownerBadgeStyle = lipgloss.NewStyle().
			Foreground(styles.ColorYellow).
			Bold(true)

	connectedStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGreen)

	disconnectedStyle = lipgloss.NewStyle().
				Foreground(styles.ColorGray)

	timeStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray)

	pendingStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			Italic(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray).
			PaddingLeft(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.ColorRed).
			PaddingLeft(1)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(styles.ColorBlue)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(styles.ColorBlue).
			Padding(1, 2)

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(styles.ColorBlue).
			Bold(true)

	modalHelpStyle = lipgloss.NewStyle().
			Foreground(styles.ColorGray)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3b4261"))
)

// Icons and symbols.
const (
	iconAvatar  = "◉"
	iconNoImage = "○"
	iconDot     = "•"
	iconOwner   = "★"
)

func bandStyle(dark bool) lipgloss.Style {
	if dark {
		return lipgloss.NewStyle().Background(styles.ColorBandDark)
	}
	return lipgloss.NewStyle().Background(styles.ColorBandLight)
}
