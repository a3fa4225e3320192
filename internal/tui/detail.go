package tui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/styles"
)

// Detail modal layout constants.
const (
	detailMaxWidth  = 100
	detailMaxHeight = 30
	detailMargin    = 4
	detailChrome    = 8 // title, metadata, divider, help and spacing
	detailPadding   = 4
	glamourGutter   = 2
)

// detailModal shows one message with its content rendered as markdown.
type detailModal struct {
	message  chat.Message
	viewport viewport.Model
}

func newDetailModal(msg chat.Message, width, height int) detailModal {
	modalWidth := min(width-detailMargin, detailMaxWidth)
	modalHeight := min(height-detailMargin, detailMaxHeight)

	vp := viewport.New(modalWidth-detailPadding, max(modalHeight-detailChrome, 1))
	vp.Style = lipgloss.NewStyle()

	m := detailModal{message: msg, viewport: vp}
	m.viewport.SetContent(renderMarkdown(msg.Content, modalWidth-detailPadding-glamourGutter))
	return m
}

// renderMarkdown renders content with glamour, falling back to the raw text.
func renderMarkdown(content string, width int) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("tokyo-night"),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}

	out := strings.TrimSpace(rendered)
	out = stripLeadingDecorative(out)
	return stripTrailingDecorative(out)
}

func (m *detailModal) scrollUp()   { m.viewport.ScrollUp(1) }
func (m *detailModal) scrollDown() { m.viewport.ScrollDown(1) }

func (m detailModal) overlay(width, height int) string {
	modalWidth := min(width-detailMargin, detailMaxWidth)
	modalHeight := min(height-detailMargin, detailMaxHeight)

	metadata := fmt.Sprintf("%s %s %s",
		styles.SenderStyle(m.message.Sender.String()).Render(m.message.Sender.String()),
		iconDot,
		timeStyle.Render(m.message.Timestamp.Local().Format("2006-01-02 15:04:05")),
	)

	scrollInfo := ""
	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		scrollInfo = timeStyle.Render(fmt.Sprintf(" (%.0f%%)", m.viewport.ScrollPercent()*100))
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		modalTitleStyle.Render("Message"+scrollInfo),
		"",
		metadata,
		dividerStyle.Render(strings.Repeat("─", max(modalWidth-detailPadding, 1))),
		m.viewport.View(),
		modalHelpStyle.Render("[↑/↓] scroll  [esc] close"),
	)

	modal := modalStyle.Width(modalWidth).Height(modalHeight).Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

// ansiPattern matches ANSI escape sequences.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// isDecorativeLine reports whether a line holds only rules or spaces once
// ANSI codes are stripped.
func isDecorativeLine(line string) bool {
	stripped := strings.TrimSpace(ansiPattern.ReplaceAllString(line, ""))
	for _, r := range stripped {
		if r != '─' && r != '━' && r != '-' && r != '=' {
			return false
		}
	}
	return true
}

func stripLeadingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	start := 0
	for start < len(lines) && isDecorativeLine(lines[start]) {
		start++
	}
	return strings.Join(lines[start:], "\n")
}

func stripTrailingDecorative(content string) string {
	lines := strings.Split(content, "\n")
	end := len(lines)
	for end > 0 && isDecorativeLine(lines[end-1]) {
		end--
	}
	return strings.Join(lines[:end], "\n")
}
