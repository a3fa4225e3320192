package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/chatsync"
	"github.com/hay-kot/huddle/internal/styles"
	"github.com/hay-kot/huddle/internal/transcript"
)

// renderRows lays out the transcript. Group boundaries get a sender header;
// every row is tinted with its band color across the full width.
func renderRows(rows []chatsync.Row, width int) string {
	if len(rows) == 0 {
		return statusStyle.Render("No messages yet. Say hi!")
	}

	var b strings.Builder
	for i, row := range rows {
		band := bandStyle(row.Band == transcript.BandDark).Width(width)

		if row.GroupBoundary {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(band.Render(senderHeader(row)))
			b.WriteString("\n")
		}

		content := row.Content
		if row.Pending {
			content = pendingStyle.Render(content + " …")
		}
		for _, line := range strings.Split(content, "\n") {
			b.WriteString(band.Render("  " + line))
			b.WriteString("\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func senderHeader(row chatsync.Row) string {
	marker := iconNoImage
	if row.Image != nil {
		marker = iconAvatar
	}

	name := row.Sender.String()
	if row.IsLocalUser {
		name += " (you)"
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		styles.SenderStyle(row.Sender.String()).Render(marker+" "+name),
		" ",
		timeStyle.Render(row.Timestamp.Local().Format("15:04")),
	)
}
