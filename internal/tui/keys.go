package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Send        key.Binding
	Refresh     key.Binding
	Participant key.Binding
	Sender      key.Binding
	Detail      key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	Close       key.Binding
	Quit        key.Binding
}

var keys = keyMap{
	Send:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Refresh:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
	Participant: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "participants")),
	Sender:      key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "senders")),
	Detail:      key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "open last")),
	ScrollUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "scroll")),
	ScrollDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d")),
	Close:       key.NewBinding(key.WithKeys("esc")),
	Quit:        key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

func (k keyMap) helpLine() string {
	parts := make([]string, 0, 7)
	for _, b := range []key.Binding{k.Send, k.Refresh, k.Participant, k.Sender, k.Detail, k.ScrollUp, k.Quit} {
		h := b.Help()
		parts = append(parts, "["+h.Key+"] "+h.Desc)
	}
	return strings.Join(parts, "  ")
}
