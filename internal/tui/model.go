// Package tui implements the Bubble Tea view of one chat session.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/huddle/internal/chatsync"
	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/core/validate"
)

const (
	sendTimeout    = 10 * time.Second
	refreshTimeout = 10 * time.Second

	headerHeight = 3 // title, description, divider
	footerHeight = 5 // bordered input and status line
)

// Controller is the session view the model drives.
type Controller interface {
	Session() chat.Session
	Viewer() chat.ParticipantID
	IsOwner() bool
	Connected() bool
	Rows() []chatsync.Row
	Changes() <-chan struct{}
	SendMessage(ctx context.Context, text string) (bool, error)
	Refresh(ctx context.Context) (int, error)
	Participant(index int) (chat.ParticipantID, bool, error)
	ParticipantAt(row int) (chat.ParticipantID, bool, error)
}

// changedMsg reports that the controller's rows may have changed.
type changedMsg struct{}

// sentMsg is the result of a send.
type sentMsg struct {
	sent bool
	err  error
}

// refreshedMsg is the result of a manual refresh.
type refreshedMsg struct {
	n   int
	err error
}

// Model is the session view.
type Model struct {
	ctrl Controller

	viewport viewport.Model
	input    textinput.Model
	detail   *detailModal

	width, height int
	ready         bool
	sending       bool

	participant int // index of the last participant shown, -1 for none
	senderRow   int // rows above the newest of the last sender shown, -1 for none
	status      string
	err         error
}

// New creates a model for an attached controller.
func New(ctrl Controller) Model {
	ti := textinput.New()
	ti.Placeholder = "Write a message…"
	ti.Prompt = "› "
	ti.CharLimit = validate.MaxMessageLength
	ti.Focus()

	return Model{
		ctrl:        ctrl,
		input:       ti,
		viewport:    viewport.New(0, 0),
		participant: -1,
		senderRow:   -1,
	}
}

// Init starts the cursor blink and the change subscription.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.ctrl.Changes()))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		sent, err := m.ctrl.SendMessage(ctx, text)
		return sentMsg{sent: sent, err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		n, err := m.ctrl.Refresh(ctx)
		return refreshedMsg{n: n, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-headerHeight-footerHeight, 1)
		m.input.Width = max(msg.Width-6, 10)
		m.ready = true
		m.syncRows()
		return m, nil

	case changedMsg:
		m.syncRows()
		return m, waitForChange(m.ctrl.Changes())

	case sentMsg:
		m.sending = false
		switch {
		case msg.err != nil:
			m.err = msg.err
		case msg.sent:
			m.input.Reset()
			m.err = nil
		}
		return m, nil

	case refreshedMsg:
		switch {
		case errors.Is(msg.err, chatsync.ErrRefreshQueued):
			m.err = nil
			m.status = "refresh queued"
		case msg.err != nil:
			m.err = msg.err
		default:
			m.err = nil
			m.status = fmt.Sprintf("refreshed, %d new", msg.n)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.detail != nil {
		switch msg.String() {
		case "esc", "enter", "q":
			m.detail = nil
		case "up", "k":
			m.detail.scrollUp()
		case "down", "j":
			m.detail.scrollDown()
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Send):
		text := m.input.Value()
		if strings.TrimSpace(text) == "" || m.sending {
			return m, nil
		}
		m.sending = true
		m.status = ""
		return m, m.send(text)

	case key.Matches(msg, keys.Refresh):
		m.status = "refreshing…"
		return m, m.refresh()

	case key.Matches(msg, keys.Participant):
		m.nextParticipant()
		return m, nil

	case key.Matches(msg, keys.Sender):
		m.nextSender()
		return m, nil

	case key.Matches(msg, keys.Detail):
		rows := m.ctrl.Rows()
		if len(rows) == 0 {
			return m, nil
		}
		d := newDetailModal(rows[len(rows)-1].Message, m.width, m.height)
		m.detail = &d
		return m, nil

	case key.Matches(msg, keys.ScrollUp):
		m.viewport.HalfPageUp()
		return m, nil

	case key.Matches(msg, keys.ScrollDown):
		m.viewport.HalfPageDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// nextParticipant advances through the session participants, announcing
// whose profile would open.
func (m *Model) nextParticipant() {
	n := len(m.ctrl.Session().Participants)
	if n == 0 {
		m.status = "session has no participants"
		return
	}

	m.participant = (m.participant + 1) % n
	m.showProfile(m.ctrl.Participant(m.participant))
}

// nextSender walks the transcript from the newest row upward, announcing the
// profile of each row's sender.
func (m *Model) nextSender() {
	n := len(m.ctrl.Rows())
	if n == 0 {
		m.status = "no messages yet"
		return
	}

	m.senderRow = (m.senderRow + 1) % n
	m.showProfile(m.ctrl.ParticipantAt(n - 1 - m.senderRow))
}

func (m *Model) showProfile(id chat.ParticipantID, self bool, err error) {
	if err != nil {
		m.err = err
		return
	}
	if self {
		m.status = fmt.Sprintf("profile: %s (your profile)", id)
		return
	}
	m.status = fmt.Sprintf("profile: %s", id)
}

// syncRows re-renders the transcript, keeping the view pinned to the bottom
// when it already was.
func (m *Model) syncRows() {
	if !m.ready {
		return
	}
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	m.viewport.SetContent(renderRows(m.ctrl.Rows(), m.width))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// View renders the model.
func (m Model) View() string {
	if !m.ready {
		return "loading…"
	}
	if m.detail != nil {
		return m.detail.overlay(m.width, m.height)
	}

	sess := m.ctrl.Session()

	title := sess.Title
	if title == "" {
		title = sess.ID
	}
	if m.ctrl.IsOwner() {
		title += " " + ownerBadgeStyle.Render(iconOwner+" owner")
	}

	conn := disconnectedStyle.Render(iconDot + " offline")
	if m.ctrl.Connected() {
		conn = connectedStyle.Render(iconDot + " live")
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title)+" "+conn,
		descriptionStyle.Render(sess.Description),
		dividerStyle.Render(strings.Repeat("─", max(m.width, 1))),
	)

	status := statusStyle.Render(keys.helpLine())
	switch {
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	case m.sending:
		status = statusStyle.Render("sending…")
	case m.status != "":
		status = statusStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		inputBorderStyle.Width(max(m.width-2, 1)).Render(m.input.View()),
		status,
	)
}
