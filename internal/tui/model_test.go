package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/huddle/internal/chatsync"
	"github.com/hay-kot/huddle/internal/core/chat"
	"github.com/hay-kot/huddle/internal/transcript"
)

type fakeController struct {
	session    chat.Session
	viewer     chat.ParticipantID
	rows       []chatsync.Row
	changes    chan struct{}
	sent       []string
	sendErr    error
	refreshes  int
	refreshErr error
}

func newFakeController() *fakeController {
	return &fakeController{
		session: chat.Session{
			ID:           "s1",
			Title:        "standup",
			Participants: []chat.ParticipantID{"ann@example.com", "bob@example.com"},
		},
		viewer:  "bob@example.com",
		changes: make(chan struct{}, 1),
	}
}

func (f *fakeController) Session() chat.Session      { return f.session }
func (f *fakeController) Viewer() chat.ParticipantID { return f.viewer }
func (f *fakeController) IsOwner() bool              { return f.session.IsOwner(f.viewer) }
func (f *fakeController) Connected() bool            { return true }
func (f *fakeController) Rows() []chatsync.Row       { return f.rows }
func (f *fakeController) Changes() <-chan struct{}   { return f.changes }

func (f *fakeController) SendMessage(_ context.Context, text string) (bool, error) {
	if f.sendErr != nil {
		return false, f.sendErr
	}
	f.sent = append(f.sent, text)
	return true, nil
}

func (f *fakeController) Refresh(context.Context) (int, error) {
	f.refreshes++
	return 0, f.refreshErr
}

func (f *fakeController) Participant(i int) (chat.ParticipantID, bool, error) {
	if i < 0 || i >= len(f.session.Participants) {
		return "", false, chat.ErrNotParticipant
	}
	id := f.session.Participants[i]
	return id, id == f.viewer, nil
}

func (f *fakeController) ParticipantAt(i int) (chat.ParticipantID, bool, error) {
	if i < 0 || i >= len(f.rows) {
		return "", false, chat.ErrNotParticipant
	}
	return f.rows[i].Sender, f.rows[i].Sender == f.viewer, nil
}

func row(sender, content string, boundary bool, band transcript.Band) chatsync.Row {
	return chatsync.Row{Entry: transcript.Entry{
		Message: chat.Message{
			Sender:    chat.ParticipantID(sender),
			Content:   content,
			Timestamp: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		},
		GroupBoundary: boundary,
		Band:          band,
	}}
}

func sized(t *testing.T, ctrl Controller) Model {
	t.Helper()
	next, _ := New(ctrl).Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func press(m Model, k tea.KeyType) (Model, tea.Cmd) {
	next, cmd := m.Update(tea.KeyMsg{Type: k})
	return next.(Model), cmd
}

func TestModel_SendClearsInput(t *testing.T) {
	ctrl := newFakeController()
	m := typeText(sized(t, ctrl), "hello")
	require.Equal(t, "hello", m.input.Value())

	m, cmd := press(m, tea.KeyEnter)
	require.NotNil(t, cmd)
	assert.True(t, m.sending)

	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, []string{"hello"}, ctrl.sent)
	assert.Empty(t, m.input.Value())
	assert.False(t, m.sending)
}

func TestModel_SendBlankDoesNothing(t *testing.T) {
	ctrl := newFakeController()
	m := typeText(sized(t, ctrl), "   ")

	m, cmd := press(m, tea.KeyEnter)
	assert.Nil(t, cmd)
	assert.False(t, m.sending)
	assert.Empty(t, ctrl.sent)
}

func TestModel_SendFailureKeepsInput(t *testing.T) {
	ctrl := newFakeController()
	ctrl.sendErr = errors.New("connection reset")
	m := typeText(sized(t, ctrl), "hello")

	m, cmd := press(m, tea.KeyEnter)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, "hello", m.input.Value())
	assert.Contains(t, m.View(), "connection reset")
}

func TestModel_ChangeRerenders(t *testing.T) {
	ctrl := newFakeController()
	m := sized(t, ctrl)
	assert.Contains(t, m.viewport.View(), "No messages yet")

	ctrl.rows = []chatsync.Row{row("ann@example.com", "hi there", true, transcript.BandLight)}
	next, cmd := m.Update(changedMsg{})
	m = next.(Model)

	assert.NotNil(t, cmd, "keeps listening for changes")
	assert.Contains(t, m.viewport.View(), "hi there")
	assert.Contains(t, m.viewport.View(), "ann@example.com")
}

func TestModel_ParticipantCycle(t *testing.T) {
	ctrl := newFakeController()
	m := sized(t, ctrl)

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, "profile: ann@example.com", m.status)

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, "profile: bob@example.com (your profile)", m.status)

	m, _ = press(m, tea.KeyTab)
	assert.Equal(t, "profile: ann@example.com", m.status)
}

func TestModel_SenderCycle(t *testing.T) {
	ctrl := newFakeController()
	m := sized(t, ctrl)

	m, _ = press(m, tea.KeyCtrlP)
	assert.Equal(t, "no messages yet", m.status)

	ctrl.rows = []chatsync.Row{
		row("carl@example.com", "bye all", true, transcript.BandLight),
		row("bob@example.com", "see you", true, transcript.BandDark),
	}

	m, _ = press(m, tea.KeyCtrlP)
	assert.Equal(t, "profile: bob@example.com (your profile)", m.status)

	m, _ = press(m, tea.KeyCtrlP)
	assert.Equal(t, "profile: carl@example.com", m.status, "senders outside the session resolve")

	m, _ = press(m, tea.KeyCtrlP)
	assert.Equal(t, "profile: bob@example.com (your profile)", m.status)
}

func TestModel_RefreshKey(t *testing.T) {
	ctrl := newFakeController()
	m := sized(t, ctrl)

	m, cmd := press(m, tea.KeyCtrlR)
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, 1, ctrl.refreshes)
	assert.Equal(t, "refreshed, 0 new", m.status)
}

func TestModel_RefreshQueued(t *testing.T) {
	ctrl := newFakeController()
	ctrl.refreshErr = chatsync.ErrRefreshQueued
	m := sized(t, ctrl)

	m, cmd := press(m, tea.KeyCtrlR)
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, "refresh queued", m.status)
	assert.NoError(t, m.err)
}

func TestModel_DetailModal(t *testing.T) {
	ctrl := newFakeController()
	ctrl.rows = []chatsync.Row{row("ann@example.com", "**bold** move", true, transcript.BandLight)}
	m := sized(t, ctrl)

	m, _ = press(m, tea.KeyCtrlO)
	require.NotNil(t, m.detail)
	assert.Contains(t, m.View(), "bold")

	m, cmd := press(m, tea.KeyEsc)
	assert.Nil(t, m.detail, "esc closes the modal before quitting")
	assert.Nil(t, cmd)
}

func TestModel_OwnerBadge(t *testing.T) {
	ctrl := newFakeController()
	assert.NotContains(t, sized(t, ctrl).View(), "owner")

	ctrl.viewer = "ann@example.com"
	assert.Contains(t, sized(t, ctrl).View(), "owner")
}

func TestRenderRows(t *testing.T) {
	rows := []chatsync.Row{
		row("ann@example.com", "hi", true, transcript.BandLight),
		row("ann@example.com", "again", false, transcript.BandLight),
		row("bob@example.com", "yo", true, transcript.BandDark),
	}
	rows[0].Image = []byte("png")
	rows[2].IsLocalUser = true
	rows[2].Pending = true

	out := renderRows(rows, 40)
	lines := strings.Split(out, "\n")

	assert.Contains(t, lines[0], iconAvatar+" ann@example.com")
	assert.Contains(t, lines[1], "hi")
	assert.Contains(t, lines[2], "again")
	assert.NotContains(t, out, iconAvatar+" bob")
	assert.Contains(t, out, iconNoImage+" bob@example.com (you)")
	assert.Contains(t, out, "yo …")
	assert.Equal(t, 1, strings.Count(out, "ann@example.com"), "one header per group")
}

func TestStripDecorative(t *testing.T) {
	in := "\x1b[38;5;60m────\x1b[0m\n\nbody\n  ───  "
	assert.Equal(t, "body", stripTrailingDecorative(stripLeadingDecorative(in)))
}
