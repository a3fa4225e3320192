package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSession_IsOwner(t *testing.T) {
	sess := Session{
		ID:           "s1",
		Participants: []ParticipantID{"ann@example.com", "bob@example.com"},
	}

	tests := []struct {
		name   string
		viewer ParticipantID
		want   bool
	}{
		{name: "first participant owns", viewer: "ann@example.com", want: true},
		{name: "other participant does not", viewer: "bob@example.com", want: false},
		{name: "comparison is case sensitive", viewer: "Ann@example.com", want: false},
		{name: "stranger", viewer: "eve@example.com", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sess.IsOwner(tt.viewer))
		})
	}
}

func TestSession_OwnerEmpty(t *testing.T) {
	sess := Session{ID: "s1"}
	assert.Equal(t, ParticipantID(""), sess.Owner())
	assert.False(t, sess.IsOwner(""))
}

func TestSenders(t *testing.T) {
	msgs := []Message{
		{Sender: "a", Content: "1"},
		{Sender: "b", Content: "2"},
		{Sender: "a", Content: "3"},
		{Sender: "c", Content: "4"},
	}
	assert.Equal(t, []ParticipantID{"a", "b", "c"}, Senders(msgs))
	assert.Empty(t, Senders(nil))
}
