// Package chat defines the chat domain types and the interfaces of the
// remote services a session view talks to.
package chat

// ParticipantID identifies a user. It is email-shaped and case-sensitive.
type ParticipantID string

func (p ParticipantID) String() string { return string(p) }

// Session is a read-only snapshot of a chat session taken when a view attaches.
type Session struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Participants []ParticipantID `json:"participants"`
}

// Owner returns the first participant, or an empty ID if the session has none.
func (s *Session) Owner() ParticipantID {
	if len(s.Participants) == 0 {
		return ""
	}
	return s.Participants[0]
}

// IsOwner reports whether viewer owns the session.
func (s *Session) IsOwner(viewer ParticipantID) bool {
	owner := s.Owner()
	return owner != "" && owner == viewer
}

// HasParticipant reports whether id is listed on the session.
func (s *Session) HasParticipant(id ParticipantID) bool {
	for _, p := range s.Participants {
		if p == id {
			return true
		}
	}
	return false
}
