package chat

import "time"

// Message is a single chat message as delivered by the message store.
// Messages are immutable once fetched.
type Message struct {
	ID        string        `json:"id,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Sender    ParticipantID `json:"sender"`
	Content   string        `json:"content"`
}

// Senders returns the distinct senders of msgs in first-seen order.
func Senders(msgs []Message) []ParticipantID {
	seen := make(map[ParticipantID]struct{}, len(msgs))
	out := make([]ParticipantID, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.Sender]; ok {
			continue
		}
		seen[m.Sender] = struct{}{}
		out = append(out, m.Sender)
	}
	return out
}
