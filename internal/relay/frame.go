// Package relay carries "session updated" notifications over websockets.
// The Hub fans signals out to every viewer of a session; the Dialer is the
// client side used by session views.
package relay

import (
	"encoding/json"
	"fmt"
)

// Frame is the JSON message exchanged on the socket.
type Frame struct {
	Event string   `json:"event"`
	Args  []string `json:"args,omitempty"`
}

// SessionID returns the first argument, which carries the session ID for
// SessionUpdated frames.
func (f Frame) SessionID() string {
	if len(f.Args) == 0 {
		return ""
	}
	return f.Args[0]
}

func encodeFrame(event string, args ...string) ([]byte, error) {
	data, err := json.Marshal(Frame{Event: event, Args: args})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
