package relay

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/notify"
)

const writeWait = 10 * time.Second

var (
	_ notify.Dialer  = (*Dialer)(nil)
	_ notify.Channel = (*Channel)(nil)
)

// Dialer opens notification channels against a relay Hub.
type Dialer struct {
	url    string
	log    zerolog.Logger
	dialer *websocket.Dialer
}

// NewDialer creates a dialer for the relay at rawURL (ws:// or wss://).
func NewDialer(rawURL string, log zerolog.Logger) *Dialer {
	return &Dialer{
		url:    rawURL,
		log:    log,
		dialer: websocket.DefaultDialer,
	}
}

// Dial connects to the relay and binds the connection to sessionID.
func (d *Dialer) Dial(ctx context.Context, sessionID string) (notify.Channel, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return nil, fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()

	ws, resp, err := d.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	ch := &Channel{
		ws:      ws,
		log:     d.log,
		updates: make(chan struct{}, 1),
	}
	go ch.readLoop()
	return ch, nil
}

// Channel is an open relay connection for one session.
type Channel struct {
	ws      *websocket.Conn
	log     zerolog.Logger
	updates chan struct{}

	writeMu sync.Mutex
	once    sync.Once
}

// Updates delivers inbound SessionUpdated signals. Bursts are coalesced into
// a single pending signal. The channel is closed when the connection ends.
func (c *Channel) Updates() <-chan struct{} {
	return c.updates
}

// Emit sends a SessionUpdated frame for sessionID.
func (c *Channel) Emit(ctx context.Context, sessionID string) error {
	data, err := encodeFrame(notify.EventSessionUpdated, sessionID)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close sends a close frame and closes the connection.
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Channel) readLoop() {
	defer close(c.updates)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("relay read ended")
			}
			return
		}

		frame, err := decodeFrame(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("ignoring malformed relay frame")
			continue
		}
		if frame.Event != notify.EventSessionUpdated {
			continue
		}

		select {
		case c.updates <- struct{}{}:
		default:
		}
	}
}
