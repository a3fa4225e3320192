package relay

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32

	// closeWriteFailed is sent when the write loop gives up on a socket.
	closeWriteFailed = websocket.CloseInternalServerErr
)

var errConnClosed = errors.New("connection closed")

// connection is a server-side socket bound to one session room. Outbound
// writes go through a buffered channel drained by a single write loop.
type connection struct {
	id        string
	sessionID string

	ws     *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newConnection(sessionID string, ws *websocket.Conn) *connection {
	return &connection{
		id:        uuid.NewString(),
		sessionID: sessionID,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		closed:    make(chan struct{}),
	}
}

// enqueue queues payload for delivery. A consumer whose buffer is full is
// disconnected.
func (c *connection) enqueue(payload []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.close(websocket.CloseGoingAway, "send buffer full")
		return errors.New("send buffer exceeded")
	}
}

func (c *connection) close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		_ = c.ws.Close()
	})
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.close(closeWriteFailed, "write failed")
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close(closeWriteFailed, "ping failed")
				return
			}
		}
	}
}

func (c *connection) write(messageType int, payload []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, payload)
}
