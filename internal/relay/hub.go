package relay

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/huddle/internal/notify"
)

// Hub relays SessionUpdated signals between the viewers of each session.
// A signal from one connection is delivered to every other connection bound
// to the same session.
type Hub struct {
	log      zerolog.Logger
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[string]*connection // sessionID -> connID -> conn
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]map[string]*connection),
	}
}

// ServeHTTP upgrades the request and binds it to the session named by the
// "session" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "missing session parameter", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newConnection(sessionID, ws)
	h.join(conn)
	go conn.writeLoop()

	h.log.Debug().Str("session", sessionID).Str("conn", conn.id).Msg("viewer joined")

	h.readLoop(conn)

	h.leave(conn)
	conn.close(websocket.CloseNormalClosure, "")
	h.log.Debug().Str("session", sessionID).Str("conn", conn.id).Msg("viewer left")
}

func (h *Hub) readLoop(conn *connection) {
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		frame, err := decodeFrame(data)
		if err != nil {
			h.log.Warn().Err(err).Str("conn", conn.id).Msg("ignoring malformed frame")
			continue
		}
		if frame.Event != notify.EventSessionUpdated {
			continue
		}
		if id := frame.SessionID(); id != "" && id != conn.sessionID {
			h.log.Warn().Str("conn", conn.id).Str("session", id).Msg("ignoring signal for another session")
			continue
		}

		h.Broadcast(conn.sessionID, conn.id)
	}
}

// Broadcast sends a SessionUpdated frame to every connection in the session
// except excludeConnID. Returns the number of connections reached.
func (h *Hub) Broadcast(sessionID, excludeConnID string) int {
	payload, err := encodeFrame(notify.EventSessionUpdated, sessionID)
	if err != nil {
		return 0
	}

	h.mu.RLock()
	targets := make([]*connection, 0, len(h.rooms[sessionID]))
	for id, c := range h.rooms[sessionID] {
		if id != excludeConnID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.enqueue(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// RoomSize returns the number of connections bound to sessionID.
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Close disconnects every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	var conns []*connection
	for _, room := range h.rooms {
		for _, c := range room {
			conns = append(conns, c)
		}
	}
	h.rooms = make(map[string]map[string]*connection)
	h.mu.Unlock()

	for _, c := range conns {
		c.close(websocket.CloseGoingAway, "relay shutdown")
	}
}

func (h *Hub) join(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[conn.sessionID]
	if room == nil {
		room = make(map[string]*connection)
		h.rooms[conn.sessionID] = room
	}
	room[conn.id] = conn
}

func (h *Hub) leave(conn *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[conn.sessionID]
	if room == nil {
		return
	}
	delete(room, conn.id)
	if len(room) == 0 {
		delete(h.rooms, conn.sessionID)
	}
}
