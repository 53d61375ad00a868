package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/lxzan/gws"
	"golang.org/x/exp/slog"
)

// Hub is the real-time event channel: a websocket server with one room per
// raffle. The core only produces; clients join rooms and listen.
type Hub struct {
	upgrader *gws.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*gws.Conn]struct{}
	conns map[*gws.Conn]map[string]struct{}
}

// NewHub creates a Hub ready to accept websocket subscribers.
func NewHub() *Hub {
	h := &Hub{
		rooms: make(map[string]map[*gws.Conn]struct{}),
		conns: make(map[*gws.Conn]map[string]struct{}),
	}
	h.upgrader = gws.NewUpgrader(h, &gws.ServerOption{
		HandshakeTimeout: 5 * time.Second,
	})
	return h
}

// Serve upgrades an HTTP request to a websocket subscription.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	go socket.ReadLoop()
}

// Publish sends a named event to every subscriber of the raffle's room.
// Write failures are per-connection and never abort the fan-out.
func (h *Hub) Publish(raffleID string, event string, payload any) error {
	data, err := marshalEnvelope(event, raffleID, payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	room := make([]*gws.Conn, 0, len(h.rooms[raffleID]))
	for conn := range h.rooms[raffleID] {
		room = append(room, conn)
	}
	h.mu.RUnlock()

	for _, conn := range room {
		if err := conn.WriteMessage(gws.OpcodeText, data); err != nil {
			slog.Warn("websocket write failed", "event", event, "raffleId", raffleID, "error", err)
		}
	}
	return nil
}

// Broadcast sends a named event to every connected client, regardless of
// room membership.
func (h *Hub) Broadcast(event string, payload any) error {
	data, err := marshalEnvelope(event, "", payload)
	if err != nil {
		return err
	}

	h.mu.RLock()
	all := make([]*gws.Conn, 0, len(h.conns))
	for conn := range h.conns {
		all = append(all, conn)
	}
	h.mu.RUnlock()

	for _, conn := range all {
		if err := conn.WriteMessage(gws.OpcodeText, data); err != nil {
			slog.Warn("websocket broadcast write failed", "event", event, "error", err)
		}
	}
	return nil
}

func marshalEnvelope(event, raffleID string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{
		Event:     event,
		RaffleID:  raffleID,
		Data:      payload,
		Timestamp: time.Now().UTC(),
	})
}

// OnOpen registers the connection.
func (h *Hub) OnOpen(socket *gws.Conn) {
	h.mu.Lock()
	h.conns[socket] = make(map[string]struct{})
	h.mu.Unlock()
}

// OnClose removes the connection from every room it joined.
func (h *Hub) OnClose(socket *gws.Conn, err error) {
	h.mu.Lock()
	for raffleID := range h.conns[socket] {
		delete(h.rooms[raffleID], socket)
		if len(h.rooms[raffleID]) == 0 {
			delete(h.rooms, raffleID)
		}
	}
	delete(h.conns, socket)
	h.mu.Unlock()
}

// OnPing answers with a pong.
func (h *Hub) OnPing(socket *gws.Conn, payload []byte) {
	_ = socket.WritePong(payload)
}

// OnPong is a no-op.
func (h *Hub) OnPong(socket *gws.Conn, payload []byte) {}

// OnMessage handles join/leave requests from subscribers.
func (h *Hub) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	var msg clientMessage
	if err := json.Unmarshal(message.Data.Bytes(), &msg); err != nil || msg.RaffleID == "" {
		return
	}

	h.mu.Lock()
	switch msg.Action {
	case "join":
		if h.rooms[msg.RaffleID] == nil {
			h.rooms[msg.RaffleID] = make(map[*gws.Conn]struct{})
		}
		h.rooms[msg.RaffleID][socket] = struct{}{}
		if h.conns[socket] == nil {
			h.conns[socket] = make(map[string]struct{})
		}
		h.conns[socket][msg.RaffleID] = struct{}{}
	case "leave":
		delete(h.rooms[msg.RaffleID], socket)
		if len(h.rooms[msg.RaffleID]) == 0 {
			delete(h.rooms, msg.RaffleID)
		}
		delete(h.conns[socket], msg.RaffleID)
	}
	h.mu.Unlock()
}
