package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/room"
)

// envelope is the wire shape of a broadcast frame.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub is the room broadcast gateway: it tracks which connections are
// subscribed to which rooms and fans events out to them. It is constructed in
// main and injected; there is no ambient global state.
//
// Delivery is best-effort and at-most-once per subscriber per publish; a
// disconnected client catches up via the pull-based history endpoint.
type Hub struct {
	logger core.Logger

	mu        sync.RWMutex
	conns     map[string]*Connection         // connectionID -> connection
	rooms     map[int]map[string]*Connection // roomID -> connectionID -> connection
	connRooms map[string]map[int]struct{}    // connectionID -> set of roomIDs
}

var _ room.Broadcaster = (*Hub)(nil)

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		logger:    logger,
		conns:     make(map[string]*Connection),
		rooms:     make(map[int]map[string]*Connection),
		connRooms: make(map[string]map[int]struct{}),
	}
}

// Attach registers a connection and starts its write loop.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	h.connRooms[conn.ID] = make(map[int]struct{})
	h.mu.Unlock()

	conn.Start()
}

// Detach removes a connection from all rooms and closes it.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()

	conn.Close(websocket.CloseNormalClosure, "detached")
}

// Subscribe adds the connection to the room's channel. The caller must have
// re-run the access Guard first.
func (h *Hub) Subscribe(roomID int, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn.ID]; !ok {
		return
	}
	members := h.rooms[roomID]
	if members == nil {
		members = make(map[string]*Connection)
		h.rooms[roomID] = members
	}
	members[conn.ID] = conn
	h.connRooms[conn.ID][roomID] = struct{}{}
}

// Unsubscribe removes the connection from the room's channel.
func (h *Hub) Unsubscribe(roomID int, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members := h.rooms[roomID]; members != nil {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if memberships := h.connRooms[conn.ID]; memberships != nil {
		delete(memberships, roomID)
	}
}

// Publish delivers the event to every subscriber of the room, skipping
// excludeUserID when non-zero. Failed sends are dropped.
func (h *Hub) Publish(roomID int, event room.Event, excludeUserID int) {
	payload, err := json.Marshal(envelope{Event: event.EventName(), Data: event})
	if err != nil {
		h.logger.Error("realtime: marshaling event "+event.EventName(), err)
		return
	}

	h.mu.RLock()
	members := h.rooms[roomID]
	targets := make([]*Connection, 0, len(members))
	for _, conn := range members {
		if excludeUserID != 0 && conn.UserID == excludeUserID {
			continue
		}
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		_ = conn.Send(payload) // best-effort
	}
}

// Evict closes all of the user's subscriptions to the room. Called on ban:
// revoked access must remove the subscriber, not merely block future sends.
func (h *Hub) Evict(roomID, userID int) {
	h.mu.Lock()
	var evicted []*Connection
	for _, conn := range h.rooms[roomID] {
		if conn.UserID == userID {
			evicted = append(evicted, conn)
			h.detachLocked(conn.ID)
		}
	}
	h.mu.Unlock()

	for _, conn := range evicted {
		conn.Close(websocket.ClosePolicyViolation, "access revoked")
	}
}

// Subscribers reports the user ids currently subscribed to the room.
func (h *Hub) Subscribers(roomID int) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]int, 0, len(h.rooms[roomID]))
	for _, conn := range h.rooms[roomID] {
		ids = append(ids, conn.UserID)
	}
	return ids
}

func (h *Hub) detachLocked(connID string) {
	for roomID := range h.connRooms[connID] {
		if members := h.rooms[roomID]; members != nil {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.connRooms, connID)
	delete(h.conns, connID)
}
