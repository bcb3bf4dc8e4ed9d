package hub

import (
	"fmt"
	"sync"

	"quiklii/internal/xpkg/logger"
)

// Subscriber is a connected realtime session. TrySend must not block; it
// reports false when the session cannot accept the event.
type Subscriber interface {
	ID() string
	TrySend(event string, payload []byte) bool
}

func RoomForUser(userID int64) string   { return fmt.Sprintf("user:%d", userID) }
func RoomForOrder(orderID int64) string { return fmt.Sprintf("order:%d", orderID) }

// Hub tracks which local sessions are interested in which rooms. Membership
// only describes sockets on this process; cross-process delivery is the
// broker's job.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[Subscriber]struct{}
	sessions map[Subscriber]map[string]struct{}
	mylog    logger.Logger
}

func New(mylog logger.Logger) *Hub {
	return &Hub{
		rooms:    make(map[string]map[Subscriber]struct{}),
		sessions: make(map[Subscriber]map[string]struct{}),
		mylog:    mylog,
	}
}

// Join is idempotent.
func (h *Hub) Join(sub Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[Subscriber]struct{})
	}
	h.rooms[room][sub] = struct{}{}

	if h.sessions[sub] == nil {
		h.sessions[sub] = make(map[string]struct{})
	}
	h.sessions[sub][room] = struct{}{}

	h.mylog.Action("room_joined").Debug("Session joined room", "session", sub.ID(), "room", room)
}

// Leave is a no-op when the session is not in the room.
func (h *Hub) Leave(sub Subscriber, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(sub, room)
}

// Disconnect removes the session from every room it joined.
func (h *Hub) Disconnect(sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range h.sessions[sub] {
		h.removeLocked(sub, room)
	}
	delete(h.sessions, sub)

	h.mylog.Action("session_disconnected").Debug("Session removed from all rooms", "session", sub.ID())
}

// Publish delivers to every current member, best effort. A session that
// cannot keep up is skipped; it is not retried and does not block others.
func (h *Hub) Publish(room, event string, payload []byte) int {
	h.mu.RLock()
	members := make([]Subscriber, 0, len(h.rooms[room]))
	for sub := range h.rooms[room] {
		members = append(members, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range members {
		if sub.TrySend(event, payload) {
			delivered++
		} else {
			h.mylog.Action("delivery_skipped").Debug("Session too slow, event dropped",
				"session", sub.ID(), "room", room, "event", event)
		}
	}
	return delivered
}

func (h *Hub) Rooms(sub Subscriber) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]string, 0, len(h.sessions[sub]))
	for room := range h.sessions[sub] {
		rooms = append(rooms, room)
	}
	return rooms
}

func (h *Hub) removeLocked(sub Subscriber, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, sub)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.sessions[sub]; ok {
		delete(rooms, room)
	}
}
