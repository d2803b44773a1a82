package gateway

import (
	"sync"

	"github.com/guubot/guubot/internal/logging"
	"github.com/guubot/guubot/internal/metrics"
)

// Client is one overlay connection. Emit delivers a named event with a JSON
// payload; an Emit error means the connection is unusable.
type Client interface {
	Emit(event string, data []byte) error
}

// Registry owns the per-channel rooms. A room exists while at least one
// overlay connection for its channel is open.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Client]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[Client]struct{}),
	}
}

// Join adds a client to a channel's room, creating the room on first use.
func (r *Registry) Join(channelID string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[channelID]
	if !ok {
		room = make(map[Client]struct{})
		r.rooms[channelID] = room
	}
	if _, joined := room[c]; !joined {
		room[c] = struct{}{}
		metrics.WidgetConnections.WithLabelValues(channelID).Inc()
	}
}

// Leave removes a client from a channel's room and tears the room down when
// it empties.
func (r *Registry) Leave(channelID string, c Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[channelID]
	if !ok {
		return
	}
	if _, joined := room[c]; !joined {
		return
	}
	delete(room, c)
	metrics.WidgetConnections.WithLabelValues(channelID).Dec()
	if len(room) == 0 {
		delete(r.rooms, channelID)
	}
}

// HasRoom reports whether any overlay connection is open for a channel.
func (r *Registry) HasRoom(channelID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[channelID]) > 0
}

// Broadcast sends an event to every client in a channel's room. Delivery is
// best effort; a failed client is logged and skipped, not retried.
func (r *Registry) Broadcast(channelID, event string, data []byte) {
	r.mu.RLock()
	clients := make([]Client, 0, len(r.rooms[channelID]))
	for c := range r.rooms[channelID] {
		clients = append(clients, c)
	}
	r.mu.RUnlock()

	for _, c := range clients {
		if err := c.Emit(event, data); err != nil {
			logging.WithError(err).Warn().
				Str("channel_id", channelID).
				Str("event", event).
				Msg("widget push failed")
		}
	}
}
