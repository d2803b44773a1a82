package gateway

import (
	"encoding/json"

	"github.com/guubot/guubot/internal/bus"
	"github.com/guubot/guubot/internal/events"
	"github.com/guubot/guubot/internal/logging"
	"github.com/guubot/guubot/internal/services"
)

// Envelope is the wire frame of the overlay protocol, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type initPayload struct {
	ID string `json:"id"`
}

type songSignal struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelId"`
}

type channelSignal struct {
	ChannelID string `json:"channelId"`
}

// Gateway relays queue mutations to the per-channel overlay rooms and turns
// overlay playback signals into queue operations. Pushes are at-least-once
// within a room and never replayed; a client that missed one reconciles on
// its next init snapshot.
type Gateway struct {
	bus      *bus.Bus
	songs    *services.SongRequestService
	registry *Registry
}

// New creates the gateway and subscribes it to the song-request topics.
func New(b *bus.Bus, songs *services.SongRequestService) *Gateway {
	g := &Gateway{
		bus:      b,
		songs:    songs,
		registry: NewRegistry(),
	}

	b.Subscribe(events.TopicSongRequestCreated, func(payload any) {
		if ev, ok := payload.(events.SongRequestCreated); ok {
			g.push(ev.Request.ChannelID, "next_song_"+ev.Request.ChannelID, ev.Request)
		}
	})
	b.Subscribe(events.TopicSongRequestDeleted, func(payload any) {
		if ev, ok := payload.(events.SongRequestDeleted); ok {
			g.push(ev.Request.ChannelID, "delete_song_"+ev.Request.ChannelID, ev.Request)
		}
	})
	b.Subscribe(events.TopicSongRequestSkipped, func(payload any) {
		if ev, ok := payload.(events.SongRequestSkipped); ok {
			g.push(ev.Request.ChannelID, "skip_song_"+ev.Request.ChannelID, ev.Request)
		}
	})
	b.Subscribe(events.TopicSongRequestCleared, func(payload any) {
		if ev, ok := payload.(events.SongRequestCleared); ok {
			g.push(ev.ChannelID, "clear_list_"+ev.ChannelID, map[string]string{
				"channel_id": ev.ChannelID,
			})
		}
	})

	return g
}

// Registry exposes the room registry so other components can ask whether a
// channel has a live overlay.
func (g *Gateway) Registry() *Registry {
	return g.registry
}

func (g *Gateway) push(channelID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.WithError(err).Error().Str("event", event).Msg("failed to encode widget push")
		return
	}
	g.registry.Broadcast(channelID, event, data)
}

// Session is the gateway-side state of one overlay connection.
type Session struct {
	gateway     *Gateway
	client      Client
	channelID   string
	initialized bool
}

// NewSession wraps a freshly accepted overlay connection.
func (g *Gateway) NewSession(c Client) *Session {
	return &Session{
		gateway: g,
		client:  c,
	}
}

// HandleFrame processes one inbound overlay frame. Malformed frames are
// logged and dropped; the connection stays open.
func (s *Session) HandleFrame(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logging.WithError(err).Warn().Msg("malformed widget frame")
		return
	}

	switch env.Event {
	case "init":
		var payload initPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil || payload.ID == "" {
			logging.Warn("init frame without channel id")
			return
		}
		s.handleInit(payload.ID)
	case "song_started":
		var payload songSignal
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		s.handleSongStarted(payload)
	case "song_ended":
		var payload songSignal
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		s.handleSongEnded(payload)
	case "song_stopped":
		var payload channelSignal
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return
		}
		s.handleSongStopped(payload)
	default:
		logging.WithModule("gateway").Debug().Str("event", env.Event).Msg("unknown widget event")
	}
}

// handleInit joins the connection to its channel room and sends the full
// queue snapshot. Only the first init on a connection gets the snapshot;
// re-inits would otherwise double-deliver it.
func (s *Session) handleInit(channelID string) {
	logging.WithChannel(channelID).Debug().Msg("widget connected")

	s.gateway.bus.Publish(events.TopicWidgetOpen, events.WidgetOpen{ChannelID: channelID})

	if s.initialized {
		return
	}
	s.initialized = true
	s.channelID = channelID
	s.gateway.registry.Join(channelID, s.client)

	songs, err := s.gateway.songs.List(channelID)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", channelID).Msg("snapshot query failed")
		return
	}
	data, err := json.Marshal(songs)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", channelID).Msg("snapshot encode failed")
		return
	}
	if err := s.client.Emit("widget_"+channelID, data); err != nil {
		logging.WithError(err).Warn().Str("channel_id", channelID).Msg("snapshot push failed")
	}
}

func (s *Session) handleSongStarted(payload songSignal) {
	logging.WithChannel(payload.ChannelID).Debug().Str("id", payload.ID).Msg("song started")
	if err := s.gateway.songs.SetPlaying(payload.ID, payload.ChannelID); err != nil {
		logging.WithError(err).Error().Str("channel_id", payload.ChannelID).Msg("set playing failed")
	}
}

// handleSongEnded removes the finished record. The record is PLAYING at this
// point, so no deleted event fires; the overlay advances on the next created
// push or init snapshot.
func (s *Session) handleSongEnded(payload songSignal) {
	logging.WithChannel(payload.ChannelID).Debug().Str("id", payload.ID).Msg("song ended")
	if _, err := s.gateway.songs.DeleteRequest(payload.ID, payload.ChannelID); err != nil {
		logging.WithError(err).Error().Str("channel_id", payload.ChannelID).Msg("delete of ended song failed")
	}
}

// handleSongStopped is the overlay-going-away path: the interrupted song goes
// back to PENDING and the chat session for the channel may be released.
func (s *Session) handleSongStopped(payload channelSignal) {
	logging.WithChannel(payload.ChannelID).Debug().Msg("song stopped")
	if _, err := s.gateway.songs.RevertToPending(payload.ChannelID); err != nil {
		logging.WithError(err).Error().Str("channel_id", payload.ChannelID).Msg("revert to pending failed")
	}
	s.gateway.bus.Publish(events.TopicWidgetClose, events.WidgetClose{ChannelID: payload.ChannelID})
}

// Close removes the connection from its room.
func (s *Session) Close() {
	if s.initialized {
		s.gateway.registry.Leave(s.channelID, s.client)
	}
}
