package chzzk

import (
	"sync"

	"github.com/guubot/guubot/internal/bus"
	"github.com/guubot/guubot/internal/events"
	"github.com/guubot/guubot/internal/logging"
)

// Session is one live chat connection to the platform.
type Session interface {
	Send(message string) error
	Close() error
}

// Dialer opens chat sessions. Inbound traffic flows through the sink.
type Dialer interface {
	Dial(channelID string, sink Sink) (Session, error)
}

// Sink receives normalized inbound chat traffic from a session.
type Sink interface {
	OnConnect(service, channelID string)
	OnMessage(msg events.ChatMessage)
}

// Manager owns one chat session per channel, opening it when the overlay for
// the channel appears and releasing it when the overlay goes away. Outbound
// chat lines published on the bus are routed to the matching session.
type Manager struct {
	bus    *bus.Bus
	dialer Dialer

	mu       sync.Mutex
	sessions map[string]Session
}

// NewManager creates the manager and subscribes it to the lifecycle and
// outbound-chat topics.
func NewManager(b *bus.Bus, dialer Dialer) *Manager {
	m := &Manager{
		bus:      b,
		dialer:   dialer,
		sessions: make(map[string]Session),
	}

	b.Subscribe(events.TopicWidgetOpen, func(payload any) {
		if ev, ok := payload.(events.WidgetOpen); ok {
			m.ensureSession(ev.ChannelID)
		}
	})
	b.Subscribe(events.TopicWidgetClose, func(payload any) {
		if ev, ok := payload.(events.WidgetClose); ok {
			m.closeSession(ev.ChannelID)
		}
	})
	b.Subscribe(events.TopicChatSend, func(payload any) {
		if ev, ok := payload.(events.ChatSend); ok {
			m.send(ev.ChannelID, ev.Message)
		}
	})

	return m
}

// OnConnect implements Sink.
func (m *Manager) OnConnect(service, channelID string) {
	m.bus.Publish(events.TopicChatConnect, events.ChatConnect{
		Service:   service,
		ChannelID: channelID,
	})
}

// OnMessage implements Sink.
func (m *Manager) OnMessage(msg events.ChatMessage) {
	m.bus.Publish(events.TopicChatMessage, msg)
}

func (m *Manager) ensureSession(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[channelID]; ok {
		return
	}
	session, err := m.dialer.Dial(channelID, m)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", channelID).Msg("chat session dial failed")
		return
	}
	m.sessions[channelID] = session
	logging.WithChannel(channelID).Info().Msg("chat session opened")
}

func (m *Manager) closeSession(channelID string) {
	m.mu.Lock()
	session, ok := m.sessions[channelID]
	if ok {
		delete(m.sessions, channelID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := session.Close(); err != nil {
		logging.WithError(err).Warn().Str("channel_id", channelID).Msg("chat session close failed")
	}
	logging.WithChannel(channelID).Info().Msg("chat session released")
}

func (m *Manager) send(channelID, message string) {
	m.mu.Lock()
	session, ok := m.sessions[channelID]
	m.mu.Unlock()

	if !ok {
		logging.WithChannel(channelID).Debug().Msg("dropping chat reply, no session")
		return
	}
	if err := session.Send(message); err != nil {
		logging.WithError(err).Warn().Str("channel_id", channelID).Msg("chat send failed")
	}
}

// Shutdown closes every open session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]Session)
	m.mu.Unlock()

	for channelID, session := range sessions {
		if err := session.Close(); err != nil {
			logging.WithError(err).Warn().Str("channel_id", channelID).Msg("chat session close failed")
		}
	}
}
