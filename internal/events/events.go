package events

import (
	"time"

	"github.com/guubot/guubot/internal/models"
)

// Topic names for the in-process bus. Song-request topics fire after the
// corresponding store mutation has been committed.
const (
	TopicSongRequestCreated = "songRequest.created"
	TopicSongRequestDeleted = "songRequest.deleted"
	TopicSongRequestSkipped = "songRequest.skipped"
	TopicSongRequestCleared = "songRequest.cleared"

	TopicWidgetOpen  = "widget.open"
	TopicWidgetClose = "widget.close"

	TopicChatConnect = "chat.connect"
	TopicChatMessage = "chat.message"
	TopicChatSend    = "chat.send"
)

// SongRequestCreated carries a freshly persisted PENDING request.
type SongRequestCreated struct {
	Request models.SongRequest
}

// SongRequestDeleted carries a removed PENDING request. Removal of a PLAYING
// record is announced through SongRequestSkipped or not at all (natural end),
// never through this event.
type SongRequestDeleted struct {
	Request models.SongRequest
}

// SongRequestSkipped carries the pre-deletion snapshot of a skipped record.
type SongRequestSkipped struct {
	Request models.SongRequest
}

// SongRequestCleared signals that all PENDING requests of a channel were
// removed at once.
type SongRequestCleared struct {
	ChannelID string
}

// WidgetOpen fires when an overlay client announces itself for a channel.
type WidgetOpen struct {
	ChannelID string
}

// WidgetClose fires when the overlay for a channel goes away and its chat
// session may be released.
type WidgetClose struct {
	ChannelID string
}

// ChatUserRole is the viewer role as resolved by the chat platform.
type ChatUserRole string

const (
	RoleStreamer ChatUserRole = "streamer"
	RoleManager  ChatUserRole = "manager"
	RoleUser     ChatUserRole = "user"
	RoleUnknown  ChatUserRole = "unknown"
)

// ChatMessage is the canonical inbound chat message. Connector adapters
// translate platform wire shapes into this value before anything else sees
// them.
type ChatMessage struct {
	Service   string
	ChannelID string
	UserID    string
	Role      ChatUserRole
	Nickname  string
	Message   string
	Timestamp time.Time
}

// ChatConnect signals that a chat session for a channel became ready.
type ChatConnect struct {
	Service   string
	ChannelID string
}

// ChatSend is an outbound chat line for the connector to deliver.
type ChatSend struct {
	Service   string
	ChannelID string
	Message   string
}
