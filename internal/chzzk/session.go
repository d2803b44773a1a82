package chzzk

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/guubot/guubot/internal/events"
	"github.com/guubot/guubot/internal/logging"
)

// Chat server frame commands.
const (
	cmdPing      = 0
	cmdPong      = 10000
	cmdConnect   = 100
	cmdConnected = 10100
	cmdSendChat  = 3101
	cmdChat      = 93101
)

type frame struct {
	Ver   string          `json:"ver"`
	Cmd   int             `json:"cmd"`
	SvcID string          `json:"svcid"`
	CID   string          `json:"cid"`
	TID   int             `json:"tid"`
	SID   string          `json:"sid,omitempty"`
	Body  json.RawMessage `json:"bdy,omitempty"`
}

type connectBody struct {
	UID         *string `json:"uid"`
	DevType     int     `json:"devType"`
	AccessToken string  `json:"accTkn"`
	Auth        string  `json:"auth"`
}

type connectedBody struct {
	SID string `json:"sid"`
}

type chatBody struct {
	Profile string `json:"profile"`
	Message string `json:"msg"`
	MsgTime int64  `json:"msgTime"`
	UID     string `json:"uid"`
	Hidden  bool   `json:"hidden"`
}

type chatProfile struct {
	Nickname     string `json:"nickname"`
	UserIDHash   string `json:"userIdHash"`
	UserRoleCode string `json:"userRoleCode"`
}

type sendChatBody struct {
	Message     string `json:"msg"`
	MsgTypeCode int    `json:"msgTypeCode"`
	Extras      string `json:"extras"`
	MsgTime     int64  `json:"msgTime"`
	SID         string `json:"sid"`
}

// chatSession is one websocket chat connection. Reads run on their own
// goroutine; writes are serialized through a mutex.
type chatSession struct {
	channelID     string
	chatChannelID string
	conn          *websocket.Conn
	sink          Sink

	writeMu sync.Mutex
	sid     string
	tid     int

	closeOnce sync.Once
	done      chan struct{}
}

// Dial implements Dialer. It resolves the chat channel and access token,
// connects to the chat server and starts the read and ping loops.
func (c *Client) Dial(channelID string, sink Sink) (Session, error) {
	chatChannelID, err := c.chatChannelID(channelID)
	if err != nil {
		return nil, err
	}
	token, err := c.accessToken(chatChannelID)
	if err != nil {
		return nil, err
	}

	// The chat cluster is sharded; the shard a chat channel lives on is
	// derived from its id the same way the web client does it.
	server := fmt.Sprintf(chatServerURL, shard(chatChannelID))
	conn, _, err := websocket.DefaultDialer.Dial(server, nil)
	if err != nil {
		return nil, errors.Wrap(err, "chat server dial failed")
	}

	s := &chatSession{
		channelID:     channelID,
		chatChannelID: chatChannelID,
		conn:          conn,
		sink:          sink,
		done:          make(chan struct{}),
	}

	if err := s.sendConnect(token); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

func shard(chatChannelID string) int {
	if chatChannelID == "" {
		return 1
	}
	return int(chatChannelID[len(chatChannelID)-1]%5) + 1
}

func (s *chatSession) sendConnect(token string) error {
	body, err := json.Marshal(connectBody{
		DevType:     2001,
		AccessToken: token,
		Auth:        "SEND",
	})
	if err != nil {
		return err
	}
	return s.writeFrame(frame{
		Ver:   "3",
		Cmd:   cmdConnect,
		SvcID: "game",
		CID:   s.chatChannelID,
		TID:   s.nextTID(),
		Body:  body,
	})
}

func (s *chatSession) nextTID() int {
	s.tid++
	return s.tid
}

func (s *chatSession) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *chatSession) readLoop() {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				logging.WithError(err).Warn().Str("channel_id", s.channelID).Msg("chat connection lost")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			logging.WithError(err).Debug().Msg("malformed chat frame")
			continue
		}

		switch f.Cmd {
		case cmdPing:
			_ = s.writeFrame(frame{Ver: "3", Cmd: cmdPong})
		case cmdConnected:
			var body connectedBody
			if err := json.Unmarshal(f.Body, &body); err == nil {
				s.writeMu.Lock()
				s.sid = body.SID
				s.writeMu.Unlock()
			}
			s.sink.OnConnect(serviceName, s.channelID)
		case cmdChat:
			s.handleChat(f.Body)
		}
	}
}

func (s *chatSession) handleChat(body json.RawMessage) {
	var messages []chatBody
	if err := json.Unmarshal(body, &messages); err != nil {
		logging.WithError(err).Debug().Msg("malformed chat body")
		return
	}

	for _, msg := range messages {
		if msg.Hidden {
			continue
		}

		var profile chatProfile
		if msg.Profile != "" {
			if err := json.Unmarshal([]byte(msg.Profile), &profile); err != nil {
				logging.WithError(err).Debug().Msg("malformed chat profile")
			}
		}

		userID := profile.UserIDHash
		if userID == "" {
			userID = msg.UID
		}

		s.sink.OnMessage(events.ChatMessage{
			Service:   serviceName,
			ChannelID: s.channelID,
			UserID:    userID,
			Role:      mapRole(profile.UserRoleCode),
			Nickname:  profile.Nickname,
			Message:   msg.Message,
			Timestamp: time.UnixMilli(msg.MsgTime),
		})
	}
}

func mapRole(code string) events.ChatUserRole {
	switch code {
	case "streamer":
		return events.RoleStreamer
	case "streaming_chat_manager", "streaming_channel_manager":
		return events.RoleManager
	case "common_user":
		return events.RoleUser
	default:
		return events.RoleUnknown
	}
}

// Send delivers one chat line. It fails until the connected frame carrying
// the session id has arrived.
func (s *chatSession) Send(message string) error {
	s.writeMu.Lock()
	sid := s.sid
	s.writeMu.Unlock()
	if sid == "" {
		return errors.New("chat session not yet connected")
	}

	body, err := json.Marshal(sendChatBody{
		Message:     message,
		MsgTypeCode: 1,
		Extras:      "{}",
		MsgTime:     time.Now().UnixMilli(),
		SID:         sid,
	})
	if err != nil {
		return err
	}
	return s.writeFrame(frame{
		Ver:   "3",
		Cmd:   cmdSendChat,
		SvcID: "game",
		CID:   s.chatChannelID,
		TID:   s.nextTID(),
		Body:  body,
	})
}

func (s *chatSession) pingLoop() {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.writeFrame(frame{Ver: "3", Cmd: cmdPong}); err != nil {
				return
			}
		}
	}
}

// Close tears the connection down.
func (s *chatSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
