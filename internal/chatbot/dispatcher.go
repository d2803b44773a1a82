package chatbot

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/guubot/guubot/internal/bus"
	"github.com/guubot/guubot/internal/events"
	"github.com/guubot/guubot/internal/logging"
	"github.com/guubot/guubot/internal/metrics"
	"github.com/guubot/guubot/internal/models"
	"github.com/guubot/guubot/internal/services"
	"github.com/guubot/guubot/internal/video"
)

// Handler executes one canonical chat command.
type Handler func(msg events.ChatMessage, args string)

// Config tunes the dispatcher.
type Config struct {
	Prefix         string
	UserRateLimit  int
	UserRateWindow time.Duration
}

// Dispatcher turns inbound chat messages into queue operations and publishes
// formatted replies for the connector to deliver. It holds two tables: alias
// to canonical command, consulted first, and canonical command to handler.
// Unresolved commands are logged and ignored without a reply.
type Dispatcher struct {
	bus      *bus.Bus
	songs    *services.SongRequestService
	videos   video.Provider
	cfg      Config
	commands map[string]Handler
	aliases  map[string]string

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewDispatcher creates the dispatcher and subscribes it to the chat topics.
func NewDispatcher(b *bus.Bus, songs *services.SongRequestService, videos video.Provider, cfg Config) *Dispatcher {
	if cfg.Prefix == "" {
		cfg.Prefix = "!"
	}
	if cfg.UserRateLimit <= 0 {
		cfg.UserRateLimit = 20
	}
	if cfg.UserRateWindow <= 0 {
		cfg.UserRateWindow = time.Minute
	}

	d := &Dispatcher{
		bus:      b,
		songs:    songs,
		videos:   videos,
		cfg:      cfg,
		commands: make(map[string]Handler),
		aliases:  make(map[string]string),
		limiters: make(map[string]*rate.Limiter),
	}
	d.registerCommands()
	d.registerAliases()

	b.Subscribe(events.TopicChatMessage, func(payload any) {
		if msg, ok := payload.(events.ChatMessage); ok {
			d.HandleMessage(msg)
		}
	})
	b.Subscribe(events.TopicChatConnect, func(payload any) {
		if ev, ok := payload.(events.ChatConnect); ok {
			d.sendChat(ev.Service, ev.ChannelID, "구우봇이 연결되었습니다.")
		}
	})

	return d
}

func (d *Dispatcher) registerCommands() {
	d.commands["sr"] = d.songRequest
	d.commands["sl"] = d.songList
	d.commands["cs"] = d.currentSong
	d.commands["skip"] = d.skip
	d.commands["wrongsong"] = d.wrongSong
	d.commands["clear"] = d.clear
	d.commands["command"] = d.help
}

func (d *Dispatcher) registerAliases() {
	d.aliases["명령어"] = "command"
	d.aliases["help"] = "command"
	d.aliases["우롱송"] = "wrongsong"
	d.aliases["스킵"] = "skip"
	d.aliases["ㄴㄱ"] = "sr"
	d.aliases["ㅊㄴ"] = "cs"
	d.aliases["니"] = "sl"
	d.aliases["클리어"] = "clear"
}

// HandleMessage parses one inbound chat line. Lines without the command
// prefix are not commands and fall through silently.
func (d *Dispatcher) HandleMessage(msg events.ChatMessage) {
	text := strings.TrimSpace(msg.Message)
	if !strings.HasPrefix(text, d.cfg.Prefix) {
		return
	}
	if !d.allow(msg.ChannelID, msg.UserID) {
		logging.WithChannel(msg.ChannelID).Debug().Str("user_id", msg.UserID).Msg("chat command rate limited")
		return
	}

	name, args := splitCommand(strings.TrimPrefix(text, d.cfg.Prefix))
	if canonical, ok := d.aliases[name]; ok {
		name = canonical
	}
	handler, ok := d.commands[name]
	if !ok {
		logging.WithChannel(msg.ChannelID).Debug().Str("command", name).Msg("command not found")
		return
	}

	metrics.ChatCommandsTotal.WithLabelValues(name).Inc()
	handler(msg, args)
}

// splitCommand separates the command word from the rest of the line.
func splitCommand(text string) (string, string) {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.TrimSpace(parts[1])
}

func (d *Dispatcher) allow(channelID, userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := channelID + ":" + userID
	limiter, ok := d.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(
			rate.Every(d.cfg.UserRateWindow/time.Duration(d.cfg.UserRateLimit)),
			d.cfg.UserRateLimit,
		)
		d.limiters[key] = limiter
	}
	return limiter.Allow()
}

func (d *Dispatcher) sendChat(service, channelID, message string) {
	d.bus.Publish(events.TopicChatSend, events.ChatSend{
		Service:   service,
		ChannelID: channelID,
		Message:   message,
	})
}

func mention(msg events.ChatMessage) string {
	if msg.Nickname == "" {
		return ""
	}
	return "@" + msg.Nickname + ": "
}

func (d *Dispatcher) songRequest(msg events.ChatMessage, args string) {
	m := mention(msg)
	if strings.TrimSpace(args) == "" {
		d.sendChat(msg.Service, msg.ChannelID, m+"주소를 입력해주세요.")
		return
	}

	videoID := video.ExtractID(args)
	if videoID == "" {
		d.sendChat(msg.Service, msg.ChannelID, m+"입력한 주소가 올바르지 않습니다.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	info, err := d.videos.Lookup(ctx, videoID)
	if err != nil {
		logging.WithError(err).Error().Str("video_id", videoID).Msg("video metadata lookup failed")
		return
	}
	if !info.Embeddable {
		d.sendChat(msg.Service, msg.ChannelID, m+"재생할 수 없는 동영상입니다.")
		return
	}

	request, position, err := d.songs.Enqueue(services.EnqueueParams{
		ChannelID:   msg.ChannelID,
		Service:     models.ServiceYouTube,
		URL:         video.WatchURL(videoID),
		Title:       info.Title,
		PlayTime:    info.Length,
		RequestFrom: models.OriginChat,
		RequestedBy: msg.UserID,
		RequestedAt: msg.Timestamp,
	})
	if err != nil {
		if err == services.ErrDuplicateRequest {
			d.sendChat(msg.Service, msg.ChannelID, m+"이미 대기열에 등록된 곡입니다.")
			return
		}
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("enqueue failed")
		return
	}

	d.sendChat(msg.Service, msg.ChannelID,
		m+"<"+request.Title+"> 재생목록에 "+formatOrdinal(position)+"번째로 추가되었습니다.")
}

func (d *Dispatcher) songList(msg events.ChatMessage, _ string) {
	m := mention(msg)

	count, err := d.songs.PendingCount(msg.ChannelID)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("pending count failed")
		return
	}
	total, err := d.songs.PendingDuration(msg.ChannelID)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("pending duration failed")
		return
	}

	d.sendChat(msg.Service, msg.ChannelID,
		m+"대기열 "+formatCount(count)+"개, 총 길이: "+FormatDuration(total))
}

func (d *Dispatcher) currentSong(msg events.ChatMessage, _ string) {
	m := mention(msg)

	current, err := d.songs.CurrentSong(msg.ChannelID)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("current song lookup failed")
		return
	}
	if current == nil {
		d.sendChat(msg.Service, msg.ChannelID, m+"재생 중인 곡이 없습니다.")
		return
	}
	d.sendChat(msg.Service, msg.ChannelID, m+"현재 곡: "+current.Title)
}

func (d *Dispatcher) skip(msg events.ChatMessage, _ string) {
	m := mention(msg)

	current, err := d.songs.CurrentSong(msg.ChannelID)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("current song lookup failed")
		return
	}
	if current == nil {
		d.sendChat(msg.Service, msg.ChannelID, m+"재생중인 곡이 없습니다.")
		return
	}
	if current.RequestedBy != msg.UserID {
		d.sendChat(msg.Service, msg.ChannelID, m+"등록한 곡이 아닙니다.")
		return
	}
	if err := d.songs.Skip(current); err != nil {
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("skip failed")
		return
	}
	d.sendChat(msg.Service, msg.ChannelID, m+"재생 중인 "+current.Title+" 영상을 스킵합니다.")
}

func (d *Dispatcher) wrongSong(msg events.ChatMessage, _ string) {
	m := mention(msg)

	last, err := d.songs.LastPendingByUser(msg.ChannelID, msg.UserID)
	if err != nil {
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("last request lookup failed")
		return
	}
	if last == nil {
		d.sendChat(msg.Service, msg.ChannelID, m+"신청하신 곡이 없습니다.")
		return
	}
	if _, err := d.songs.DeleteRequest(last.ID, last.ChannelID); err != nil {
		logging.WithError(err).Warn().Str("channel_id", msg.ChannelID).Msg("undo delete failed")
		return
	}
	d.sendChat(msg.Service, msg.ChannelID, m+"신청하신 "+last.Title+" 곡이 삭제되었습니다.")
}

func (d *Dispatcher) clear(msg events.ChatMessage, _ string) {
	if msg.Role != events.RoleStreamer && msg.Role != events.RoleManager {
		d.sendChat(msg.Service, msg.ChannelID, "스트리머 혹은 매니저만 사용할 수 있습니다.")
		return
	}
	if err := d.songs.ClearQueue(msg.ChannelID); err != nil {
		logging.WithError(err).Error().Str("channel_id", msg.ChannelID).Msg("clear queue failed")
		d.sendChat(msg.Service, msg.ChannelID, "대기열을 비우는 데 실패했습니다.")
		return
	}
	d.sendChat(msg.Service, msg.ChannelID, "대기열을 비웠습니다.")
}

func (d *Dispatcher) help(msg events.ChatMessage, _ string) {
	d.sendChat(msg.Service, msg.ChannelID,
		"명령어: !sr <url>, !sl, !cs, !skip, !wrongsong, !clear, !command")
}
