package services

import (
	"time"

	stderrors "errors"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/guubot/guubot/internal/bus"
	"github.com/guubot/guubot/internal/events"
	"github.com/guubot/guubot/internal/logging"
	"github.com/guubot/guubot/internal/metrics"
	"github.com/guubot/guubot/internal/models"
)

// ErrDuplicateRequest is returned when a channel already has an active
// request for the same URL.
var ErrDuplicateRequest = stderrors.New("song request already queued for this url")

// EnqueueParams describes a new song request.
type EnqueueParams struct {
	ChannelID   string
	Service     models.MediaService
	URL         string
	Title       string
	PlayTime    models.Seconds
	RequestFrom models.RequestOrigin
	RequestedBy string
	RequestedAt time.Time
}

// SongRequestService enforces the queue invariants over the repository and
// publishes a domain event for every committed mutation. It is the single
// writer of song-request state.
type SongRequestService struct {
	repo *Repository
	bus  *bus.Bus
}

// NewSongRequestService creates the service.
func NewSongRequestService(repo *Repository, b *bus.Bus) *SongRequestService {
	return &SongRequestService{
		repo: repo,
		bus:  b,
	}
}

// Enqueue adds a PENDING request to the back of a channel's queue and returns
// it with its 1-indexed position. It fails with ErrDuplicateRequest when the
// channel already has an active request for the URL.
//
// The duplicate check and the insert are two store round-trips, not one
// atomic operation: two near-simultaneous calls for the same URL can both
// pass the check before either commits. The window is accepted; losing the
// race costs one extra queue entry, not a crash.
func (s *SongRequestService) Enqueue(params EnqueueParams) (*models.SongRequest, int, error) {
	exists, err := s.repo.ExistsActiveURL(params.ChannelID, params.URL)
	if err != nil {
		return nil, 0, errors.Wrap(err, "duplicate check failed")
	}
	if exists {
		return nil, 0, ErrDuplicateRequest
	}

	request := &models.SongRequest{
		ChannelID:   params.ChannelID,
		Service:     params.Service,
		URL:         params.URL,
		Title:       params.Title,
		PlayTime:    params.PlayTime,
		Status:      models.StatusPending,
		RequestFrom: params.RequestFrom,
		RequestedBy: params.RequestedBy,
		RequestedAt: params.RequestedAt,
	}
	if err := s.repo.Create(request); err != nil {
		return nil, 0, errors.Wrap(err, "failed to persist song request")
	}

	metrics.SongRequestsCreated.Inc()
	s.bus.Publish(events.TopicSongRequestCreated, events.SongRequestCreated{Request: *request})

	position, err := s.queuePosition(request)
	if err != nil {
		// The request is committed; a failed position read only degrades the
		// chat reply.
		logging.WithError(err).Warn().Str("channel_id", params.ChannelID).Msg("queue position lookup failed")
		return request, 0, nil
	}
	return request, position, nil
}

func (s *SongRequestService) queuePosition(request *models.SongRequest) (int, error) {
	items, err := s.repo.ActiveByChannel(request.ChannelID)
	if err != nil {
		return 0, err
	}
	for i := range items {
		if items[i].ID == request.ID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// List returns a channel's active queue in play order.
func (s *SongRequestService) List(channelID string) ([]models.SongRequest, error) {
	return s.repo.ActiveByChannel(channelID)
}

// PendingCount counts the queued requests of a channel. A PLAYING record is
// not part of the queued total.
func (s *SongRequestService) PendingCount(channelID string) (int64, error) {
	return s.repo.PendingCount(channelID)
}

// PendingDuration sums the play time of a channel's queued requests.
func (s *SongRequestService) PendingDuration(channelID string) (models.Seconds, error) {
	return s.repo.PendingDurationSum(channelID)
}

// LastPendingByUser finds the caller's most recent queued request, or nil
// when there is none.
func (s *SongRequestService) LastPendingByUser(channelID, userID string) (*models.SongRequest, error) {
	request, err := s.repo.LastPendingByUser(channelID, userID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return request, err
}

// NextPending returns the head of a channel's queue, or nil when it is empty.
func (s *SongRequestService) NextPending(channelID string) (*models.SongRequest, error) {
	request, err := s.repo.FirstPendingByChannel(channelID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return request, err
}

// CurrentSong returns the channel's PLAYING request, or nil when nothing is
// playing.
func (s *SongRequestService) CurrentSong(channelID string) (*models.SongRequest, error) {
	request, err := s.repo.CurrentPlaying(channelID)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return request, err
}

// SetPlaying transitions a request to PLAYING. Calling it on a record that is
// already PLAYING changes nothing. Any other PLAYING record of the channel is
// demoted back to PENDING first, keeping at most one PLAYING per channel.
func (s *SongRequestService) SetPlaying(id, channelID string) error {
	if err := s.repo.DemoteOtherPlaying(id, channelID); err != nil {
		return errors.Wrap(err, "failed to demote stale playing request")
	}
	return errors.Wrap(s.repo.SetStatus(id, channelID, models.StatusPlaying), "failed to mark request playing")
}

// DeleteRequest removes a request. A deleted event is published only when the
// removed record was still PENDING: removal of a PLAYING record is announced
// through the skipped event or not at all (natural end), so emitting deleted
// there would notify subscribers twice.
func (s *SongRequestService) DeleteRequest(id, channelID string) (*models.SongRequest, error) {
	request, err := s.repo.GetByID(id, channelID)
	if err != nil {
		return nil, errors.Wrap(err, "request to delete was not found")
	}
	if err := s.repo.Delete(id, channelID); err != nil {
		return nil, errors.Wrap(err, "failed to delete song request")
	}
	if request.Status == models.StatusPending {
		s.bus.Publish(events.TopicSongRequestDeleted, events.SongRequestDeleted{Request: *request})
	}
	return request, nil
}

// Skip removes the given PLAYING request and publishes a skipped event that
// carries its pre-deletion data, so subscribers can tell a skip from a
// natural end.
func (s *SongRequestService) Skip(request *models.SongRequest) error {
	if err := s.repo.Delete(request.ID, request.ChannelID); err != nil {
		return errors.Wrap(err, "failed to delete skipped request")
	}
	s.bus.Publish(events.TopicSongRequestSkipped, events.SongRequestSkipped{Request: *request})
	return nil
}

// RevertToPending moves every PLAYING request of a channel back to PENDING.
// This is the recovery path for an overlay that disconnected mid-playback:
// the interrupted song stays at the head of the queue instead of being lost.
func (s *SongRequestService) RevertToPending(channelID string) (int64, error) {
	reverted, err := s.repo.RevertPlaying(channelID)
	if err != nil {
		return 0, errors.Wrap(err, "failed to revert playing requests")
	}
	if reverted > 0 {
		logging.WithChannel(channelID).Info().Int64("reverted", reverted).Msg("playing requests reverted to pending")
	}
	return reverted, nil
}

// ClearQueue removes every PENDING request of a channel, leaving any PLAYING
// record untouched, and publishes a cleared event. Authorization is the
// caller's job.
func (s *SongRequestService) ClearQueue(channelID string) error {
	if _, err := s.repo.ClearPending(channelID); err != nil {
		return errors.Wrap(err, "failed to clear queue")
	}
	s.bus.Publish(events.TopicSongRequestCleared, events.SongRequestCleared{ChannelID: channelID})
	return nil
}
