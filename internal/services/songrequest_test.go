package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guubot/guubot/internal/bus"
	"github.com/guubot/guubot/internal/events"
	"github.com/guubot/guubot/internal/models"
	"github.com/guubot/guubot/internal/test"
)

func newTestService(t *testing.T) (*SongRequestService, *bus.Bus, func()) {
	db, tearDown := test.GetTestDB(t)
	b := bus.New()
	return NewSongRequestService(NewRepository(db), b), b, tearDown
}

func enqueue(t *testing.T, s *SongRequestService, channelID, videoID, userID string, playTime models.Seconds) *models.SongRequest {
	t.Helper()
	req, _, err := s.Enqueue(EnqueueParams{
		ChannelID:   channelID,
		Service:     models.ServiceYouTube,
		URL:         "https://www.youtube.com/watch?v=" + videoID,
		Title:       "video " + videoID,
		PlayTime:    playTime,
		RequestFrom: models.OriginChat,
		RequestedBy: userID,
		RequestedAt: time.Now(),
	})
	require.NoError(t, err)
	return req
}

func TestEnqueueAssignsIDAndPosition(t *testing.T) {
	s, b, tearDown := newTestService(t)
	defer tearDown()

	var created []events.SongRequestCreated
	b.Subscribe(events.TopicSongRequestCreated, func(payload any) {
		created = append(created, payload.(events.SongRequestCreated))
	})

	first, pos, err := s.Enqueue(EnqueueParams{
		ChannelID:   "ch-1",
		Service:     models.ServiceYouTube,
		URL:         "https://www.youtube.com/watch?v=aaaaaaaaaaa",
		Title:       "first",
		PlayTime:    180,
		RequestFrom: models.OriginChat,
		RequestedBy: "alice",
		RequestedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, models.StatusPending, first.Status)
	assert.Equal(t, 1, pos)

	second := enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 240)
	assert.Greater(t, second.ID, first.ID, "later request must sort after earlier one")

	require.Len(t, created, 2)
	assert.Equal(t, first.ID, created[0].Request.ID)
	assert.Equal(t, second.ID, created[1].Request.ID)
}

func TestEnqueueRejectsDuplicateActiveURL(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)

	_, _, err := s.Enqueue(EnqueueParams{
		ChannelID:   "ch-1",
		Service:     models.ServiceYouTube,
		URL:         "https://www.youtube.com/watch?v=aaaaaaaaaaa",
		Title:       "same video",
		PlayTime:    180,
		RequestFrom: models.OriginChat,
		RequestedBy: "bob",
		RequestedAt: time.Now(),
	})
	assert.ErrorIs(t, err, ErrDuplicateRequest)

	// Other channels are unaffected.
	other := enqueue(t, s, "ch-2", "aaaaaaaaaaa", "bob", 180)
	assert.NotEmpty(t, other.ID)
}

func TestEnqueueAllowsURLAgainAfterDeletion(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	first := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	_, err := s.DeleteRequest(first.ID, "ch-1")
	require.NoError(t, err)

	again := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestListReturnsPlayOrder(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	a := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 100)
	b := enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 100)
	c := enqueue(t, s, "ch-1", "ccccccccccc", "carol", 100)

	queue, err := s.List("ch-1")
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{queue[0].ID, queue[1].ID, queue[2].ID})
}

func TestPendingCountExcludesPlaying(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	playing := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 240)
	require.NoError(t, s.SetPlaying(playing.ID, "ch-1"))

	count, err := s.PendingCount("ch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPendingDurationSumsQueuedRequests(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 240)

	total, err := s.PendingDuration("ch-1")
	require.NoError(t, err)
	assert.Equal(t, models.Seconds(420), total)
}

func TestPendingDurationOfEmptyQueueIsZero(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	total, err := s.PendingDuration("ch-1")
	require.NoError(t, err)
	assert.Equal(t, models.Seconds(0), total)
}

func TestSetPlayingIsIdempotent(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	req := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)

	require.NoError(t, s.SetPlaying(req.ID, "ch-1"))
	require.NoError(t, s.SetPlaying(req.ID, "ch-1"))

	current, err := s.CurrentSong("ch-1")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, req.ID, current.ID)
	assert.Equal(t, models.StatusPlaying, current.Status)
}

func TestAtMostOnePlayingPerChannel(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	first := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	second := enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 240)

	require.NoError(t, s.SetPlaying(first.ID, "ch-1"))
	require.NoError(t, s.SetPlaying(second.ID, "ch-1"))

	queue, err := s.List("ch-1")
	require.NoError(t, err)

	var playing int
	for _, req := range queue {
		if req.Status == models.StatusPlaying {
			playing++
			assert.Equal(t, second.ID, req.ID)
		}
	}
	assert.Equal(t, 1, playing)

	// The demoted song goes back to the head of the queue.
	next, err := s.NextPending("ch-1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, first.ID, next.ID)
}

func TestCurrentSongNilWhenNothingPlaying(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)

	current, err := s.CurrentSong("ch-1")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestNextPendingSkipsPlayingHead(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	playing := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	queued := enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 240)
	require.NoError(t, s.SetPlaying(playing.ID, "ch-1"))

	next, err := s.NextPending("ch-1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, queued.ID, next.ID)
}

func TestNextPendingNilOnEmptyQueue(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	next, err := s.NextPending("ch-1")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestLastPendingByUserReturnsLatest(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	latest := enqueue(t, s, "ch-1", "bbbbbbbbbbb", "alice", 240)
	enqueue(t, s, "ch-1", "ccccccccccc", "bob", 100)

	got, err := s.LastPendingByUser("ch-1", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, latest.ID, got.ID)

	none, err := s.LastPendingByUser("ch-1", "nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDeletePendingPublishesDeletedEvent(t *testing.T) {
	s, b, tearDown := newTestService(t)
	defer tearDown()

	var deleted []events.SongRequestDeleted
	b.Subscribe(events.TopicSongRequestDeleted, func(payload any) {
		deleted = append(deleted, payload.(events.SongRequestDeleted))
	})

	req := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)

	removed, err := s.DeleteRequest(req.ID, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, req.ID, removed.ID)

	require.Len(t, deleted, 1)
	assert.Equal(t, req.ID, deleted[0].Request.ID)

	queue, err := s.List("ch-1")
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestDeletePlayingDoesNotPublishDeletedEvent(t *testing.T) {
	s, b, tearDown := newTestService(t)
	defer tearDown()

	var deletedEvents int
	b.Subscribe(events.TopicSongRequestDeleted, func(payload any) { deletedEvents++ })

	req := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	require.NoError(t, s.SetPlaying(req.ID, "ch-1"))

	_, err := s.DeleteRequest(req.ID, "ch-1")
	require.NoError(t, err)

	assert.Zero(t, deletedEvents)

	current, err := s.CurrentSong("ch-1")
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestDeleteMissingRequestFails(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	_, err := s.DeleteRequest("no-such-id", "ch-1")
	assert.Error(t, err)
}

func TestSkipPublishesRequestData(t *testing.T) {
	s, b, tearDown := newTestService(t)
	defer tearDown()

	var skipped []events.SongRequestSkipped
	b.Subscribe(events.TopicSongRequestSkipped, func(payload any) {
		skipped = append(skipped, payload.(events.SongRequestSkipped))
	})

	req := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	require.NoError(t, s.SetPlaying(req.ID, "ch-1"))

	current, err := s.CurrentSong("ch-1")
	require.NoError(t, err)
	require.NoError(t, s.Skip(current))

	require.Len(t, skipped, 1)
	assert.Equal(t, req.ID, skipped[0].Request.ID)
	assert.Equal(t, req.Title, skipped[0].Request.Title)

	gone, err := s.CurrentSong("ch-1")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRevertToPendingRestoresQueueHead(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	playing := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 240)
	require.NoError(t, s.SetPlaying(playing.ID, "ch-1"))

	reverted, err := s.RevertToPending("ch-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), reverted)

	// The interrupted song keeps its slot at the head of the queue.
	next, err := s.NextPending("ch-1")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, playing.ID, next.ID)
}

func TestRevertToPendingOnIdleChannelIsNoop(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	reverted, err := s.RevertToPending("ch-1")
	require.NoError(t, err)
	assert.Zero(t, reverted)
}

func TestClearQueueSparesPlaying(t *testing.T) {
	s, b, tearDown := newTestService(t)
	defer tearDown()

	var cleared []events.SongRequestCleared
	b.Subscribe(events.TopicSongRequestCleared, func(payload any) {
		cleared = append(cleared, payload.(events.SongRequestCleared))
	})

	playing := enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	enqueue(t, s, "ch-1", "bbbbbbbbbbb", "bob", 240)
	enqueue(t, s, "ch-1", "ccccccccccc", "carol", 100)
	require.NoError(t, s.SetPlaying(playing.ID, "ch-1"))

	require.NoError(t, s.ClearQueue("ch-1"))

	require.Len(t, cleared, 1)
	assert.Equal(t, "ch-1", cleared[0].ChannelID)

	queue, err := s.List("ch-1")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, playing.ID, queue[0].ID)
	assert.Equal(t, models.StatusPlaying, queue[0].Status)
}

func TestChannelsAreIsolated(t *testing.T) {
	s, _, tearDown := newTestService(t)
	defer tearDown()

	enqueue(t, s, "ch-1", "aaaaaaaaaaa", "alice", 180)
	other := enqueue(t, s, "ch-2", "bbbbbbbbbbb", "bob", 240)

	require.NoError(t, s.ClearQueue("ch-1"))

	queue, err := s.List("ch-2")
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, other.ID, queue[0].ID)
}
