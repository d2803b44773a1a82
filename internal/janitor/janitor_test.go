package janitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guubot/guubot/internal/bus"
	"github.com/guubot/guubot/internal/models"
	"github.com/guubot/guubot/internal/services"
	"github.com/guubot/guubot/internal/test"
)

type fakeRooms map[string]bool

func (f fakeRooms) HasRoom(channelID string) bool { return f[channelID] }

func setup(t *testing.T) (*services.Repository, *services.SongRequestService, func()) {
	db, tearDown := test.GetTestDB(t)
	repo := services.NewRepository(db)
	return repo, services.NewSongRequestService(repo, bus.New()), tearDown
}

func play(t *testing.T, songs *services.SongRequestService, channelID, videoID string) {
	t.Helper()
	req, _, err := songs.Enqueue(services.EnqueueParams{
		ChannelID:   channelID,
		Service:     models.ServiceYouTube,
		URL:         "https://www.youtube.com/watch?v=" + videoID,
		Title:       "video " + videoID,
		PlayTime:    180,
		RequestFrom: models.OriginChat,
		RequestedBy: "user-1",
		RequestedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, songs.SetPlaying(req.ID, channelID))
}

func TestSweepRevertsOrphanedPlayback(t *testing.T) {
	repo, songs, tearDown := setup(t)
	defer tearDown()

	play(t, songs, "dead-overlay", "aaaaaaaaaaa")
	play(t, songs, "live-overlay", "bbbbbbbbbbb")

	j, err := New(repo, songs, fakeRooms{"live-overlay": true}, "@every 1m")
	require.NoError(t, err)
	j.Sweep()

	// The channel without an overlay gets its song back in the queue.
	next, err := songs.NextPending("dead-overlay")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, models.StatusPending, next.Status)

	// The connected channel keeps playing.
	current, err := songs.CurrentSong("live-overlay")
	require.NoError(t, err)
	assert.NotNil(t, current)
}

func TestSweepIsQuietWhenNothingPlays(t *testing.T) {
	repo, songs, tearDown := setup(t)
	defer tearDown()

	j, err := New(repo, songs, fakeRooms{}, "@every 1m")
	require.NoError(t, err)

	assert.NotPanics(t, j.Sweep)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	repo, songs, tearDown := setup(t)
	defer tearDown()

	_, err := New(repo, songs, fakeRooms{}, "not a schedule")
	assert.Error(t, err)
}
