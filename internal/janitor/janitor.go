package janitor

import (
	"github.com/robfig/cron/v3"

	"github.com/guubot/guubot/internal/logging"
	"github.com/guubot/guubot/internal/services"
)

// RoomChecker reports whether a channel has a live overlay connection.
type RoomChecker interface {
	HasRoom(channelID string) bool
}

// Janitor periodically reverts PLAYING records on channels whose overlay is
// gone. The song_stopped signal is the normal recovery path; this catches the
// connections that died without sending it.
type Janitor struct {
	repo  *services.Repository
	songs *services.SongRequestService
	rooms RoomChecker
	cron  *cron.Cron
}

// New creates a janitor with the given schedule (cron spec, e.g. "@every 1m").
func New(repo *services.Repository, songs *services.SongRequestService, rooms RoomChecker, schedule string) (*Janitor, error) {
	j := &Janitor{
		repo:  repo,
		songs: songs,
		rooms: rooms,
		cron:  cron.New(),
	}
	if _, err := j.cron.AddFunc(schedule, j.Sweep); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins the schedule.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep performs one reconciliation pass.
func (j *Janitor) Sweep() {
	channels, err := j.repo.ChannelsWithPlaying()
	if err != nil {
		logging.WithError(err).Error().Msg("janitor channel scan failed")
		return
	}

	for _, channelID := range channels {
		if j.rooms.HasRoom(channelID) {
			continue
		}
		reverted, err := j.songs.RevertToPending(channelID)
		if err != nil {
			logging.WithError(err).Error().Str("channel_id", channelID).Msg("janitor revert failed")
			continue
		}
		if reverted > 0 {
			logging.WithChannel(channelID).Warn().
				Int64("reverted", reverted).
				Msg("recovered playing state from dead overlay")
		}
	}
}
