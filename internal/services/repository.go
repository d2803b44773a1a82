package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/guubot/guubot/internal/models"
)

// Repository handles database operations for song requests. It is the sole
// owner of the song_requests table; all access goes through the service on
// top of it.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// Create persists a new song request
func (r *Repository) Create(request *models.SongRequest) error {
	return r.db.Create(request).Error
}

// GetByID fetches a single request scoped to a channel
func (r *Repository) GetByID(id, channelID string) (*models.SongRequest, error) {
	var request models.SongRequest
	err := r.db.Where("id = ? AND channel_id = ?", id, channelID).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ActiveByChannel returns every non-terminal request of a channel ordered by
// id ascending. Because ids are time-ordered, this is queue order.
func (r *Repository) ActiveByChannel(channelID string) ([]models.SongRequest, error) {
	var requests []models.SongRequest
	err := r.db.
		Where("channel_id = ?", channelID).
		Order("id ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active requests: %w", err)
	}
	return requests, nil
}

// PendingCount counts the queued (not yet playing) requests of a channel
func (r *Repository) PendingCount(channelID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.SongRequest{}).
		Where("channel_id = ? AND status = ?", channelID, models.StatusPending).
		Count(&count).Error
	return count, err
}

// PendingDurationSum sums play_time over the PENDING requests of a channel
func (r *Repository) PendingDurationSum(channelID string) (models.Seconds, error) {
	var total int64
	err := r.db.Model(&models.SongRequest{}).
		Where("channel_id = ? AND status = ?", channelID, models.StatusPending).
		Select("COALESCE(SUM(play_time), 0)").
		Scan(&total).Error
	return models.Seconds(total), err
}

// LastPendingByUser returns the most recently created PENDING request of a
// user in a channel
func (r *Repository) LastPendingByUser(channelID, userID string) (*models.SongRequest, error) {
	var request models.SongRequest
	err := r.db.
		Where("channel_id = ? AND requested_by = ? AND status = ?", channelID, userID, models.StatusPending).
		Order("id DESC").
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// FirstPendingByChannel returns the head of the queue
func (r *Repository) FirstPendingByChannel(channelID string) (*models.SongRequest, error) {
	var request models.SongRequest
	err := r.db.
		Where("channel_id = ? AND status = ?", channelID, models.StatusPending).
		Order("id ASC").
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// CurrentPlaying returns the PLAYING request of a channel, if any
func (r *Repository) CurrentPlaying(channelID string) (*models.SongRequest, error) {
	var request models.SongRequest
	err := r.db.
		Where("channel_id = ? AND status = ?", channelID, models.StatusPlaying).
		Order("id ASC").
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// ChannelsWithPlaying lists the channels that currently have a PLAYING
// record. Used by the janitor to find playback state orphaned by a vanished
// overlay.
func (r *Repository) ChannelsWithPlaying() ([]string, error) {
	var channels []string
	err := r.db.Model(&models.SongRequest{}).
		Where("status = ?", models.StatusPlaying).
		Distinct("channel_id").
		Pluck("channel_id", &channels).Error
	return channels, err
}

// ExistsActiveURL reports whether a channel already has an active request for
// a URL. The caller's read-then-insert is not atomic; see the service.
func (r *Repository) ExistsActiveURL(channelID, url string) (bool, error) {
	var count int64
	err := r.db.Model(&models.SongRequest{}).
		Where("channel_id = ? AND url = ?", channelID, url).
		Count(&count).Error
	return count > 0, err
}

// SetStatus updates the status of a single request
func (r *Repository) SetStatus(id, channelID string, status models.RequestStatus) error {
	return r.db.Model(&models.SongRequest{}).
		Where("id = ? AND channel_id = ?", id, channelID).
		Update("status", status).Error
}

// DemoteOtherPlaying moves every PLAYING request of a channel except the
// named one back to PENDING. Keeps the at-most-one-PLAYING invariant when a
// new song starts before the previous one was removed.
func (r *Repository) DemoteOtherPlaying(id, channelID string) error {
	return r.db.Model(&models.SongRequest{}).
		Where("channel_id = ? AND status = ? AND id <> ?", channelID, models.StatusPlaying, id).
		Update("status", models.StatusPending).Error
}

// Delete removes a single request
func (r *Repository) Delete(id, channelID string) error {
	return r.db.
		Where("id = ? AND channel_id = ?", id, channelID).
		Delete(&models.SongRequest{}).Error
}

// RevertPlaying moves every PLAYING request of a channel back to PENDING and
// returns how many rows changed
func (r *Repository) RevertPlaying(channelID string) (int64, error) {
	result := r.db.Model(&models.SongRequest{}).
		Where("channel_id = ? AND status = ?", channelID, models.StatusPlaying).
		Update("status", models.StatusPending)
	return result.RowsAffected, result.Error
}

// ClearPending bulk-deletes the PENDING requests of a channel, leaving any
// PLAYING request in place
func (r *Repository) ClearPending(channelID string) (int64, error) {
	result := r.db.
		Where("channel_id = ? AND status = ?", channelID, models.StatusPending).
		Delete(&models.SongRequest{})
	return result.RowsAffected, result.Error
}
