package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaService identifies the platform a requested video comes from.
type MediaService string

const (
	ServiceYouTube MediaService = "YOUTUBE"
)

// RequestStatus is the lifecycle state of a song request. Finished songs are
// hard-deleted rather than kept with a terminal status, so only these two
// values are ever stored.
type RequestStatus string

const (
	StatusPending RequestStatus = "PENDING"
	StatusPlaying RequestStatus = "PLAYING"
)

// RequestOrigin records which surface created a request.
type RequestOrigin string

const (
	OriginChat   RequestOrigin = "CHAT"
	OriginWidget RequestOrigin = "WIDGET"
)

// Seconds is a duration in whole seconds. It marshals to a decimal string
// because the overlay consumes these values in JavaScript, where large sums
// would lose precision as numbers.
type Seconds int64

// MarshalJSON encodes the value as a quoted decimal string.
func (s Seconds) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatInt(int64(s), 10))), nil
}

// UnmarshalJSON accepts both string and number encodings.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	var raw json.Number
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		raw = json.Number(str)
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := raw.Int64()
	if err != nil {
		return err
	}
	*s = Seconds(v)
	return nil
}

// SongRequest represents the song_requests table. The primary key is a UUIDv7
// assigned at creation time; its lexicographic order is the queue order for a
// channel.
type SongRequest struct {
	ID          string        `gorm:"primaryKey;size:36" json:"id"`
	ChannelID   string        `gorm:"size:64;not null;index:idx_song_requests_channel_status,priority:1" json:"channel_id"`
	Service     MediaService  `gorm:"size:20;not null;default:'YOUTUBE'" json:"service"`
	URL         string        `gorm:"size:512;not null" json:"url"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	PlayTime    Seconds       `gorm:"not null;default:0" json:"play_time"`
	Status      RequestStatus `gorm:"size:20;not null;default:'PENDING';index:idx_song_requests_channel_status,priority:2" json:"status"`
	RequestFrom RequestOrigin `gorm:"size:20;not null;default:'CHAT'" json:"request_from"`
	RequestedBy string        `gorm:"size:128;not null" json:"requested_by"`
	RequestedAt time.Time     `json:"requested_at"`
}

func (SongRequest) TableName() string {
	return "song_requests"
}

// BeforeCreate assigns a time-ordered id so that insertion order and id order
// agree without a per-channel counter.
func (r *SongRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id.String()
	}
	return nil
}
