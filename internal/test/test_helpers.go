package test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/guubot/guubot/internal/models"
)

// GetTestDB creates an in-memory SQLite database with the song_requests
// schema migrated. Each call gets its own database so tests stay isolated.
func GetTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every pooled connection would otherwise get its own empty in-memory
	// database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.SongRequest{}))

	tearDown := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return db, tearDown
}

// CreateTestRequest inserts a song request and returns it with the generated id.
func CreateTestRequest(t *testing.T, db *gorm.DB, channelID, videoID string, status models.RequestStatus) *models.SongRequest {
	t.Helper()

	req := &models.SongRequest{
		ChannelID:   channelID,
		Service:     models.ServiceYouTube,
		URL:         "https://www.youtube.com/watch?v=" + videoID,
		Title:       "test video " + videoID,
		PlayTime:    models.Seconds(180),
		Status:      status,
		RequestFrom: models.OriginChat,
		RequestedBy: "user-" + videoID,
		RequestedAt: time.Now(),
	}
	require.NoError(t, db.Create(req).Error)
	return req
}
