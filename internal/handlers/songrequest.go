package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guubot/guubot/internal/services"
	"github.com/guubot/guubot/internal/utils"
)

// SongRequestHandler serves the read-only HTTP mirror of a channel's queue.
type SongRequestHandler struct {
	songs *services.SongRequestService
}

// NewSongRequestHandler creates a new song request handler
func NewSongRequestHandler(songs *services.SongRequestService) *SongRequestHandler {
	return &SongRequestHandler{
		songs: songs,
	}
}

// GetQueue handles GET /song-request/:channelId and returns the channel's
// active queue in play order.
func (h *SongRequestHandler) GetQueue(c *fiber.Ctx) error {
	channelID := c.Params("channelId")
	if channelID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "channel id is required")
	}

	requests, err := h.songs.List(channelID)
	if err != nil {
		return utils.SendInternalServerError(c, "Failed to fetch song requests")
	}

	return c.JSON(requests)
}
