package chatbot

import (
	"strconv"

	"github.com/guubot/guubot/internal/models"
)

// FormatDuration renders a duration as Korean hour/minute/second components.
// Zero-valued larger units are omitted; seconds are always shown, so 420
// seconds renders as "7분 0초".
func FormatDuration(total models.Seconds) string {
	seconds := int64(total)
	if seconds < 0 {
		seconds = 0
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	out := strconv.FormatInt(secs, 10) + "초"
	if minutes > 0 {
		out = strconv.FormatInt(minutes, 10) + "분 " + out
	}
	if hours > 0 {
		out = strconv.FormatInt(hours, 10) + "시간 " + out
	}
	return out
}

func formatCount(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatOrdinal(n int) string {
	return strconv.Itoa(n)
}
