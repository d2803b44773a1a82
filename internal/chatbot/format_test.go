package chatbot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guubot/guubot/internal/models"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  models.Seconds
		expected string
	}{
		{0, "0초"},
		{42, "42초"},
		{60, "1분 0초"},
		{420, "7분 0초"},
		{421, "7분 1초"},
		{3600, "1시간 0초"},
		{3661, "1시간 1분 1초"},
		{7325, "2시간 2분 5초"},
		{-5, "0초"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.seconds), "seconds=%d", tt.seconds)
	}
}
