package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondsMarshalsAsString(t *testing.T) {
	data, err := json.Marshal(Seconds(420))
	require.NoError(t, err)
	assert.Equal(t, `"420"`, string(data))

	data, err = json.Marshal(Seconds(0))
	require.NoError(t, err)
	assert.Equal(t, `"0"`, string(data))
}

func TestSecondsUnmarshalAcceptsStringAndNumber(t *testing.T) {
	var s Seconds
	require.NoError(t, json.Unmarshal([]byte(`"180"`), &s))
	assert.Equal(t, Seconds(180), s)

	require.NoError(t, json.Unmarshal([]byte(`240`), &s))
	assert.Equal(t, Seconds(240), s)

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &s))
}

func TestSongRequestJSONFieldNames(t *testing.T) {
	req := SongRequest{
		ID:          "0190a000-0000-7000-8000-000000000001",
		ChannelID:   "channel-1",
		Service:     ServiceYouTube,
		URL:         "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:       "a song",
		PlayTime:    212,
		Status:      StatusPending,
		RequestFrom: OriginChat,
		RequestedBy: "user-1",
	}

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"id", "channel_id", "service", "url", "title", "play_time", "status", "request_from", "requested_by", "requested_at"} {
		assert.Contains(t, decoded, key)
	}
	assert.JSONEq(t, `"212"`, string(decoded["play_time"]))
	assert.JSONEq(t, `"PENDING"`, string(decoded["status"]))
}
