package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/guubot/guubot/internal/models"
)

// Info is the metadata the queue needs about a video.
type Info struct {
	VideoID    string         `json:"video_id"`
	Title      string         `json:"title"`
	Length     models.Seconds `json:"length"`
	Embeddable bool           `json:"embeddable"`
}

// Provider resolves video metadata by id.
type Provider interface {
	Lookup(ctx context.Context, videoID string) (*Info, error)
}

const (
	playerEndpoint = "https://www.youtube.com/youtubei/v1/player"
	// Public web client identity; the player endpoint rejects requests
	// without one.
	clientName    = "WEB"
	clientVersion = "2.20240726.00.00"
)

// YouTubeClient fetches metadata from the YouTube player endpoint.
type YouTubeClient struct {
	httpClient *http.Client
}

// NewYouTubeClient creates a client with a bounded request timeout.
func NewYouTubeClient() *YouTubeClient {
	return &YouTubeClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type playerRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
		} `json:"client"`
	} `json:"context"`
	VideoID string `json:"videoId"`
}

type playerResponse struct {
	PlayabilityStatus struct {
		Status          string `json:"status"`
		PlayableInEmbed bool   `json:"playableInEmbed"`
	} `json:"playabilityStatus"`
	VideoDetails struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		LengthSeconds string `json:"lengthSeconds"`
		IsPrivate     bool   `json:"isPrivate"`
		IsCrawlable   bool   `json:"isCrawlable"`
	} `json:"videoDetails"`
}

// Lookup fetches title, length and embeddability for a video id.
func (c *YouTubeClient) Lookup(ctx context.Context, videoID string) (*Info, error) {
	reqBody := playerRequest{VideoID: videoID}
	reqBody.Context.Client.ClientName = clientName
	reqBody.Context.Client.ClientVersion = clientVersion

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, playerEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "video metadata request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video metadata request returned status %d", resp.StatusCode)
	}

	var result playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to decode video metadata")
	}

	length, _ := strconv.ParseInt(result.VideoDetails.LengthSeconds, 10, 64)

	embeddable := result.PlayabilityStatus.Status == "OK" &&
		result.PlayabilityStatus.PlayableInEmbed &&
		result.VideoDetails.IsCrawlable &&
		!result.VideoDetails.IsPrivate

	return &Info{
		VideoID:    result.VideoDetails.VideoID,
		Title:      result.VideoDetails.Title,
		Length:     models.Seconds(length),
		Embeddable: embeddable,
	}, nil
}
