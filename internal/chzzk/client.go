package chzzk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/guubot/guubot/internal/config"
)

const (
	liveStatusURL  = "https://api.chzzk.naver.com/polling/v2/channels/%s/live-status"
	accessTokenURL = "https://comm-api.game.naver.com/nng_main/v1/chats/access-token?channelId=%s&chatType=STREAMING"
	chatServerURL  = "wss://kr-ss%d.chat.naver.com/chat"

	serviceName = "chzzk"
)

// Client talks to the chzzk REST API and dials chat websockets. It is the
// only code that knows the platform's wire shapes.
type Client struct {
	cfg        config.ChzzkConfig
	httpClient *http.Client
}

// NewClient creates a platform client using the configured session cookies.
func NewClient(cfg config.ChzzkConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type liveStatusResponse struct {
	Content struct {
		ChatChannelID string `json:"chatChannelId"`
		Status        string `json:"status"`
	} `json:"content"`
}

type accessTokenResponse struct {
	Content struct {
		AccessToken string `json:"accessToken"`
	} `json:"content"`
}

func (c *Client) get(url string, out any) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if c.cfg.NIDAuth != "" {
		req.Header.Set("Cookie", fmt.Sprintf("NID_AUT=%s; NID_SES=%s", c.cfg.NIDAuth, c.cfg.NIDSession))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("chzzk api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// chatChannelID resolves the chat channel for a broadcast channel. It changes
// between broadcasts, so it is looked up at dial time, never cached.
func (c *Client) chatChannelID(channelID string) (string, error) {
	var status liveStatusResponse
	if err := c.get(fmt.Sprintf(liveStatusURL, channelID), &status); err != nil {
		return "", errors.Wrap(err, "live status lookup failed")
	}
	if status.Content.ChatChannelID == "" {
		return "", errors.New("channel has no chat channel")
	}
	return status.Content.ChatChannelID, nil
}

// accessToken fetches the token required by the chat server connect frame.
func (c *Client) accessToken(chatChannelID string) (string, error) {
	var token accessTokenResponse
	if err := c.get(fmt.Sprintf(accessTokenURL, chatChannelID), &token); err != nil {
		return "", errors.Wrap(err, "access token lookup failed")
	}
	if token.Content.AccessToken == "" {
		return "", errors.New("empty access token")
	}
	return token.Content.AccessToken, nil
}
