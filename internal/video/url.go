package video

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ValidateID reports whether s looks like a YouTube video id.
func ValidateID(s string) bool {
	return videoIDPattern.MatchString(s)
}

// ExtractID pulls the video id out of a YouTube URL or a bare id. It accepts
// the watch, youtu.be, shorts, embed and live forms. The empty string means
// no id was recognized.
func ExtractID(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if ValidateID(input) {
		return input
	}

	u, err := url.Parse(input)
	if err != nil {
		return ""
	}
	if u.Scheme == "" {
		// Retry with a scheme so host-relative inputs like
		// "youtu.be/xxxx" parse.
		u, err = url.Parse("https://" + input)
		if err != nil {
			return ""
		}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if ValidateID(id) {
			return id
		}
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if id := u.Query().Get("v"); ValidateID(id) {
			return id
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.Trim(strings.TrimPrefix(u.Path, prefix), "/")
				if ValidateID(id) {
					return id
				}
			}
		}
	}
	return ""
}

// WatchURL returns the canonical watch URL for a video id. Every stored
// request uses this form, so duplicate detection is insensitive to the URL
// variant a viewer pasted.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
