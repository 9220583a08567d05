package youtube

import (
	"net/url"
	"regexp"
	"strings"
)

var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var videoHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// ExtractVideoID returns the 11-character video ID from a watch, short,
// embed, live or youtu.be link, or from a bare ID.
func ExtractVideoID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", ErrInvalidLink
	}
	if videoIDRegex.MatchString(link) {
		return link, nil
	}

	if !strings.Contains(link, "://") {
		link = "https://" + link
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", ErrInvalidLink
	}

	host := strings.ToLower(u.Hostname())
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	var id string
	switch {
	case host == "youtu.be" || host == "www.youtu.be":
		id = segments[0]
	case videoHosts[host]:
		if len(segments) >= 2 {
			switch segments[0] {
			case "shorts", "embed", "live", "v", "e":
				id = segments[1]
			}
		}
		if id == "" && segments[0] == "watch" {
			id = u.Query().Get("v")
		}
	}

	if !videoIDRegex.MatchString(id) {
		return "", ErrInvalidLink
	}
	return id, nil
}

// WatchURL is the canonical link for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
