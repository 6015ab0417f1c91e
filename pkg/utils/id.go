package utils

import (
	"regexp"
	"strings"
)

const WatchURLPrefix = "https://www.youtube.com/watch?v="

var (
	videoIDRe  = regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:youtube|youtu|youtube-nocookie)\.(?:com|be)/(?:watch\?v=|embed/|v/|.+\?v=|shorts/)?([^&=%\?]{11})`)
	validIDRe  = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	watchURLRe = regexp.MustCompile(`^(?i:https?://)?(?:www\.)?youtube\.com/watch\?v=[\w-]+`)
	shortURLRe = regexp.MustCompile(`^(?i:https?://)?(?:www\.)?youtu\.be/[\w-]+`)
)

// ExtractVideoID returns the 11-character ID from a URL or a bare ID, or "".
func ExtractVideoID(input string) string {
	input = strings.TrimSpace(input)

	matches := videoIDRe.FindStringSubmatch(input)
	if len(matches) >= 2 {
		return matches[1]
	}

	if IsVideoID(input) {
		return input
	}

	return ""
}

// IsVideoID reports whether s looks like a bare video ID.
func IsVideoID(s string) bool {
	return validIDRe.MatchString(s)
}

// IsValidYouTubeURL accepts youtube.com/watch?v=... and youtu.be/... links,
// with an optional scheme (any case) and optional www.
func IsValidYouTubeURL(u string) bool {
	return watchURLRe.MatchString(u) || shortURLRe.MatchString(u)
}

// BuildURL picks the explicit URL when present, otherwise builds the watch URL
// from the video ID. It returns "" when neither is set.
func BuildURL(rawURL, videoID string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" {
		return rawURL
	}
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return ""
	}
	return WatchURLPrefix + videoID
}
