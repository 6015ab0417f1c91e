package providers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/imbecility/yt-facade/pkg/models"
)

// ErrUnavailable marks failures that will not go away on retry: private,
// removed, region or login restricted videos.
var ErrUnavailable = errors.New("video unavailable")

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Extractor turns a canonical YouTube URL into metadata and stream descriptors.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, videoURL string) (*models.Video, error)
}

// phrases YouTube and yt-dlp use for permanent failures
var unavailableMarkers = []string{
	"private video",
	"video is private",
	"sign in to confirm your age",
	"login required",
	"members-only",
	"video unavailable",
	"this video is not available",
	"not made this video available in your country",
	"has been removed",
	"age-restricted",
	"age restricted",
}

// looksUnavailable classifies a backend message the way yt-dlp and YouTube word them.
func looksUnavailable(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
