package gateway

import (
	"errors"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/imbecility/yt-facade/pkg/models"
)

var (
	// ErrInvalidInput - missing or malformed URL / video ID.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoStreamFound - extraction worked but nothing passed the selection policy.
	ErrNoStreamFound = errors.New("no stream found")
	// ErrExtractionFailed - the extractor backend returned an error.
	ErrExtractionFailed = errors.New("extraction failed")
)

const (
	MsgMissingInput = "Missing 'url' or 'videoId' parameter"
	MsgInvalidURL   = "Invalid YouTube URL"
)

type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// NoStreamError lists the container-matching streams that were available,
// for diagnostics.
type NoStreamError struct {
	Available []models.Stream
}

func (e *NoStreamError) Error() string { return "No suitable video stream found" }

func (e *NoStreamError) Is(target error) bool { return target == ErrNoStreamFound }

// ExtractionError carries the backend message with terminal codes removed and
// the URL that was attempted.
type ExtractionError struct {
	URL     string
	Message string
	Err     error
}

func (e *ExtractionError) Error() string { return e.Message }

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtractionFailed }

func newExtractionError(url string, err error) *ExtractionError {
	return &ExtractionError{
		URL:     url,
		Message: cleanMessage(err.Error()),
		Err:     err,
	}
}

// cleanMessage strips ANSI escape sequences (yt-dlp colors its errors) and
// puts one failure per backend on a single line.
func cleanMessage(msg string) string {
	var parts []string
	for _, line := range strings.Split(ansi.Strip(msg), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "; ")
}
