package models

import (
	"strconv"
	"strings"
	"time"
)

// Stream is one encoded format as reported by an extractor backend.
type Stream struct {
	Itag       int
	URL        string
	MimeType   string // media type only, e.g. "video/mp4"
	Codecs     string
	Container  string // "mp4", "webm", "m4a"...
	Resolution string // "720p", empty for audio-only streams
	HasAudio   bool
	HasVideo   bool
	Filesize   int64 // 0 when the backend does not know it
	Bitrate    int
	FPS        int
}

// Progressive reports whether the stream carries both audio and video in one file.
func (s Stream) Progressive() bool {
	return s.HasAudio && s.HasVideo
}

// Height returns the numeric part of the resolution label, or 0.
func (s Stream) Height() int {
	return ResolutionValue(s.Resolution)
}

// ResolutionValue parses the leading integer of a label like "720p" or "1080p60".
func ResolutionValue(label string) int {
	end := 0
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	v, err := strconv.Atoi(label[:end])
	if err != nil {
		return 0
	}
	return v
}

// Metadata holds the descriptive fields of a video. Every field is optional:
// backends fill what they know and leave the rest nil.
type Metadata struct {
	Title        *string
	Author       *string
	Length       *int64 // seconds
	Views        *int64
	Description  *string
	ThumbnailURL *string
	PublishDate  *time.Time
}

func (m Metadata) GetTitle() string {
	if m.Title == nil {
		return ""
	}
	return *m.Title
}

func (m Metadata) GetAuthor() string {
	if m.Author == nil {
		return ""
	}
	return *m.Author
}

func (m Metadata) GetLength() int64 {
	if m.Length == nil {
		return 0
	}
	return *m.Length
}

func (m Metadata) GetViews() int64 {
	if m.Views == nil {
		return 0
	}
	return *m.Views
}

func (m Metadata) GetDescription() string {
	if m.Description == nil {
		return ""
	}
	return *m.Description
}

func (m Metadata) GetThumbnailURL() string {
	if m.ThumbnailURL == nil {
		return ""
	}
	return *m.ThumbnailURL
}

// Video is the result of a single extraction.
type Video struct {
	ID string
	Metadata
	Streams []Stream
}

// StringPtr returns nil for blank strings so that absent values serialize as null.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func Int64Ptr(v int64) *int64 {
	return &v
}

// TimePtr returns nil for the zero time.
func TimePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
