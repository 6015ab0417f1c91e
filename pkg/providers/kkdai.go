package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/imbecility/yt-facade/pkg/models"
)

// KkdaiExtractor uses the pure-Go kkdai/youtube library.
type KkdaiExtractor struct {
	Client *http.Client
}

func (k *KkdaiExtractor) Name() string { return "kkdai" }

func (k *KkdaiExtractor) Extract(ctx context.Context, videoURL string) (*models.Video, error) {
	// a fresh client per call: its player cache must not outlive the request
	yc := &youtube.Client{HTTPClient: k.Client}

	video, err := yc.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, wrapKkdaiError(err)
	}

	result := convertVideo(video)

	for i := range video.Formats {
		f := &video.Formats[i]
		streamURL, uerr := yc.GetStreamURLContext(ctx, video, f)
		if uerr != nil {
			slog.Debug("Failed to resolve stream URL", "vid", video.ID, "itag", f.ItagNo, "err", uerr)
			continue
		}
		result.Streams[i].URL = streamURL
	}

	return result, nil
}

// convertVideo maps the library model onto ours. Stream URLs are left as reported;
// ciphered formats get theirs from GetStreamURLContext.
func convertVideo(v *youtube.Video) *models.Video {
	out := &models.Video{
		ID: v.ID,
		Metadata: models.Metadata{
			Title:        models.StringPtr(v.Title),
			Author:       models.StringPtr(v.Author),
			Length:       models.Int64Ptr(int64(v.Duration.Seconds())),
			Views:        models.Int64Ptr(int64(v.Views)),
			Description:  models.StringPtr(v.Description),
			ThumbnailURL: models.StringPtr(bestThumbnail(v)),
			PublishDate:  models.TimePtr(v.PublishDate),
		},
		Streams: make([]models.Stream, 0, len(v.Formats)),
	}

	for _, f := range v.Formats {
		out.Streams = append(out.Streams, convertFormat(f))
	}
	return out
}

func convertFormat(f youtube.Format) models.Stream {
	mediaType, codecs := splitMimeType(f.MimeType)

	s := models.Stream{
		Itag:     f.ItagNo,
		URL:      f.URL,
		MimeType: mediaType,
		Codecs:   codecs,
		Filesize: f.ContentLength,
		Bitrate:  f.Bitrate,
		FPS:      f.FPS,
	}

	kind, container, _ := strings.Cut(mediaType, "/")
	s.Container = container

	switch kind {
	case "video":
		s.HasVideo = true
		s.HasAudio = f.AudioChannels > 0 || strings.Contains(codecs, ",")
	case "audio":
		s.HasAudio = true
	}

	if s.HasVideo && f.Height > 0 {
		s.Resolution = fmt.Sprintf("%dp", f.Height)
	}
	return s
}

// splitMimeType turns `video/mp4; codecs="avc1.42001E, mp4a.40.2"` into
// ("video/mp4", "avc1.42001E, mp4a.40.2").
func splitMimeType(raw string) (string, string) {
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		base, _, _ := strings.Cut(raw, ";")
		return strings.ToLower(strings.TrimSpace(base)), ""
	}
	return mediaType, params["codecs"]
}

func bestThumbnail(v *youtube.Video) string {
	var best youtube.Thumbnail
	for _, t := range v.Thumbnails {
		if t.Width*t.Height >= best.Width*best.Height {
			best = t
		}
	}
	if best.URL != "" {
		return best.URL
	}
	if v.ID != "" {
		return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", v.ID)
	}
	return ""
}

func wrapKkdaiError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var statusPtr *youtube.ErrPlayabiltyStatus
	var statusVal youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusPtr) || errors.As(err, &statusVal) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if looksUnavailable(err.Error()) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
