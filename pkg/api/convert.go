package api

import (
	"github.com/imbecility/yt-facade/pkg/gateway"
	"github.com/imbecility/yt-facade/pkg/models"
)

// DownloadResponse renders a resolved stream; an unknown filesize becomes null.
func DownloadResponse(res *gateway.DownloadResult) models.DownloadURLResponse {
	stream := res.Stream
	var filesize *int64
	if stream.Filesize > 0 {
		filesize = models.Int64Ptr(stream.Filesize)
	}

	return models.DownloadURLResponse{
		Success:     true,
		DownloadURL: stream.URL,
		Title:       res.Video.Title,
		Author:      res.Video.Author,
		Length:      res.Video.Length,
		Resolution:  stream.Resolution,
		Filesize:    filesize,
		MimeType:    stream.MimeType,
	}
}

func availableStreams(streams []models.Stream) []models.AvailableStream {
	out := make([]models.AvailableStream, 0, len(streams))
	for _, s := range streams {
		out = append(out, models.AvailableStream{
			Resolution: models.StringPtr(s.Resolution),
			Type:       s.MimeType,
		})
	}
	return out
}

// StreamInfos renders streams for the debug listing. Direct URLs are omitted.
func StreamInfos(streams []models.Stream) []models.StreamInfo {
	out := make([]models.StreamInfo, 0, len(streams))
	for _, s := range streams {
		out = append(out, models.StreamInfo{
			Itag:        s.Itag,
			MimeType:    s.MimeType,
			Codecs:      s.Codecs,
			Container:   s.Container,
			Resolution:  s.Resolution,
			Progressive: s.Progressive(),
			HasAudio:    s.HasAudio,
			HasVideo:    s.HasVideo,
			Filesize:    s.Filesize,
			Bitrate:     s.Bitrate,
			FPS:         s.FPS,
		})
	}
	return out
}

// truncate keeps the first n characters (runes, not bytes).
func truncate(s *string, n int) *string {
	if s == nil {
		return nil
	}
	r := []rune(*s)
	if len(r) <= n {
		return s
	}
	out := string(r[:n])
	return &out
}
