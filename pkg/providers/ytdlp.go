package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/imbecility/yt-facade/pkg/models"
)

// YtDlpExtractor shells out to yt-dlp and reads its info JSON.
type YtDlpExtractor struct {
	// Binary is the yt-dlp executable; empty uses the one on PATH.
	Binary string
	// CookiesFile is passed as --cookies when set.
	CookiesFile string
}

func (y *YtDlpExtractor) Name() string { return "ytdlp" }

// Internal struct to match yt-dlp JSON output
type ytDlpJSON struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Uploader    string        `json:"uploader"`
	Channel     string        `json:"channel"`
	Description string        `json:"description"`
	Duration    float64       `json:"duration"`
	ViewCount   *int64        `json:"view_count"`
	Thumbnail   string        `json:"thumbnail"`
	UploadDate  string        `json:"upload_date"`
	Timestamp   int64         `json:"timestamp"`
	Formats     []ytDlpFormat `json:"formats"`
}

type ytDlpFormat struct {
	FormatID       string  `json:"format_id"`
	URL            string  `json:"url"`
	Ext            string  `json:"ext"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	VCodec         string  `json:"vcodec"`
	ACodec         string  `json:"acodec"`
	FPS            float64 `json:"fps"`
	TBR            float64 `json:"tbr"`
	Filesize       float64 `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
}

func (y *YtDlpExtractor) Extract(ctx context.Context, videoURL string) (*models.Video, error) {
	dl := ytdlp.New().
		SkipDownload().
		PrintJSON().
		NoPlaylist()

	if y.Binary != "" {
		dl = dl.SetExecutable(y.Binary)
	}
	if y.CookiesFile != "" {
		dl = dl.Cookies(y.CookiesFile)
	}

	res, err := dl.Run(ctx, videoURL)
	if err != nil {
		msg := err.Error()
		if res != nil {
			if line := lastErrorLine(res.Stderr); line != "" {
				msg = line
			}
		}
		if looksUnavailable(msg) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, msg)
		}
		return nil, errors.New(msg)
	}

	return parseYtDlpOutput(res.Stdout)
}

// parseYtDlpOutput decodes the last JSON object printed by yt-dlp.
func parseYtDlpOutput(stdout string) (*models.Video, error) {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	var payload string
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "{") {
			payload = lines[i]
			break
		}
	}
	if payload == "" {
		return nil, errors.New("yt-dlp printed no video info")
	}

	var data ytDlpJSON
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("failed to parse yt-dlp output: %w", err)
	}

	author := data.Uploader
	if author == "" {
		author = data.Channel
	}

	video := &models.Video{
		ID: data.ID,
		Metadata: models.Metadata{
			Title:        models.StringPtr(data.Title),
			Author:       models.StringPtr(author),
			Description:  models.StringPtr(data.Description),
			ThumbnailURL: models.StringPtr(data.Thumbnail),
			Views:        data.ViewCount,
			PublishDate:  models.TimePtr(publishDate(data.UploadDate, data.Timestamp)),
		},
	}
	if data.Duration > 0 {
		video.Length = models.Int64Ptr(int64(data.Duration))
	}

	for _, f := range data.Formats {
		hasVideo := f.VCodec != "" && f.VCodec != "none"
		hasAudio := f.ACodec != "" && f.ACodec != "none"
		// storyboards and other non-media entries
		if !hasVideo && !hasAudio {
			continue
		}

		s := models.Stream{
			URL:       f.URL,
			Container: f.Ext,
			HasAudio:  hasAudio,
			HasVideo:  hasVideo,
			Bitrate:   int(f.TBR * 1000),
			FPS:       int(f.FPS),
		}
		s.Itag, _ = strconv.Atoi(f.FormatID)

		switch {
		case hasVideo && hasAudio:
			s.Codecs = f.VCodec + ", " + f.ACodec
		case hasVideo:
			s.Codecs = f.VCodec
		default:
			s.Codecs = f.ACodec
		}

		if hasVideo {
			s.MimeType = "video/" + f.Ext
			if f.Height > 0 {
				s.Resolution = fmt.Sprintf("%dp", f.Height)
			}
		} else if f.Ext == "m4a" {
			s.MimeType = "audio/mp4"
		} else {
			s.MimeType = "audio/" + f.Ext
		}

		if f.Filesize > 0 {
			s.Filesize = int64(f.Filesize)
		} else {
			s.Filesize = int64(f.FilesizeApprox)
		}

		video.Streams = append(video.Streams, s)
	}

	return video, nil
}

func publishDate(uploadDate string, timestamp int64) time.Time {
	if timestamp > 0 {
		return time.Unix(timestamp, 0).UTC()
	}
	if t, err := time.Parse("20060102", uploadDate); err == nil {
		return t
	}
	return time.Time{}
}

// lastErrorLine returns the last "ERROR:" line of yt-dlp stderr, or the last
// non-empty line when none is tagged.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if last == "" {
			last = line
		}
		if strings.Contains(line, "ERROR:") {
			return line
		}
	}
	return last
}
