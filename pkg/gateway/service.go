package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/imbecility/yt-facade/pkg/models"
	"github.com/imbecility/yt-facade/pkg/providers"
	"github.com/imbecility/yt-facade/pkg/selector"
	"github.com/imbecility/yt-facade/pkg/utils"
)

type Service struct {
	// Extractors are raced on every attempt; their order is the preference
	// order when reporting failures.
	Extractors []providers.Extractor
	// MetaClient is used for the oEmbed title fallback; nil disables it.
	MetaClient        providers.HTTPClient
	Timeout           time.Duration
	Attempts          int
	RetryDelay        time.Duration
	DefaultResolution string
	Container         string
	// FallbackWait is how long a result without a playable progressive stream
	// waits for another backend to do better.
	FallbackWait time.Duration

	group singleflight.Group
}

func NewService(exts []providers.Extractor, metaClient providers.HTTPClient, timeoutSec, attempts int) *Service {
	if timeoutSec <= 0 {
		timeoutSec = 60
	}
	if attempts <= 0 {
		attempts = 1
	}
	return &Service{
		Extractors:        exts,
		MetaClient:        metaClient,
		Timeout:           time.Duration(timeoutSec) * time.Second,
		Attempts:          attempts,
		RetryDelay:        2 * time.Second,
		DefaultResolution: selector.DefaultResolution,
		Container:         selector.DefaultContainer,
		FallbackWait:      2500 * time.Millisecond,
	}
}

// DownloadResult is the outcome of ResolveDownload.
type DownloadResult struct {
	Video  *models.Video
	Stream models.Stream
}

// Normalize turns a request into a validated canonical URL and the video ID
// found in it ("" when the URL carries none).
func Normalize(req models.Request) (string, string, error) {
	u := utils.BuildURL(req.URL, req.VideoID)
	if u == "" {
		return "", "", &InputError{Message: MsgMissingInput}
	}
	if !utils.IsValidYouTubeURL(u) {
		return "", "", &InputError{Message: MsgInvalidURL}
	}
	return u, utils.ExtractVideoID(u), nil
}

// ResolveDownload picks one progressive stream following the selection ladder.
func (s *Service) ResolveDownload(ctx context.Context, req models.Request) (*DownloadResult, error) {
	videoURL, vid, err := Normalize(req)
	if err != nil {
		return nil, err
	}

	video, err := s.extract(ctx, videoURL, vid)
	if err != nil {
		return nil, err
	}

	resolution := req.Resolution
	if resolution == "" {
		resolution = s.DefaultResolution
	}

	playable := selector.WithURL(video.Streams)
	stream, ok := selector.Select(playable, resolution, s.Container)
	if !ok {
		// progressive streams exist but none got a direct URL
		if _, found := selector.Select(video.Streams, resolution, s.Container); found {
			return nil, newExtractionError(videoURL, errors.New("could not resolve a direct URL for any progressive stream"))
		}
		slog.Info("No suitable stream", "vid", vid, "requested", resolution, "streams", len(video.Streams))
		return nil, &NoStreamError{Available: selector.Filter(video.Streams, s.Container, false)}
	}

	slog.Debug("Stream selected", "vid", vid, "itag", stream.Itag, "resolution", stream.Resolution)
	return &DownloadResult{Video: video, Stream: stream}, nil
}

// VideoInfo returns metadata only.
func (s *Service) VideoInfo(ctx context.Context, req models.Request) (*models.Video, error) {
	videoURL, vid, err := Normalize(req)
	if err != nil {
		return nil, err
	}
	return s.extract(ctx, videoURL, vid)
}

// AvailableResolutions returns the progressive and all-stream resolution labels,
// both sorted descending.
func (s *Service) AvailableResolutions(ctx context.Context, req models.Request) ([]string, []string, error) {
	videoURL, vid, err := Normalize(req)
	if err != nil {
		return nil, nil, err
	}

	video, err := s.extract(ctx, videoURL, vid)
	if err != nil {
		return nil, nil, err
	}

	progressive := selector.Resolutions(video.Streams, s.Container, true)
	all := selector.Resolutions(video.Streams, s.Container, false)
	return progressive, all, nil
}

// Streams returns every stream the backend reported, without selection.
func (s *Service) Streams(ctx context.Context, req models.Request) (*models.Video, error) {
	return s.VideoInfo(ctx, req)
}

// extract coalesces identical in-flight extractions. Nothing is kept once the
// call returns, so every request still sees fresh direct URLs.
func (s *Service) extract(ctx context.Context, videoURL, vid string) (*models.Video, error) {
	ch := s.group.DoChan(videoURL, func() (any, error) {
		return s.extractWithRetries(context.WithoutCancel(ctx), videoURL, vid)
	})

	select {
	case <-ctx.Done():
		return nil, newExtractionError(videoURL, ctx.Err())
	case r := <-ch:
		if r.Shared {
			slog.Debug("Extraction shared with concurrent request", "vid", vid)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.Video), nil
	}
}

func (s *Service) extractWithRetries(ctx context.Context, videoURL, vid string) (*models.Video, error) {
	var lastErr error
	for attempt := 1; attempt <= s.Attempts; attempt++ {
		slog.Info("Extracting", "extractors", len(s.Extractors), "attempt", attempt, "vid", vid)

		attemptCtx, cancel := context.WithTimeout(ctx, s.Timeout)
		video, name, errs := s.raceExtractors(attemptCtx, videoURL)
		if video != nil {
			if video.ID == "" {
				video.ID = vid
			}
			s.fillTitle(attemptCtx, video, videoURL)
			cancel()
			slog.Info("Video extracted", "extractor", name, "vid", vid, "streams", len(video.Streams))
			return video, nil
		}
		cancel()

		lastErr = joinFailures(errs)
		slog.Warn("Extraction attempt failed", "attempt", attempt, "vid", vid, "err", lastErr)

		if allUnavailable(errs) || attempt == s.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, newExtractionError(videoURL, ctx.Err())
		case <-time.After(s.RetryDelay):
		}
	}
	return nil, newExtractionError(videoURL, lastErr)
}

// raceExtractors runs every backend at once. The first result with a playable
// progressive stream wins; a result without one is kept as a fallback for at most
// FallbackWait. On total failure it returns one error per backend.
func (s *Service) raceExtractors(ctx context.Context, videoURL string) (*models.Video, string, []error) {
	type raceResult struct {
		video *models.Video
		name  string
		err   error
	}

	if len(s.Extractors) == 0 {
		return nil, "", []error{errors.New("no extractor configured")}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultChan := make(chan raceResult, len(s.Extractors))

	for _, ext := range s.Extractors {
		go func(ext providers.Extractor) {
			video, err := ext.Extract(ctx, videoURL)
			if err == nil && video == nil {
				err = errors.New("extractor returned no video")
			}
			select {
			case <-ctx.Done():
				return
			case resultChan <- raceResult{video: video, name: ext.Name(), err: err}:
			}
		}(ext)
	}

	var bestFallback *raceResult
	var timeoutCh <-chan time.Time
	var errs []error
	responsesCount := 0
	total := len(s.Extractors)

	for {
		select {
		case r := <-resultChan:
			responsesCount++
			if r.err != nil {
				slog.Debug("Extractor response", "extractor", r.name, "status", "error", "msg", r.err)
				errs = append(errs, s.describeFailure(r.name, r.err))
				if responsesCount == total {
					if bestFallback != nil {
						return bestFallback.video, bestFallback.name, nil
					}
					return nil, "", errs
				}
				continue
			}
			slog.Debug("Extractor response", "extractor", r.name, "status", "success", "streams", len(r.video.Streams))

			if hasPlayable(r.video, s.Container) {
				return r.video, r.name, nil
			}

			if bestFallback == nil {
				bestFallback = &r
				timeoutCh = time.After(s.FallbackWait)
				slog.Info("Candidate found without a playable stream. Waiting for better...", "extractor", r.name)
			}

			if responsesCount == total {
				return bestFallback.video, bestFallback.name, nil
			}

		case <-timeoutCh:
			slog.Info("Timeout waiting for better option. Using fallback.", "extractor", bestFallback.name)
			return bestFallback.video, bestFallback.name, nil

		case <-ctx.Done():
			if bestFallback != nil {
				return bestFallback.video, bestFallback.name, nil
			}
			return nil, "", append(errs, s.describeFailure("", ctx.Err()))
		}
	}
}

// describeFailure names the backend when several are raced and turns deadline
// errors into a readable timeout message.
func (s *Service) describeFailure(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("extraction timed out after %s: %w", s.Timeout, err)
	}
	if len(s.Extractors) > 1 && name != "" {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return err
}

func hasPlayable(video *models.Video, container string) bool {
	_, ok := selector.Select(selector.WithURL(video.Streams), "", container)
	return ok
}

func joinFailures(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

// allUnavailable reports whether every backend said the video cannot be served,
// in which case retrying is pointless.
func allUnavailable(errs []error) bool {
	if len(errs) == 0 {
		return false
	}
	for _, err := range errs {
		if !errors.Is(err, providers.ErrUnavailable) {
			return false
		}
	}
	return true
}

// fillTitle asks oEmbed when the backend gave no title or author.
func (s *Service) fillTitle(ctx context.Context, video *models.Video, videoURL string) {
	if s.MetaClient == nil || (video.Title != nil && video.Author != nil) {
		return
	}

	slog.Debug("Backend returned no title, fetching metadata...", "url", videoURL)
	info, err := providers.GetVideoTitle(ctx, s.MetaClient, videoURL)
	if err != nil {
		slog.Warn("Failed to fetch metadata", "err", err)
		return
	}

	if video.Title == nil {
		video.Title = models.StringPtr(info.Title)
	}
	if video.Author == nil {
		video.Author = models.StringPtr(info.AuthorName)
	}
	slog.Info("Metadata fetched", "title", video.GetTitle())
}
