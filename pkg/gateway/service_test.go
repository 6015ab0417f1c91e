package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/imbecility/yt-facade/pkg/models"
	"github.com/imbecility/yt-facade/pkg/providers"
)

const testVideoURL = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

// fakeExtractor returns a fixed stream set; each call rotates the direct URLs
// the way signed CDN links change upstream.
type fakeExtractor struct {
	streams []models.Stream
	errs    []error
	calls   atomic.Int32
	noTitle bool
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(ctx context.Context, videoURL string) (*models.Video, error) {
	n := int(f.calls.Add(1))
	if n <= len(f.errs) && f.errs[n-1] != nil {
		return nil, f.errs[n-1]
	}

	v := &models.Video{
		ID: "dQw4w9WgXcQ",
		Metadata: models.Metadata{
			Title:  models.StringPtr("Never Gonna Give You Up"),
			Author: models.StringPtr("Rick Astley"),
			Length: models.Int64Ptr(213),
		},
	}
	if f.noTitle {
		v.Title = nil
		v.Author = nil
	}
	for _, s := range f.streams {
		s.URL = fmt.Sprintf("https://rr.example/%d?sig=%d", s.Itag, n)
		v.Streams = append(v.Streams, s)
	}
	return v, nil
}

func combined(itag int, res string) models.Stream {
	return models.Stream{Itag: itag, Resolution: res, Container: "mp4", MimeType: "video/mp4", HasAudio: true, HasVideo: true, Filesize: int64(itag) * 1000}
}

func videoOnly(itag int, res, container string) models.Stream {
	return models.Stream{Itag: itag, Resolution: res, Container: container, MimeType: "video/" + container, HasVideo: true}
}

func newTestService(exts ...providers.Extractor) *Service {
	svc := NewService(exts, nil, 5, 1)
	svc.RetryDelay = 0
	return svc
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		req     models.Request
		want    string
		wantVID string
		wantMsg string
	}{
		{"missing both", models.Request{}, "", "", MsgMissingInput},
		{"blank both", models.Request{URL: " ", VideoID: " "}, "", "", MsgMissingInput},
		{"video id", models.Request{VideoID: "dQw4w9WgXcQ"}, testVideoURL, "dQw4w9WgXcQ", ""},
		{"short url", models.Request{URL: "https://youtu.be/dQw4w9WgXcQ"}, "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ", ""},
		{"url wins", models.Request{URL: "https://youtu.be/abc", VideoID: "dQw4w9WgXcQ"}, "https://youtu.be/abc", "", ""},
		{"foreign url", models.Request{URL: "https://vimeo.com/1"}, "", "", MsgInvalidURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, vid, err := Normalize(tt.req)
			if tt.wantMsg != "" {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("err = %v, want ErrInvalidInput", err)
				}
				if err.Error() != tt.wantMsg {
					t.Errorf("message = %q, want %q", err.Error(), tt.wantMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if vid != tt.wantVID {
				t.Errorf("video id = %q, want %q", vid, tt.wantVID)
			}
		})
	}
}

func TestResolveDownloadFallsBackToCombined(t *testing.T) {
	ext := &fakeExtractor{streams: []models.Stream{
		combined(18, "360p"),
		combined(22, "720p"),
		videoOnly(137, "1080p", "mp4"),
	}}
	svc := newTestService(ext)

	res, err := svc.ResolveDownload(context.Background(), models.Request{VideoID: "dQw4w9WgXcQ", Resolution: "1080p"})
	if err != nil {
		t.Fatalf("ResolveDownload() error: %v", err)
	}
	if res.Stream.Resolution != "720p" || res.Stream.Itag != 22 {
		t.Errorf("selected %+v, want itag 22 at 720p", res.Stream)
	}
	if !strings.HasPrefix(res.Stream.URL, "https://rr.example/22") {
		t.Errorf("url = %q", res.Stream.URL)
	}
}

func TestResolveDownloadDefaultResolution(t *testing.T) {
	ext := &fakeExtractor{streams: []models.Stream{combined(18, "360p"), combined(22, "720p")}}
	svc := newTestService(ext)
	svc.DefaultResolution = "360p"

	res, err := svc.ResolveDownload(context.Background(), models.Request{URL: testVideoURL})
	if err != nil {
		t.Fatal(err)
	}
	if res.Stream.Itag != 18 {
		t.Errorf("itag = %d, want 18", res.Stream.Itag)
	}
}

func TestResolveDownloadNoStream(t *testing.T) {
	ext := &fakeExtractor{streams: []models.Stream{
		videoOnly(248, "1080p", "webm"),
		videoOnly(137, "1080p", "mp4"),
	}}
	svc := newTestService(ext)

	_, err := svc.ResolveDownload(context.Background(), models.Request{URL: testVideoURL})
	if !errors.Is(err, ErrNoStreamFound) {
		t.Fatalf("err = %v, want ErrNoStreamFound", err)
	}

	var nse *NoStreamError
	if !errors.As(err, &nse) {
		t.Fatal("expected *NoStreamError")
	}
	if len(nse.Available) != 1 || nse.Available[0].Itag != 137 {
		t.Errorf("available = %+v, want only the mp4 stream", nse.Available)
	}
}

func TestResolveDownloadInvalidInputSkipsExtractor(t *testing.T) {
	ext := &fakeExtractor{}
	svc := newTestService(ext)

	_, err := svc.ResolveDownload(context.Background(), models.Request{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if ext.calls.Load() != 0 {
		t.Error("extractor should not be called for invalid input")
	}
}

func TestExtractionErrorStripsTerminalCodes(t *testing.T) {
	ext := &fakeExtractor{errs: []error{errors.New("\x1b[0;31mERROR:\x1b[0m [youtube] dQw4w9WgXcQ: Video unavailable")}}
	svc := newTestService(ext)

	_, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}

	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatal("expected *ExtractionError")
	}
	if ee.Message != "ERROR: [youtube] dQw4w9WgXcQ: Video unavailable" {
		t.Errorf("message = %q", ee.Message)
	}
	if ee.URL != testVideoURL {
		t.Errorf("url = %q", ee.URL)
	}
}

func TestRetriesTransientFailures(t *testing.T) {
	ext := &fakeExtractor{
		errs:    []error{errors.New("connection reset by peer")},
		streams: []models.Stream{combined(18, "360p")},
	}
	svc := newTestService(ext)
	svc.Attempts = 3

	if _, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL}); err != nil {
		t.Fatalf("expected success after retry: %v", err)
	}
	if got := ext.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestNoRetryWhenUnavailable(t *testing.T) {
	ext := &fakeExtractor{errs: []error{
		fmt.Errorf("%w: private", providers.ErrUnavailable),
		nil,
	}}
	svc := newTestService(ext)
	svc.Attempts = 3

	_, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL})
	if !errors.Is(err, ErrExtractionFailed) || !errors.Is(err, providers.ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if got := ext.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

type slowExtractor struct{}

func (slowExtractor) Name() string { return "slow" }

func (slowExtractor) Extract(ctx context.Context, _ string) (*models.Video, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestExtractionTimeout(t *testing.T) {
	svc := newTestService(slowExtractor{})
	svc.Timeout = 20 * time.Millisecond

	_, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestConsecutiveCallsKeepMetadata(t *testing.T) {
	ext := &fakeExtractor{streams: []models.Stream{combined(22, "720p")}}
	svc := newTestService(ext)
	req := models.Request{VideoID: "dQw4w9WgXcQ"}

	first, err := svc.ResolveDownload(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.ResolveDownload(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}

	if first.Video.GetTitle() != second.Video.GetTitle() ||
		first.Video.GetAuthor() != second.Video.GetAuthor() ||
		first.Video.GetLength() != second.Video.GetLength() {
		t.Error("metadata differs between calls")
	}
	if first.Stream.URL == second.Stream.URL {
		t.Error("fake should have rotated the direct URL")
	}
}

func TestAvailableResolutions(t *testing.T) {
	ext := &fakeExtractor{streams: []models.Stream{
		combined(18, "360p"),
		videoOnly(137, "1080p", "mp4"),
		combined(22, "720p"),
		videoOnly(136, "720p", "mp4"),
		videoOnly(248, "1440p", "webm"),
	}}
	svc := newTestService(ext)

	progressive, all, err := svc.AvailableResolutions(context.Background(), models.Request{URL: testVideoURL})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(progressive, ",") != "720p,360p" {
		t.Errorf("progressive = %v", progressive)
	}
	if strings.Join(all, ",") != "1080p,720p,360p" {
		t.Errorf("all = %v", all)
	}
}

func TestFillTitleFromOEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"title":"From oEmbed","author_name":"Someone"}`))
	}))
	defer srv.Close()

	old := providers.OEmbedEndpoint
	providers.OEmbedEndpoint = srv.URL
	defer func() { providers.OEmbedEndpoint = old }()

	ext := &fakeExtractor{noTitle: true}
	svc := newTestService(ext)
	svc.MetaClient = srv.Client()

	v, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL})
	if err != nil {
		t.Fatal(err)
	}
	if v.GetTitle() != "From oEmbed" || v.GetAuthor() != "Someone" {
		t.Errorf("title/author = %q/%q", v.GetTitle(), v.GetAuthor())
	}
}

// scriptedExtractor returns a fixed video or error under its own name.
type scriptedExtractor struct {
	name  string
	video *models.Video
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (e *scriptedExtractor) Name() string { return e.name }

func (e *scriptedExtractor) Extract(ctx context.Context, _ string) (*models.Video, error) {
	e.calls.Add(1)
	if e.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.delay):
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.video, nil
}

func videoWith(title string, streams ...models.Stream) *models.Video {
	return &models.Video{
		ID:       "dQw4w9WgXcQ",
		Metadata: models.Metadata{Title: models.StringPtr(title), Author: models.StringPtr("Rick Astley")},
		Streams:  streams,
	}
}

func withURL(s models.Stream) models.Stream {
	s.URL = fmt.Sprintf("https://rr.example/%d", s.Itag)
	return s
}

func TestFailingBackendFallsThroughToNext(t *testing.T) {
	broken := &scriptedExtractor{name: "kkdai", err: errors.New("cipher not found")}
	working := &scriptedExtractor{name: "ytdlp", video: videoWith("from ytdlp", withURL(combined(22, "720p")))}
	svc := newTestService(broken, working)

	res, err := svc.ResolveDownload(context.Background(), models.Request{URL: testVideoURL})
	if err != nil {
		t.Fatalf("ResolveDownload() error: %v", err)
	}
	if res.Video.GetTitle() != "from ytdlp" || res.Stream.Itag != 22 {
		t.Errorf("got %q itag %d", res.Video.GetTitle(), res.Stream.Itag)
	}
}

func TestAllBackendsFailNamesEach(t *testing.T) {
	first := &scriptedExtractor{name: "kkdai", err: errors.New("cipher not found")}
	second := &scriptedExtractor{name: "ytdlp", err: errors.New("\x1b[0;31mERROR:\x1b[0m HTTP Error 503")}
	svc := newTestService(first, second)

	_, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL})
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExtractionError", err)
	}
	if !strings.Contains(ee.Message, "kkdai: cipher not found") || !strings.Contains(ee.Message, "ytdlp: ERROR: HTTP Error 503") {
		t.Errorf("message = %q", ee.Message)
	}
	if strings.Contains(ee.Message, "\n") {
		t.Errorf("message should be a single line: %q", ee.Message)
	}
}

func TestPlayableResultBeatsEarlierFallback(t *testing.T) {
	// answers first, but only with adaptive streams
	adaptive := &scriptedExtractor{name: "kkdai", video: videoWith("adaptive", withURL(videoOnly(137, "1080p", "mp4")))}
	progressive := &scriptedExtractor{name: "ytdlp", delay: 20 * time.Millisecond, video: videoWith("progressive", withURL(combined(18, "360p")))}
	svc := newTestService(adaptive, progressive)

	res, err := svc.ResolveDownload(context.Background(), models.Request{URL: testVideoURL})
	if err != nil {
		t.Fatalf("ResolveDownload() error: %v", err)
	}
	if res.Video.GetTitle() != "progressive" {
		t.Errorf("title = %q, want the playable result", res.Video.GetTitle())
	}
}

func TestFallbackUsedAfterWait(t *testing.T) {
	adaptive := &scriptedExtractor{name: "kkdai", video: videoWith("adaptive", withURL(videoOnly(137, "1080p", "mp4")))}
	slow := &scriptedExtractor{name: "ytdlp", delay: time.Second, video: videoWith("slow", withURL(combined(18, "360p")))}
	svc := newTestService(adaptive, slow)
	svc.FallbackWait = 10 * time.Millisecond

	v, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL})
	if err != nil {
		t.Fatal(err)
	}
	if v.GetTitle() != "adaptive" {
		t.Errorf("title = %q, want the fallback", v.GetTitle())
	}
}

func TestRetryUnlessEveryBackendUnavailable(t *testing.T) {
	private := &scriptedExtractor{name: "kkdai", err: fmt.Errorf("%w: private", providers.ErrUnavailable)}
	flaky := &scriptedExtractor{name: "ytdlp", err: errors.New("connection reset by peer")}
	svc := newTestService(private, flaky)
	svc.Attempts = 2

	if _, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL}); err == nil {
		t.Fatal("expected failure")
	}
	if private.calls.Load() != 2 || flaky.calls.Load() != 2 {
		t.Errorf("calls = %d/%d, want a retry while one backend is transient", private.calls.Load(), flaky.calls.Load())
	}

	alsoPrivate := &scriptedExtractor{name: "ytdlp", err: fmt.Errorf("%w: private", providers.ErrUnavailable)}
	private.calls.Store(0)
	svc = newTestService(private, alsoPrivate)
	svc.Attempts = 2

	_, err := svc.VideoInfo(context.Background(), models.Request{URL: testVideoURL})
	if !errors.Is(err, providers.ErrUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if private.calls.Load() != 1 {
		t.Errorf("calls = %d, want no retry", private.calls.Load())
	}
}

func TestSelectionSkipsStreamsWithoutURL(t *testing.T) {
	unresolved := combined(22, "720p")
	ext := &scriptedExtractor{name: "kkdai", video: videoWith("t", unresolved, withURL(combined(18, "360p")))}
	svc := newTestService(ext)

	res, err := svc.ResolveDownload(context.Background(), models.Request{URL: testVideoURL, Resolution: "720p"})
	if err != nil {
		t.Fatalf("ResolveDownload() error: %v", err)
	}
	if res.Stream.Itag != 18 || res.Stream.URL == "" {
		t.Errorf("selected %+v, want the resolvable 360p stream", res.Stream)
	}
}

func TestNoResolvableProgressiveStream(t *testing.T) {
	ext := &scriptedExtractor{name: "kkdai", video: videoWith("t", combined(22, "720p"), withURL(videoOnly(137, "1080p", "mp4")))}
	svc := newTestService(ext)

	_, err := svc.ResolveDownload(context.Background(), models.Request{URL: testVideoURL})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
}
