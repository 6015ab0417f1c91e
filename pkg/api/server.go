package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/imbecility/yt-facade/pkg/gateway"
	"github.com/imbecility/yt-facade/pkg/models"
	"github.com/imbecility/yt-facade/pkg/utils"
)

const (
	maxBodyBytes      = 64 << 10
	descriptionLimit  = 500
	publishDateLayout = "2006-01-02 15:04:05"
)

var indexTmpl = template.Must(template.New("index").Parse(tmpl))

type Server struct {
	Port        int
	Gateway     *gateway.Service
	ServiceName string
	// RateLimit in requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int
	EnableWeb bool
}

// Handler builds the full middleware chain: CORS, rate limit, routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/get_download_url", s.handleGetDownloadURL)
	mux.HandleFunc("/video_info", s.handleVideoInfo)
	mux.HandleFunc("/available_resolutions", s.handleAvailableResolutions)
	mux.HandleFunc("/debug_streams", s.handleDebugStreams)

	if s.EnableWeb {
		mux.HandleFunc("/", s.handleWebIndex)
	}

	var h http.Handler = mux
	if s.RateLimit > 0 {
		h = rateLimit(rate.NewLimiter(rate.Limit(s.RateLimit), s.RateBurst), h)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(h)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.Port), "web_ui", s.EnableWeb)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w)
		return
	}
	s.respondJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Service: s.ServiceName})
}

func (s *Server) handleGetDownloadURL(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	slog.Info("API request received", "endpoint", "get_download_url", "vid", requestVideoID(req), "remote", r.RemoteAddr)

	res, err := s.Gateway.ResolveDownload(r.Context(), req)
	if err != nil {
		var nse *gateway.NoStreamError
		var ee *gateway.ExtractionError
		switch {
		case errors.As(err, &nse):
			s.respondJSON(w, http.StatusNotFound, models.NoStreamResponse{
				Error:            nse.Error(),
				AvailableStreams: availableStreams(nse.Available),
			})
		case errors.As(err, &ee):
			slog.Error("Processing failed", "vid", utils.ExtractVideoID(ee.URL), "err", ee.Message)
			s.respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Error:    "Failed to process video: " + ee.Message,
				VideoURL: ee.URL,
			})
		default:
			s.respondError(w, err)
		}
		return
	}

	s.respondJSON(w, http.StatusOK, DownloadResponse(res))
}

func (s *Server) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	slog.Info("API request received", "endpoint", "video_info", "vid", requestVideoID(req), "remote", r.RemoteAddr)

	video, err := s.Gateway.VideoInfo(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	var publishDate *string
	if video.PublishDate != nil {
		publishDate = models.StringPtr(video.PublishDate.Format(publishDateLayout))
	}

	s.respondJSON(w, http.StatusOK, models.VideoInfoResponse{
		Success:      true,
		Title:        video.Title,
		Author:       video.Author,
		Length:       video.Length,
		Views:        video.Views,
		Description:  truncate(video.Description, descriptionLimit),
		ThumbnailURL: video.ThumbnailURL,
		PublishDate:  publishDate,
	})
}

func (s *Server) handleAvailableResolutions(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	slog.Info("API request received", "endpoint", "available_resolutions", "vid", requestVideoID(req), "remote", r.RemoteAddr)

	progressive, all, err := s.Gateway.AvailableResolutions(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, models.ResolutionsResponse{
		Success:     true,
		Progressive: progressive,
		All:         all,
	})
}

func (s *Server) handleDebugStreams(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	slog.Info("API request received", "endpoint", "debug_streams", "vid", requestVideoID(req), "remote", r.RemoteAddr)

	video, err := s.Gateway.Streams(r.Context(), req)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, models.StreamsResponse{
		Success: true,
		Title:   video.Title,
		Streams: StreamInfos(video.Streams),
	})
}

func (s *Server) handleWebIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	err := indexTmpl.Execute(w, nil)
	if err != nil {
		slog.Error("Template execution failed", "error", err, "remote", r.RemoteAddr)
	}
}

// decodeRequest enforces POST and a JSON object body. On failure the response
// has already been written.
func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (models.Request, bool) {
	var req models.Request

	if r.Method != http.MethodPost {
		s.methodNotAllowed(w)
		return req, false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Failed to read request body"})
		return req, false
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil || probe == nil {
		s.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "No JSON data provided"})
		return req, false
	}

	if err := json.Unmarshal(body, &req); err != nil {
		s.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return req, false
	}

	return req, true
}

// requestVideoID is the ID logged for a request, whichever field carried it.
func requestVideoID(req models.Request) string {
	return utils.ExtractVideoID(utils.BuildURL(req.URL, req.VideoID))
}

// respondError maps the gateway taxonomy onto status codes.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gateway.ErrInvalidInput):
		s.respondJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, gateway.ErrNoStreamFound):
		s.respondJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	default:
		slog.Error("Request failed", "err", err)
		s.respondJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusMethodNotAllowed, models.ErrorResponse{Error: "Method not allowed"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	jerr := json.NewEncoder(w).Encode(data)
	if jerr != nil {
		slog.Error("JSON encoding failed", "error", jerr)
	}
}

func rateLimit(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			slog.Warn("Rate limit exceeded", "remote", r.RemoteAddr, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
