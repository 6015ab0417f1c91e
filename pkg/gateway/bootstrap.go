package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/imbecility/yt-facade/pkg/client"
	"github.com/imbecility/yt-facade/pkg/config"
	"github.com/imbecility/yt-facade/pkg/cookies"
	"github.com/imbecility/yt-facade/pkg/logger"
	"github.com/imbecility/yt-facade/pkg/providers"
)

// New creates a ready-to-use Service instance with all necessary dependencies.
func New(cfg *config.Config) (*Service, error) {
	// Setup the logger (globally)
	logger.SetupGlobal(cfg.Debug, false, cfg.LogFormat)

	// Credentials are written once here and only read afterwards
	creds, err := cookies.Provision(cfg.CookiesPayload, cfg.CookiesFile, "")
	if err != nil {
		return nil, fmt.Errorf("cookies setup failed: %w", err)
	}

	jar, err := creds.Jar()
	if err != nil {
		return nil, fmt.Errorf("failed to build cookie jar: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	httpClient, err := client.NewHttpClient(timeout, jar)
	if err != nil {
		return nil, fmt.Errorf("failed to init http client: %w", err)
	}

	exts := make([]providers.Extractor, 0, len(cfg.Extractors))
	names := make([]string, 0, len(cfg.Extractors))
	for _, name := range cfg.Extractors {
		ext, err := NewExtractor(name, httpClient, cfg.YtDlpPath, creds.FilePath())
		if err != nil {
			return nil, err
		}
		exts = append(exts, ext)
		names = append(names, ext.Name())
	}

	slog.Info("Gateway initialized",
		"extractors", strings.Join(names, ","),
		"timeout_sec", cfg.TimeoutSec,
		"attempts", cfg.Attempts,
		"cookies", creds != nil)

	svc := NewService(exts, httpClient, cfg.TimeoutSec, cfg.Attempts)
	svc.DefaultResolution = cfg.DefaultResolution
	return svc, nil
}

// NewExtractor returns the backend registered under name.
func NewExtractor(name string, httpClient *http.Client, ytdlpPath, cookiesFile string) (providers.Extractor, error) {
	switch strings.ToLower(name) {
	case "kkdai", "":
		return &providers.KkdaiExtractor{Client: httpClient}, nil
	case "ytdlp":
		return &providers.YtDlpExtractor{Binary: ytdlpPath, CookiesFile: cookiesFile}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", name)
	}
}
