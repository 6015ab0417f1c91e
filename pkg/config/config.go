// Package config loads the service configuration: defaults < TOML file < environment.
// Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// EnvCookies carries a Netscape cookies.txt payload for the extractor.
	EnvCookies = "YT_COOKIES"
	EnvPort    = "YT_FACADE_PORT"
	EnvConfig  = "YT_FACADE_CONFIG"
)

// Config represents the configuration of the service.
type Config struct {
	// Port is the TCP port of the API server (defaults to 5000).
	Port int `toml:"port"`
	// ServiceName is reported by /health.
	ServiceName string `toml:"service_name"`
	// Extractors lists the backends raced on every extraction: "kkdai", "ytdlp".
	Extractors []string `toml:"extractors"`
	// YtDlpPath is the yt-dlp executable used by the ytdlp backend.
	YtDlpPath string `toml:"ytdlp_path"`
	// TimeoutSec bounds a single extraction attempt in seconds (defaults to 60).
	TimeoutSec int `toml:"timeout_sec"`
	// Attempts is the number of extraction attempts for transient failures (defaults to 1).
	Attempts int `toml:"attempts"`
	// DefaultResolution is used when a request does not name one.
	DefaultResolution string `toml:"default_resolution"`
	// CookiesFile points at an existing cookies.txt. YT_COOKIES takes precedence.
	CookiesFile string `toml:"cookies_file"`
	// RateLimit is the allowed requests per second across the API; 0 disables it.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
	// Web serves a small HTML client at /.
	Web bool `toml:"web"`
	// Debug enables verbose logging.
	Debug bool `toml:"debug"`
	// LogFormat is "text" or "json".
	LogFormat string `toml:"log_format"`

	// CookiesPayload is read from YT_COOKIES, never from the file.
	CookiesPayload string `toml:"-"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:              5000,
		ServiceName:       "youtube-downloader",
		Extractors:        []string{"kkdai"},
		YtDlpPath:         "yt-dlp",
		TimeoutSec:        60,
		Attempts:          1,
		DefaultResolution: "720p",
		RateBurst:         10,
		LogFormat:         "text",
	}
}

// Load reads the TOML file at path (if non-empty) over the defaults and then applies
// environment overrides. A missing file is an error only when the path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.CookiesPayload = os.Getenv(EnvCookies)

	if p := strings.TrimSpace(os.Getenv(EnvPort)); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Port = port
	}
	return nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}

	if len(c.Extractors) == 0 {
		return fmt.Errorf("at least one extractor is required")
	}
	seen := make(map[string]bool)
	for _, name := range c.Extractors {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "kkdai", "ytdlp":
		default:
			return fmt.Errorf("unsupported extractor %q (valid: kkdai, ytdlp)", name)
		}
		if seen[name] {
			return fmt.Errorf("extractor %q listed twice", name)
		}
		seen[name] = true
	}

	if c.TimeoutSec <= 0 {
		return fmt.Errorf("timeout_sec must be positive, got %d", c.TimeoutSec)
	}
	if c.Attempts < 1 || c.Attempts > 5 {
		return fmt.Errorf("attempts must be between 1 and 5, got %d", c.Attempts)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate_limit is set")
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (valid: text, json)", c.LogFormat)
	}

	if c.DefaultResolution == "" {
		return fmt.Errorf("default_resolution cannot be empty")
	}

	return nil
}
