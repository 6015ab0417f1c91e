package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imbecility/yt-facade/pkg/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagConfig     string
	flagExtractors []string
	flagTimeout    int
	flagAttempts   int
	flagCookies    string
	flagDebug      bool
	flagLogFormat  string
)

// cfg holds the loaded configuration (merged: defaults < config file < env < flags).
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "yt-facade",
	Short:             "Resolve YouTube videos to direct media URLs",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Path to a TOML config file")
	pf.StringSliceVarP(&flagExtractors, "extractor", "e", nil, "Extractor backends to race: kkdai,ytdlp")
	pf.IntVar(&flagTimeout, "timeout", 0, "Max seconds per extraction attempt")
	pf.IntVar(&flagAttempts, "attempts", 0, "Extraction attempts for transient failures")
	pf.StringVar(&flagCookies, "cookies", "", "Path to a Netscape cookies.txt (YT_COOKIES wins)")
	pf.BoolVarP(&flagDebug, "debug", "x", false, "Enable debug logging")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: text | json")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(streamsCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if len(flagExtractors) > 0 {
		cfg.Extractors = flagExtractors
	}
	if flagTimeout > 0 {
		cfg.TimeoutSec = flagTimeout
	}
	if flagAttempts > 0 {
		cfg.Attempts = flagAttempts
	}
	if flagCookies != "" {
		cfg.CookiesFile = flagCookies
	}
	if flagDebug {
		cfg.Debug = true
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}

	if err := applyServeFlags(cmd); err != nil {
		return err
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "yt-facade", Version)
	},
}
