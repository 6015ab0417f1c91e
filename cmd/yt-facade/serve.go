package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imbecility/yt-facade/pkg/api"
	"github.com/imbecility/yt-facade/pkg/gateway"
)

var (
	flagPort      int
	flagWeb       bool
	flagRateLimit float64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func init() {
	serveCmd.Flags().IntVarP(&flagPort, "port", "p", 0, "Port for API server")
	serveCmd.Flags().BoolVar(&flagWeb, "web", false, "Enable simple Web UI")
	serveCmd.Flags().Float64Var(&flagRateLimit, "rate-limit", 0, "Max requests per second (0 = unlimited)")
}

// applyServeFlags copies serve-only flags into cfg when they were set.
func applyServeFlags(cmd *cobra.Command) error {
	if cmd != serveCmd {
		return nil
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("web") {
		cfg.Web = flagWeb
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.RateLimit = flagRateLimit
	}
	return nil
}

func serveRun(cmd *cobra.Command, args []string) error {
	gw, err := gateway.New(cfg)
	if err != nil {
		return err
	}

	srv := &api.Server{
		Port:        cfg.Port,
		Gateway:     gw,
		ServiceName: cfg.ServiceName,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
		EnableWeb:   cfg.Web,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
