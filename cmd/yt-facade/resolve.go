package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/imbecility/yt-facade/pkg/api"
	"github.com/imbecility/yt-facade/pkg/gateway"
	"github.com/imbecility/yt-facade/pkg/models"
	"github.com/imbecility/yt-facade/pkg/utils"
)

var flagResolution string

var resolveCmd = &cobra.Command{
	Use:   "resolve <url|videoId>",
	Short: "Print the direct URL of the best progressive stream as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gateway.New(cfg)
		if err != nil {
			return err
		}

		res, err := gw.ResolveDownload(cmd.Context(), requestFromArg(args[0]))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), api.DownloadResponse(res))
	},
}

var streamsCmd = &cobra.Command{
	Use:   "streams <url|videoId>",
	Short: "List every stream the extractor reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gw, err := gateway.New(cfg)
		if err != nil {
			return err
		}

		video, err := gw.Streams(cmd.Context(), requestFromArg(args[0]))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), models.StreamsResponse{
			Success: true,
			Title:   video.Title,
			Streams: api.StreamInfos(video.Streams),
		})
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&flagResolution, "resolution", "r", "", "Preferred resolution, e.g. 720p")
}

// requestFromArg treats a bare 11-character ID as videoId, anything else as url.
func requestFromArg(arg string) models.Request {
	if utils.IsVideoID(arg) {
		return models.Request{VideoID: arg, Resolution: flagResolution}
	}
	return models.Request{URL: arg, Resolution: flagResolution}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
