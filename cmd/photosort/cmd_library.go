package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/user/photosort/internal/review"
	"github.com/user/photosort/internal/state"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(camerasCmd, sampleCmd)

	sampleCmd.Flags().IntP("count", "n", 1, "number of assets to draw")
	sampleCmd.Flags().StringP("cameras", "c", "", "comma-separated camera models to keep")
	sampleCmd.Flags().StringP("query", "q", "", "smart search term")
	sampleCmd.Flags().Bool("refine", true, "filter screenshot results by dimensions")
	sampleCmd.Flags().StringP("format", "f", "json", "output format: json or yaml")
}

// newCLIService builds a review service for one-shot commands. Logs go to
// stderr only.
func newCLIService() (*review.Service, func(), error) {
	cfg := loadConfig()
	setupLogging(cfg, false)
	client, err := newClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return review.NewService(client, state.NewHistory(0)), client.Close, nil
}

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List camera models seen in a sample of the library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, closeFn, err := newCLIService()
		if err != nil {
			return err
		}
		defer closeFn()

		models, err := svc.Cameras(cmd.Context())
		if err != nil {
			return err
		}
		if len(models) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No camera models found.")
			return nil
		}
		for _, m := range models {
			fmt.Fprintln(cmd.OutOrStdout(), m)
		}
		return nil
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Draw assets and print their summaries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		cameras, _ := cmd.Flags().GetString("cameras")
		query, _ := cmd.Flags().GetString("query")
		refine, _ := cmd.Flags().GetBool("refine")
		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "yaml" {
			return fmt.Errorf("unknown format %q (want json or yaml)", format)
		}

		svc, closeFn, err := newCLIService()
		if err != nil {
			return err
		}
		defer closeFn()

		batch, err := svc.Next(cmd.Context(), review.Request{
			Count:   count,
			Cameras: review.ParseCameras(cameras),
			Query:   query,
			Refine:  refine,
		})
		if err != nil {
			return err
		}
		if batch.Done {
			fmt.Fprintln(cmd.ErrOrStderr(), "No assets found.")
			return nil
		}
		return writeSummaries(cmd.OutOrStdout(), format, batch.Assets)
	},
}

func writeSummaries(w io.Writer, format string, assets []review.Summary) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(assets); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(assets)
}
