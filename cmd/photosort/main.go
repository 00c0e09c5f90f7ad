package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/user/photosort/internal/config"
	"github.com/user/photosort/internal/immich"
	"github.com/user/photosort/internal/logging"
)

const version = "0.1.0"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "photosort",
	Short: "Review and triage an Immich photo library",
	Long: "photosort draws random assets from an Immich server and lets you keep, " +
		"delete, favorite or archive them from a browser or a Telegram chat.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
}

func main() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env files next to the config and the config itself,
// exiting on failure.
func loadConfig() *config.Config {
	if err := config.LoadDotEnv("."); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	if err := config.LoadDotEnv(filepath.Dir(cfgPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// setupLogging installs the default slog handler. When toFile is set, logs
// are also appended to the daily file in cfg.LogDir.
func setupLogging(cfg *config.Config, toFile bool) *logging.DailyFile {
	dir := ""
	if toFile {
		dir = cfg.LogDir
	}
	daily, err := logging.Setup(cfg.LogLevel, dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file, logging to stderr only: %v\n", err)
		logging.Setup(cfg.LogLevel, "")
		return nil
	}
	return daily
}

// clientOptions maps config settings onto client options.
func clientOptions(cfg *config.Config) immich.Options {
	opts := immich.DefaultOptions()

	read := immich.ReadRetryPolicy()
	read.MaxAttempts = cfg.Immich.ReadRetries + 1
	write := immich.WriteRetryPolicy()
	write.MaxAttempts = cfg.Immich.WriteRetries + 1

	opts.Transport = immich.TransportConfig{
		BaseURL:        cfg.Immich.URL,
		APIKey:         cfg.Immich.APIKey,
		Timeout:        seconds(cfg.Immich.TimeoutSeconds),
		ConnectTimeout: seconds(cfg.Immich.ConnectTimeoutSeconds),
		MediaTimeout:   seconds(cfg.Immich.MediaTimeoutSeconds),
		MaxConnections: cfg.Immich.MaxConnections,
		MaxConcurrent:  int64(cfg.Immich.MaxConcurrent),
		Read:           read,
		Write:          write,
	}
	opts.SampleBudget = cfg.Sampling.BudgetFactor
	opts.FilterBudget = cfg.Sampling.FilterBudgetFactor
	opts.CatalogSamples = cfg.Sampling.CatalogSamples
	opts.DrawDelay = millis(cfg.Sampling.DrawDelayMS)
	opts.FilterDelay = millis(cfg.Sampling.FilterDelayMS)
	opts.FailureDelay = millis(cfg.Sampling.FailureDelayMS)
	opts.CatalogDelay = millis(cfg.Sampling.CatalogDelayMS)
	opts.SearchOverfetch = cfg.Sampling.SearchOverfetch
	opts.Logger = slog.Default()
	return opts
}

// newClient validates cfg and builds the asset client.
func newClient(cfg *config.Config) (*immich.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config (run `photosort setup`):\n%w", err)
	}
	client, err := immich.NewClient(clientOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("create immich client: %w", err)
	}
	return client, nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }
