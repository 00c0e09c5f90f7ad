package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/photosort/internal/review"
	"github.com/user/photosort/internal/scheduler"
	"github.com/user/photosort/internal/server"
	"github.com/user/photosort/internal/state"
	"github.com/user/photosort/internal/telegram"
)

const shutdownTimeout = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, pidFileName)
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	daily := setupLogging(cfg, true)
	if daily != nil {
		defer daily.Close()
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	history := state.NewHistory(cfg.Housekeeping.HistoryLimit)
	svc := review.NewService(client, history)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("photosort started",
		"immich", client.Transport().BaseURL(),
		"listen", cfg.HTTP.Listen,
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.Immich.MaxConcurrent,
		"pid_file", pidPath,
	)

	// Telegram adapter
	if cfg.Telegram.Token != "" {
		adapter, err := telegram.New(cfg.Telegram.Token, svc, cfg.Telegram.AllowedChats)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		slog.Info("telegram adapter started", "allowed_chats", len(cfg.Telegram.AllowedChats))
	} else {
		slog.Info("telegram adapter disabled (no token)")
	}

	// Housekeeping
	retention := time.Duration(cfg.Housekeeping.HistoryRetention) * time.Hour
	sched := scheduler.New(
		scheduler.Job{
			Name:     "rotate-logs",
			Schedule: cfg.Housekeeping.RotateLogs,
			Enabled:  daily != nil,
			Run: func() {
				if err := daily.Rotate(); err != nil {
					slog.Error("log rotation failed", "error", err)
				}
			},
		},
		scheduler.Job{
			Name:     "prune-history",
			Schedule: cfg.Housekeeping.PruneHistory,
			Enabled:  retention > 0,
			Run: func() {
				if n := history.Prune(time.Now().Add(-retention)); n > 0 {
					slog.Info("pruned action history", "entries", n)
				}
			},
		},
	)
	slog.Info("scheduler started", "jobs", sched.Start())
	defer sched.Stop()

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           server.NewServer(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server started", "listen", cfg.HTTP.Listen)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	shutdown := func() {
		cancel()
		sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer scancel()
		if err := httpServer.Shutdown(sctx); err != nil {
			slog.Warn("http server shutdown", "error", err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for {
		select {
		case err := <-serveErr:
			shutdown()
			return fmt.Errorf("http server: %w", err)
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received SIGHUP, restarting")
				execPath, err := os.Executable()
				if err != nil {
					slog.Error("failed to get executable path", "error", err)
					continue
				}
				shutdown()
				os.Remove(pidPath)
				if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
					slog.Error("failed to re-exec", "error", err)
					return fmt.Errorf("re-exec: %w", err)
				}
			}
			slog.Info("shutting down", "signal", sig)
			shutdown()
			return nil
		}
	}
}
