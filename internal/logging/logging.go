// Package logging configures slog output to stderr and a daily log file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DailyFile is an io.Writer appending to <dir>/app_YYYYMMDD.log. The file is
// switched when the local date changes or when Rotate is called.
type DailyFile struct {
	mu   sync.Mutex
	dir  string
	now  func() time.Time
	file *os.File
	day  string
}

// OpenDaily creates dir if needed and opens today's log file.
func OpenDaily(dir string) (*DailyFile, error) {
	return openDaily(dir, time.Now)
}

func openDaily(dir string, now func() time.Time) (*DailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	d := &DailyFile{dir: dir, now: now}
	if err := d.reopen(); err != nil {
		return nil, err
	}
	return d, nil
}

// Path returns the file currently written to.
func (d *DailyFile) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path(d.day)
}

func (d *DailyFile) path(day string) string {
	return filepath.Join(d.dir, "app_"+day+".log")
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil || d.now().Format("20060102") != d.day {
		if err := d.reopen(); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

// Rotate closes the current file and opens the one for today's date.
func (d *DailyFile) Rotate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reopen()
}

// reopen must be called with mu held.
func (d *DailyFile) reopen() error {
	day := d.now().Format("20060102")
	f, err := os.OpenFile(d.path(day), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if d.file != nil {
		d.file.Close()
	}
	d.file = f
	d.day = day
	return nil
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup installs a text handler writing to stderr and, when dir is set, to a
// daily file in dir. The returned DailyFile is nil when dir is empty.
func Setup(level, dir string) (*DailyFile, error) {
	var (
		w     io.Writer = os.Stderr
		daily *DailyFile
	)
	if dir != "" {
		var err error
		daily, err = OpenDaily(dir)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stderr, daily)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})))
	return daily, nil
}
