package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestDailyFileName(t *testing.T) {
	dir := t.TempDir()
	c := &clock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)}
	d, err := openDaily(dir, c.now)
	if err != nil {
		t.Fatalf("openDaily: %v", err)
	}
	defer d.Close()

	if _, err := d.Write([]byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := filepath.Join(dir, "app_20260314.log")
	if d.Path() != want {
		t.Errorf("path = %q, want %q", d.Path(), want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("content = %q", data)
	}
}

func TestDailyFileSwitchesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	c := &clock{t: time.Date(2026, 3, 14, 23, 59, 0, 0, time.Local)}
	d, err := openDaily(dir, c.now)
	if err != nil {
		t.Fatalf("openDaily: %v", err)
	}
	defer d.Close()

	d.Write([]byte("before\n"))
	c.t = c.t.Add(2 * time.Minute)
	d.Write([]byte("after\n"))

	first, _ := os.ReadFile(filepath.Join(dir, "app_20260314.log"))
	second, _ := os.ReadFile(filepath.Join(dir, "app_20260315.log"))
	if string(first) != "before\n" || string(second) != "after\n" {
		t.Errorf("first=%q second=%q", first, second)
	}
}

func TestRotateReopens(t *testing.T) {
	dir := t.TempDir()
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local)}
	d, err := openDaily(dir, c.now)
	if err != nil {
		t.Fatalf("openDaily: %v", err)
	}
	defer d.Close()

	c.t = c.t.AddDate(0, 0, 1)
	if err := d.Rotate(); err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !strings.HasSuffix(d.Path(), "app_20260102.log") {
		t.Errorf("path after rotate = %q", d.Path())
	}
	if _, err := os.Stat(d.Path()); err != nil {
		t.Errorf("rotated file missing: %v", err)
	}
}

func TestWriteAfterClose(t *testing.T) {
	d, err := OpenDaily(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDaily: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := d.Write([]byte("x")); err != nil {
		t.Errorf("write after close should reopen: %v", err)
	}
	d.Close()
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupWritesFile(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	dir := t.TempDir()
	daily, err := Setup("debug", dir)
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer daily.Close()

	slog.Debug("written", "k", "v")
	data, err := os.ReadFile(daily.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "msg=written") || !strings.Contains(string(data), "k=v") {
		t.Errorf("log file = %q", data)
	}
}

func TestSetupWithoutDir(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	daily, err := Setup("info", "")
	if err != nil || daily != nil {
		t.Fatalf("expected stderr-only setup, got %v %v", daily, err)
	}
}
