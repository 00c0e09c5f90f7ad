package main

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/user/photosort/internal/config"
	"github.com/user/photosort/internal/review"
	"gopkg.in/yaml.v3"
)

func TestClientOptions(t *testing.T) {
	cfg := config.Defaults()
	cfg.Immich.URL = "http://nas:2283/api"
	cfg.Immich.APIKey = "k"
	cfg.Immich.ReadRetries = 4
	cfg.Immich.WriteRetries = 0
	cfg.Sampling.DrawDelayMS = 0

	opts := clientOptions(cfg)
	if opts.Transport.BaseURL != "http://nas:2283/api" || opts.Transport.APIKey != "k" {
		t.Errorf("transport = %+v", opts.Transport)
	}
	if opts.Transport.Timeout != 10*time.Second || opts.Transport.MediaTimeout != 30*time.Second {
		t.Errorf("timeouts = %v %v", opts.Transport.Timeout, opts.Transport.MediaTimeout)
	}
	if opts.Transport.Read.MaxAttempts != 5 || opts.Transport.Write.MaxAttempts != 1 {
		t.Errorf("attempts read=%d write=%d", opts.Transport.Read.MaxAttempts, opts.Transport.Write.MaxAttempts)
	}
	if opts.DrawDelay != 0 || opts.FilterDelay != 250*time.Millisecond {
		t.Errorf("delays draw=%v filter=%v", opts.DrawDelay, opts.FilterDelay)
	}
	if opts.SampleBudget != 2 || opts.FilterBudget != 10 || opts.CatalogSamples != 8 {
		t.Errorf("budgets = %d %d %d", opts.SampleBudget, opts.FilterBudget, opts.CatalogSamples)
	}
	if len(opts.SearchPaths) != 2 {
		t.Errorf("search paths = %v", opts.SearchPaths)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	cfg := config.Defaults()
	if _, err := newClient(cfg); err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected api key error, got %v", err)
	}

	cfg.Immich.APIKey = "k"
	client, err := newClient(cfg)
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	client.Close()
}

func TestParseChats(t *testing.T) {
	got := parseChats(" 42, -1001, nope,,7 ")
	if !reflect.DeepEqual(got, []int64{42, -1001, 7}) {
		t.Errorf("parseChats = %v", got)
	}
	if joinChats(got) != "42,-1001,7" {
		t.Errorf("joinChats = %q", joinChats(got))
	}
	if parseChats("") != nil {
		t.Errorf("expected nil for empty input")
	}
}

func TestWriteSummaries(t *testing.T) {
	video := "/proxy/v1/original"
	assets := []review.Summary{
		{ID: "p1", Type: "IMAGE", Meta: review.Meta{Camera: "Pixel 7"}},
		{ID: "v1", Type: "VIDEO", VideoURL: &video},
	}

	var buf bytes.Buffer
	if err := writeSummaries(&buf, "json", assets); err != nil {
		t.Fatalf("json: %v", err)
	}
	var fromJSON []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if fromJSON[0]["video_url"] != nil || fromJSON[1]["video_url"] != video {
		t.Errorf("json video_url = %v / %v", fromJSON[0]["video_url"], fromJSON[1]["video_url"])
	}

	buf.Reset()
	if err := writeSummaries(&buf, "yaml", assets); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var fromYAML []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if fromYAML[0]["id"] != "p1" {
		t.Errorf("yaml id = %v", fromYAML[0]["id"])
	}
	if _, ok := fromYAML[0]["video_url"]; ok {
		t.Errorf("image should omit video_url in yaml")
	}
	meta, _ := fromYAML[0]["meta"].(map[string]any)
	if meta["camera"] != "Pixel 7" {
		t.Errorf("yaml meta = %v", fromYAML[0]["meta"])
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"cameras", "config", "restart", "sample", "serve", "setup", "stop"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered (%v)", name, err)
		}
	}
}
