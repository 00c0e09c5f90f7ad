package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	LogLevel string `toml:"log_level"`
	Immich   struct {
		URL                   string `toml:"url"`
		APIKey                string `toml:"api_key"`
		TimeoutSeconds        int    `toml:"timeout_seconds"`
		ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
		MediaTimeoutSeconds   int    `toml:"media_timeout_seconds"`
		MaxConnections        int    `toml:"max_connections"`
		MaxConcurrent         int    `toml:"max_concurrent"`
		ReadRetries           int    `toml:"read_retries"`
		WriteRetries          int    `toml:"write_retries"`
	} `toml:"immich"`
	Sampling struct {
		BudgetFactor       int `toml:"budget_factor"`
		FilterBudgetFactor int `toml:"filter_budget_factor"`
		CatalogSamples     int `toml:"catalog_samples"`
		DrawDelayMS        int `toml:"draw_delay_ms"`
		FilterDelayMS      int `toml:"filter_delay_ms"`
		FailureDelayMS     int `toml:"failure_delay_ms"`
		CatalogDelayMS     int `toml:"catalog_delay_ms"`
		SearchOverfetch    int `toml:"search_overfetch"`
	} `toml:"sampling"`
	HTTP struct {
		Listen string `toml:"listen"`
	} `toml:"http"`
	Telegram struct {
		Token        string  `toml:"token"`
		AllowedChats []int64 `toml:"allowed_chats"`
	} `toml:"telegram"`
	Housekeeping struct {
		RotateLogs       string `toml:"rotate_logs"`
		PruneHistory     string `toml:"prune_history"`
		HistoryRetention int    `toml:"history_retention_hours"`
		HistoryLimit     int    `toml:"history_limit"`
	} `toml:"housekeeping"`
}

// DefaultDir returns ~/.photosort.
func DefaultDir() string {
	return filepath.Join(os.Getenv("HOME"), ".photosort")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.toml")
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	cfg := &Config{
		DataDir:  DefaultDir(),
		LogLevel: "info",
	}
	cfg.Immich.URL = "http://localhost:2283/api"
	cfg.Immich.TimeoutSeconds = 10
	cfg.Immich.ConnectTimeoutSeconds = 5
	cfg.Immich.MediaTimeoutSeconds = 30
	cfg.Immich.MaxConnections = 10
	cfg.Immich.MaxConcurrent = 3
	cfg.Immich.ReadRetries = 2
	cfg.Immich.WriteRetries = 1
	cfg.Sampling.BudgetFactor = 2
	cfg.Sampling.FilterBudgetFactor = 10
	cfg.Sampling.CatalogSamples = 8
	cfg.Sampling.DrawDelayMS = 200
	cfg.Sampling.FilterDelayMS = 250
	cfg.Sampling.FailureDelayMS = 300
	cfg.Sampling.CatalogDelayMS = 300
	cfg.Sampling.SearchOverfetch = 5
	cfg.HTTP.Listen = "127.0.0.1:8000"
	cfg.Housekeeping.RotateLogs = "0 0 * * *"
	cfg.Housekeeping.PruneHistory = "@hourly"
	cfg.Housekeeping.HistoryRetention = 24
	cfg.Housekeeping.HistoryLimit = 50
	return cfg
}

func Load(path string) (*Config, error) {
	cfg := Defaults()

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if url := os.Getenv("IMMICH_URL"); url != "" {
		cfg.Immich.URL = url
	}
	if apiKey := os.Getenv("IMMICH_API_KEY"); apiKey != "" {
		cfg.Immich.APIKey = apiKey
	}
	if listen := os.Getenv("PHOTOSORT_LISTEN"); listen != "" {
		cfg.HTTP.Listen = listen
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if level := os.Getenv("PHOTOSORT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.DataDir, "logs")
	}
	return cfg, nil
}

// LoadDotEnv loads .env.local and then .env from dir into the process
// environment. Variables already set are not overridden; missing files are
// skipped.
func LoadDotEnv(dir string) error {
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Validate reports settings required to talk to the photo backend.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Immich.URL) == "" {
		errs = append(errs, errors.New("immich.url is not set (or IMMICH_URL)"))
	}
	if strings.TrimSpace(c.Immich.APIKey) == "" {
		errs = append(errs, errors.New("immich.api_key is not set (or IMMICH_API_KEY)"))
	}
	return errors.Join(errs...)
}

func writeDefaults(path string, cfg *Config) error {
	if err := Save(path, cfg); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// Save writes cfg to path atomically, creating the directory if needed.
func Save(path string, cfg *Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ListValues returns every effective setting keyed by dot key.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	values := Values(cfg)
	if mask {
		values = MaskSecrets(values)
	}
	return values, nil
}

func readRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := make(map[string]any)
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// GetValue returns the effective value of a dot key, after env overrides.
// The file is created with defaults when missing.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	v, ok := Values(cfg)[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	return v, nil
}

// SetValue parses value for key and writes it into the config file. Other
// entries of the file, including ones this version does not know, are kept.
func SetValue(path, key, value string) error {
	v, err := ParseValue(key, value)
	if err != nil {
		return err
	}
	doc, err := readRaw(path)
	if err != nil {
		return err
	}
	setKey(doc, key, v)

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(Defaults()); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return writeAtomic(path, data)
}
