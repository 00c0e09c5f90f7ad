package immich

import (
	"context"
	"log/slog"
	"time"
)

// Options configures a Client. Start from DefaultOptions; zero budgets fall
// back to defaults while zero delays disable pacing.
type Options struct {
	Transport TransportConfig

	// SampleBudget and FilterBudget are draws allowed per requested asset.
	SampleBudget int
	FilterBudget int
	// CatalogSamples is the number of draws used to discover camera models,
	// capped at MaxCatalogSamples.
	CatalogSamples int

	DrawDelay    time.Duration
	FilterDelay  time.Duration
	FailureDelay time.Duration
	CatalogDelay time.Duration

	// SearchPaths are tried in order until one succeeds.
	SearchPaths []string
	// SearchOverfetch multiplies the requested size when results will be
	// filtered by dimensions.
	SearchOverfetch int

	Logger *slog.Logger
}

// DefaultOptions returns the pacing and budgets tuned for a backend that
// degrades under load.
func DefaultOptions() Options {
	return Options{
		SampleBudget:    2,
		FilterBudget:    10,
		CatalogSamples:  MaxCatalogSamples,
		DrawDelay:       200 * time.Millisecond,
		FilterDelay:     250 * time.Millisecond,
		FailureDelay:    300 * time.Millisecond,
		CatalogDelay:    300 * time.Millisecond,
		SearchPaths:     []string{"/search/smart", "/search-smart"},
		SearchOverfetch: 5,
	}
}

// Client is the asset sampling and filtering client. One Client owns one
// Transport and the memoized camera catalog; Close it once at shutdown.
type Client struct {
	transport *Transport
	opts      Options
	log       *slog.Logger
	sleep     func(context.Context, time.Duration) error
	catalog   cameraCatalog
}

// NewClient builds a Client and its Transport.
func NewClient(opts Options) (*Client, error) {
	transport, err := NewTransport(opts.Transport)
	if err != nil {
		return nil, err
	}
	defaults := DefaultOptions()
	if opts.SampleBudget <= 0 {
		opts.SampleBudget = defaults.SampleBudget
	}
	if opts.FilterBudget <= 0 {
		opts.FilterBudget = defaults.FilterBudget
	}
	if opts.CatalogSamples <= 0 || opts.CatalogSamples > MaxCatalogSamples {
		opts.CatalogSamples = MaxCatalogSamples
	}
	if len(opts.SearchPaths) == 0 {
		opts.SearchPaths = defaults.SearchPaths
	}
	if opts.SearchOverfetch <= 0 {
		opts.SearchOverfetch = defaults.SearchOverfetch
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		transport: transport,
		opts:      opts,
		log:       logger.With("component", "immich"),
		sleep:     sleepContext,
	}, nil
}

// Transport exposes the underlying transport.
func (c *Client) Transport() *Transport { return c.transport }

// Close shuts down the connection pool.
func (c *Client) Close() {
	c.transport.Close()
}

func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	return c.sleep(ctx, d)
}
