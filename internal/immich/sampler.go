package immich

import (
	"context"
	"errors"
	"time"
)

const randomPath = "/assets/random"

// errNoAsset marks a random draw that returned an empty list.
var errNoAsset = errors.New("random endpoint returned no asset")

// stopReason records why a draw loop ended.
type stopReason int

const (
	stopFilled stopReason = iota + 1
	stopBudget
	stopError
	stopCanceled
)

func (r stopReason) String() string {
	switch r {
	case stopFilled:
		return "filled"
	case stopBudget:
		return "budget"
	case stopError:
		return "error"
	case stopCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// drawPlan describes one sequential sampling run.
type drawPlan struct {
	want         int
	budget       int
	accept       func(Asset) bool
	successDelay time.Duration
	failureDelay time.Duration
	stopOnError  bool
}

// drawResult is the outcome of a draw loop. err holds the last draw error.
type drawResult struct {
	assets   []Asset
	attempts int
	failures int
	reason   stopReason
	err      error
}

// Sample returns up to n assets with distinct ids. A short batch means the
// attempt budget ran out and is not an error.
func (c *Client) Sample(ctx context.Context, n int) ([]Asset, error) {
	if n < 1 {
		return []Asset{}, nil
	}
	if n == 1 {
		return c.sampleOne(ctx)
	}
	res := c.draw(ctx, drawPlan{
		want:         n,
		budget:       n * c.opts.SampleBudget,
		successDelay: c.opts.DrawDelay,
		failureDelay: c.opts.FailureDelay,
	})
	return res.batch()
}

func (c *Client) sampleOne(ctx context.Context) ([]Asset, error) {
	resp, err := c.transport.Fetch(ctx, randomPath)
	if err != nil {
		return nil, err
	}
	return decodeRandom(resp.Body)
}

// drawOne performs a single read of the random endpoint.
func (c *Client) drawOne(ctx context.Context) (Asset, error) {
	assets, err := c.sampleOne(ctx)
	if err != nil {
		return Asset{}, err
	}
	if len(assets) == 0 {
		return Asset{}, errNoAsset
	}
	return assets[0], nil
}

// draw runs sequential single draws until plan.want assets are accepted or
// plan.budget draws are spent. Draws are never issued concurrently.
func (c *Client) draw(ctx context.Context, plan drawPlan) drawResult {
	res := drawResult{assets: make([]Asset, 0, plan.want)}
	seen := make(map[string]struct{}, plan.want)

	for res.attempts < plan.budget {
		if err := ctx.Err(); err != nil {
			res.reason, res.err = stopCanceled, err
			return res
		}
		res.attempts++

		asset, err := c.drawOne(ctx)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				res.reason, res.err = stopCanceled, cerr
				return res
			}
			res.failures++
			res.err = err
			if plan.stopOnError {
				res.reason = stopError
				return res
			}
			c.log.Debug("random draw failed", "attempt", res.attempts, "error", err)
			if res.attempts < plan.budget {
				if err := c.pause(ctx, plan.failureDelay); err != nil {
					res.reason, res.err = stopCanceled, err
					return res
				}
			}
			continue
		}

		if _, dup := seen[asset.ID]; !dup {
			seen[asset.ID] = struct{}{}
			if plan.accept == nil || plan.accept(asset) {
				res.assets = append(res.assets, asset)
			}
		}
		if len(res.assets) >= plan.want {
			res.reason = stopFilled
			return res
		}
		if res.attempts < plan.budget {
			if err := c.pause(ctx, plan.successDelay); err != nil {
				res.reason, res.err = stopCanceled, err
				return res
			}
		}
	}

	res.reason = stopBudget
	if len(res.assets) >= plan.want {
		res.reason = stopFilled
	}
	return res
}

// batch converts a draw result into the caller-facing batch. The last error
// surfaces only on cancellation or when every draw failed outright.
func (r drawResult) batch() ([]Asset, error) {
	if r.reason == stopCanceled {
		return r.assets, r.err
	}
	if len(r.assets) == 0 && r.attempts > 0 && r.failures == r.attempts &&
		r.err != nil && !errors.Is(r.err, errNoAsset) {
		return nil, r.err
	}
	return r.assets, nil
}
