package immich

import (
	"context"
	"strings"
)

// FilteredSample draws until n distinct assets whose camera model is in
// models are collected or the filter budget is spent. An empty models set
// is the same as Sample.
func (c *Client) FilteredSample(ctx context.Context, n int, models []string) ([]Asset, error) {
	wanted := modelSet(models)
	if len(wanted) == 0 {
		return c.Sample(ctx, n)
	}
	if n < 1 {
		return []Asset{}, nil
	}
	res := c.draw(ctx, drawPlan{
		want:   n,
		budget: n * c.opts.FilterBudget,
		accept: func(a Asset) bool {
			_, ok := wanted[a.CameraModel()]
			return ok
		},
		successDelay: c.opts.FilterDelay,
		failureDelay: c.opts.FailureDelay,
	})
	if res.reason == stopBudget {
		c.log.Debug("filtered sample ran out of budget", "want", n, "got", len(res.assets), "draws", res.attempts)
	}
	return res.batch()
}

func modelSet(models []string) map[string]struct{} {
	set := make(map[string]struct{}, len(models))
	for _, m := range models {
		if m = strings.TrimSpace(m); m != "" {
			set[m] = struct{}{}
		}
	}
	return set
}
