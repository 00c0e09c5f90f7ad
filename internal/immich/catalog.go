package immich

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// MaxCatalogSamples caps the draws spent discovering camera models.
const MaxCatalogSamples = 8

// catalogTimeout bounds a shared population, which outlives the caller that
// started it.
const catalogTimeout = 2 * time.Minute

// cameraCatalog is written once and read many times.
type cameraCatalog struct {
	mu     sync.RWMutex
	models []string
	ready  bool
	group  singleflight.Group
}

func (c *cameraCatalog) get() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.models, c.ready
}

func (c *cameraCatalog) set(models []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ready {
		return
	}
	c.models = models
	c.ready = true
}

// CameraModels returns the sorted distinct camera models seen in a small
// random sample. The first populated result is kept for the client lifetime,
// even when it is empty. Concurrent first calls share one population; a
// caller that gives up early gets its own context error while the
// population carries on for the others.
func (c *Client) CameraModels(ctx context.Context) ([]string, error) {
	if models, ok := c.catalog.get(); ok {
		return slices.Clone(models), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := c.catalog.group.DoChan("cameras", func() (any, error) {
		if models, ok := c.catalog.get(); ok {
			return models, nil
		}
		popCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), catalogTimeout)
		defer cancel()
		models, err := c.discoverCameras(popCtx)
		if err != nil {
			return nil, err
		}
		c.catalog.set(models)
		models, _ = c.catalog.get()
		return models, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]string)), nil
	}
}

func (c *Client) discoverCameras(ctx context.Context) ([]string, error) {
	samples := min(c.opts.CatalogSamples, MaxCatalogSamples)
	res := c.draw(ctx, drawPlan{
		want:         samples,
		budget:       samples,
		successDelay: c.opts.CatalogDelay,
		stopOnError:  true,
	})
	switch res.reason {
	case stopCanceled:
		return nil, res.err
	case stopError:
		c.log.Warn("camera discovery stopped early", "collected", len(res.assets), "error", res.err)
	}

	set := make(map[string]struct{})
	for _, asset := range res.assets {
		model := asset.CameraModel()
		if model == UnknownCamera {
			continue
		}
		set[model] = struct{}{}
	}
	models := make([]string, 0, len(set))
	for model := range set {
		models = append(models, model)
	}
	slices.Sort(models)
	c.log.Info("camera catalog populated", "models", len(models), "draws", res.attempts)
	return models, nil
}
