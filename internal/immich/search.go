package immich

import (
	"context"
	"errors"
	"strings"
)

const screenshotQuery = "screenshot"

// queryExpansions rewrites short terms into phrases the CLIP model ranks well.
var queryExpansions = map[string]string{
	screenshotQuery: "screenshot of phone screen mobile device",
	"receipt":       "photo of a paper receipt with printed text",
	"document":      "photo of a printed document or page of text",
	"whiteboard":    "photo of a whiteboard with handwriting",
	"meme":          "meme image with caption text",
	"selfie":        "selfie photo of a person holding the camera",
	"food":          "close up photo of food on a plate",
	"pet":           "photo of a pet dog or cat",
}

// screenshotSizes are portrait pixel sizes of common phone screenshots.
var screenshotSizes = [][2]int{
	{640, 1136},  // iPhone SE 1st gen
	{750, 1334},  // iPhone 6/7/8/SE
	{828, 1792},  // iPhone XR/11
	{1080, 1920}, // 1080p Android, iPhone Plus
	{1080, 2340},
	{1080, 2400},
	{1125, 2436}, // iPhone X/XS/11 Pro
	{1170, 2532}, // iPhone 12-14
	{1179, 2556}, // iPhone 14 Pro/15
	{1242, 2208},
	{1242, 2688}, // iPhone XS Max/11 Pro Max
	{1284, 2778}, // iPhone 12-14 Pro Max
	{1290, 2796}, // iPhone 14 Pro Max/15 Plus
	{1440, 2560},
	{1440, 3200},
	{1536, 2048}, // iPad
	{1668, 2388},
	{2048, 2732}, // iPad Pro 12.9
}

// ExpandQuery returns the descriptive phrase for a known short term, or the
// term unchanged.
func ExpandQuery(term string) string {
	if phrase, ok := queryExpansions[strings.ToLower(strings.TrimSpace(term))]; ok {
		return phrase
	}
	return term
}

// looksLikeScreenshot accepts known screenshot sizes in either orientation,
// tall or wide phone aspect ratios, and assets without dimensions.
func looksLikeScreenshot(a Asset) bool {
	w, h, ok := a.Dimensions()
	if !ok {
		return true
	}
	for _, size := range screenshotSizes {
		if (w == size[0] && h == size[1]) || (w == size[1] && h == size[0]) {
			return true
		}
	}
	aspect := float64(w) / float64(h)
	return (aspect >= 0.4 && aspect <= 0.6) || (aspect >= 1.6 && aspect <= 1.8)
}

type searchRequest struct {
	Query      string `json:"query"`
	Size       int    `json:"size"`
	IsArchived bool   `json:"isArchived"`
	IsTrashed  bool   `json:"isTrashed"`
}

// Search runs a smart search for term and returns up to n assets. When refine
// is set and the term is "screenshot", results are narrowed by pixel
// dimensions. Any search failure, or an empty result, degrades to Sample.
func (c *Client) Search(ctx context.Context, term string, n int, refine bool) ([]Asset, error) {
	if n < 1 {
		return []Asset{}, nil
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return c.Sample(ctx, n)
	}
	assets, err := c.smartSearch(ctx, term, n, refine)
	if err != nil {
		c.log.Warn("smart search failed, using random sample", "query", term, "error", err)
		return c.Sample(ctx, n)
	}
	if len(assets) == 0 {
		c.log.Info("smart search found nothing, using random sample", "query", term)
		return c.Sample(ctx, n)
	}
	return assets, nil
}

func (c *Client) smartSearch(ctx context.Context, term string, n int, refine bool) ([]Asset, error) {
	dimensionFilter := refine && strings.EqualFold(term, screenshotQuery)
	size := n
	if dimensionFilter {
		size = n * c.opts.SearchOverfetch
	}
	req := searchRequest{Query: ExpandQuery(term), Size: size}

	var (
		resp *Response
		errs []error
	)
	for _, path := range c.opts.SearchPaths {
		r, err := c.transport.Query(ctx, path, req)
		if err == nil {
			resp = r
			break
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	if resp == nil {
		return nil, errors.Join(errs...)
	}

	payload, err := decodeSearch(resp.Body)
	if err != nil {
		return nil, err
	}

	out := make([]Asset, 0, n)
	seen := make(map[string]struct{})
	for _, asset := range payload.assets() {
		if _, dup := seen[asset.ID]; dup {
			continue
		}
		seen[asset.ID] = struct{}{}
		if dimensionFilter && !looksLikeScreenshot(asset) {
			continue
		}
		out = append(out, asset)
		if len(out) == n {
			break
		}
	}
	c.log.Debug("smart search", "query", term, "shape", payload.shape, "entries", len(payload.entries), "kept", len(out))
	return out, nil
}
