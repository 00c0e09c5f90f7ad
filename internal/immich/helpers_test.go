package immich

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient starts a fake backend and a client with pacing disabled.
func newTestClient(t *testing.T, h http.Handler, tweak ...func(*Options)) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.Transport = TransportConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
		Read:    &RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 2},
		Write:   &RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond, Multiplier: 2},
	}
	opts.DrawDelay = 0
	opts.FilterDelay = 0
	opts.FailureDelay = 0
	opts.CatalogDelay = 0
	for _, fn := range tweak {
		fn(&opts)
	}

	c, err := NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func assetJSON(id, model string) string {
	if model == "" {
		return fmt.Sprintf(`{"id":%q,"type":"IMAGE"}`, id)
	}
	return fmt.Sprintf(`{"id":%q,"type":"IMAGE","exifInfo":{"model":%q}}`, id, model)
}

func sizedJSON(id string, w, h int) string {
	return fmt.Sprintf(`{"id":%q,"exifInfo":{"exifImageWidth":%d,"exifImageHeight":%d}}`, id, w, h)
}

// sequence serves bodies in order, repeating the last one once exhausted.
type sequence struct {
	bodies []string
	calls  atomic.Int64
}

func newSequence(bodies ...string) *sequence {
	return &sequence{bodies: bodies}
}

func (s *sequence) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.bodies) {
		i = len(s.bodies) - 1
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(s.bodies[i]))
}

func (s *sequence) count() int { return int(s.calls.Load()) }

// recorder captures every request the backend receives.
type recorder struct {
	mu       sync.Mutex
	requests []string
}

func (r *recorder) add(method, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, method+" "+path)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.requests...)
}

func ids(assets []Asset) []string {
	out := make([]string, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}
