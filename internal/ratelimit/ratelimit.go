package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobsieve/internal/model"
)

// HostLimiter enforces a token-bucket rate per hostname.
type HostLimiter struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter // key: URL host
	limit rate.Limit
	burst int
}

// NewHostLimiter creates a limiter allowing reqPerSec requests per second (with
// the given burst) to each host independently.
func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		hosts: make(map[string]*rate.Limiter),
		limit: rate.Limit(reqPerSec),
		burst: burst,
	}
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()

	if lim, ok := h.hosts[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(h.limit, h.burst)
	h.hosts[host] = lim
	return lim
}

// Wait blocks until a request to rawURL's host is allowed.
// Returns an error if the context is cancelled while waiting.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := "_"
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if err := h.limiterFor(host).Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", host, err)
	}
	return nil
}

// Ensure RateLimitedFetcher implements model.Fetcher.
var _ model.Fetcher = (*RateLimitedFetcher)(nil)

// RateLimitedFetcher is a decorator that waits on a HostLimiter before
// delegating to the wrapped Fetcher.
type RateLimitedFetcher struct {
	inner   model.Fetcher
	limiter *HostLimiter
}

// NewRateLimitedFetcher wraps a Fetcher with per-host rate limiting.
func NewRateLimitedFetcher(inner model.Fetcher, limiter *HostLimiter) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		inner:   inner,
		limiter: limiter,
	}
}

// Fetch waits for the limiter, then delegates. A cancelled wait is reported as
// a transport failure for url.
func (f *RateLimitedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx, url); err != nil {
		return nil, &model.TransportError{URL: url, Err: err}
	}
	return f.inner.Fetch(ctx, url)
}
