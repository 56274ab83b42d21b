package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ozayn/planner/internal/metrics"
)

// SourceLimiter enforces a randomized minimum inter-request delay per source
// plus a per-host token bucket as a global guard. The per-source last-request
// timestamp is the only mutable state the fetch path keeps.
type SourceLimiter struct {
	mu           sync.Mutex
	lastRequest  map[string]time.Time
	hosts        map[string]*rate.Limiter
	defaultMin   time.Duration
	defaultMax   time.Duration
	hostRPS      rate.Limit
	hostBurst    int
	sleepFn      func(ctx context.Context, d time.Duration) error
}

// LimiterConfig tunes the source limiter. Zero values fall back to defaults.
type LimiterConfig struct {
	DefaultMinDelay time.Duration
	DefaultMaxDelay time.Duration
	HostRPS         float64
	HostBurst       int
}

// NewSourceLimiter creates a SourceLimiter.
func NewSourceLimiter(cfg LimiterConfig) *SourceLimiter {
	if cfg.DefaultMinDelay <= 0 {
		cfg.DefaultMinDelay = 1 * time.Second
	}
	if cfg.DefaultMaxDelay < cfg.DefaultMinDelay {
		cfg.DefaultMaxDelay = cfg.DefaultMinDelay + 2*time.Second
	}
	rps := rate.Limit(cfg.HostRPS)
	if cfg.HostRPS <= 0 {
		rps = rate.Inf
	}
	burst := cfg.HostBurst
	if burst <= 0 {
		burst = 1
	}
	return &SourceLimiter{
		lastRequest: make(map[string]time.Time),
		hosts:       make(map[string]*rate.Limiter),
		defaultMin:  cfg.DefaultMinDelay,
		defaultMax:  cfg.DefaultMaxDelay,
		hostRPS:     rps,
		hostBurst:   burst,
		sleepFn:     sleepContext,
	}
}

// Wait blocks until the source's delay window has elapsed since its previous
// request and a token is available for the host. min/max override the default
// window when positive; the actual delay is randomized within [min,max].
func (l *SourceLimiter) Wait(ctx context.Context, sourceID, rawURL string, min, max time.Duration) error {
	if min <= 0 {
		min = l.defaultMin
	}
	if max < min {
		max = l.defaultMax
		if max < min {
			max = min
		}
	}

	delay := min
	if span := max - min; span > 0 {
		delay += randomJitter(span)
	}

	l.mu.Lock()
	now := time.Now()
	wait := time.Duration(0)
	if last, ok := l.lastRequest[sourceID]; ok {
		if elapsed := now.Sub(last); elapsed < delay {
			wait = delay - elapsed
		}
	}
	l.lastRequest[sourceID] = now.Add(wait)
	l.mu.Unlock()

	if wait > 0 {
		start := time.Now()
		if err := l.sleepFn(ctx, wait); err != nil {
			return err
		}
		metrics.ObserveRateLimitDelay(sourceID, time.Since(start))
	}

	limiter := l.hostLimiter(rawURL)
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (l *SourceLimiter) hostLimiter(rawURL string) *rate.Limiter {
	host := "unknown"
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.hosts[host]
	if !ok {
		limiter = rate.NewLimiter(l.hostRPS, l.hostBurst)
		l.hosts[host] = limiter
	}
	return limiter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
