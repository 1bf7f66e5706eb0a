package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter enforces per-host politeness: a minimum delay between
// requests to the same host plus an optional token-bucket rate limit.
// A nil HostLimiter disables limiting entirely.
type HostLimiter struct {
	delay       time.Duration
	perSecond   float64
	burst       int
	rateEnabled bool

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewHostLimiter creates a limiter with a per-host minimum delay and,
// when perSecond is positive, a per-host token bucket of perSecond
// requests with the given burst.
func NewHostLimiter(delay time.Duration, perSecond float64, burst int) *HostLimiter {
	l := &HostLimiter{
		delay: delay,
		last:  make(map[string]time.Time),
	}
	if perSecond > 0 {
		if burst < 1 {
			burst = 1
		}
		l.rateEnabled = true
		l.perSecond = perSecond
		l.burst = burst
		l.limiters = make(map[string]*rate.Limiter)
	}
	return l
}

// Wait blocks until the politeness constraints for host are satisfied
// or the context is cancelled.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	if l == nil || host == "" {
		return nil
	}
	host = strings.ToLower(host)

	var sleep time.Duration
	var limiter *rate.Limiter
	now := time.Now()

	l.mu.Lock()
	if l.delay > 0 {
		if last, ok := l.last[host]; ok {
			if rest := last.Add(l.delay).Sub(now); rest > 0 {
				sleep = rest
			}
		}
	}
	if l.rateEnabled {
		limiter = l.hostLimiterLocked(host)
	}
	l.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	l.mu.Lock()
	l.last[host] = time.Now()
	l.mu.Unlock()
	return nil
}

// hostLimiterLocked returns the token bucket for host, creating it on
// first use. Caller holds l.mu.
func (l *HostLimiter) hostLimiterLocked(host string) *rate.Limiter {
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.perSecond), l.burst)
		l.limiters[host] = limiter
	}
	return limiter
}
