// Package eta serves the queue wait-time estimate with caching and a
// client-side request budget.
package eta

import (
	"context"
	"sync"
	"time"

	"drinkmate/supportchat/internal/analysis"
	"drinkmate/supportchat/internal/config"
	"drinkmate/supportchat/internal/logger"
	"drinkmate/supportchat/internal/models"

	"go.uber.org/zap"
)

// QueueSource fetches live queue statistics.
type QueueSource interface {
	QueueStatus(ctx context.Context) (models.QueueStats, error)
}

// Options tunes an Estimator. Zero values use the config defaults.
type Options struct {
	CacheTTL           time.Duration
	MinRequestInterval time.Duration
	MaxRequestsPerHour int
	Timeout            time.Duration
	Now                func() time.Time
	Logger             *zap.Logger
}

type cachedETA struct {
	eta       models.ResponseETA
	fetchedAt time.Time
}

// Estimator answers ResponseETA calls. It never returns an error: when the
// budget is spent or the server fails it answers from cache or with the
// fallback estimate.
type Estimator struct {
	source   QueueSource
	ttl      time.Duration
	interval time.Duration
	perHour  int
	timeout  time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu          sync.Mutex
	last        *cachedETA
	lastRequest time.Time
	requests    []time.Time
}

// New creates an Estimator reading from source.
func New(source QueueSource, opts Options) *Estimator {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = config.ETACacheTTL
	}
	if opts.MinRequestInterval <= 0 {
		opts.MinRequestInterval = config.MinRequestInterval
	}
	if opts.MaxRequestsPerHour <= 0 {
		opts.MaxRequestsPerHour = config.MaxRequestsPerHour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.ETAFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Estimator{
		source:   source,
		ttl:      opts.CacheTTL,
		interval: opts.MinRequestInterval,
		perHour:  opts.MaxRequestsPerHour,
		timeout:  opts.Timeout,
		now:      opts.Now,
		log:      logger.OrNop(opts.Logger).Named("eta"),
	}
}

// ResponseETA returns the current estimate.
func (e *Estimator) ResponseETA(ctx context.Context) models.ResponseETA {
	now := e.now()
	cached, haveCached := e.cached()
	if haveCached && now.Sub(cached.fetchedAt) < e.ttl {
		return cached.eta
	}

	if !e.allow(now) {
		e.log.Debug("queue status request throttled")
		if haveCached {
			return cached.eta
		}
		return analysis.Fallback()
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	stats, err := e.source.QueueStatus(ctx)
	if err != nil {
		e.log.Warn("queue status unavailable, using fallback estimate", zap.Error(err))
		return analysis.Fallback()
	}

	estimate := analysis.Estimate(stats)
	estimate.UpdatedAt = now
	e.mu.Lock()
	e.last = &cachedETA{eta: estimate, fetchedAt: now}
	e.mu.Unlock()
	return estimate
}

// Cached returns the last fetched estimate regardless of age.
func (e *Estimator) Cached() (models.ResponseETA, bool) {
	c, ok := e.cached()
	return c.eta, ok
}

// Reset drops the cached estimate and the request history.
func (e *Estimator) Reset() {
	e.mu.Lock()
	e.last = nil
	e.lastRequest = time.Time{}
	e.requests = nil
	e.mu.Unlock()
}

func (e *Estimator) cached() (cachedETA, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return cachedETA{}, false
	}
	return *e.last, true
}

// allow checks the request budget and records now as a request when it
// passes. Check and record happen under one lock so concurrent callers
// cannot both slip through.
func (e *Estimator) allow(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.lastRequest.IsZero() && now.Sub(e.lastRequest) < e.interval {
		return false
	}

	cutoff := now.Add(-time.Hour)
	kept := e.requests[:0]
	for _, t := range e.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.requests = kept
	if len(e.requests) >= e.perHour {
		return false
	}

	e.requests = append(e.requests, now)
	e.lastRequest = now
	return true
}
