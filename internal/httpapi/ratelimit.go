package httpapi

import (
	"sync"
	"time"
)

// Class names one independently budgeted rate limiter.
type Class int

const (
	// ClassAuth protects credential-bearing endpoints (login, setup).
	ClassAuth Class = iota
	// ClassAPI covers general JSON API traffic.
	ClassAPI
	// ClassDownload covers file byte streams.
	ClassDownload
)

func (c Class) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassAPI:
		return "api"
	case ClassDownload:
		return "download"
	default:
		return "unknown"
	}
}

type bucket struct {
	count   int
	resetAt time.Time
}

// fixedWindowLimiter counts requests per client key in fixed windows.
// Bursts across a window boundary are accepted behavior, not a defect.
type fixedWindowLimiter struct {
	mu      sync.Mutex
	win     time.Duration
	max     int
	buckets map[string]*bucket
}

func newFixedWindowLimiter(max int, window time.Duration) *fixedWindowLimiter {
	return &fixedWindowLimiter{
		win:     window,
		max:     max,
		buckets: make(map[string]*bucket),
	}
}

// Allow records one request for key. The check and increment happen under
// one lock so concurrent requests cannot both land on the boundary slot.
// On rejection it returns the time until the window resets.
func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil || now.After(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(l.win)}
		l.buckets[key] = b
	}
	b.count++
	if b.count <= l.max {
		return true, 0
	}
	return false, time.Until(b.resetAt)
}

func (l *fixedWindowLimiter) cleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if now.After(b.resetAt) {
			delete(l.buckets, key)
		}
	}
}

// LimiterConfig is one class budget.
type LimiterConfig struct {
	Window time.Duration
	Max    int
}

// Limiters owns the per-class limiter instances plus one sweep goroutine.
// It is constructed per server so tests can run isolated instances.
type Limiters struct {
	auth     *fixedWindowLimiter
	api      *fixedWindowLimiter
	download *fixedWindowLimiter
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLimiters builds the three limiter classes and starts the sweep loop.
// sweepEvery is independent of the window durations; stale buckets outlive
// their window by at most one sweep cycle.
func NewLimiters(auth, api, download LimiterConfig, sweepEvery time.Duration) *Limiters {
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}
	ls := &Limiters{
		auth:     newFixedWindowLimiter(auth.Max, auth.Window),
		api:      newFixedWindowLimiter(api.Max, api.Window),
		download: newFixedWindowLimiter(download.Max, download.Window),
		stopCh:   make(chan struct{}),
	}
	go ls.sweepLoop(sweepEvery)
	return ls
}

func (ls *Limiters) class(c Class) *fixedWindowLimiter {
	switch c {
	case ClassAuth:
		return ls.auth
	case ClassDownload:
		return ls.download
	default:
		return ls.api
	}
}

// Allow checks one request against the named class.
func (ls *Limiters) Allow(c Class, key string) (bool, time.Duration) {
	return ls.class(c).Allow(key)
}

func (ls *Limiters) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			ls.auth.cleanup(now)
			ls.api.cleanup(now)
			ls.download.cleanup(now)
		case <-ls.stopCh:
			return
		}
	}
}

// Stop terminates the sweep goroutine.
func (ls *Limiters) Stop() {
	ls.stopOnce.Do(func() { close(ls.stopCh) })
}
