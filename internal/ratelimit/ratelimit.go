// Package ratelimit caps generation calls per client with one token bucket
// per (window, key). A request is admitted only if every window admits it.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrLimited is matched by every *Error
var ErrLimited = errors.New("rate limit exceeded")

// Window allows Max calls per Period, refilled continuously
type Window struct {
	Name   string
	Max    int
	Period time.Duration
}

// Hourly and Daily are the default generation windows
var (
	Hourly = Window{Name: "hour", Max: 10, Period: time.Hour}
	Daily  = Window{Name: "day", Max: 50, Period: 24 * time.Hour}
)

// Error reports which window refused a call
type Error struct {
	Window     Window
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("too many requests: maximum %d generation calls per %s allowed", e.Window.Max, e.Window.Name)
}

func (e *Error) Is(target error) bool {
	return target == ErrLimited
}

type keyed struct {
	window   Window
	limit    rate.Limit
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// getLimiter returns the limiter for a key, creating one if needed
func (k *keyed) getLimiter(key string) *rate.Limiter {
	k.mu.RLock()
	limiter, exists := k.limiters[key]
	k.mu.RUnlock()
	if exists {
		return limiter
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if limiter, exists = k.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(k.limit, k.window.Max)
	k.limiters[key] = limiter
	return limiter
}

// sweep drops limiters whose bucket has refilled; a full bucket behaves
// exactly like a new one
func (k *keyed) sweep() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	removed := 0
	for key, l := range k.limiters {
		if l.Tokens() >= float64(k.window.Max) {
			delete(k.limiters, key)
			removed++
		}
	}
	return removed
}

type Limiter struct {
	windows []*keyed
}

func New(windows ...Window) *Limiter {
	l := &Limiter{}
	for _, w := range windows {
		l.windows = append(l.windows, &keyed{
			window:   w,
			limit:    rate.Every(w.Period / time.Duration(w.Max)),
			limiters: make(map[string]*rate.Limiter),
		})
	}
	return l
}

// Allow admits one call for key or returns an *Error. A refused call
// consumes nothing from any window.
func (l *Limiter) Allow(key string) error {
	now := time.Now()
	reservations := make([]*rate.Reservation, 0, len(l.windows))
	cancel := func() {
		for _, r := range reservations {
			r.CancelAt(now)
		}
	}

	for _, k := range l.windows {
		r := k.getLimiter(key).ReserveN(now, 1)
		if !r.OK() {
			cancel()
			return &Error{Window: k.window}
		}
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			cancel()
			return &Error{Window: k.window, RetryAfter: delay}
		}
		reservations = append(reservations, r)
	}
	return nil
}

// Run sweeps idle keys every interval until ctx is done
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, k := range l.windows {
				k.sweep()
			}
		}
	}
}
