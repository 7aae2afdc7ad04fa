package core

import (
	"context"
	"time"
)

// Limiter is a fixed-window counter per client. The read-modify-write for a
// client runs under a per-key lock, so concurrent requests from one client
// never get admitted past the limit.
type Limiter struct {
	store       Store
	now         func() time.Time
	maxRequests int
	window      time.Duration
	locks       keyLock
}

type Config struct {
	Store       Store
	Now         func() time.Time
	MaxRequests int
	Window      time.Duration
}

func NewLimiter(cfg Config) (*Limiter, error) {
	if cfg.Store == nil {
		return nil, ErrStoreRequired
	}
	if cfg.MaxRequests <= 0 {
		return nil, ErrInvalidLimit
	}
	if cfg.Window.Milliseconds() <= 0 {
		return nil, ErrInvalidWindow
	}
	nowFn := cfg.Now
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Limiter{
		store:       cfg.Store,
		now:         nowFn,
		maxRequests: cfg.MaxRequests,
		window:      cfg.Window,
	}, nil
}

// Allow checks clientID against the configured limit at the limiter's clock.
func (l *Limiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	return l.Check(ctx, clientID, l.maxRequests, l.window, l.now())
}

// Check counts one request for clientID at now and decides whether it is
// admitted. A window is reset only once now is strictly past its ResetTime.
func (l *Limiter) Check(ctx context.Context, clientID string, maxRequests int, window time.Duration, now time.Time) (Decision, error) {
	if maxRequests <= 0 {
		return Decision{}, ErrInvalidLimit
	}
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		return Decision{}, ErrInvalidWindow
	}
	if clientID == "" {
		clientID = UnknownClient
	}
	nowMs := now.UnixMilli()

	unlock := l.locks.lock(clientID)
	defer unlock()

	e, ok, err := l.store.Load(ctx, clientID)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		e = Entry{Count: 0, ResetTime: nowMs + windowMs}
	}
	if nowMs > e.ResetTime {
		e = Entry{Count: 0, ResetTime: nowMs + windowMs}
	}
	e.Count++
	if err := l.store.Save(ctx, clientID, e); err != nil {
		return Decision{}, err
	}

	d := Decision{
		Admitted:  e.Count <= maxRequests,
		Limit:     maxRequests,
		Count:     e.Count,
		ResetTime: e.ResetTime,
		ResetAt:   ceilDiv(e.ResetTime, 1000),
	}
	if d.Admitted {
		d.Remaining = maxRequests - e.Count
		return d, nil
	}
	d.RetryAfter = ceilDiv(e.ResetTime-nowMs, 1000)
	if d.RetryAfter < 0 {
		d.RetryAfter = 0
	}
	return d, nil
}

func (l *Limiter) MaxRequests() int {
	return l.maxRequests
}

func (l *Limiter) Window() time.Duration {
	return l.window
}

// Clients reports how many client entries the registry holds.
func (l *Limiter) Clients() int {
	return l.store.Len()
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}
