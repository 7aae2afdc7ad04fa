package core

import (
	"time"
)

type Options struct {
	MaxRequests int
	Window      time.Duration
	Now         func() time.Time
}

func NewMemoryLimiter() (*Limiter, error) {
	return NewMemoryLimiterWithOptions(Options{})
}

// NewMemoryLimiterWithOptions builds a limiter over a fresh MemoryStore,
// filling zero options with the defaults.
func NewMemoryLimiterWithOptions(opts Options) (*Limiter, error) {
	maxRequests := opts.MaxRequests
	if maxRequests == 0 {
		maxRequests = DefaultMaxRequests
	}
	window := opts.Window
	if window == 0 {
		window = DefaultWindow
	}

	cfg := Config{
		Store:       NewMemoryStore(),
		Now:         opts.Now,
		MaxRequests: maxRequests,
		Window:      window,
	}
	return NewLimiter(cfg)
}
