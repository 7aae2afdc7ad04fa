package core

import (
	"context"
)

// RateLimiter is what the HTTP layer depends on.
type RateLimiter interface {
	Allow(ctx context.Context, clientID string) (Decision, error)
}

var _ RateLimiter = (*Limiter)(nil)
