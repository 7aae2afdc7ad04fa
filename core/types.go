package core

import (
	"errors"
	"fmt"
	"time"
)

// UnknownClient is the shared bucket for requests without a usable identifier.
const UnknownClient = "unknown"

const (
	DefaultMaxRequests = 5
	DefaultWindow      = 60 * time.Second
)

// Entry is the per-client window state. ResetTime is in milliseconds since epoch.
type Entry struct {
	Count     int   `json:"count"`
	ResetTime int64 `json:"reset_time"`
}

type Decision struct {
	Admitted  bool  `json:"admitted"`
	Limit     int   `json:"limit"`
	Count     int   `json:"count"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
	// ResetAt is ceil(ResetTime/1000), the window end in epoch seconds.
	ResetAt int64 `json:"reset_at"`
	// RetryAfter is set only on rejection.
	RetryAfter int64 `json:"retry_after,omitempty"`
}

func (d Decision) Rejected() bool {
	return !d.Admitted
}

func (d Decision) Message() string {
	if d.Admitted {
		return ""
	}
	return fmt.Sprintf("Too many requests. Please try again in %d seconds.", d.RetryAfter)
}

var (
	ErrInvalidLimit  = errors.New("max requests must be positive")
	ErrInvalidWindow = errors.New("window must be positive")
	ErrStoreRequired = errors.New("store is required")
)
