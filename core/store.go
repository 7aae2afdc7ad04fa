package core

import (
	"context"
)

// Store holds the client registry. Entries are never removed.
type Store interface {
	Load(ctx context.Context, clientID string) (Entry, bool, error)
	Save(ctx context.Context, clientID string, e Entry) error
	Len() int
}
