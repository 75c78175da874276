// Package blob provides durable key to text storage for engine snapshots.
//
// The engine uses exactly one key. Implementations must survive process
// restarts (except [Memory]) and must be safe to share between several
// processes on the same device; the last Put wins.
package blob

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("blob store closed")

// Store is a durable key to value store.
type Store interface {
	// Get returns the value for key. ok is false if the key was never
	// written.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Put durably stores value under key, replacing any previous value.
	Put(ctx context.Context, key, value string) error

	Close() error
}
