package domain

import (
	"context"
	"time"
)

// --- Interfaces ---

type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// KVStorage is durable string-keyed storage. It may be unavailable;
// callers above the Local Cart Store decide whether that is fatal.
type KVStorage interface {
	// Get returns ErrKeyNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// SessionSignal exposes the two sync guards to the coordinator: the
// one-shot just-logged-in marker and the durable last-sync timestamp.
type SessionSignal interface {
	// MarkFreshLogin is called only by a successful login/registration
	// action, never by a page-reload session restore.
	MarkFreshLogin(ctx context.Context, sessionID string) error
	// HasFreshLogin reports the marker without clearing it. The coordinator
	// clears it only once a sync attempt actually completes, so a failed
	// remote fetch leaves the login eligible for a retry.
	HasFreshLogin(ctx context.Context, sessionID string) bool
	ClearFreshLogin(ctx context.Context, sessionID string) error
	LastSyncAt(ctx context.Context, userID string) (time.Time, bool)
	StampSync(ctx context.Context, userID string, at time.Time) error
}
