package session

import (
	"context"
	"errors"
	"time"

	"cartsession-backend/internal/domain"
	"cartsession-backend/pkg/logger"
)

// Signal stores the two sync guards in durable KV storage: the one-shot
// fresh-login marker (session scoped) and the last-sync timestamp
// (user scoped, shared across tabs and devices).
type Signal struct {
	kv domain.KVStorage
}

func NewSignal(kv domain.KVStorage) domain.SessionSignal {
	return &Signal{kv: kv}
}

func (s *Signal) MarkFreshLogin(ctx context.Context, sessionID string) error {
	return s.kv.Set(ctx, domain.StorageKeyFreshLogin+sessionID, []byte("1"))
}

func (s *Signal) HasFreshLogin(ctx context.Context, sessionID string) bool {
	_, err := s.kv.Get(ctx, domain.StorageKeyFreshLogin+sessionID)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			// Unreadable guard counts as absent: a reload-shaped no-merge
			// path is the safe default when storage is misbehaving.
			logger.StorageDegraded("fresh_login", sessionID, err)
		}
		return false
	}
	return true
}

func (s *Signal) ClearFreshLogin(ctx context.Context, sessionID string) error {
	return s.kv.Remove(ctx, domain.StorageKeyFreshLogin+sessionID)
}

func (s *Signal) LastSyncAt(ctx context.Context, userID string) (time.Time, bool) {
	raw, err := s.kv.Get(ctx, domain.StorageKeyLastSync+userID)
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			logger.StorageDegraded("last_sync", userID, err)
		}
		return time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

func (s *Signal) StampSync(ctx context.Context, userID string, at time.Time) error {
	return s.kv.Set(ctx, domain.StorageKeyLastSync+userID, []byte(at.UTC().Format(time.RFC3339)))
}
