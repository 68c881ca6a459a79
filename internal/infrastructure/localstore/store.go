package localstore

import (
	"context"
	"errors"

	"cartsession-backend/internal/domain"
	"cartsession-backend/pkg/logger"

	"github.com/goccy/go-json"
)

// Store persists the guest cart in durable key-value storage. Storage
// trouble never reaches callers: the cart degrades to empty (load) or to
// this-session-only visibility (save) instead of failing the request.
type Store struct {
	kv domain.KVStorage
}

func NewStore(kv domain.KVStorage) domain.LocalCartStore {
	return &Store{kv: kv}
}

func (s *Store) key(sessionID string) string {
	return domain.StorageKeyGuestCart + sessionID
}

func (s *Store) Load(ctx context.Context, sessionID string) []domain.CartLineItem {
	raw, err := s.kv.Get(ctx, s.key(sessionID))
	if err != nil {
		if !errors.Is(err, domain.ErrKeyNotFound) {
			logger.StorageDegraded("load", s.key(sessionID), err)
		}
		return []domain.CartLineItem{}
	}

	var items []domain.CartLineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		// Corrupt snapshot: treat as empty rather than poisoning the session
		logger.StorageDegraded("decode", s.key(sessionID), err)
		return []domain.CartLineItem{}
	}
	if items == nil {
		items = []domain.CartLineItem{}
	}
	return items
}

func (s *Store) Save(ctx context.Context, sessionID string, items []domain.CartLineItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		logger.StorageDegraded("encode", s.key(sessionID), err)
		return
	}
	if err := s.kv.Set(ctx, s.key(sessionID), raw); err != nil {
		logger.StorageDegraded("save", s.key(sessionID), err)
	}
}

func (s *Store) Clear(ctx context.Context, sessionID string) {
	if err := s.kv.Remove(ctx, s.key(sessionID)); err != nil {
		logger.StorageDegraded("clear", s.key(sessionID), err)
	}
}
