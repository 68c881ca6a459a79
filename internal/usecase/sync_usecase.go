package usecase

import (
	"context"
	"log/slog"
	"time"

	"cartsession-backend/internal/domain"
	"cartsession-backend/pkg/logger"
)

// SyncCoordinator reconciles the guest cart with the authoritative remote
// cart on authentication-state transitions. It is the only component that
// decides whether a login merges the local cart or just loads the server
// one, gated by the freshness and cooldown guards.
type SyncCoordinator struct {
	local    domain.LocalCartStore
	remote   domain.RemoteCartGateway
	signal   domain.SessionSignal
	tx       domain.TransactionManager
	cooldown time.Duration
}

func NewSyncCoordinator(local domain.LocalCartStore, remote domain.RemoteCartGateway, signal domain.SessionSignal, tx domain.TransactionManager, cooldown time.Duration) *SyncCoordinator {
	return &SyncCoordinator{
		local:    local,
		remote:   remote,
		signal:   signal,
		tx:       tx,
		cooldown: cooldown,
	}
}

// SyncResult reports where the machine landed and what it did.
type SyncResult struct {
	State       string // domain.SyncState*
	Cart        domain.CartState
	MergedCount int
	Merged      bool // a merge was attempted (guards permitted it)
}

// Bootstrap establishes the initial cart state for a session: guest from
// local storage when unauthenticated, otherwise the login machine (which
// degenerates to a plain remote load for restored sessions, since their
// freshness marker is absent).
func (c *SyncCoordinator) Bootstrap(ctx context.Context, sessionID string, user *domain.User) SyncResult {
	if user == nil {
		return c.guestResult(ctx, sessionID)
	}
	return c.OnLogin(ctx, sessionID, user.ID)
}

// OnLogin runs the Guest -> Syncing -> Authenticated transition. It never
// returns a blocking error: if the authoritative cart cannot be fetched
// the session falls back to Guest with the local cart intact.
func (c *SyncCoordinator) OnLogin(ctx context.Context, sessionID, userID string) SyncResult {
	remote, err := c.remote.Fetch(ctx, userID)
	if err != nil {
		// The cart must stay usable through a transient remote failure.
		// Local cart remains authoritative and is NOT cleared; the fresh
		// login marker survives so the next attempt can still merge.
		slog.Error("Sync: remote fetch failed, falling back to guest", "user_id", userID, "error", err)
		return c.guestResult(ctx, sessionID)
	}

	fresh := c.signal.HasFreshLogin(ctx, sessionID)
	cooled := c.cooldownExpired(ctx, userID)

	merged := 0
	attempted := false
	if fresh && cooled {
		attempted = true
		localItems := c.local.Load(ctx, sessionID)
		toPush := mergeSet(localItems, remote.Items)

		// Sequential pushes: concurrent adds can race the server's own
		// identity-key check into duplicate lines.
		for _, item := range toPush {
			if _, err := c.remote.Add(ctx, userID, item.ProductRef, item.Quantity, item.Variants); err != nil {
				// A single bad item must not abort the rest of the merge.
				slog.Error("Sync: merge add failed, continuing", "user_id", userID, "product_ref", item.ProductRef, "error", err)
				continue
			}
			merged++
		}
	} else {
		slog.Info("Sync: merge skipped", "user_id", userID, "fresh_login", fresh, "cooldown_expired", cooled)
	}

	// Merge and skip paths share the bookkeeping: the local cart is
	// consumed (or assumed already synced), the cooldown stamped, the
	// one-shot marker cleared.
	if err := c.tx.Do(ctx, func(txCtx context.Context) error {
		c.local.Clear(txCtx, sessionID)
		if err := c.signal.StampSync(txCtx, userID, time.Now()); err != nil {
			return err
		}
		return c.signal.ClearFreshLogin(txCtx, sessionID)
	}); err != nil {
		slog.Error("Sync: bookkeeping failed", "user_id", userID, "error", err)
	}

	// Full reload: the remote cart is the source of truth from here on.
	cart := remote
	if reloaded, err := c.remote.Fetch(ctx, userID); err == nil {
		cart = reloaded
	} else {
		slog.Error("Sync: post-merge reload failed, using pre-merge snapshot", "user_id", userID, "error", err)
	}

	logger.SyncEvent(userID, domain.SyncStateGuest, domain.SyncStateAuthenticated, merged)

	return SyncResult{
		State: domain.SyncStateAuthenticated,
		Cart: domain.CartState{
			Mode:         domain.CartModeAuthenticated,
			Items:        cart.Items,
			RemoteCartID: &cart.ID,
		},
		MergedCount: merged,
		Merged:      attempted,
	}
}

// OnLogout reverts the session to guest mode: the remote cart id is
// dropped and whatever the local store currently holds (often nothing)
// becomes the cart.
func (c *SyncCoordinator) OnLogout(ctx context.Context, sessionID, userID string) SyncResult {
	logger.SyncEvent(userID, domain.SyncStateAuthenticated, domain.SyncStateGuest, 0)
	return c.guestResult(ctx, sessionID)
}

func (c *SyncCoordinator) guestResult(ctx context.Context, sessionID string) SyncResult {
	return SyncResult{
		State: domain.SyncStateGuest,
		Cart: domain.CartState{
			Mode:  domain.CartModeGuest,
			Items: c.local.Load(ctx, sessionID),
		},
	}
}

func (c *SyncCoordinator) cooldownExpired(ctx context.Context, userID string) bool {
	last, ok := c.signal.LastSyncAt(ctx, userID)
	if !ok {
		return true
	}
	return time.Since(last) >= c.cooldown
}
