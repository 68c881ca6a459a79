package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cartsession-backend/internal/domain"
	"cartsession-backend/pkg/cache"
	"cartsession-backend/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// CartSession is the single entry point UI clients get to a cart. It
// routes every mutation to the backing store that is authoritative for
// the current mode, applies the optimistic projection first, and
// reconciles with the real response. One instance serves one logical
// actor; mutations are serialized by the session mutex.
type CartSession struct {
	mu sync.Mutex

	sessionID string
	user      *domain.User

	state       domain.CartState
	shippingKey string
	discount    *domain.Discount
	totals      domain.TotalsBreakdown

	local       domain.LocalCartStore
	remote      domain.RemoteCartGateway
	coordinator *SyncCoordinator
	calc        *TotalsCalculator

	// Time-windowed de-dup keyed by (actor, productRef), plus a short
	// mandatory cooldown after every mutation attempt. Both are scoped to
	// the session instance, never package-level.
	dedup       cache.CacheService
	dedupWindow time.Duration
	limiter     *rate.Limiter

	maxQuantity int
}

type CartSessionDeps struct {
	Local       domain.LocalCartStore
	Remote      domain.RemoteCartGateway
	Coordinator *SyncCoordinator
	Calc        *TotalsCalculator
	Dedup       cache.CacheService
	DedupWindow time.Duration
	RatePerSec  float64
	Burst       int
	MaxQuantity int
}

func NewCartSession(ctx context.Context, sessionID string, user *domain.User, deps CartSessionDeps) *CartSession {
	s := &CartSession{
		sessionID:   sessionID,
		user:        user,
		shippingKey: domain.ShippingTierStandard,
		local:       deps.Local,
		remote:      deps.Remote,
		coordinator: deps.Coordinator,
		calc:        deps.Calc,
		dedup:       deps.Dedup,
		dedupWindow: deps.DedupWindow,
		limiter:     rate.NewLimiter(rate.Limit(deps.RatePerSec), deps.Burst),
		maxQuantity: deps.MaxQuantity,
	}

	res := deps.Coordinator.Bootstrap(ctx, sessionID, user)
	s.adopt(res)
	return s
}

// --- Read surface ---

func (s *CartSession) Items() []domain.CartLineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CartLineItem, len(s.state.Items))
	copy(out, s.state.Items)
	return out
}

func (s *CartSession) Totals() domain.TotalsBreakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

func (s *CartSession) IsGuest() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.IsGuest()
}

func (s *CartSession) State() domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Items = make([]domain.CartLineItem, len(s.state.Items))
	copy(st.Items, s.state.Items)
	return st
}

func (s *CartSession) ShippingKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shippingKey
}

// --- Mutations ---

type AddItemInput struct {
	ProductRef string
	Quantity   int
	Variants   []domain.VariantSelection
	Snapshot   domain.ProductSnapshot
	Price      domain.PriceSource
}

func (s *CartSession) AddItem(ctx context.Context, in AddItemInput) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Quantity < 1 {
		return s.state, domain.ErrInvalidQuantity
	}
	if in.Quantity > s.maxQuantity {
		return s.state, domain.ErrQuantityLimitExceeded
	}
	if err := s.admitMutation(in.ProductRef); err != nil {
		return s.state, err
	}

	line := domain.CartLineItem{
		LineID:     uuid.New().String(),
		ProductRef: in.ProductRef,
		Snapshot:   in.Snapshot,
		Variants:   in.Variants,
		Quantity:   in.Quantity,
		UnitPrice:  ResolveUnitPrice(in.Price),
	}

	prev := s.state.Items
	s.applyItems(projectAdd(prev, line))

	if s.state.IsGuest() {
		s.local.Save(ctx, s.sessionID, s.state.Items)
		return s.snapshotLocked(), nil
	}

	cart, err := s.remote.Add(ctx, s.user.ID, in.ProductRef, in.Quantity, in.Variants)
	if err != nil {
		slog.Error("CartSession: AddItem dispatch failed", "session_id", s.sessionID, "product_ref", in.ProductRef, "error", err)
		s.applyItems(prev)
		return s.snapshotLocked(), fmt.Errorf("add item: %w", err)
	}
	s.adoptRemote(cart)
	return s.snapshotLocked(), nil
}

func (s *CartSession) UpdateQuantity(ctx context.Context, lineID string, quantity int) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity > s.maxQuantity {
		return s.state, domain.ErrQuantityLimitExceeded
	}
	if err := s.admitMutation(lineID); err != nil {
		return s.state, err
	}

	prev := s.state.Items
	next, found := projectUpdateQuantity(prev, lineID, quantity)
	if !found {
		return s.state, domain.ErrLineNotFound
	}
	s.applyItems(next)

	if s.state.IsGuest() {
		s.local.Save(ctx, s.sessionID, s.state.Items)
		return s.snapshotLocked(), nil
	}

	// quantity <= 0 means removal, mirrored on the remote side
	var cart *domain.RemoteCart
	var err error
	if quantity <= 0 {
		cart, err = s.remote.Remove(ctx, s.user.ID, lineID)
	} else {
		cart, err = s.remote.UpdateQuantity(ctx, s.user.ID, lineID, quantity)
	}
	if err != nil {
		slog.Error("CartSession: UpdateQuantity dispatch failed", "session_id", s.sessionID, "line_id", lineID, "error", err)
		s.applyItems(prev)
		return s.snapshotLocked(), fmt.Errorf("update quantity: %w", err)
	}
	s.adoptRemote(cart)
	return s.snapshotLocked(), nil
}

func (s *CartSession) RemoveItem(ctx context.Context, lineID string) (domain.CartState, error) {
	return s.UpdateQuantity(ctx, lineID, 0)
}

func (s *CartSession) Clear(ctx context.Context) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.Items
	s.applyItems([]domain.CartLineItem{})

	if s.state.IsGuest() {
		s.local.Clear(ctx, s.sessionID)
		return s.snapshotLocked(), nil
	}

	cart, err := s.remote.Clear(ctx, s.user.ID)
	if err != nil {
		slog.Error("CartSession: Clear dispatch failed", "session_id", s.sessionID, "error", err)
		s.applyItems(prev)
		return s.snapshotLocked(), fmt.Errorf("clear cart: %w", err)
	}
	s.adoptRemote(cart)
	return s.snapshotLocked(), nil
}

// ApplyDiscount is authenticated-only; in guest mode it is a synchronous
// validation error, not a network call.
func (s *CartSession) ApplyDiscount(ctx context.Context, code string) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsGuest() {
		return s.state, domain.ErrDiscountRequiresAuth
	}

	cart, err := s.remote.ApplyDiscount(ctx, s.user.ID, utils.NormalizeCode(code))
	if err != nil {
		slog.Error("CartSession: ApplyDiscount dispatch failed", "session_id", s.sessionID, "error", err)
		return s.snapshotLocked(), fmt.Errorf("apply discount: %w", err)
	}
	s.adoptRemote(cart)
	return s.snapshotLocked(), nil
}

// SelectShipping validates the tier against the current subtotal; an
// unavailable free tier is rejected, never downgraded silently.
func (s *CartSession) SelectShipping(tierKey string) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subtotal := s.calc.Compute(s.state.Items, domain.ShippingTierStandard, s.discount).Subtotal
	if _, err := s.calc.ResolveShipping(tierKey, subtotal); err != nil {
		return s.state, err
	}
	s.shippingKey = tierKey
	s.recomputeTotals()
	return s.snapshotLocked(), nil
}

// Reload discards local projections and re-reads the authoritative source.
// It is the documented reconciliation fallback after a failed mutation.
func (s *CartSession) Reload(ctx context.Context) (domain.CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.IsGuest() {
		s.applyItems(s.local.Load(ctx, s.sessionID))
		return s.snapshotLocked(), nil
	}

	cart, err := s.remote.Fetch(ctx, s.user.ID)
	if err != nil {
		return s.snapshotLocked(), fmt.Errorf("reload cart: %w", err)
	}
	s.adoptRemote(cart)
	return s.snapshotLocked(), nil
}

// --- Authentication transitions ---

// Login flips the session to authenticated mode via the sync coordinator.
// The mode change is irreversible until Logout.
func (s *CartSession) Login(ctx context.Context, user *domain.User) SyncResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.user = user
	res := s.coordinator.OnLogin(ctx, s.sessionID, user.ID)
	s.adopt(res)
	return res
}

func (s *CartSession) Logout(ctx context.Context) domain.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID := ""
	if s.user != nil {
		userID = s.user.ID
	}
	res := s.coordinator.OnLogout(ctx, s.sessionID, userID)
	s.user = nil
	s.discount = nil
	s.adopt(res)
	return s.snapshotLocked()
}

// --- Internals ---

// admitMutation enforces the two client-side guards: the per-target
// de-dup window and the post-mutation cooldown. The de-dup entry expires
// on its own; there is no manual release.
func (s *CartSession) admitMutation(target string) error {
	key := s.sessionID + "|" + target
	if !s.dedup.Add(key, struct{}{}, s.dedupWindow) {
		return domain.ErrMutationInFlight
	}
	if !s.limiter.Allow() {
		return domain.ErrMutationInFlight
	}
	return nil
}

func (s *CartSession) applyItems(items []domain.CartLineItem) {
	s.state.Items = items
	s.recomputeTotals()
}

func (s *CartSession) adoptRemote(cart *domain.RemoteCart) {
	s.state.Items = cart.Items
	s.state.RemoteCartID = &cart.ID
	s.discount = cart.Discount
	s.recomputeTotals()
}

func (s *CartSession) adopt(res SyncResult) {
	s.state = res.Cart
	if res.Cart.Mode == domain.CartModeGuest {
		s.discount = nil
	}
	s.recomputeTotals()
}

// recomputeTotals runs after every state change so the displayed
// breakdown never drifts from the items. A free-shipping selection that
// the new subtotal no longer supports reverts to standard.
func (s *CartSession) recomputeTotals() {
	subtotal := s.calc.Compute(s.state.Items, domain.ShippingTierStandard, s.discount).Subtotal
	if _, err := s.calc.ResolveShipping(s.shippingKey, subtotal); err != nil {
		s.shippingKey = domain.ShippingTierStandard
	}
	s.totals = s.calc.Compute(s.state.Items, s.shippingKey, s.discount)
}

func (s *CartSession) snapshotLocked() domain.CartState {
	st := s.state
	st.Items = make([]domain.CartLineItem, len(s.state.Items))
	copy(st.Items, s.state.Items)
	return st
}
