package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"cartsession-backend/internal/domain"
)

type sessionFixture struct {
	local  *MockLocalCartStore
	remote *MockRemoteCartGateway
	signal *MockSessionSignal
	dedup  *MockCache
	deps   CartSessionDeps
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		local:  NewMockLocalCartStore(),
		remote: NewMockRemoteCartGateway(),
		signal: NewMockSessionSignal(),
		dedup:  NewMockCache(),
	}
	f.dedup.AlwaysAllow = true
	calc := NewTotalsCalculator(testConfig())
	f.deps = CartSessionDeps{
		Local:       f.local,
		Remote:      f.remote,
		Coordinator: NewSyncCoordinator(f.local, f.remote, f.signal, &MockTxManager{}, 5*time.Minute),
		Calc:        calc,
		Dedup:       f.dedup,
		DedupWindow: 2 * time.Second,
		RatePerSec:  100,
		Burst:       100,
		MaxQuantity: 1000,
	}
	return f
}

func (f *sessionFixture) guestSession(ctx context.Context) *CartSession {
	return NewCartSession(ctx, "sess-1", nil, f.deps)
}

func (f *sessionFixture) authSession(ctx context.Context) *CartSession {
	return NewCartSession(ctx, "sess-1", &domain.User{ID: "user-1"}, f.deps)
}

func addInput(productRef string, qty int, price float64) AddItemInput {
	return AddItemInput{
		ProductRef: productRef,
		Quantity:   qty,
		Price:      domain.PriceSource{BasePrice: price},
	}
}

func TestCartSession_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("guest add persists to local storage", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)

		state, err := s.AddItem(ctx, addInput("prod-a", 2, 10.00))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(state.Items) != 1 || state.Items[0].Quantity != 2 {
			t.Errorf("state.Items = %+v, want one line qty 2", state.Items)
		}
		if len(f.local.Items["sess-1"]) != 1 {
			t.Error("guest add did not reach local storage")
		}
		if f.remote.FetchCalls != 0 || len(f.remote.AddCalls) != 0 {
			t.Error("guest add touched the remote gateway")
		}
	})

	t.Run("adding the same identity merges into one line", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)

		if _, err := s.AddItem(ctx, addInput("prod-a", 1, 10.00)); err != nil {
			t.Fatal(err)
		}
		state, err := s.AddItem(ctx, addInput("prod-a", 2, 10.00))
		if err != nil {
			t.Fatal(err)
		}

		if len(state.Items) != 1 || state.Items[0].Quantity != 3 {
			t.Errorf("state.Items = %+v, want one merged line qty 3", state.Items)
		}
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)

		if _, err := s.AddItem(ctx, addInput("prod-a", 0, 10.00)); !errors.Is(err, domain.ErrInvalidQuantity) {
			t.Errorf("err = %v, want ErrInvalidQuantity", err)
		}
	})

	t.Run("rejects quantity over the cart maximum", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)

		if _, err := s.AddItem(ctx, addInput("prod-a", 1001, 10.00)); !errors.Is(err, domain.ErrQuantityLimitExceeded) {
			t.Errorf("err = %v, want ErrQuantityLimitExceeded", err)
		}
	})

	t.Run("failed remote dispatch rolls the projection back", func(t *testing.T) {
		f := newSessionFixture()
		s := f.authSession(ctx)
		f.remote.AddErrFor["prod-a"] = &domain.GatewayError{StatusCode: 500, Message: "boom"}

		state, err := s.AddItem(ctx, addInput("prod-a", 2, 10.00))

		if err == nil {
			t.Fatal("expected an error from the failed dispatch")
		}
		if len(state.Items) != 0 {
			t.Errorf("state.Items = %+v, want the pre-mutation empty cart", state.Items)
		}
		if s.Totals().Total != 0 {
			t.Errorf("Total = %v, want totals recomputed from the rollback", s.Totals().Total)
		}
	})

	t.Run("authenticated add adopts the server response", func(t *testing.T) {
		f := newSessionFixture()
		s := f.authSession(ctx)

		state, err := s.AddItem(ctx, addInput("prod-a", 2, 10.00))
		if err != nil {
			t.Fatal(err)
		}

		// The server line replaces the optimistic one, server price included
		if len(state.Items) != 1 || state.Items[0].LineID != "srv-prod-a" {
			t.Errorf("state.Items = %+v, want the server's line", state.Items)
		}
		if state.RemoteCartID == nil {
			t.Error("RemoteCartID missing after an authenticated add")
		}
	})

	t.Run("repeated mutation inside the de-dup window is rejected", func(t *testing.T) {
		f := newSessionFixture()
		f.dedup.AlwaysAllow = false
		s := f.guestSession(ctx)

		if _, err := s.AddItem(ctx, addInput("prod-a", 1, 10.00)); err != nil {
			t.Fatal(err)
		}
		_, err := s.AddItem(ctx, addInput("prod-a", 1, 10.00))
		if !errors.Is(err, domain.ErrMutationInFlight) {
			t.Errorf("err = %v, want ErrMutationInFlight", err)
		}

		// A different product is a different de-dup key
		if _, err := s.AddItem(ctx, addInput("prod-b", 1, 5.00)); err != nil {
			t.Errorf("distinct product blocked by the window: %v", err)
		}
	})
}

func TestCartSession_UpdateQuantity(t *testing.T) {
	ctx := context.Background()

	t.Run("updates an existing guest line", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		added, _ := s.AddItem(ctx, addInput("prod-a", 1, 10.00))

		state, err := s.UpdateQuantity(ctx, added.Items[0].LineID, 4)
		if err != nil {
			t.Fatal(err)
		}
		if state.Items[0].Quantity != 4 {
			t.Errorf("Quantity = %d, want 4", state.Items[0].Quantity)
		}
		if f.local.Items["sess-1"][0].Quantity != 4 {
			t.Error("update did not reach local storage")
		}
	})

	t.Run("zero quantity removes via the remote remove endpoint", func(t *testing.T) {
		f := newSessionFixture()
		s := f.authSession(ctx)
		added, _ := s.AddItem(ctx, addInput("prod-a", 2, 10.00))

		state, err := s.UpdateQuantity(ctx, added.Items[0].LineID, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(state.Items) != 0 {
			t.Errorf("state.Items = %+v, want empty", state.Items)
		}
		if len(f.remote.Cart.Items) != 0 {
			t.Error("line survived on the remote cart")
		}
	})

	t.Run("unknown line is a synchronous error", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)

		if _, err := s.UpdateQuantity(ctx, "nope", 2); !errors.Is(err, domain.ErrLineNotFound) {
			t.Errorf("err = %v, want ErrLineNotFound", err)
		}
	})
}

func TestCartSession_ApplyDiscount(t *testing.T) {
	ctx := context.Background()

	t.Run("guest discount is a synchronous error, no network call", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)

		_, err := s.ApplyDiscount(ctx, "SAVE10")
		if !errors.Is(err, domain.ErrDiscountRequiresAuth) {
			t.Errorf("err = %v, want ErrDiscountRequiresAuth", err)
		}
		if f.remote.FetchCalls != 0 {
			t.Error("guest discount hit the remote gateway")
		}
	})

	t.Run("authenticated discount flows into the totals", func(t *testing.T) {
		f := newSessionFixture()
		s := f.authSession(ctx)
		if _, err := s.AddItem(ctx, addInput("prod-a", 2, 10.00)); err != nil {
			t.Fatal(err)
		}

		if _, err := s.ApplyDiscount(ctx, "save10"); err != nil {
			t.Fatal(err)
		}

		totals := s.Totals()
		if totals.DiscountAmount == 0 {
			t.Errorf("DiscountAmount = %v, want the applied percentage discount", totals.DiscountAmount)
		}
		// Mock applies the normalized code as a 10% discount
		if f.remote.Cart.Discount == nil || f.remote.Cart.Discount.Code != "SAVE10" {
			t.Errorf("remote discount = %+v, want normalized SAVE10", f.remote.Cart.Discount)
		}
	})
}

func TestCartSession_SelectShipping(t *testing.T) {
	ctx := context.Background()

	t.Run("free tier below the minimum is rejected, not downgraded", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		if _, err := s.AddItem(ctx, addInput("prod-a", 1, 10.00)); err != nil {
			t.Fatal(err)
		}

		_, err := s.SelectShipping(domain.ShippingTierFree)
		if !errors.Is(err, domain.ErrFreeShippingUnavailable) {
			t.Errorf("err = %v, want ErrFreeShippingUnavailable", err)
		}
		if s.ShippingKey() != domain.ShippingTierStandard {
			t.Errorf("ShippingKey = %s, selection must not change on rejection", s.ShippingKey())
		}
	})

	t.Run("free tier sticks once the subtotal qualifies", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		if _, err := s.AddItem(ctx, addInput("prod-a", 2, 30.00)); err != nil {
			t.Fatal(err)
		}

		if _, err := s.SelectShipping(domain.ShippingTierFree); err != nil {
			t.Fatal(err)
		}
		if s.Totals().ShippingCost != 0 {
			t.Errorf("ShippingCost = %v, want 0", s.Totals().ShippingCost)
		}
	})

	t.Run("free selection reverts to standard when the subtotal drops", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		added, _ := s.AddItem(ctx, addInput("prod-a", 2, 30.00))
		if _, err := s.SelectShipping(domain.ShippingTierFree); err != nil {
			t.Fatal(err)
		}

		// Dropping to one unit puts the subtotal below the free threshold
		if _, err := s.UpdateQuantity(ctx, added.Items[0].LineID, 1); err != nil {
			t.Fatal(err)
		}

		if s.ShippingKey() != domain.ShippingTierStandard {
			t.Errorf("ShippingKey = %s, want the standard revert", s.ShippingKey())
		}
		if s.Totals().ShippingCost != 5.00 {
			t.Errorf("ShippingCost = %v, want 5.00", s.Totals().ShippingCost)
		}
	})
}

func TestCartSession_AuthTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("login merges the guest cart and flips the mode", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		if _, err := s.AddItem(ctx, addInput("prod-a", 1, 10.00)); err != nil {
			t.Fatal(err)
		}
		f.signal.Fresh["sess-1"] = true

		res := s.Login(ctx, &domain.User{ID: "user-1"})

		if res.MergedCount != 1 {
			t.Errorf("MergedCount = %d, want 1", res.MergedCount)
		}
		if s.IsGuest() {
			t.Error("session still guest after login")
		}
		if len(s.Items()) != 1 {
			t.Errorf("Items = %+v, want the merged line", s.Items())
		}
	})

	t.Run("logout returns to an empty guest cart", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		if _, err := s.AddItem(ctx, addInput("prod-a", 1, 10.00)); err != nil {
			t.Fatal(err)
		}
		f.signal.Fresh["sess-1"] = true
		s.Login(ctx, &domain.User{ID: "user-1"})

		state := s.Logout(ctx)

		if state.Mode != domain.CartModeGuest {
			t.Errorf("Mode = %s, want guest", state.Mode)
		}
		// The guest cart was consumed by the sync, so logout starts empty
		if len(state.Items) != 0 {
			t.Errorf("Items = %+v, want empty", state.Items)
		}
		if state.RemoteCartID != nil {
			t.Error("RemoteCartID survived logout")
		}
	})

	t.Run("login with a dead remote stays guest with the cart intact", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		if _, err := s.AddItem(ctx, addInput("prod-a", 1, 10.00)); err != nil {
			t.Fatal(err)
		}
		f.signal.Fresh["sess-1"] = true
		f.remote.FetchErr = errors.New("gateway down")

		res := s.Login(ctx, &domain.User{ID: "user-1"})

		if res.State != domain.SyncStateGuest {
			t.Errorf("State = %s, want guest fallback", res.State)
		}
		if len(s.Items()) != 1 {
			t.Errorf("Items = %+v, want the local cart preserved", s.Items())
		}
	})
}

func TestCartSession_Reload(t *testing.T) {
	ctx := context.Background()

	t.Run("guest reload re-reads local storage", func(t *testing.T) {
		f := newSessionFixture()
		s := f.guestSession(ctx)
		// Another tab wrote a newer cart behind this instance's back
		f.local.Items["sess-1"] = []domain.CartLineItem{lineItem("prod-z", 5, 1.00)}

		state, err := s.Reload(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(state.Items) != 1 || state.Items[0].ProductRef != "prod-z" {
			t.Errorf("state.Items = %+v, want the stored prod-z", state.Items)
		}
	})

	t.Run("authenticated reload re-fetches the remote cart", func(t *testing.T) {
		f := newSessionFixture()
		s := f.authSession(ctx)
		f.remote.Cart.Items = []domain.CartLineItem{lineItem("prod-y", 1, 2.00)}

		state, err := s.Reload(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(state.Items) != 1 || state.Items[0].ProductRef != "prod-y" {
			t.Errorf("state.Items = %+v, want the remote prod-y", state.Items)
		}
	})
}

func TestCartSession_Clear(t *testing.T) {
	ctx := context.Background()

	f := newSessionFixture()
	s := f.guestSession(ctx)
	if _, err := s.AddItem(ctx, addInput("prod-a", 2, 10.00)); err != nil {
		t.Fatal(err)
	}

	state, err := s.Clear(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Items) != 0 {
		t.Errorf("state.Items = %+v, want empty", state.Items)
	}
	if f.local.ClearCalls != 1 {
		t.Errorf("local ClearCalls = %d, want 1", f.local.ClearCalls)
	}
	if s.Totals().Subtotal != 0 {
		t.Errorf("Subtotal = %v, want 0 after clear", s.Totals().Subtotal)
	}
}
