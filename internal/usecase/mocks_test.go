package usecase

import (
	"context"
	"sync"
	"time"

	"cartsession-backend/config"
	"cartsession-backend/internal/domain"
)

func testConfig() *config.Config {
	return &config.Config{
		TaxRate:          0.18,
		ShippingStandard: 5.00,
		ShippingExpress:  10.00,
		FreeShippingMin:  50.00,
	}
}

// --- Local Cart Store ---

type MockLocalCartStore struct {
	Items      map[string][]domain.CartLineItem
	SaveCalls  int
	ClearCalls int
}

func NewMockLocalCartStore() *MockLocalCartStore {
	return &MockLocalCartStore{Items: make(map[string][]domain.CartLineItem)}
}

func (m *MockLocalCartStore) Load(ctx context.Context, sessionID string) []domain.CartLineItem {
	items := m.Items[sessionID]
	out := make([]domain.CartLineItem, len(items))
	copy(out, items)
	return out
}

func (m *MockLocalCartStore) Save(ctx context.Context, sessionID string, items []domain.CartLineItem) {
	m.SaveCalls++
	stored := make([]domain.CartLineItem, len(items))
	copy(stored, items)
	m.Items[sessionID] = stored
}

func (m *MockLocalCartStore) Clear(ctx context.Context, sessionID string) {
	m.ClearCalls++
	delete(m.Items, sessionID)
}

// --- Remote Cart Gateway ---

// MockRemoteCartGateway emulates the authoritative cart endpoints: the
// held cart document is updated by mutations and returned in full.
type MockRemoteCartGateway struct {
	Cart domain.RemoteCart

	FetchErr      error
	FailFetchOnce bool
	AddErrFor     map[string]error // productRef -> error

	AddCalls   []string // productRefs, in call order
	FetchCalls int
}

func NewMockRemoteCartGateway() *MockRemoteCartGateway {
	return &MockRemoteCartGateway{
		Cart:      domain.RemoteCart{ID: "remote-cart-1", Items: []domain.CartLineItem{}},
		AddErrFor: make(map[string]error),
	}
}

func (m *MockRemoteCartGateway) snapshot() *domain.RemoteCart {
	out := m.Cart
	out.Items = make([]domain.CartLineItem, len(m.Cart.Items))
	copy(out.Items, m.Cart.Items)
	return &out
}

func (m *MockRemoteCartGateway) Fetch(ctx context.Context, userID string) (*domain.RemoteCart, error) {
	m.FetchCalls++
	if m.FetchErr != nil {
		err := m.FetchErr
		if m.FailFetchOnce {
			m.FetchErr = nil
		}
		return nil, err
	}
	return m.snapshot(), nil
}

func (m *MockRemoteCartGateway) Add(ctx context.Context, userID, productRef string, quantity int, variants []domain.VariantSelection) (*domain.RemoteCart, error) {
	m.AddCalls = append(m.AddCalls, productRef)
	if err := m.AddErrFor[productRef]; err != nil {
		return nil, err
	}

	line := domain.CartLineItem{
		LineID:     "srv-" + productRef,
		ProductRef: productRef,
		Variants:   variants,
		Quantity:   quantity,
		UnitPrice:  9.99,
	}
	idx := domain.FindByIdentityKey(m.Cart.Items, line.IdentityKey())
	if idx >= 0 {
		m.Cart.Items[idx].Quantity += quantity
	} else {
		m.Cart.Items = append(m.Cart.Items, line)
	}
	return m.snapshot(), nil
}

func (m *MockRemoteCartGateway) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.RemoteCart, error) {
	for i := range m.Cart.Items {
		if m.Cart.Items[i].LineID == lineID {
			m.Cart.Items[i].Quantity = quantity
			return m.snapshot(), nil
		}
	}
	return nil, &domain.GatewayError{StatusCode: 404, Message: "line not found"}
}

func (m *MockRemoteCartGateway) Remove(ctx context.Context, userID, lineID string) (*domain.RemoteCart, error) {
	out := m.Cart.Items[:0]
	for _, item := range m.Cart.Items {
		if item.LineID != lineID {
			out = append(out, item)
		}
	}
	m.Cart.Items = out
	return m.snapshot(), nil
}

func (m *MockRemoteCartGateway) Clear(ctx context.Context, userID string) (*domain.RemoteCart, error) {
	m.Cart.Items = []domain.CartLineItem{}
	m.Cart.Discount = nil
	return m.snapshot(), nil
}

func (m *MockRemoteCartGateway) ApplyDiscount(ctx context.Context, userID, code string) (*domain.RemoteCart, error) {
	m.Cart.Discount = &domain.Discount{Code: code, Type: domain.DiscountTypePercentage, Value: 10}
	return m.snapshot(), nil
}

// --- Session Signal ---

type MockSessionSignal struct {
	Fresh    map[string]bool
	LastSync map[string]time.Time
}

func NewMockSessionSignal() *MockSessionSignal {
	return &MockSessionSignal{
		Fresh:    make(map[string]bool),
		LastSync: make(map[string]time.Time),
	}
}

func (m *MockSessionSignal) MarkFreshLogin(ctx context.Context, sessionID string) error {
	m.Fresh[sessionID] = true
	return nil
}

func (m *MockSessionSignal) HasFreshLogin(ctx context.Context, sessionID string) bool {
	return m.Fresh[sessionID]
}

func (m *MockSessionSignal) ClearFreshLogin(ctx context.Context, sessionID string) error {
	delete(m.Fresh, sessionID)
	return nil
}

func (m *MockSessionSignal) LastSyncAt(ctx context.Context, userID string) (time.Time, bool) {
	at, ok := m.LastSync[userID]
	return at, ok
}

func (m *MockSessionSignal) StampSync(ctx context.Context, userID string, at time.Time) error {
	m.LastSync[userID] = at
	return nil
}

// --- Transaction Manager ---

type MockTxManager struct{}

func (m *MockTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Cache Service ---

type MockCache struct {
	mu          sync.Mutex
	store       map[string]interface{}
	AlwaysAllow bool // disables Add de-duplication for tests that don't exercise it
}

func NewMockCache() *MockCache {
	return &MockCache{store: make(map[string]interface{})}
}

func (m *MockCache) Get(key string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.store[key]
	return v, ok
}

func (m *MockCache) Set(key string, value interface{}, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[key] = value
}

func (m *MockCache) Add(key string, value interface{}, duration time.Duration) bool {
	if m.AlwaysAllow {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[key]; exists {
		return false
	}
	m.store[key] = value
	return true
}

func (m *MockCache) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, key)
}

func (m *MockCache) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = make(map[string]interface{})
}

// --- Fixtures ---

func lineItem(productRef string, qty int, price float64, variants ...domain.VariantSelection) domain.CartLineItem {
	return domain.CartLineItem{
		LineID:     "line-" + productRef,
		ProductRef: productRef,
		Variants:   variants,
		Quantity:   qty,
		UnitPrice:  price,
	}
}
