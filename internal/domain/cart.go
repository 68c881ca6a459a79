package domain

import (
	"context"
	"strings"
)

// --- Cart Entities ---

// ProductSnapshot is the display data captured when a line is created.
// It is never re-fetched from the catalog: a cart view stays stable even
// if the live product changes afterwards.
type ProductSnapshot struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	SKU         string `json:"sku"`
	VendorLabel string `json:"vendorLabel"`
}

// VariantSelection is a single option chosen for a line (e.g. size=XL).
type VariantSelection struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CartLineItem struct {
	LineID     string             `json:"lineId"`
	ProductRef string             `json:"productRef"`
	Snapshot   ProductSnapshot    `json:"productSnapshot"`
	Variants   []VariantSelection `json:"selectedVariantSet"`
	Quantity   int                `json:"quantity"`
	UnitPrice  float64            `json:"unitPrice"` // Price snapshot at add/update time
}

// LineTotal is always derived from UnitPrice and Quantity, never stored,
// so the two inputs cannot drift apart.
func (i CartLineItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// IdentityKey returns the key that decides whether two additions are the
// same line. Variant selections are sorted case-insensitively before
// keying so a reordered but equal set maps to one line.
func (i CartLineItem) IdentityKey() string {
	return MakeIdentityKey(i.ProductRef, i.Variants)
}

func MakeIdentityKey(productRef string, variants []VariantSelection) string {
	parts := make([]string, 0, len(variants))
	for _, v := range variants {
		parts = append(parts, strings.ToLower(strings.TrimSpace(v.Name))+"="+strings.ToLower(strings.TrimSpace(v.Value)))
	}
	// Insertion sort: variant sets are tiny (size/color), not worth sort pkg churn
	for i := 1; i < len(parts); i++ {
		for j := i; j > 0 && parts[j] < parts[j-1]; j-- {
			parts[j], parts[j-1] = parts[j-1], parts[j]
		}
	}
	return productRef + "|" + strings.Join(parts, ";")
}

// CartState is owned by exactly one backing store at a time, selected by Mode.
type CartState struct {
	Mode         string         `json:"mode"` // guest | authenticated
	Items        []CartLineItem `json:"items"`
	RemoteCartID *string        `json:"remoteCartId"` // nil in guest mode
}

func (s CartState) IsGuest() bool {
	return s.Mode == CartModeGuest
}

// FindByIdentityKey returns the index of the line carrying key, or -1.
func FindByIdentityKey(items []CartLineItem, key string) int {
	for i := range items {
		if items[i].IdentityKey() == key {
			return i
		}
	}
	return -1
}

// --- Remote Cart Document ---

// RemoteCart is the authoritative cart document returned by every
// remote mutation.
type RemoteCart struct {
	ID       string         `json:"id"`
	Items    []CartLineItem `json:"items"`
	Discount *Discount      `json:"discount,omitempty"`
}

// --- Ports ---

// LocalCartStore persists the guest cart. Implementations must degrade
// rather than fail: Load returns an empty slice on storage trouble and
// Save/Clear swallow and log errors instead of propagating them.
type LocalCartStore interface {
	Load(ctx context.Context, sessionID string) []CartLineItem
	Save(ctx context.Context, sessionID string, items []CartLineItem)
	Clear(ctx context.Context, sessionID string)
}

// RemoteCartGateway wraps the authoritative cart endpoints. Every call is
// a single round trip; failures are reported, never retried here.
type RemoteCartGateway interface {
	Fetch(ctx context.Context, userID string) (*RemoteCart, error)
	Add(ctx context.Context, userID, productRef string, quantity int, variants []VariantSelection) (*RemoteCart, error)
	UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*RemoteCart, error)
	Remove(ctx context.Context, userID, lineID string) (*RemoteCart, error)
	Clear(ctx context.Context, userID string) (*RemoteCart, error)
	ApplyDiscount(ctx context.Context, userID, code string) (*RemoteCart, error)
}
