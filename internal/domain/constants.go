package domain

// Cart Modes
const (
	CartModeGuest         = "guest"
	CartModeAuthenticated = "authenticated"
)

// Discount Types
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// Shipping Tiers
const (
	ShippingTierStandard = "standard"
	ShippingTierExpress  = "express"
	ShippingTierFree     = "free"
)

// Sync Coordinator States
const (
	SyncStateIdle          = "idle"
	SyncStateGuest         = "guest"
	SyncStateSyncing       = "syncing"
	SyncStateAuthenticated = "authenticated"
)

// Durable storage key prefixes. Keys are scoped per session or per user so
// one KV table serves the guest cart and both sync guards.
const (
	StorageKeyGuestCart  = "cart:guest:"  // + sessionID -> serialized line items
	StorageKeyFreshLogin = "login:fresh:" // + sessionID -> one-shot login marker
	StorageKeyLastSync   = "sync:last:"   // + userID -> RFC3339 timestamp
)

// List Exports for API
var CartModes = []string{
	CartModeGuest,
	CartModeAuthenticated,
}

var DiscountTypes = []string{
	DiscountTypePercentage,
	DiscountTypeFixed,
}

var ShippingTierKeys = []string{
	ShippingTierStandard,
	ShippingTierExpress,
	ShippingTierFree,
}
