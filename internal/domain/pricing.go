package domain

// --- Pricing Entities ---

type Discount struct {
	Code  string  `json:"code,omitempty"`
	Type  string  `json:"type"` // percentage, fixed
	Value float64 `json:"value"`
}

type ShippingTier struct {
	Key         string  `json:"key"`
	Label       string  `json:"label"`
	Cost        float64 `json:"cost"`
	MinSubtotal float64 `json:"minSubtotal"` // Free tier only: required subtotal
}

// TotalsBreakdown is derived from the current items on every state change
// and never persisted on its own.
type TotalsBreakdown struct {
	ItemCount      int     `json:"itemCount"`
	Subtotal       float64 `json:"subtotal"`
	ShippingCost   float64 `json:"shippingCost"`
	TaxAmount      float64 `json:"taxAmount"`
	DiscountAmount float64 `json:"discountAmount"`
	Total          float64 `json:"total"`
}

// PriceSource carries the candidate prices for a line in resolution
// priority order: explicit unit price, then the product's current (sale)
// price, then its base selling price. Resolution never yields an unset
// price; a line with no usable candidate resolves to 0 and stays visible.
type PriceSource struct {
	ExplicitUnitPrice *float64
	CurrentPrice      *float64
	BasePrice         float64
}
