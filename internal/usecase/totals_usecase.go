package usecase

import (
	"math"

	"cartsession-backend/config"
	"cartsession-backend/internal/domain"
)

// TotalsCalculator derives a TotalsBreakdown from line items, the selected
// shipping tier and an applied discount. It is pure: no I/O, no hidden
// state, identical inputs always produce identical output.
type TotalsCalculator struct {
	taxRate float64
	tiers   map[string]domain.ShippingTier
}

func NewTotalsCalculator(cfg *config.Config) *TotalsCalculator {
	return &TotalsCalculator{
		taxRate: cfg.TaxRate,
		tiers: map[string]domain.ShippingTier{
			domain.ShippingTierStandard: {Key: domain.ShippingTierStandard, Label: "Standard", Cost: cfg.ShippingStandard},
			domain.ShippingTierExpress:  {Key: domain.ShippingTierExpress, Label: "Express", Cost: cfg.ShippingExpress},
			domain.ShippingTierFree:     {Key: domain.ShippingTierFree, Label: "Free", Cost: 0, MinSubtotal: cfg.FreeShippingMin},
		},
	}
}

// ResolveShipping validates a tier selection against the current subtotal.
// The free tier is unavailable below its configured minimum; it is
// reported, never silently swapped for a paid tier.
func (c *TotalsCalculator) ResolveShipping(tierKey string, subtotal float64) (float64, error) {
	tier, ok := c.tiers[tierKey]
	if !ok {
		return 0, domain.ErrUnknownShippingTier
	}
	if tier.Key == domain.ShippingTierFree && subtotal < tier.MinSubtotal {
		return 0, domain.ErrFreeShippingUnavailable
	}
	return tier.Cost, nil
}

// Compute produces the breakdown for a validated shipping selection.
// A percentage discount applies to the subtotal before shipping and tax;
// a fixed discount is capped at the subtotal so the total never goes
// negative. Monetary outputs are rounded to two decimals only here, at
// the edge, so repeated calls are idempotent.
func (c *TotalsCalculator) Compute(items []domain.CartLineItem, shippingKey string, discount *domain.Discount) domain.TotalsBreakdown {
	var subtotal float64
	itemCount := 0
	for _, item := range items {
		qty := item.Quantity
		if qty < 0 {
			qty = 0
		}
		subtotal += sanitizeMoney(item.UnitPrice) * float64(qty)
		itemCount += qty
	}
	subtotal = sanitizeMoney(subtotal)

	var discountAmount float64
	if discount != nil {
		value := sanitizeMoney(discount.Value)
		switch discount.Type {
		case domain.DiscountTypePercentage:
			discountAmount = subtotal * (value / 100)
		case domain.DiscountTypeFixed:
			discountAmount = value
		}
		// Cap discount at subtotal (no negative total)
		if discountAmount > subtotal {
			discountAmount = subtotal
		}
	}

	shippingCost, err := c.ResolveShipping(shippingKey, subtotal)
	if err != nil {
		// Selections are validated upstream; if state still carries an
		// unavailable tier, charge the standard rate so the breakdown
		// stays auditable instead of granting free shipping.
		shippingCost = c.tiers[domain.ShippingTierStandard].Cost
	}

	taxAmount := subtotal * c.taxRate

	total := subtotal - discountAmount + shippingCost + taxAmount
	if total < 0 {
		total = 0
	}

	return domain.TotalsBreakdown{
		ItemCount:      itemCount,
		Subtotal:       round2(subtotal),
		ShippingCost:   round2(shippingCost),
		TaxAmount:      round2(taxAmount),
		DiscountAmount: round2(discountAmount),
		Total:          round2(total),
	}
}

// Tiers returns the shipping table for API exposure, in a stable order.
func (c *TotalsCalculator) Tiers() []domain.ShippingTier {
	out := make([]domain.ShippingTier, 0, len(c.tiers))
	for _, key := range domain.ShippingTierKeys {
		if tier, ok := c.tiers[key]; ok {
			out = append(out, tier)
		}
	}
	return out
}

// ResolveUnitPrice picks the line's price snapshot with a fixed priority:
// explicit unit price, then the product's current price, then its base
// selling price. The result is never unset; a broken price degrades to 0
// and stays visible upstream instead of crashing totals rendering.
func ResolveUnitPrice(src domain.PriceSource) float64 {
	if src.ExplicitUnitPrice != nil {
		return sanitizeMoney(*src.ExplicitUnitPrice)
	}
	if src.CurrentPrice != nil {
		return sanitizeMoney(*src.CurrentPrice)
	}
	return sanitizeMoney(src.BasePrice)
}

// sanitizeMoney coerces malformed numeric input to 0 rather than letting
// NaN or negatives propagate through the breakdown.
func sanitizeMoney(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
