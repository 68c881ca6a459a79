package usecase

import "cartsession-backend/internal/domain"

// Optimistic projections: pure state transitions over the current line
// items. They never mutate the input slice, so a failed dispatch can fall
// back to the previous snapshot untouched.

// projectAdd merges the new line into items by identity key: an existing
// line absorbs the quantity, otherwise the line is appended. The unit
// price of an absorbed addition refreshes the line's snapshot (an explicit
// update, the only way a stored price may change).
func projectAdd(items []domain.CartLineItem, line domain.CartLineItem) []domain.CartLineItem {
	out := make([]domain.CartLineItem, len(items))
	copy(out, items)

	idx := domain.FindByIdentityKey(out, line.IdentityKey())
	if idx >= 0 {
		out[idx].Quantity += line.Quantity
		out[idx].UnitPrice = line.UnitPrice
		return out
	}
	return append(out, line)
}

// projectUpdateQuantity sets the line's quantity; a target of zero or less
// is a removal. The second result reports whether the line existed.
func projectUpdateQuantity(items []domain.CartLineItem, lineID string, quantity int) ([]domain.CartLineItem, bool) {
	if quantity <= 0 {
		return projectRemove(items, lineID)
	}

	out := make([]domain.CartLineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].LineID == lineID {
			out[i].Quantity = quantity
			return out, true
		}
	}
	return out, false
}

func projectRemove(items []domain.CartLineItem, lineID string) ([]domain.CartLineItem, bool) {
	out := make([]domain.CartLineItem, 0, len(items))
	found := false
	for _, item := range items {
		if item.LineID == lineID {
			found = true
			continue
		}
		out = append(out, item)
	}
	return out, found
}

// mergeSet returns the local items whose identity key does not already
// exist remotely. Overlapping keys are excluded entirely: the
// authoritative cart wins over a stale local snapshot, quantities are
// never summed across the boundary.
func mergeSet(local, remote []domain.CartLineItem) []domain.CartLineItem {
	seen := make(map[string]struct{}, len(remote))
	for _, item := range remote {
		seen[item.IdentityKey()] = struct{}{}
	}

	out := make([]domain.CartLineItem, 0, len(local))
	for _, item := range local {
		if _, exists := seen[item.IdentityKey()]; exists {
			continue
		}
		out = append(out, item)
	}
	return out
}
