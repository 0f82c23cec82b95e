package catalog

import "sahara-backend/internal/models"

// PriceQuote: per-line pricing result for a material and quantity
type PriceQuote struct {
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
}

// Price computes the quote for a requested quantity. Among the tiers the
// quantity falls into, the one with the largest min_quantity wins; with no
// matching tier the base price applies. Pure, safe to call concurrently.
func Price(m *models.Material, quantity float64) PriceQuote {
	unitPrice := m.BasePrice

	var best *models.PriceTier
	for i := range m.PriceTiers {
		t := &m.PriceTiers[i]
		if quantity < t.MinQuantity {
			continue
		}
		if t.MaxQuantity != nil && quantity > *t.MaxQuantity {
			continue
		}
		if best == nil || t.MinQuantity > best.MinQuantity {
			best = t
		}
	}
	if best != nil {
		unitPrice = best.PricePerUnit
	}

	subtotal := unitPrice * quantity
	tax := subtotal * (m.GSTPercent / 100)

	return PriceQuote{
		UnitPrice: unitPrice,
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal + tax,
	}
}
