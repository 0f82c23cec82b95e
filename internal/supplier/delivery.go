package supplier

import (
	"fmt"

	"sahara-backend/internal/models"
)

// DeliveryResult: outcome of the delivery eligibility check for one supplier
// and destination pincode.
type DeliveryResult struct {
	Eligible      bool     `json:"eligible"`
	Charge        float64  `json:"charge"`
	MinOrderValue *float64 `json:"min_order_value,omitempty"`
	EstimatedDays int      `json:"estimated_days,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

// CanDeliver checks whether the supplier serves the destination pincode for a
// line of the given subtotal. Delivery areas are an allow-list: a supplier
// with areas configured and no matching entry does not deliver there. A
// supplier with no areas at all delivers everywhere free of charge.
func CanDeliver(s *models.Supplier, pincode string, lineSubtotal float64) DeliveryResult {
	if len(s.DeliveryAreas) == 0 {
		return DeliveryResult{Eligible: true}
	}

	var area *models.DeliveryArea
	for i := range s.DeliveryAreas {
		if s.DeliveryAreas[i].Pincode == pincode {
			area = &s.DeliveryAreas[i]
			break
		}
	}
	if area == nil {
		return DeliveryResult{Reason: fmt.Sprintf("%s does not deliver to pincode %s", s.Name, pincode)}
	}

	if area.MinOrderValue != nil && lineSubtotal < *area.MinOrderValue {
		return DeliveryResult{
			Reason: fmt.Sprintf("%s requires a minimum order value of %g for pincode %s (current %g)",
				s.Name, *area.MinOrderValue, pincode, lineSubtotal),
		}
	}

	return DeliveryResult{
		Eligible:      true,
		Charge:        area.DeliveryCharge,
		MinOrderValue: area.MinOrderValue,
		EstimatedDays: area.EstimatedDays,
	}
}
