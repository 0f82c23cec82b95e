package catalog

import (
	"fmt"

	"sahara-backend/internal/models"
)

// DefaultLeadTimeDays applies when the material has no lead time configured.
const DefaultLeadTimeDays = 2

// AvailabilityResult: outcome of a read-only stock check. It never reserves
// anything; the order transaction's conditional decrement is the reservation.
type AvailabilityResult struct {
	Available    bool   `json:"available"`
	LeadTimeDays int    `json:"lead_time_days,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// CheckAvailability runs the ordered constraint checks; the first failing
// one determines the reason.
func CheckAvailability(m *models.Material, quantity float64) AvailabilityResult {
	if !m.InStock {
		return AvailabilityResult{Reason: fmt.Sprintf("%s is out of stock", m.Name)}
	}
	if quantity < m.MinOrderQty {
		return AvailabilityResult{Reason: fmt.Sprintf("minimum order quantity for %s is %g", m.Name, m.MinOrderQty)}
	}
	if m.MaxOrderQty != nil && quantity > *m.MaxOrderQty {
		return AvailabilityResult{Reason: fmt.Sprintf("maximum order quantity for %s is %g", m.Name, *m.MaxOrderQty)}
	}
	if m.StockQuantity < quantity {
		return AvailabilityResult{Reason: fmt.Sprintf("only %g of %s available", m.StockQuantity, m.Name)}
	}

	lead := DefaultLeadTimeDays
	if m.LeadTimeDays != nil {
		lead = *m.LeadTimeDays
	}
	return AvailabilityResult{Available: true, LeadTimeDays: lead}
}
