package orders

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sahara-backend/internal/catalog"
	"sahara-backend/internal/models"
	"sahara-backend/internal/supplier"
)

type CartItem struct {
	MaterialID uint    `json:"material_id"`
	Quantity   float64 `json:"quantity"`
	Notes      string  `json:"notes"`
}

type AddressPayload struct {
	Shipping models.Address  `json:"shipping"`
	Billing  *models.Address `json:"billing"` // nil = same as shipping
}

type PaymentPayload struct {
	Method string `json:"method"`
}

type CreateOrderRequest struct {
	Items         []CartItem     `json:"items"`
	Addresses     AddressPayload `json:"addresses"`
	Payment       PaymentPayload `json:"payment"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	CustomerPhone string         `json:"customer_phone"`
	ProjectID     *uint          `json:"project_id"`
	EstimateID    *uint          `json:"estimate_id"`
	Notes         string         `json:"notes"`
}

// Assemble validates and prices every cart line against the given catalog
// snapshot and produces a fully formed, unpersisted Order. Lines are
// processed in cart order and the first failing line rejects the whole
// submission; on success nothing has been written yet, persistence and the
// stock reservation happen together in the caller's transaction.
//
// Materials must come preloaded with their price tiers, supplier and the
// supplier's delivery areas.
func Assemble(req *CreateOrderRequest, customer *models.User, materials map[uint]*models.Material, now time.Time) (*models.Order, *ValidationError) {
	// every referenced material must exist before any line is judged
	var missing []string
	for _, line := range req.Items {
		if _, ok := materials[line.MaterialID]; !ok {
			missing = append(missing, fmt.Sprintf("%d", line.MaterialID))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &ValidationError{
			Code:    ErrCodeNotFound,
			Message: "materials not found: " + strings.Join(missing, ", "),
		}
	}

	order := &models.Order{
		CustomerID:    customer.ID,
		CustomerName:  firstNonEmpty(req.CustomerName, customer.Name),
		CustomerEmail: firstNonEmpty(req.CustomerEmail, customer.Email),
		CustomerPhone: firstNonEmpty(req.CustomerPhone, customer.Phone),
		PaymentMethod: req.Payment.Method,
		PaymentStatus: models.PaymentPending,
		ShippingAddress: req.Addresses.Shipping,
		Status:        models.StatusPending,
		ProjectID:     req.ProjectID,
		EstimateID:    req.EstimateID,
		Notes:         req.Notes,
	}
	if req.Addresses.Billing != nil {
		order.BillingAddress = *req.Addresses.Billing
	} else {
		order.BillingAddress = req.Addresses.Shipping
	}

	// one delivery charge per distinct supplier, not per line
	chargedSuppliers := make(map[uint]bool)

	var subtotal, tax, shipping float64

	for _, line := range req.Items {
		m := materials[line.MaterialID]

		avail := catalog.CheckAvailability(m, line.Quantity)
		if !avail.Available {
			return nil, &ValidationError{Code: ErrCodeUnavailable, Message: avail.Reason}
		}

		quote := catalog.Price(m, line.Quantity)

		delivery := supplier.CanDeliver(&m.Supplier, order.ShippingAddress.Pincode, quote.Subtotal)
		if !delivery.Eligible {
			return nil, &ValidationError{Code: ErrCodeNotServiceable, Message: delivery.Reason}
		}

		if !chargedSuppliers[m.SupplierID] {
			chargedSuppliers[m.SupplierID] = true
			shipping += delivery.Charge
		}

		order.Items = append(order.Items, models.OrderItem{
			MaterialID:    m.ID,
			MaterialName:  m.Name,
			MaterialBrand: m.Brand,
			MaterialImage: m.ImageURL,
			MaterialUnit:  m.Unit,
			SupplierID:    m.SupplierID,
			SupplierName:  m.Supplier.Name,
			Quantity:      line.Quantity,
			UnitPrice:     quote.UnitPrice,
			LineSubtotal:  quote.Subtotal,
			LineTax:       quote.Tax,
			Status:        models.StatusPending,
			DeliveryDate:  now.AddDate(0, 0, avail.LeadTimeDays),
			Notes:         line.Notes,
		})

		subtotal += quote.Subtotal
		tax += quote.Tax
	}

	order.Subtotal = subtotal
	order.Tax = tax
	order.Shipping = shipping
	order.Total = subtotal + tax + shipping - order.Discount

	order.Timeline = []models.OrderTimelineEntry{
		{Status: models.StatusPending, Note: "Order created"},
	}

	return order, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
