package orders

import (
	"time"

	"sahara-backend/internal/models"
)

// StampInvoice sets the invoice number and issue timestamp on the order.
// Repeated calls overwrite the stamp; the number is derived from the order
// code so it stays stable across calls.
func StampInvoice(order *models.Order, now time.Time) {
	order.InvoiceNumber = "INV-" + order.Code
	order.InvoiceIssuedAt = &now
}
