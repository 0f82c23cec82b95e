package orders

import (
	"fmt"

	"sahara-backend/internal/models"

	"gorm.io/gorm"
)

// ReserveStock decrements each material's on-hand quantity inside the order
// transaction. The conditional decrement is the actual reservation: the
// earlier read-only availability pass only shapes error messages, this query
// is the concurrency gate. If another submission took the stock first, zero
// rows match, the returned ValidationError rolls the whole transaction back
// and no order row survives.
func ReserveStock(tx *gorm.DB, order *models.Order) error {
	for i := range order.Items {
		item := &order.Items[i]

		res := tx.Model(&models.Material{}).
			Where("id = ? AND stock_quantity >= ?", item.MaterialID, item.Quantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", item.Quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// best-effort read for the message; the reservation already failed
			msg := fmt.Sprintf("insufficient stock for %s", item.MaterialName)
			var remaining float64
			if err := tx.Model(&models.Material{}).
				Select("stock_quantity").
				Where("id = ?", item.MaterialID).
				Scan(&remaining).Error; err == nil {
				msg = fmt.Sprintf("only %g of %s available", remaining, item.MaterialName)
			}
			return &ValidationError{
				Code:    ErrCodeUnavailable,
				Message: msg,
			}
		}
	}
	return nil
}
