package orders

import (
	"errors"
	"fmt"
	"time"

	"sahara-backend/internal/models"

	"gorm.io/gorm"
)

// IsTerminal reports whether no further status changes are allowed.
func IsTerminal(s models.OrderStatus) bool {
	return s == models.StatusDelivered || s == models.StatusCancelled || s == models.StatusRefunded
}

var nextStatus = map[models.OrderStatus]models.OrderStatus{
	models.StatusPending:    models.StatusConfirmed,
	models.StatusConfirmed:  models.StatusProcessing,
	models.StatusProcessing: models.StatusShipped,
	models.StatusShipped:    models.StatusDelivered,
}

// CanTransition: single-step forward along
// pending -> confirmed -> processing -> shipped -> delivered,
// plus cancelled/refunded from any non-terminal state.
func CanTransition(from, to models.OrderStatus) bool {
	if IsTerminal(from) {
		return false
	}
	if to == models.StatusCancelled || to == models.StatusRefunded {
		return true
	}
	return nextStatus[from] == to
}

// DeriveStatus computes the aggregate order status from the item statuses.
// Partial progress neither advances nor regresses the aggregate.
func DeriveStatus(items []models.OrderItem, current models.OrderStatus) models.OrderStatus {
	allDelivered := len(items) > 0
	anyCancelled := false
	anyInProgress := false

	for _, it := range items {
		if it.Status != models.StatusDelivered {
			allDelivered = false
		}
		switch it.Status {
		case models.StatusCancelled:
			anyCancelled = true
		case models.StatusPending, models.StatusConfirmed, models.StatusProcessing, models.StatusShipped:
			anyInProgress = true
		}
	}

	if allDelivered {
		return models.StatusDelivered
	}
	if !anyInProgress && anyCancelled {
		return models.StatusCancelled
	}
	return current
}

// UpdateItemStatus applies one item status change and the aggregate status
// derivation atomically: item update, item timeline entry and, when the
// aggregate changes, the order update with its own timeline entry, all in one
// transaction.
func UpdateItemStatus(db *gorm.DB, orderID, itemID uint, newStatus models.OrderStatus, now time.Time) (*models.Order, error) {
	var order models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		var item *models.OrderItem
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				item = &order.Items[i]
				break
			}
		}
		if item == nil {
			return ErrItemNotFound
		}

		if !CanTransition(item.Status, newStatus) {
			return &TransitionError{
				Message: fmt.Sprintf("cannot change item status from %s to %s", item.Status, newStatus),
			}
		}

		item.Status = newStatus
		if err := tx.Model(&models.OrderItem{}).
			Where("id = ?", item.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}

		// one entry for the item change itself
		if err := tx.Create(&models.OrderTimelineEntry{
			OrderID: order.ID,
			Status:  newStatus,
			Note:    fmt.Sprintf("%s marked %s", item.MaterialName, newStatus),
		}).Error; err != nil {
			return err
		}

		derived := DeriveStatus(order.Items, order.Status)
		if derived != order.Status {
			order.Status = derived
			updates := map[string]interface{}{"status": derived}
			if derived == models.StatusDelivered {
				order.ActualDeliveryDate = &now
				updates["actual_delivery_date"] = now
			}
			if err := tx.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Updates(updates).Error; err != nil {
				return err
			}

			// separate entry for the aggregate change
			if err := tx.Create(&models.OrderTimelineEntry{
				OrderID: order.ID,
				Status:  derived,
				Note:    fmt.Sprintf("Order %s", derived),
			}).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := db.Preload("Items").Preload("Timeline").First(&order, orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
