package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sahara-backend/internal/audit"
	"sahara-backend/internal/auth"
	"sahara-backend/internal/database"
	"sahara-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// the whole submission (lookups, assembly, transaction) is bounded; a
// deadline hit is a transient failure, not a validation failure
const submitTimeout = 15 * time.Second

const createRetries = 3

type OrderItemResponse struct {
	ID           uint               `json:"id"`
	MaterialID   uint               `json:"material_id"`
	MaterialName string             `json:"material_name"`
	Brand        string             `json:"brand,omitempty"`
	ImageURL     string             `json:"image_url,omitempty"`
	Unit         models.MaterialUnit `json:"unit"`
	SupplierID   uint               `json:"supplier_id"`
	SupplierName string             `json:"supplier_name"`
	Quantity     float64            `json:"quantity"`
	UnitPrice    float64            `json:"unit_price"`
	LineSubtotal float64            `json:"line_subtotal"`
	LineTax      float64            `json:"line_tax"`
	Status       models.OrderStatus `json:"status"`
	DeliveryDate string             `json:"delivery_date"`
	Notes        string             `json:"notes,omitempty"`
}

type TimelineEntryResponse struct {
	Status    models.OrderStatus `json:"status"`
	Note      string             `json:"note,omitempty"`
	CreatedAt string             `json:"created_at"`
}

type OrderResponse struct {
	ID              uint                    `json:"id"`
	Code            string                  `json:"order_id"`
	CustomerID      uint                    `json:"customer_id"`
	CustomerName    string                  `json:"customer_name"`
	CustomerEmail   string                  `json:"customer_email,omitempty"`
	CustomerPhone   string                  `json:"customer_phone,omitempty"`
	Items           []OrderItemResponse     `json:"items"`
	Subtotal        float64                 `json:"subtotal"`
	Tax             float64                 `json:"tax"`
	Shipping        float64                 `json:"shipping"`
	Discount        float64                 `json:"discount"`
	Total           float64                 `json:"total"`
	PaymentMethod   string                  `json:"payment_method"`
	PaymentStatus   models.PaymentStatus    `json:"payment_status"`
	ShippingAddress models.Address          `json:"shipping_address"`
	BillingAddress  models.Address          `json:"billing_address"`
	Status          models.OrderStatus      `json:"status"`
	ActualDelivery  *string                 `json:"actual_delivery_date,omitempty"`
	InvoiceNumber   string                  `json:"invoice_number,omitempty"`
	InvoiceIssuedAt *string                 `json:"invoice_issued_at,omitempty"`
	Notes           string                  `json:"notes,omitempty"`
	Timeline        []TimelineEntryResponse `json:"timeline"`
	CreatedAt       string                  `json:"created_at"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	resp := OrderResponse{
		ID:              o.ID,
		Code:            o.Code,
		CustomerID:      o.CustomerID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		Subtotal:        o.Subtotal,
		Tax:             o.Tax,
		Shipping:        o.Shipping,
		Discount:        o.Discount,
		Total:           o.Total,
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		Status:          o.Status,
		InvoiceNumber:   o.InvoiceNumber,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
	}
	if o.ActualDeliveryDate != nil {
		s := o.ActualDeliveryDate.Format(time.RFC3339)
		resp.ActualDelivery = &s
	}
	if o.InvoiceIssuedAt != nil {
		s := o.InvoiceIssuedAt.Format(time.RFC3339)
		resp.InvoiceIssuedAt = &s
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:           it.ID,
			MaterialID:   it.MaterialID,
			MaterialName: it.MaterialName,
			Brand:        it.MaterialBrand,
			ImageURL:     it.MaterialImage,
			Unit:         it.MaterialUnit,
			SupplierID:   it.SupplierID,
			SupplierName: it.SupplierName,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			LineSubtotal: it.LineSubtotal,
			LineTax:      it.LineTax,
			Status:       it.Status,
			DeliveryDate: it.DeliveryDate.Format("2006-01-02"),
			Notes:        it.Notes,
		})
	}
	for _, entry := range o.Timeline {
		resp.Timeline = append(resp.Timeline, TimelineEntryResponse{
			Status:    entry.Status,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}

// POST /api/orders
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Cart must contain at least one item")
		}
		for _, line := range body.Items {
			if line.MaterialID == 0 || line.Quantity <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Every cart item needs a material_id and a quantity greater than zero")
			}
		}
		if body.Addresses.Shipping.Pincode == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Shipping address with pincode is required")
		}
		if body.Payment.Method == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Payment method is required")
		}

		ctx, cancel := context.WithTimeout(c.Context(), submitTimeout)
		defer cancel()
		db := database.DB.WithContext(ctx)

		var customer models.User
		if err := db.First(&customer, userID).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Could not resolve customer account")
		}

		ids := make([]uint, 0, len(body.Items))
		for _, line := range body.Items {
			ids = append(ids, line.MaterialID)
		}

		var mats []models.Material
		if err := db.Preload("PriceTiers").
			Preload("Supplier").
			Preload("Supplier.DeliveryAreas").
			Where("id IN ?", ids).
			Find(&mats).Error; err != nil {
			return mapInternalError(ctx, err, "loading materials")
		}
		matByID := make(map[uint]*models.Material, len(mats))
		for i := range mats {
			matByID[mats[i].ID] = &mats[i]
		}

		now := time.Now()
		order, verr := Assemble(&body, &customer, matByID, now)
		if verr != nil {
			return fiber.NewError(fiber.StatusBadRequest, verr.Message)
		}

		// the transaction makes validation + stock reservation + insert one
		// unit; a code collision retries with a fresh code
		var lastErr error
		for attempt := 0; attempt < createRetries; attempt++ {
			order.ID = 0
			order.Code = NewOrderCode(now)

			lastErr = db.Transaction(func(tx *gorm.DB) error {
				if err := tx.Create(order).Error; err != nil {
					return err
				}
				return ReserveStock(tx, order)
			})
			if lastErr == nil {
				break
			}

			var verr *ValidationError
			if errors.As(lastErr, &verr) {
				return fiber.NewError(fiber.StatusBadRequest, verr.Message)
			}
			if errors.Is(lastErr, gorm.ErrDuplicatedKey) {
				continue
			}
			return mapInternalError(ctx, lastErr, "creating order")
		}
		if lastErr != nil {
			return mapInternalError(ctx, lastErr, "creating order")
		}

		audit.WriteLog(audit.LogOptions{
			UserID:      customer.ID,
			UserName:    customer.Name,
			EntityType:  "order",
			EntityID:    order.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Order %s placed, total %g", order.Code, order.Total),
			After:       order,
		})

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Order placed successfully",
			"order":   toOrderResponse(order),
		})
	}
}

// GET /api/orders?status=&page=&limit=
// Customers see their own orders, admins see everything.
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		dbq := database.DB.Model(&models.Order{})

		if role != models.RoleAdmin {
			dbq = dbq.Where("customer_id = ?", userID)
		} else if cid := c.QueryInt("customer_id", 0); cid > 0 {
			dbq = dbq.Where("customer_id = ?", cid)
		}

		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list orders")
		}

		var list []models.Order
		if err := dbq.Preload("Items").
			Preload("Timeline").
			Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list orders")
		}

		resp := make([]OrderResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toOrderResponse(&list[i]))
		}

		return c.JSON(fiber.Map{
			"orders": resp,
			"page":   page,
			"limit":  limit,
			"total":  total,
		})
	}
}

// GET /api/orders/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, role, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
		}

		var order models.Order
		if err := database.DB.Preload("Items").Preload("Timeline").First(&order, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		if role != models.RoleAdmin && order.CustomerID != userID {
			return fiber.NewError(fiber.StatusForbidden, "You are not allowed to view this order")
		}

		return c.JSON(toOrderResponse(&order))
	}
}

type UpdateItemStatusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// PATCH /api/orders/:id/items/:itemID/status (admin)
func UpdateItemStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		orderID, err := c.ParamsInt("id")
		if err != nil || orderID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
		}
		itemID, err := c.ParamsInt("itemID")
		if err != nil || itemID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid item id")
		}

		var body UpdateItemStatusRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if !validStatus(body.Status) {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown status")
		}

		order, err := UpdateItemStatus(database.DB, uint(orderID), uint(itemID), body.Status, time.Now())
		if err != nil {
			var terr *TransitionError
			switch {
			case errors.Is(err, ErrOrderNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Order not found")
			case errors.Is(err, ErrItemNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Order item not found")
			case errors.As(err, &terr):
				return fiber.NewError(fiber.StatusBadRequest, terr.Message)
			default:
				log.Printf("item status update failed: %v", err)
				return fiber.NewError(fiber.StatusInternalServerError, "Could not update item status")
			}
		}

		writeStatusAudit(c, userID, order, fmt.Sprintf("Item %d marked %s", itemID, body.Status))

		return c.JSON(toOrderResponse(order))
	}
}

type UpdatePaymentRequest struct {
	Status models.PaymentStatus `json:"status"`
}

// PATCH /api/orders/:id/payment (admin)
func UpdatePaymentStatusHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
		}

		var body UpdatePaymentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		switch body.Status {
		case models.PaymentPending, models.PaymentPaid, models.PaymentFailed:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Unknown payment status")
		}

		var order models.Order
		if err := database.DB.First(&order, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		before := order.PaymentStatus
		if err := database.DB.Model(&order).Update("payment_status", body.Status).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update payment status")
		}

		writeStatusAudit(c, userID, &order, fmt.Sprintf("Payment status %s -> %s", before, body.Status))

		return c.JSON(fiber.Map{
			"order_id":       order.Code,
			"payment_status": body.Status,
		})
	}
}

// POST /api/orders/:id/invoice (admin)
func GenerateInvoiceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid order id")
		}

		var order models.Order
		if err := database.DB.First(&order, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		StampInvoice(&order, time.Now())
		if err := database.DB.Model(&order).Updates(map[string]interface{}{
			"invoice_number":    order.InvoiceNumber,
			"invoice_issued_at": order.InvoiceIssuedAt,
		}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not save invoice")
		}

		return c.JSON(fiber.Map{
			"order_id":       order.Code,
			"invoice_number": order.InvoiceNumber,
			"issued_at":      order.InvoiceIssuedAt.Format(time.RFC3339),
		})
	}
}

func validStatus(s models.OrderStatus) bool {
	switch s {
	case models.StatusPending, models.StatusConfirmed, models.StatusProcessing,
		models.StatusShipped, models.StatusDelivered, models.StatusCancelled, models.StatusRefunded:
		return true
	}
	return false
}

func writeStatusAudit(c *fiber.Ctx, userID uint, order *models.Order, description string) {
	var user models.User
	database.DB.First(&user, userID)
	audit.WriteLog(audit.LogOptions{
		UserID:      userID,
		UserName:    user.Name,
		EntityType:  "order",
		EntityID:    order.ID,
		Action:      models.AuditActionStatusChange,
		Description: description,
		After:       order,
	})
}

// deadline hits are transient and retryable; everything else is opaque
func mapInternalError(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		log.Printf("order submission timed out while %s: %v", op, err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Order submission timed out, please retry")
	}
	log.Printf("order submission failed while %s: %v", op, err)
	return fiber.NewError(fiber.StatusInternalServerError, "Something went wrong, please try again later")
}
