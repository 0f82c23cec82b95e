package orders_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sahara-backend/internal/auth"
	"sahara-backend/internal/database"
	"sahara-backend/internal/models"
	"sahara-backend/internal/orders"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupTestDB starts a throwaway postgres container and migrates the schema.
// Requires a local docker daemon, so these tests are excluded from -short runs.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}

	ctx := context.Background()
	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("sahara_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Supplier{},
		&models.DeliveryArea{},
		&models.Material{},
		&models.PriceTier{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderTimelineEntry{},
		&models.AuditLog{},
	))
	return db
}

func seedMaterial(t *testing.T, db *gorm.DB, stock float64) *models.Material {
	t.Helper()
	sup := models.Supplier{Name: "Sahara Steels", City: "Pune"}
	require.NoError(t, db.Create(&sup).Error)

	m := models.Material{
		Name:          "TMT Bar 12mm",
		Unit:          models.UnitWeight,
		BasePrice:     62,
		Currency:      "INR",
		GSTPercent:    18,
		InStock:       true,
		StockQuantity: stock,
		MinOrderQty:   1,
		SupplierID:    sup.ID,
	}
	require.NoError(t, db.Create(&m).Error)
	return &m
}

func reservedOrder(m *models.Material, qty float64) *models.Order {
	now := time.Now()
	return &models.Order{
		Code:         orders.NewOrderCode(now),
		CustomerID:   1,
		CustomerName: "Ravi Builder",
		Items: []models.OrderItem{{
			MaterialID:   m.ID,
			MaterialName: m.Name,
			MaterialUnit: m.Unit,
			SupplierID:   m.SupplierID,
			Quantity:     qty,
			UnitPrice:    m.BasePrice,
			LineSubtotal: m.BasePrice * qty,
			LineTax:      m.BasePrice * qty * m.GSTPercent / 100,
			Status:       models.StatusPending,
			DeliveryDate: now.AddDate(0, 0, 2),
		}},
		Subtotal:      m.BasePrice * qty,
		Tax:           m.BasePrice * qty * m.GSTPercent / 100,
		Total:         m.BasePrice * qty * (1 + m.GSTPercent/100),
		PaymentMethod: "cod",
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusPending,
		Timeline: []models.OrderTimelineEntry{{
			Status: models.StatusPending,
			Note:   "Order created",
		}},
	}
}

func submit(db *gorm.DB, order *models.Order) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		return orders.ReserveStock(tx, order)
	})
}

func TestReserveStockConflictRollsBackOrder(t *testing.T) {
	db := setupTestDB(t)
	m := seedMaterial(t, db, 3)

	require.NoError(t, submit(db, reservedOrder(m, 3)))

	var fresh models.Material
	require.NoError(t, db.First(&fresh, m.ID).Error)
	assert.Equal(t, 0.0, fresh.StockQuantity)

	// the last unit is gone; the second submission must leave no trace
	err := submit(db, reservedOrder(m, 1))
	var verr *orders.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, orders.ErrCodeUnavailable, verr.Code)
	assert.Equal(t, "only 0 of TMT Bar 12mm available", verr.Message)

	var orderCount, itemCount, timelineCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&itemCount).Error)
	require.NoError(t, db.Model(&models.OrderTimelineEntry{}).Count(&timelineCount).Error)
	assert.Equal(t, int64(1), orderCount)
	assert.Equal(t, int64(1), itemCount)
	assert.Equal(t, int64(1), timelineCount)

	require.NoError(t, db.First(&fresh, m.ID).Error)
	assert.Equal(t, 0.0, fresh.StockQuantity)
}

func TestReserveStockDoesNotOversell(t *testing.T) {
	db := setupTestDB(t)
	m := seedMaterial(t, db, 7)

	// two submissions race for the same stock; only one can win
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = submit(db, reservedOrder(m, 4))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			var verr *orders.ValidationError
			require.ErrorAs(t, err, &verr)
		}
	}
	assert.Equal(t, 1, succeeded)

	var fresh models.Material
	require.NoError(t, db.First(&fresh, m.ID).Error)
	assert.Equal(t, 3.0, fresh.StockQuantity)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	assert.Equal(t, int64(1), orderCount)
}

func TestUpdateItemStatusDeliveredStampsOrder(t *testing.T) {
	db := setupTestDB(t)
	m := seedMaterial(t, db, 20)

	order := reservedOrder(m, 2)
	order.Items = append(order.Items, models.OrderItem{
		MaterialID:   m.ID,
		MaterialName: m.Name,
		SupplierID:   m.SupplierID,
		Quantity:     3,
		UnitPrice:    m.BasePrice,
		Status:       models.StatusPending,
	})
	require.NoError(t, submit(db, order))
	require.NoError(t, db.Model(&models.OrderItem{}).
		Where("order_id = ?", order.ID).
		Update("status", models.StatusShipped).Error)
	require.NoError(t, db.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", models.StatusShipped).Error)

	now := time.Now().UTC()

	// first item delivered: the aggregate must not move yet
	updated, err := orders.UpdateItemStatus(db, order.ID, order.Items[0].ID, models.StatusDelivered, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)
	assert.Nil(t, updated.ActualDeliveryDate)
	assert.Len(t, updated.Timeline, 2) // creation entry + item entry

	// final item delivered: item entry, aggregate entry and the delivery
	// date all land together
	updated, err = orders.UpdateItemStatus(db, order.ID, order.Items[1].ID, models.StatusDelivered, now)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)
	require.NotNil(t, updated.ActualDeliveryDate)
	assert.WithinDuration(t, now, *updated.ActualDeliveryDate, time.Second)

	require.Len(t, updated.Timeline, 4)
	notes := make([]string, 0, len(updated.Timeline))
	for _, entry := range updated.Timeline {
		notes = append(notes, entry.Note)
	}
	assert.Contains(t, notes, "TMT Bar 12mm marked delivered")
	assert.Contains(t, notes, "Order delivered")
}

func TestUpdateItemStatusRejectsSkippedStep(t *testing.T) {
	db := setupTestDB(t)
	m := seedMaterial(t, db, 10)

	order := reservedOrder(m, 2)
	require.NoError(t, submit(db, order))

	_, err := orders.UpdateItemStatus(db, order.ID, order.Items[0].ID, models.StatusShipped, time.Now())
	var terr *orders.TransitionError
	require.ErrorAs(t, err, &terr)

	// the rejected change must not leave a timeline entry behind
	var timelineCount int64
	require.NoError(t, db.Model(&models.OrderTimelineEntry{}).
		Where("order_id = ?", order.ID).
		Count(&timelineCount).Error)
	assert.Equal(t, int64(1), timelineCount)
}

func TestListOrdersIncludesTimeline(t *testing.T) {
	db := setupTestDB(t)
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	m := seedMaterial(t, db, 10)
	order := reservedOrder(m, 2)
	require.NoError(t, submit(db, order))

	app := fiber.New()
	app.Get("/api/orders", func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, order.CustomerID)
		c.Locals(auth.CtxUserRoleKey, models.RoleCustomer)
		return orders.ListOrdersHandler()(c)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/orders", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Orders []struct {
			Code     string `json:"order_id"`
			Timeline []struct {
				Status string `json:"status"`
				Note   string `json:"note"`
			} `json:"timeline"`
		} `json:"orders"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Orders, 1)
	assert.Equal(t, order.Code, payload.Orders[0].Code)
	require.NotEmpty(t, payload.Orders[0].Timeline)
	assert.Equal(t, "Order created", payload.Orders[0].Timeline[0].Note)
}
