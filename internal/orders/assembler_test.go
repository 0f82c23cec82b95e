package orders_test

import (
	"testing"
	"time"

	"sahara-backend/internal/models"
	"sahara-backend/internal/orders"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func testCustomer() *models.User {
	return &models.User{ID: 7, Name: "Ateeq", Email: "ateeq@example.com", Phone: "9900011122", Role: models.RoleCustomer}
}

func cementSupplier() models.Supplier {
	return models.Supplier{
		ID:   1,
		Name: "Shree Cement Traders",
		DeliveryAreas: []models.DeliveryArea{
			{SupplierID: 1, Pincode: "560001", DeliveryCharge: 50, EstimatedDays: 2},
		},
	}
}

func sandSupplier() models.Supplier {
	return models.Supplier{
		ID:   2,
		Name: "Kaveri Sand Depot",
		DeliveryAreas: []models.DeliveryArea{
			{SupplierID: 2, Pincode: "560001", DeliveryCharge: 200, MinOrderValue: f64(2000), EstimatedDays: 3},
		},
	}
}

func testCatalog() map[uint]*models.Material {
	return map[uint]*models.Material{
		10: {
			ID: 10, Name: "OPC 53 Cement", Brand: "UltraTech", Unit: models.UnitPiece,
			BasePrice: 200, GSTPercent: 18,
			InStock: true, StockQuantity: 5, MinOrderQty: 1,
			SupplierID: 1, Supplier: cementSupplier(),
		},
		11: {
			ID: 11, Name: "TMT Steel Bar 12mm", Brand: "JSW", Unit: models.UnitWeight,
			BasePrice: 100, GSTPercent: 18,
			InStock: true, StockQuantity: 1000, MinOrderQty: 1,
			SupplierID: 1, Supplier: cementSupplier(),
			PriceTiers: []models.PriceTier{
				{MinQuantity: 10, MaxQuantity: f64(19), PricePerUnit: 90},
				{MinQuantity: 20, PricePerUnit: 80},
			},
		},
		12: {
			ID: 12, Name: "River Sand", Unit: models.UnitVolume,
			BasePrice: 1500, GSTPercent: 5,
			InStock: true, StockQuantity: 40, MinOrderQty: 2,
			SupplierID: 2, Supplier: sandSupplier(),
		},
	}
}

func baseRequest(items ...orders.CartItem) *orders.CreateOrderRequest {
	return &orders.CreateOrderRequest{
		Items: items,
		Addresses: orders.AddressPayload{
			Shipping: models.Address{Street: "12 MG Road", City: "Bengaluru", State: "Karnataka", Pincode: "560001"},
		},
		Payment: orders.PaymentPayload{Method: "cod"},
	}
}

func TestAssembleSingleLine(t *testing.T) {
	t.Parallel()

	// quantity=5 of a 200/unit material at 18% GST to a pincode with a 50 charge
	order, verr := orders.Assemble(baseRequest(orders.CartItem{MaterialID: 10, Quantity: 5}), testCustomer(), testCatalog(), testNow)
	require.Nil(t, verr)

	require.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, 200.0, item.UnitPrice)
	assert.Equal(t, 1000.0, item.LineSubtotal)
	assert.Equal(t, 180.0, item.LineTax)
	assert.Equal(t, models.StatusPending, item.Status)

	assert.Equal(t, 1000.0, order.Subtotal)
	assert.Equal(t, 180.0, order.Tax)
	assert.Equal(t, 50.0, order.Shipping)
	assert.Equal(t, 1230.0, order.Total)
	assert.Equal(t, models.StatusPending, order.Status)

	require.Len(t, order.Timeline, 1)
	assert.Equal(t, models.StatusPending, order.Timeline[0].Status)
	assert.Equal(t, "Order created", order.Timeline[0].Note)
}

func TestAssembleAggregateInvariants(t *testing.T) {
	t.Parallel()

	order, verr := orders.Assemble(baseRequest(
		orders.CartItem{MaterialID: 10, Quantity: 3},
		orders.CartItem{MaterialID: 11, Quantity: 25},
		orders.CartItem{MaterialID: 12, Quantity: 2},
	), testCustomer(), testCatalog(), testNow)
	require.Nil(t, verr)

	var sumSubtotal, sumTax float64
	for _, it := range order.Items {
		sumSubtotal += it.LineSubtotal
		sumTax += it.LineTax
	}
	assert.Equal(t, sumSubtotal, order.Subtotal)
	assert.Equal(t, sumTax, order.Tax)
	assert.Equal(t, order.Subtotal+order.Tax+order.Shipping-order.Discount, order.Total)

	// tiered line got the open-ended tier price
	assert.Equal(t, 80.0, order.Items[1].UnitPrice)
}

func TestAssembleShippingChargedOncePerSupplier(t *testing.T) {
	t.Parallel()

	// two lines from supplier 1, one from supplier 2: 50 + 200, not 50*2 + 200
	order, verr := orders.Assemble(baseRequest(
		orders.CartItem{MaterialID: 10, Quantity: 2},
		orders.CartItem{MaterialID: 11, Quantity: 30},
		orders.CartItem{MaterialID: 12, Quantity: 2},
	), testCustomer(), testCatalog(), testNow)
	require.Nil(t, verr)

	assert.Equal(t, 250.0, order.Shipping)
}

func TestAssembleMissingMaterialsFailEverything(t *testing.T) {
	t.Parallel()

	_, verr := orders.Assemble(baseRequest(
		orders.CartItem{MaterialID: 10, Quantity: 1},
		orders.CartItem{MaterialID: 98, Quantity: 1},
		orders.CartItem{MaterialID: 99, Quantity: 1},
	), testCustomer(), testCatalog(), testNow)

	require.NotNil(t, verr)
	assert.Equal(t, orders.ErrCodeNotFound, verr.Code)
	assert.Contains(t, verr.Message, "98")
	assert.Contains(t, verr.Message, "99")
}

func TestAssembleFirstFailingLineWins(t *testing.T) {
	t.Parallel()

	catalog := testCatalog()

	// line 2 violates stock, line 3 violates min order; line 2 is reported
	_, verr := orders.Assemble(baseRequest(
		orders.CartItem{MaterialID: 11, Quantity: 5},
		orders.CartItem{MaterialID: 10, Quantity: 6},
		orders.CartItem{MaterialID: 12, Quantity: 1},
	), testCustomer(), catalog, testNow)

	require.NotNil(t, verr)
	assert.Equal(t, orders.ErrCodeUnavailable, verr.Code)
	assert.Contains(t, verr.Message, "only 5 of OPC 53 Cement available")
}

func TestAssembleUnserviceablePincode(t *testing.T) {
	t.Parallel()

	req := baseRequest(orders.CartItem{MaterialID: 10, Quantity: 1})
	req.Addresses.Shipping.Pincode = "560002"

	_, verr := orders.Assemble(req, testCustomer(), testCatalog(), testNow)
	require.NotNil(t, verr)
	assert.Equal(t, orders.ErrCodeNotServiceable, verr.Code)
	assert.Contains(t, verr.Message, "560002")
}

func TestAssembleBelowSupplierMinOrderValue(t *testing.T) {
	t.Parallel()

	// 2 x 1500 = 3000 passes the 2000 floor; force a failure with a cheaper material
	catalog := testCatalog()
	catalog[12].BasePrice = 500 // 2 x 500 = 1000 < 2000

	_, verr := orders.Assemble(baseRequest(orders.CartItem{MaterialID: 12, Quantity: 2}), testCustomer(), catalog, testNow)
	require.NotNil(t, verr)
	assert.Equal(t, orders.ErrCodeNotServiceable, verr.Code)
	assert.Contains(t, verr.Message, "minimum order value")
}

func TestAssembleSnapshotsAndDeliveryDates(t *testing.T) {
	t.Parallel()

	catalog := testCatalog()
	lead := 7
	catalog[10].LeadTimeDays = &lead

	order, verr := orders.Assemble(baseRequest(
		orders.CartItem{MaterialID: 10, Quantity: 1},
		orders.CartItem{MaterialID: 12, Quantity: 2, Notes: "washed"},
	), testCustomer(), catalog, testNow)
	require.Nil(t, verr)

	// material and supplier fields are copied, not referenced
	assert.Equal(t, "OPC 53 Cement", order.Items[0].MaterialName)
	assert.Equal(t, "UltraTech", order.Items[0].MaterialBrand)
	assert.Equal(t, "Shree Cement Traders", order.Items[0].SupplierName)
	assert.Equal(t, "washed", order.Items[1].Notes)

	// customer contact snapshot falls back to the account profile
	assert.Equal(t, "Ateeq", order.CustomerName)
	assert.Equal(t, "ateeq@example.com", order.CustomerEmail)

	// configured lead time vs the 2-day default
	assert.Equal(t, testNow.AddDate(0, 0, 7), order.Items[0].DeliveryDate)
	assert.Equal(t, testNow.AddDate(0, 0, 2), order.Items[1].DeliveryDate)

	// billing defaults to shipping when absent
	assert.Equal(t, order.ShippingAddress, order.BillingAddress)
}

func TestAssembleExplicitCustomerContactWins(t *testing.T) {
	t.Parallel()

	req := baseRequest(orders.CartItem{MaterialID: 10, Quantity: 1})
	req.CustomerName = "Site Office"
	req.CustomerPhone = "8800099900"

	order, verr := orders.Assemble(req, testCustomer(), testCatalog(), testNow)
	require.Nil(t, verr)
	assert.Equal(t, "Site Office", order.CustomerName)
	assert.Equal(t, "8800099900", order.CustomerPhone)
	assert.Equal(t, "ateeq@example.com", order.CustomerEmail)
}
