package models

import "time"

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
	StatusRefunded   OrderStatus = "refunded"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Address: postal address snapshot stored with the order
type Address struct {
	Street   string `gorm:"size:255" json:"street"`
	Area     string `gorm:"size:100" json:"area"`
	City     string `gorm:"size:100" json:"city"`
	State    string `gorm:"size:100" json:"state"`
	Pincode  string `gorm:"size:10" json:"pincode"`
	Country  string `gorm:"size:100" json:"country"`
	Landmark string `gorm:"size:255" json:"landmark"`
}

// Order: assembled marketplace order. Created fully formed by the assembler;
// afterwards only item statuses, payment status and the invoice stamp change.
type Order struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"size:30;uniqueIndex;not null"` // human-readable, assigned once

	// Customer snapshot at order time, not a live reference
	CustomerID    uint   `gorm:"index;not null"`
	CustomerName  string `gorm:"size:100"`
	CustomerEmail string `gorm:"size:100"`
	CustomerPhone string `gorm:"size:20"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	// Aggregates; always recomputable from items + shipping/discount
	Subtotal float64 `gorm:"not null"`
	Tax      float64 `gorm:"not null"`
	Shipping float64 `gorm:"not null"`
	Discount float64 `gorm:"not null;default:0"`
	Total    float64 `gorm:"not null"`

	PaymentMethod string        `gorm:"size:30"`
	PaymentStatus PaymentStatus `gorm:"size:20;not null;default:pending"`

	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_"`
	BillingAddress  Address `gorm:"embedded;embeddedPrefix:billing_"`

	// Derived from item statuses, never written directly by callers
	Status OrderStatus `gorm:"size:20;index;not null;default:pending"`

	ActualDeliveryDate *time.Time

	InvoiceNumber   string `gorm:"size:40"`
	InvoiceIssuedAt *time.Time

	ProjectID  *uint
	EstimateID *uint
	Notes      string `gorm:"size:500"`

	Timeline []OrderTimelineEntry `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem: one validated, priced cart line with material/supplier snapshots
type OrderItem struct {
	ID      uint `gorm:"primaryKey"`
	OrderID uint `gorm:"index;not null"`

	MaterialID    uint         `gorm:"index;not null"`
	MaterialName  string       `gorm:"size:200"`
	MaterialBrand string       `gorm:"size:100"`
	MaterialImage string       `gorm:"size:500"`
	MaterialUnit  MaterialUnit `gorm:"size:20"`

	SupplierID   uint   `gorm:"index;not null"`
	SupplierName string `gorm:"size:200"`

	Quantity     float64 `gorm:"not null"`
	UnitPrice    float64 `gorm:"not null"`
	LineSubtotal float64 `gorm:"not null"`
	LineTax      float64 `gorm:"not null"`

	Status       OrderStatus `gorm:"size:20;not null;default:pending"`
	DeliveryDate time.Time
	Notes        string `gorm:"size:255"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderTimelineEntry: append-only status history
type OrderTimelineEntry struct {
	ID        uint        `gorm:"primaryKey"`
	OrderID   uint        `gorm:"index;not null"`
	Status    OrderStatus `gorm:"size:20;not null"`
	Note      string      `gorm:"size:255"`
	CreatedAt time.Time
}
