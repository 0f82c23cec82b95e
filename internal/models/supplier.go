package models

import "time"

// Supplier: material vendor; read-only to the order engine
type Supplier struct {
	ID    uint   `gorm:"primaryKey"`
	Name  string `gorm:"size:200;not null"`
	Email string `gorm:"size:100"`
	Phone string `gorm:"size:20"`
	City  string `gorm:"size:100"`

	// empty list = delivers everywhere, free of charge
	DeliveryAreas []DeliveryArea `gorm:"foreignKey:SupplierID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeliveryArea: serviceable pincode with its charge and optional order floor
type DeliveryArea struct {
	ID             uint   `gorm:"primaryKey"`
	SupplierID     uint   `gorm:"not null;uniqueIndex:idx_supplier_pincode"`
	Pincode        string `gorm:"size:10;not null;uniqueIndex:idx_supplier_pincode"`
	DeliveryCharge float64  `gorm:"not null;default:0"`
	MinOrderValue  *float64 // nil = no minimum
	EstimatedDays  int      `gorm:"not null;default:2"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
