package models

import "time"

// MaterialUnit: how the material is sold and priced
type MaterialUnit string

const (
	UnitPiece  MaterialUnit = "piece"
	UnitArea   MaterialUnit = "area"   // sq.ft / sq.m
	UnitWeight MaterialUnit = "weight" // kg / ton
	UnitVolume MaterialUnit = "volume" // litre / cubic m
)

// Material: catalog entry for a building material
type Material struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"size:200;not null;index"`
	Brand    string `gorm:"size:100"`
	Category string `gorm:"size:100;index"`
	ImageURL string `gorm:"size:500"`

	// Pricing
	Unit       MaterialUnit `gorm:"size:20;not null;default:piece"`
	BasePrice  float64      `gorm:"not null"` // per-unit price without GST
	Currency   string       `gorm:"size:3;not null;default:INR"`
	GSTPercent float64      `gorm:"not null;default:18"`

	// Availability
	InStock       bool     `gorm:"not null;default:true"`
	StockQuantity float64  `gorm:"not null;default:0"` // on-hand, only the order engine decrements
	MinOrderQty   float64  `gorm:"not null;default:1"`
	MaxOrderQty   *float64 // nil = no upper limit
	LeadTimeDays  *int     // nil = default lead time applies

	SupplierID uint `gorm:"index;not null"`
	Supplier   Supplier

	// sorted by min_quantity ascending, ranges must not overlap
	PriceTiers []PriceTier `gorm:"foreignKey:MaterialID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriceTier: bulk price band; the highest matching min_quantity wins
type PriceTier struct {
	ID           uint `gorm:"primaryKey"`
	MaterialID   uint `gorm:"index;not null"`
	MinQuantity  float64  `gorm:"not null"`
	MaxQuantity  *float64 // nil = open-ended
	PricePerUnit float64  `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
