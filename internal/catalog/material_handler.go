package catalog

import (
	"fmt"
	"strings"

	"sahara-backend/internal/audit"
	"sahara-backend/internal/auth"
	"sahara-backend/internal/database"
	"sahara-backend/internal/models"
	"sahara-backend/internal/supplier"

	"github.com/gofiber/fiber/v2"
)

type PriceTierRequest struct {
	MinQuantity  float64  `json:"min_quantity"`
	MaxQuantity  *float64 `json:"max_quantity"`
	PricePerUnit float64  `json:"price_per_unit"`
}

type CreateMaterialRequest struct {
	Name         string              `json:"name"`
	Brand        string              `json:"brand"`
	Category     string              `json:"category"`
	ImageURL     string              `json:"image_url"`
	Unit         models.MaterialUnit `json:"unit"`
	BasePrice    float64             `json:"base_price"`
	GSTPercent   *float64            `json:"gst_percent"`
	InStock      *bool               `json:"in_stock"`
	StockQty     float64             `json:"stock_quantity"`
	MinOrderQty  float64             `json:"min_order_quantity"`
	MaxOrderQty  *float64            `json:"max_order_quantity"`
	LeadTimeDays *int                `json:"lead_time_days"`
	SupplierID   uint                `json:"supplier_id"`
	PriceTiers   []PriceTierRequest  `json:"price_tiers"`
}

type UpdateMaterialRequest struct {
	Name         *string             `json:"name"`
	Brand        *string             `json:"brand"`
	Category     *string             `json:"category"`
	ImageURL     *string             `json:"image_url"`
	BasePrice    *float64            `json:"base_price"`
	GSTPercent   *float64            `json:"gst_percent"`
	InStock      *bool               `json:"in_stock"`
	StockQty     *float64            `json:"stock_quantity"`
	MinOrderQty  *float64            `json:"min_order_quantity"`
	MaxOrderQty  *float64            `json:"max_order_quantity"`
	LeadTimeDays *int                `json:"lead_time_days"`
	PriceTiers   *[]PriceTierRequest `json:"price_tiers"`
}

type PriceTierResponse struct {
	MinQuantity  float64  `json:"min_quantity"`
	MaxQuantity  *float64 `json:"max_quantity,omitempty"`
	PricePerUnit float64  `json:"price_per_unit"`
}

type MaterialResponse struct {
	ID           uint                `json:"id"`
	Name         string              `json:"name"`
	Brand        string              `json:"brand,omitempty"`
	Category     string              `json:"category,omitempty"`
	ImageURL     string              `json:"image_url,omitempty"`
	Unit         models.MaterialUnit `json:"unit"`
	BasePrice    float64             `json:"base_price"`
	Currency     string              `json:"currency"`
	GSTPercent   float64             `json:"gst_percent"`
	InStock      bool                `json:"in_stock"`
	StockQty     float64             `json:"stock_quantity"`
	MinOrderQty  float64             `json:"min_order_quantity"`
	MaxOrderQty  *float64            `json:"max_order_quantity,omitempty"`
	LeadTimeDays *int                `json:"lead_time_days,omitempty"`
	SupplierID   uint                `json:"supplier_id"`
	SupplierName string              `json:"supplier_name,omitempty"`
	PriceTiers   []PriceTierResponse `json:"price_tiers,omitempty"`
}

func toMaterialResponse(m *models.Material) MaterialResponse {
	resp := MaterialResponse{
		ID:           m.ID,
		Name:         m.Name,
		Brand:        m.Brand,
		Category:     m.Category,
		ImageURL:     m.ImageURL,
		Unit:         m.Unit,
		BasePrice:    m.BasePrice,
		Currency:     m.Currency,
		GSTPercent:   m.GSTPercent,
		InStock:      m.InStock,
		StockQty:     m.StockQuantity,
		MinOrderQty:  m.MinOrderQty,
		MaxOrderQty:  m.MaxOrderQty,
		LeadTimeDays: m.LeadTimeDays,
		SupplierID:   m.SupplierID,
		SupplierName: m.Supplier.Name,
	}
	for _, t := range m.PriceTiers {
		resp.PriceTiers = append(resp.PriceTiers, PriceTierResponse{
			MinQuantity:  t.MinQuantity,
			MaxQuantity:  t.MaxQuantity,
			PricePerUnit: t.PricePerUnit,
		})
	}
	return resp
}

func validUnit(u models.MaterialUnit) bool {
	switch u {
	case models.UnitPiece, models.UnitArea, models.UnitWeight, models.UnitVolume:
		return true
	}
	return false
}

// tiers must be sorted by min_quantity ascending and must not overlap
func validateTiers(tiers []PriceTierRequest) error {
	for i, t := range tiers {
		if t.MinQuantity <= 0 || t.PricePerUnit <= 0 {
			return fmt.Errorf("tier %d: min_quantity and price_per_unit must be greater than zero", i+1)
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			return fmt.Errorf("tier %d: max_quantity is below min_quantity", i+1)
		}
		if i > 0 {
			prev := tiers[i-1]
			if t.MinQuantity <= prev.MinQuantity {
				return fmt.Errorf("tiers must be sorted by min_quantity ascending")
			}
			if prev.MaxQuantity == nil || *prev.MaxQuantity >= t.MinQuantity {
				return fmt.Errorf("tier %d overlaps the previous tier", i+1)
			}
		}
	}
	return nil
}

// update requests carry pointers, so an explicit zero or negative is a
// client error rather than an omitted field
func validateMaterialUpdate(body *UpdateMaterialRequest) error {
	if body.BasePrice != nil && *body.BasePrice <= 0 {
		return fmt.Errorf("base_price must be greater than zero")
	}
	if body.GSTPercent != nil && *body.GSTPercent < 0 {
		return fmt.Errorf("gst_percent cannot be negative")
	}
	if body.StockQty != nil && *body.StockQty < 0 {
		return fmt.Errorf("stock_quantity cannot be negative")
	}
	if body.MinOrderQty != nil && *body.MinOrderQty <= 0 {
		return fmt.Errorf("min_order_quantity must be greater than zero")
	}
	if body.PriceTiers != nil {
		return validateTiers(*body.PriceTiers)
	}
	return nil
}

func buildTiers(tiers []PriceTierRequest) []models.PriceTier {
	out := make([]models.PriceTier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, models.PriceTier{
			MinQuantity:  t.MinQuantity,
			MaxQuantity:  t.MaxQuantity,
			PricePerUnit: t.PricePerUnit,
		})
	}
	return out
}

// POST /api/materials (admin)
func CreateMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		var body CreateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" || body.BasePrice <= 0 || body.SupplierID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "name, base_price and supplier_id are required")
		}
		if body.Unit == "" {
			body.Unit = models.UnitPiece
		}
		if !validUnit(body.Unit) {
			return fiber.NewError(fiber.StatusBadRequest, "unit must be one of piece, area, weight, volume")
		}
		if body.GSTPercent != nil && *body.GSTPercent < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "gst_percent cannot be negative")
		}
		if err := validateTiers(body.PriceTiers); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var sup models.Supplier
		if err := database.DB.First(&sup, body.SupplierID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Supplier not found")
		}

		m := models.Material{
			Name:          body.Name,
			Brand:         body.Brand,
			Category:      body.Category,
			ImageURL:      body.ImageURL,
			Unit:          body.Unit,
			BasePrice:     body.BasePrice,
			Currency:      "INR",
			GSTPercent:    18,
			InStock:       true,
			StockQuantity: body.StockQty,
			MinOrderQty:   body.MinOrderQty,
			MaxOrderQty:   body.MaxOrderQty,
			LeadTimeDays:  body.LeadTimeDays,
			SupplierID:    body.SupplierID,
			PriceTiers:    buildTiers(body.PriceTiers),
		}
		if body.GSTPercent != nil {
			m.GSTPercent = *body.GSTPercent
		}
		if body.InStock != nil {
			m.InStock = *body.InStock
		}
		if m.MinOrderQty <= 0 {
			m.MinOrderQty = 1
		}

		if err := database.DB.Create(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create material")
		}
		m.Supplier = sup

		writeCatalogAudit(c, userID, "material", m.ID, models.AuditActionCreate,
			fmt.Sprintf("Material %s created", m.Name), nil, m)

		return c.Status(fiber.StatusCreated).JSON(toMaterialResponse(&m))
	}
}

// PUT /api/materials/:id (admin)
func UpdateMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id")
		}

		var body UpdateMaterialRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validateMaterialUpdate(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var m models.Material
		if err := database.DB.Preload("PriceTiers").First(&m, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Material not found")
		}
		before := m

		if body.Name != nil {
			m.Name = strings.TrimSpace(*body.Name)
		}
		if body.Brand != nil {
			m.Brand = *body.Brand
		}
		if body.Category != nil {
			m.Category = *body.Category
		}
		if body.ImageURL != nil {
			m.ImageURL = *body.ImageURL
		}
		if body.BasePrice != nil {
			m.BasePrice = *body.BasePrice
		}
		if body.GSTPercent != nil {
			m.GSTPercent = *body.GSTPercent
		}
		if body.InStock != nil {
			m.InStock = *body.InStock
		}
		if body.StockQty != nil {
			m.StockQuantity = *body.StockQty
		}
		if body.MinOrderQty != nil {
			m.MinOrderQty = *body.MinOrderQty
		}
		if body.MaxOrderQty != nil {
			m.MaxOrderQty = body.MaxOrderQty
		}
		if body.LeadTimeDays != nil {
			m.LeadTimeDays = body.LeadTimeDays
		}

		if err := database.DB.Save(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update material")
		}

		if body.PriceTiers != nil {
			if err := database.DB.Where("material_id = ?", m.ID).Delete(&models.PriceTier{}).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not replace price tiers")
			}
			tiers := buildTiers(*body.PriceTiers)
			for i := range tiers {
				tiers[i].MaterialID = m.ID
			}
			if len(tiers) > 0 {
				if err := database.DB.Create(&tiers).Error; err != nil {
					return fiber.NewError(fiber.StatusInternalServerError, "Could not replace price tiers")
				}
			}
			m.PriceTiers = tiers
		}

		writeCatalogAudit(c, userID, "material", m.ID, models.AuditActionUpdate,
			fmt.Sprintf("Material %s updated", m.Name), before, m)

		return c.JSON(toMaterialResponse(&m))
	}
}

// DELETE /api/materials/:id (admin)
func DeleteMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id")
		}

		var m models.Material
		if err := database.DB.First(&m, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Material not found")
		}

		// order items keep their snapshots, deleting the catalog entry is safe
		if err := database.DB.Delete(&m).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete material")
		}

		writeCatalogAudit(c, userID, "material", m.ID, models.AuditActionDelete,
			fmt.Sprintf("Material %s deleted", m.Name), m, nil)

		return c.JSON(fiber.Map{"message": "Material deleted"})
	}
}

// GET /api/materials?category=&supplier_id=&q=&in_stock=&page=&limit=
func ListMaterialsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := c.QueryInt("page", 1)
		if page < 1 {
			page = 1
		}
		limit := c.QueryInt("limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		dbq := database.DB.Model(&models.Material{})

		if category := c.Query("category"); category != "" {
			dbq = dbq.Where("category = ?", category)
		}
		if sid := c.QueryInt("supplier_id", 0); sid > 0 {
			dbq = dbq.Where("supplier_id = ?", sid)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("name ILIKE ? OR brand ILIKE ?", "%"+q+"%", "%"+q+"%")
		}
		if c.Query("in_stock") == "true" {
			dbq = dbq.Where("in_stock = ? AND stock_quantity > 0", true)
		}

		var total int64
		if err := dbq.Count(&total).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list materials")
		}

		var mats []models.Material
		if err := dbq.Preload("PriceTiers").Preload("Supplier").
			Order("name ASC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&mats).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list materials")
		}

		resp := make([]MaterialResponse, 0, len(mats))
		for i := range mats {
			resp = append(resp, toMaterialResponse(&mats[i]))
		}

		return c.JSON(fiber.Map{
			"materials": resp,
			"page":      page,
			"limit":     limit,
			"total":     total,
		})
	}
}

// GET /api/materials/:id
func GetMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id")
		}

		var m models.Material
		if err := database.DB.Preload("PriceTiers").Preload("Supplier").First(&m, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Material not found")
		}

		return c.JSON(toMaterialResponse(&m))
	}
}

type QuoteRequest struct {
	Quantity float64 `json:"quantity"`
	Pincode  string  `json:"pincode"`
}

// POST /api/materials/:id/quote
// Price + availability preview for one material without creating an order.
func QuoteMaterialHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid material id")
		}

		var body QuoteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.Quantity <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "quantity must be greater than zero")
		}

		var m models.Material
		if err := database.DB.Preload("PriceTiers").Preload("Supplier").Preload("Supplier.DeliveryAreas").First(&m, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Material not found")
		}

		quote := Price(&m, body.Quantity)
		availability := CheckAvailability(&m, body.Quantity)

		resp := fiber.Map{
			"material_id":  m.ID,
			"quantity":     body.Quantity,
			"quote":        quote,
			"availability": availability,
		}
		if body.Pincode != "" {
			resp["delivery"] = supplier.CanDeliver(&m.Supplier, body.Pincode, quote.Subtotal)
		}

		return c.JSON(resp)
	}
}

func writeCatalogAudit(c *fiber.Ctx, userID uint, entityType string, entityID uint, action models.AuditAction, description string, before, after any) {
	var user models.User
	database.DB.First(&user, userID)
	audit.WriteLog(audit.LogOptions{
		UserID:      userID,
		UserName:    user.Name,
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
	})
}
