package supplier

import (
	"fmt"
	"strings"

	"sahara-backend/internal/audit"
	"sahara-backend/internal/auth"
	"sahara-backend/internal/database"
	"sahara-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type DeliveryAreaRequest struct {
	Pincode        string   `json:"pincode"`
	DeliveryCharge float64  `json:"delivery_charge"`
	MinOrderValue  *float64 `json:"min_order_value"`
	EstimatedDays  int      `json:"estimated_days"`
}

type CreateSupplierRequest struct {
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Phone         string                `json:"phone"`
	City          string                `json:"city"`
	DeliveryAreas []DeliveryAreaRequest `json:"delivery_areas"`
}

type UpdateSupplierRequest struct {
	Name          *string                `json:"name"`
	Email         *string                `json:"email"`
	Phone         *string                `json:"phone"`
	City          *string                `json:"city"`
	DeliveryAreas *[]DeliveryAreaRequest `json:"delivery_areas"`
}

type DeliveryAreaResponse struct {
	Pincode        string   `json:"pincode"`
	DeliveryCharge float64  `json:"delivery_charge"`
	MinOrderValue  *float64 `json:"min_order_value,omitempty"`
	EstimatedDays  int      `json:"estimated_days"`
}

type SupplierResponse struct {
	ID            uint                   `json:"id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email,omitempty"`
	Phone         string                 `json:"phone,omitempty"`
	City          string                 `json:"city,omitempty"`
	DeliveryAreas []DeliveryAreaResponse `json:"delivery_areas"`
}

func toSupplierResponse(s *models.Supplier) SupplierResponse {
	resp := SupplierResponse{
		ID:    s.ID,
		Name:  s.Name,
		Email: s.Email,
		Phone: s.Phone,
		City:  s.City,
	}
	for _, a := range s.DeliveryAreas {
		resp.DeliveryAreas = append(resp.DeliveryAreas, DeliveryAreaResponse{
			Pincode:        a.Pincode,
			DeliveryCharge: a.DeliveryCharge,
			MinOrderValue:  a.MinOrderValue,
			EstimatedDays:  a.EstimatedDays,
		})
	}
	return resp
}

// at most one entry per pincode, charges non-negative
func validateAreas(areas []DeliveryAreaRequest) error {
	seen := make(map[string]bool)
	for i, a := range areas {
		pincode := strings.TrimSpace(a.Pincode)
		if pincode == "" {
			return fmt.Errorf("delivery area %d: pincode is empty", i+1)
		}
		if seen[pincode] {
			return fmt.Errorf("pincode %s is listed twice", pincode)
		}
		seen[pincode] = true
		if a.DeliveryCharge < 0 {
			return fmt.Errorf("delivery area %d: charge cannot be negative", i+1)
		}
		if a.MinOrderValue != nil && *a.MinOrderValue < 0 {
			return fmt.Errorf("delivery area %d: min order value cannot be negative", i+1)
		}
	}
	return nil
}

func buildAreas(areas []DeliveryAreaRequest) []models.DeliveryArea {
	out := make([]models.DeliveryArea, 0, len(areas))
	for _, a := range areas {
		days := a.EstimatedDays
		if days <= 0 {
			days = 2
		}
		out = append(out, models.DeliveryArea{
			Pincode:        strings.TrimSpace(a.Pincode),
			DeliveryCharge: a.DeliveryCharge,
			MinOrderValue:  a.MinOrderValue,
			EstimatedDays:  days,
		})
	}
	return out
}

// POST /api/suppliers (admin)
func CreateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		var body CreateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if err := validateAreas(body.DeliveryAreas); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		s := models.Supplier{
			Name:          body.Name,
			Email:         strings.TrimSpace(strings.ToLower(body.Email)),
			Phone:         body.Phone,
			City:          body.City,
			DeliveryAreas: buildAreas(body.DeliveryAreas),
		}

		if err := database.DB.Create(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create supplier")
		}

		writeSupplierAudit(c, userID, s.ID, models.AuditActionCreate,
			fmt.Sprintf("Supplier %s created", s.Name), nil, s)

		return c.Status(fiber.StatusCreated).JSON(toSupplierResponse(&s))
	}
}

// PUT /api/suppliers/:id (admin)
func UpdateSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid supplier id")
		}

		var body UpdateSupplierRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if body.DeliveryAreas != nil {
			if err := validateAreas(*body.DeliveryAreas); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
		}

		var s models.Supplier
		if err := database.DB.Preload("DeliveryAreas").First(&s, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Supplier not found")
		}
		before := s

		if body.Name != nil {
			s.Name = strings.TrimSpace(*body.Name)
		}
		if body.Email != nil {
			s.Email = strings.TrimSpace(strings.ToLower(*body.Email))
		}
		if body.Phone != nil {
			s.Phone = *body.Phone
		}
		if body.City != nil {
			s.City = *body.City
		}

		if err := database.DB.Save(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update supplier")
		}

		if body.DeliveryAreas != nil {
			if err := database.DB.Where("supplier_id = ?", s.ID).Delete(&models.DeliveryArea{}).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not replace delivery areas")
			}
			areas := buildAreas(*body.DeliveryAreas)
			for i := range areas {
				areas[i].SupplierID = s.ID
			}
			if len(areas) > 0 {
				if err := database.DB.Create(&areas).Error; err != nil {
					return fiber.NewError(fiber.StatusInternalServerError, "Could not replace delivery areas")
				}
			}
			s.DeliveryAreas = areas
		}

		writeSupplierAudit(c, userID, s.ID, models.AuditActionUpdate,
			fmt.Sprintf("Supplier %s updated", s.Name), before, s)

		return c.JSON(toSupplierResponse(&s))
	}
}

// DELETE /api/suppliers/:id (admin)
func DeleteSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid supplier id")
		}

		var s models.Supplier
		if err := database.DB.First(&s, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Supplier not found")
		}

		var materialCount int64
		database.DB.Model(&models.Material{}).Where("supplier_id = ?", s.ID).Count(&materialCount)
		if materialCount > 0 {
			return fiber.NewError(fiber.StatusConflict,
				fmt.Sprintf("Supplier still has %d materials in the catalog", materialCount))
		}

		if err := database.DB.Delete(&s).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete supplier")
		}

		writeSupplierAudit(c, userID, s.ID, models.AuditActionDelete,
			fmt.Sprintf("Supplier %s deleted", s.Name), s, nil)

		return c.JSON(fiber.Map{"message": "Supplier deleted"})
	}
}

// GET /api/suppliers (admin)
func ListSuppliersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var list []models.Supplier
		if err := database.DB.Preload("DeliveryAreas").Order("name ASC").Find(&list).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list suppliers")
		}

		resp := make([]SupplierResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toSupplierResponse(&list[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/suppliers/:id (admin)
func GetSupplierHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid supplier id")
		}

		var s models.Supplier
		if err := database.DB.Preload("DeliveryAreas").First(&s, id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Supplier not found")
		}
		return c.JSON(toSupplierResponse(&s))
	}
}

func writeSupplierAudit(c *fiber.Ctx, userID uint, entityID uint, action models.AuditAction, description string, before, after any) {
	var user models.User
	database.DB.First(&user, userID)
	audit.WriteLog(audit.LogOptions{
		UserID:      userID,
		UserName:    user.Name,
		EntityType:  "supplier",
		EntityID:    entityID,
		Action:      action,
		Description: description,
		Before:      before,
		After:       after,
	})
}
