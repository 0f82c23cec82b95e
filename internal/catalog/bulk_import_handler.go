package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"sahara-backend/internal/audit"
	"sahara-backend/internal/auth"
	"sahara-backend/internal/database"
	"sahara-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// expected columns: Name | Brand | Category | Unit | Base Price | GST % | Stock | Min Order | Supplier ID
const importColumns = 9

type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// POST /api/materials/import (admin, multipart "file")
// Imports materials from an XLSX sheet; rows that fail validation are
// reported and skipped, valid rows are created.
func BulkImportMaterialsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := auth.CallerInfo(c)
		if err != nil {
			return err
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read uploaded file: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "Only .xlsx files can be imported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not open uploaded file")
		}
		defer file.Close()

		excelFile, err := excelize.OpenReader(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read the Excel file: "+err.Error())
		}
		defer excelFile.Close()

		sheetList := excelFile.GetSheetList()
		if len(sheetList) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "The Excel file has no sheets")
		}

		rows, err := excelFile.GetRows(sheetList[0])
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not read the sheet")
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "The Excel file is empty")
		}

		// skip the header row if the first cell looks like one
		startIndex := 0
		if len(rows[0]) > 0 {
			first := strings.ToUpper(strings.TrimSpace(rows[0][0]))
			if strings.Contains(first, "NAME") || strings.Contains(first, "MATERIAL") {
				startIndex = 1
			}
		}

		created := 0
		var rowErrors []ImportRowError

		for i := startIndex; i < len(rows); i++ {
			row := rows[i]
			rowNum := i + 1

			if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
				continue
			}

			m, reason := parseImportRow(row)
			if reason != "" {
				rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Reason: reason})
				continue
			}

			var sup models.Supplier
			if err := database.DB.First(&sup, m.SupplierID).Error; err != nil {
				rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Reason: fmt.Sprintf("supplier %d not found", m.SupplierID)})
				continue
			}

			if err := database.DB.Create(m).Error; err != nil {
				rowErrors = append(rowErrors, ImportRowError{Row: rowNum, Reason: "could not save material"})
				continue
			}
			created++
		}

		var user models.User
		database.DB.First(&user, userID)
		audit.WriteLog(audit.LogOptions{
			UserID:      userID,
			UserName:    user.Name,
			EntityType:  "material",
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Bulk import: %d materials created, %d rows skipped", created, len(rowErrors)),
		})

		return c.JSON(fiber.Map{
			"created": created,
			"skipped": len(rowErrors),
			"errors":  rowErrors,
		})
	}
}

func parseImportRow(row []string) (*models.Material, string) {
	cell := func(idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	if len(row) < importColumns {
		// tolerate short rows as long as the mandatory cells exist
		if cell(4) == "" || cell(8) == "" {
			return nil, "row needs at least name, base price and supplier id"
		}
	}

	name := cell(0)
	if name == "" {
		return nil, "name is empty"
	}

	unit := models.MaterialUnit(strings.ToLower(cell(3)))
	if unit == "" {
		unit = models.UnitPiece
	}
	if !validUnit(unit) {
		return nil, fmt.Sprintf("unknown unit %q", cell(3))
	}

	basePrice, err := strconv.ParseFloat(cell(4), 64)
	if err != nil || basePrice <= 0 {
		return nil, fmt.Sprintf("invalid base price %q", cell(4))
	}

	gst := 18.0
	if v := cell(5); v != "" {
		gst, err = strconv.ParseFloat(v, 64)
		if err != nil || gst < 0 {
			return nil, fmt.Sprintf("invalid GST %q", v)
		}
	}

	stock := 0.0
	if v := cell(6); v != "" {
		stock, err = strconv.ParseFloat(v, 64)
		if err != nil || stock < 0 {
			return nil, fmt.Sprintf("invalid stock %q", v)
		}
	}

	minOrder := 1.0
	if v := cell(7); v != "" {
		minOrder, err = strconv.ParseFloat(v, 64)
		if err != nil || minOrder <= 0 {
			return nil, fmt.Sprintf("invalid min order %q", v)
		}
	}

	supplierID, err := strconv.ParseUint(cell(8), 10, 64)
	if err != nil || supplierID == 0 {
		return nil, fmt.Sprintf("invalid supplier id %q", cell(8))
	}

	return &models.Material{
		Name:          name,
		Brand:         cell(1),
		Category:      cell(2),
		Unit:          unit,
		BasePrice:     basePrice,
		Currency:      "INR",
		GSTPercent:    gst,
		InStock:       stock > 0,
		StockQuantity: stock,
		MinOrderQty:   minOrder,
		SupplierID:    uint(supplierID),
	}, ""
}
