package main

import (
	"log"
	"strings"

	"sahara-backend/internal/audit"
	"sahara-backend/internal/auth"
	"sahara-backend/internal/catalog"
	"sahara-backend/internal/config"
	"sahara-backend/internal/database"
	"sahara-backend/internal/models"
	"sahara-backend/internal/orders"
	"sahara-backend/internal/supplier"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Something went wrong, please try again later",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register", auth.RegisterHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Catalog (browse + quote for everyone signed in)
	protected.Get("/materials", catalog.ListMaterialsHandler())
	protected.Get("/materials/:id", catalog.GetMaterialHandler())
	protected.Post("/materials/:id/quote", catalog.QuoteMaterialHandler())

	// Orders
	protected.Post("/orders", orders.CreateOrderHandler())
	protected.Get("/orders", orders.ListOrdersHandler())
	protected.Get("/orders/:id", orders.GetOrderHandler())

	// Admin routes
	adminRoutes := protected.Group("")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	// Catalog management
	adminRoutes.Post("/materials", catalog.CreateMaterialHandler())
	adminRoutes.Put("/materials/:id", catalog.UpdateMaterialHandler())
	adminRoutes.Delete("/materials/:id", catalog.DeleteMaterialHandler())
	adminRoutes.Post("/materials/import", catalog.BulkImportMaterialsHandler())

	// Supplier management
	adminRoutes.Post("/suppliers", supplier.CreateSupplierHandler())
	adminRoutes.Get("/suppliers", supplier.ListSuppliersHandler())
	adminRoutes.Get("/suppliers/:id", supplier.GetSupplierHandler())
	adminRoutes.Put("/suppliers/:id", supplier.UpdateSupplierHandler())
	adminRoutes.Delete("/suppliers/:id", supplier.DeleteSupplierHandler())

	// Order lifecycle
	adminRoutes.Patch("/orders/:id/items/:itemID/status", orders.UpdateItemStatusHandler())
	adminRoutes.Patch("/orders/:id/payment", orders.UpdatePaymentStatusHandler())
	adminRoutes.Post("/orders/:id/invoice", orders.GenerateInvoiceHandler())

	// Audit trail
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Server running on port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
