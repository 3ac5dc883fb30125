package main

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"lokanta-backend/internal/admin"
	"lokanta-backend/internal/audit"
	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/config"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/finance"
	"lokanta-backend/internal/inventory"
	"lokanta-backend/internal/logger"
	"lokanta-backend/internal/menu"
	"lokanta-backend/internal/models"
	"lokanta-backend/internal/sales"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(cfg.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()

	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logger.L().Error("beklenmeyen hata", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
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
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	// Şube yönetimi
	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler())
	adminRoutes.Post("/branches/:id/admin", admin.CreateBranchAdminHandler())
	adminRoutes.Get("/branches/:id/admins", admin.ListBranchAdminsHandler())

	// Ham madde katalogu
	adminRoutes.Post("/products", inventory.CreateProductHandler())
	adminRoutes.Put("/products/:id", inventory.UpdateProductHandler())
	adminRoutes.Delete("/products/:id", inventory.DeleteProductHandler())

	// Kasa/hesap yönetimi
	protected.Post("/accounts", admin.CreateAccountHandler())
	protected.Get("/accounts", admin.ListAccountsHandler())
	protected.Put("/accounts/:id", admin.UpdateAccountHandler())
	protected.Delete("/accounts/:id", admin.DeleteAccountHandler())

	// Ürün listesi
	protected.Get("/products", inventory.ListProductsHandler())

	// Kasa hareketleri
	protected.Post("/cash-transactions", finance.CreateCashTxnHandler())
	protected.Post("/cash-transactions/transfer", finance.TransferHandler())
	protected.Get("/cash-transactions", finance.ListCashTxnsHandler())
	protected.Get("/cash-transactions/summary/monthly", finance.MonthlySummaryHandler())

	// Stok girişleri (DRAFT -> POSTED)
	protected.Post("/stock-imports", inventory.CreateImportHandler())
	protected.Post("/stock-imports/upload-xlsx", inventory.UploadImportHandler())
	protected.Get("/stock-imports", inventory.ListImportsHandler())
	protected.Get("/stock-imports/:id", inventory.GetImportHandler())
	protected.Patch("/stock-imports/:id", inventory.UpdateImportHandler())
	protected.Delete("/stock-imports/:id", inventory.DeleteImportHandler())
	protected.Post("/stock-imports/:id/items", inventory.AddImportItemHandler())
	protected.Put("/stock-imports/:id/items/:itemID", inventory.UpdateImportItemHandler())
	protected.Delete("/stock-imports/:id/items/:itemID", inventory.DeleteImportItemHandler())
	protected.Post("/stock-imports/:id/post", inventory.PostImportHandler())

	// Şube stoğu
	protected.Get("/stock", inventory.ListStockHandler())

	// Menü
	protected.Post("/food-categories", menu.CreateCategoryHandler())
	protected.Get("/food-categories", menu.ListCategoriesHandler())
	protected.Put("/food-categories/:id", menu.UpdateCategoryHandler())
	protected.Delete("/food-categories/:id", menu.DeleteCategoryHandler())
	protected.Post("/foods", menu.CreateFoodHandler())
	protected.Get("/foods", menu.ListFoodsHandler())
	protected.Put("/foods/:id", menu.UpdateFoodHandler())
	protected.Delete("/foods/:id", menu.DeleteFoodHandler())
	protected.Get("/foods/:id/recipe", menu.GetRecipeHandler())
	protected.Put("/foods/:id/recipe", menu.ReplaceRecipeHandler())
	protected.Get("/foods/:id/set-items", menu.ListSetItemsHandler())
	protected.Post("/foods/:id/set-items", menu.AddSetItemHandler())
	protected.Delete("/foods/:id/set-items/:itemID", menu.DeleteSetItemHandler())

	// Siparişler
	protected.Post("/orders", sales.CreateOrderHandler())
	protected.Get("/orders", sales.ListOrdersHandler())
	protected.Get("/orders/:id", sales.GetOrderHandler())
	protected.Post("/orders/:id/items", sales.AddOrderItemHandler())
	protected.Delete("/orders/:id/items/:itemID", sales.RemoveOrderItemHandler())
	protected.Post("/orders/:id/pay", sales.PayOrderHandler())
	protected.Post("/orders/:id/deliver", sales.DeliverOrderHandler())
	protected.Post("/orders/:id/cancel", sales.CancelOrderHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	logger.L().Info("server çalışıyor", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.L().Fatal("server kapandı", zap.Error(err))
	}
}
