package inventory

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

type StockRowResponse struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	SKU         *string         `json:"sku"`
	StockQty    decimal.Decimal `json:"stock_qty"`
	AvgUnitCost int64           `json:"avg_unit_cost"`
	LastUnitCost int64          `json:"last_unit_cost"`
	StockValue  int64           `json:"stock_value"` // qty * ortalama maliyet, kuruş
}

// -------------------------------------------------
// GET /api/stock?branch_id=...&q=un
// -------------------------------------------------
func ListStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Product").Where("branch_id = ?", branchID)

		var rows []models.BranchProduct
		if err := dbq.Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok listelenemedi")
		}

		q := strings.ToLower(strings.TrimSpace(c.Query("q")))

		res := make([]StockRowResponse, 0, len(rows))
		for _, bp := range rows {
			if q != "" && !strings.Contains(strings.ToLower(bp.Product.Name), q) {
				continue
			}
			value := bp.StockQty.Mul(decimal.NewFromInt(bp.AvgUnitCost)).Round(0).IntPart()
			res = append(res, StockRowResponse{
				ProductID:    bp.ProductID,
				ProductName:  bp.Product.Name,
				Unit:         bp.Product.Unit,
				SKU:          bp.Product.SKU,
				StockQty:     bp.StockQty,
				AvgUnitCost:  bp.AvgUnitCost,
				LastUnitCost: bp.LastUnitCost,
				StockValue:   value,
			})
		}

		return c.JSON(res)
	}
}
