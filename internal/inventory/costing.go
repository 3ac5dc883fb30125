package inventory

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

// UnitCost: kalem toplam maliyetinden birim maliyet (tam sayıya half-up yuvarlanır).
func UnitCost(lineTotalCost int64, qty decimal.Decimal) (int64, error) {
	if qty.Sign() <= 0 {
		return 0, core.Validationf("miktar 0'dan büyük olmalı")
	}
	return decimal.NewFromInt(lineTotalCost).Div(qty).Round(0).IntPart(), nil
}

// lockOrCreateBranchProduct: (şube, ürün) satırını kilitleyerek getirir, yoksa
// oluşturur. İki eşzamanlı POST aynı yeni ürüne yazabilir; duplicate key
// yakalanıp satır kilitle yeniden okunur (create-or-fetch).
func lockOrCreateBranchProduct(tx *gorm.DB, branchID, productID uuid.UUID) (*models.BranchProduct, error) {
	var bp models.BranchProduct
	err := database.ForUpdate(tx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		First(&bp).Error
	if err == nil {
		return &bp, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	bp = models.BranchProduct{BranchID: branchID, ProductID: productID, StockQty: decimal.Zero}
	if err := tx.Create(&bp).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			bp = models.BranchProduct{}
			if err := database.ForUpdate(tx).
				Where("branch_id = ? AND product_id = ?", branchID, productID).
				First(&bp).Error; err != nil {
				return nil, err
			}
			return &bp, nil
		}
		return nil, err
	}
	return &bp, nil
}

// applyStockIncrease: import POST'unun stok artışı. Birim maliyeti kaydeder,
// ağırlıklı ortalamayı harmanlar, miktarı artırır.
func applyStockIncrease(tx *gorm.DB, branchID, productID uuid.UUID, qty decimal.Decimal, lineTotalCost int64) error {
	unitCost, err := UnitCost(lineTotalCost, qty)
	if err != nil {
		return err
	}

	bp, err := lockOrCreateBranchProduct(tx, branchID, productID)
	if err != nil {
		return err
	}

	oldQty := bp.StockQty
	newQty := oldQty.Add(qty)

	newAvg := unitCost
	if oldQty.Sign() > 0 {
		// (eski_miktar*eski_ort + yeni_miktar*birim) / toplam_miktar, half-up
		numerator := oldQty.Mul(decimal.NewFromInt(bp.AvgUnitCost)).
			Add(qty.Mul(decimal.NewFromInt(unitCost)))
		newAvg = numerator.Div(newQty).Round(0).IntPart()
	}

	return tx.Model(bp).Updates(map[string]interface{}{
		"stock_qty":      newQty,
		"avg_unit_cost":  newAvg,
		"last_unit_cost": unitCost,
	}).Error
}

// ConsumeStock: reçete tüketiminin stok düşüşü. Maliyet alanlarına dokunmaz;
// COGS düşüşten ÖNCE o anki ortalama maliyetten hesaplanıp geri döner.
// Yetersiz stok hata ile reddedilir, miktar asla negatife inmez.
func ConsumeStock(tx *gorm.DB, branchID, productID uuid.UUID, needQty decimal.Decimal) (decimal.Decimal, error) {
	if needQty.Sign() <= 0 {
		return decimal.Zero, core.Validationf("tüketim miktarı 0'dan büyük olmalı")
	}

	var bp models.BranchProduct
	err := database.ForUpdate(tx).
		Where("branch_id = ? AND product_id = ?", branchID, productID).
		First(&bp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, core.InsufficientStockf("stok kaydı yok, önce import yapın (ürün %s)", productID)
		}
		return decimal.Zero, err
	}

	if bp.StockQty.LessThan(needQty) {
		return decimal.Zero, core.InsufficientStockf("mevcut %s < gereken %s (ürün %s)",
			bp.StockQty.String(), needQty.String(), productID)
	}

	cogs := decimal.NewFromInt(bp.AvgUnitCost).Mul(needQty)

	if err := tx.Model(&bp).Update("stock_qty", bp.StockQty.Sub(needQty)).Error; err != nil {
		return decimal.Zero, err
	}

	return cogs, nil
}
