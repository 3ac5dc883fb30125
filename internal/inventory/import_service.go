package inventory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/finance"
	"lokanta-backend/internal/models"
)

// PostStockImport: DRAFT importu tek unit of work içinde uygular:
//   - stok miktarları artar, birim/ortalama maliyetler güncellenir
//   - paid_from_account varsa bakiye kontrol edilir ve OUT kasa kaydı yazılır
//   - status POSTED olur
//
// İdempotent: POSTED bir import için tekrar çağrılmak no-op'tur, hata değildir.
// Herhangi bir adım başarısız olursa hiçbir stok/kasa değişikliği kalmaz.
func PostStockImport(db *gorm.DB, importID uuid.UUID, actor core.Actor) (*models.StockImport, error) {
	var result models.StockImport

	err := db.Transaction(func(tx *gorm.DB) error {
		var imp models.StockImport
		if err := database.ForUpdate(tx).First(&imp, "id = ?", importID).Error; err != nil {
			return err
		}

		// Şube kapsamı: branch_admin yalnızca kendi şubesinin importunu POST edebilir
		if !actor.Scope.CanAccessBranch(imp.BranchID) {
			return core.Forbiddenf("başka şubenin importu POST edilemez")
		}

		if imp.Status == models.ImportStatusPosted {
			result = imp
			return nil
		}

		var items []models.StockImportItem
		if err := tx.Where("stock_import_id = ?", imp.ID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return core.Validationf("import kalemi yok, önce kalem ekleyin")
		}

		var totalCost int64
		for _, it := range items {
			if it.LineTotalCost < 0 {
				return core.Validationf("kalem maliyeti negatif olamaz")
			}
			totalCost += it.LineTotalCost
		}

		// 1) Ödeme hesabı belirtilmişse: bakiye kontrolü + (bir kez) OUT kaydı
		if imp.PaidFromAccountID != nil {
			var acc models.MoneyAccount
			if err := database.ForUpdate(tx).First(&acc, "id = ?", *imp.PaidFromAccountID).Error; err != nil {
				return err
			}

			if acc.BranchID != imp.BranchID {
				return core.CrossBranchf("ödeme hesabı importun şubesine ait değil")
			}

			if acc.BalanceCache < totalCost {
				return core.InsufficientFundsf("bakiye=%d, gereken=%d", acc.BalanceCache, totalCost)
			}

			// CashTxnID bir kez set edilir; ikinci çağrı mükerrer çıkış yazamaz
			if imp.CashTxnID == nil {
				txn, err := finance.RecordCashTxn(tx, finance.RecordCashTxnInput{
					AccountID: acc.ID,
					Direction: models.DirectionOut,
					TxnType:   models.TxnTypeImport,
					Amount:    totalCost,
					Note:      "Stok girişi " + imp.ID.String()[:8],
					RefType:   models.RefTypeStockImport,
					RefID:     &imp.ID,
				})
				if err != nil {
					return err
				}
				if err := tx.Model(&imp).Update("cash_txn_id", txn.ID).Error; err != nil {
					return err
				}
				imp.CashTxnID = &txn.ID
			}
		}

		// 2) Stok + maliyet uygula
		for _, it := range items {
			if err := applyStockIncrease(tx, imp.BranchID, it.ProductID, it.Qty, it.LineTotalCost); err != nil {
				return err
			}
		}

		// 3) POSTED işaretle
		now := time.Now()
		if err := tx.Model(&imp).Updates(map[string]interface{}{
			"status":       models.ImportStatusPosted,
			"posted_by_id": actor.UserID,
			"posted_at":    now,
		}).Error; err != nil {
			return err
		}

		imp.Status = models.ImportStatusPosted
		imp.PostedByID = &actor.UserID
		imp.PostedAt = &now
		result = imp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
