package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
	"lokanta-backend/internal/finance"
	"lokanta-backend/internal/models"
)

func superAdmin() core.Actor {
	return core.Actor{UserID: uuid.New(), Scope: core.ScopeAll()}
}

func seedAccount(t *testing.T, db *gorm.DB, branchID uuid.UUID, balance int64) *models.MoneyAccount {
	t.Helper()

	acc := models.MoneyAccount{
		BranchID: branchID,
		Name:     "Kasa " + uuid.NewString()[:8],
		Kind:     models.AccountKindCash,
		IsActive: true,
	}
	require.NoError(t, db.Create(&acc).Error)

	if balance > 0 {
		_, err := finance.RecordCashTxn(db, finance.RecordCashTxnInput{
			AccountID: acc.ID,
			Direction: models.DirectionIn,
			TxnType:   models.TxnTypeAdjust,
			Amount:    balance,
			Note:      "açılış",
		})
		require.NoError(t, err)
	}
	return &acc
}

func seedDraftImport(t *testing.T, db *gorm.DB, branchID uuid.UUID, accountID *uuid.UUID) *models.StockImport {
	t.Helper()

	si := models.StockImport{
		BranchID:          branchID,
		Status:            models.ImportStatusDraft,
		PaidFromAccountID: accountID,
	}
	require.NoError(t, db.Create(&si).Error)
	return &si
}

func addImportItem(t *testing.T, db *gorm.DB, importID, productID uuid.UUID, q string, cost int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.StockImportItem{
		StockImportID: importID,
		ProductID:     productID,
		Qty:           qty(q),
		LineTotalCost: cost,
	}).Error)
}

func TestPostStockImportAppliesStockAndCash(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	acc := seedAccount(t, db, branch.ID, 5000_00)
	flour := seedProduct(t, db, "Un")
	oil := seedProduct(t, db, "Ayçiçek yağı")

	si := seedDraftImport(t, db, branch.ID, &acc.ID)
	addImportItem(t, db, si.ID, flour.ID, "10", 1000_00)
	addImportItem(t, db, si.ID, oil.ID, "5", 750_00)

	actor := superAdmin()
	posted, err := PostStockImport(db, si.ID, actor)
	require.NoError(t, err)

	assert.Equal(t, models.ImportStatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)
	require.NotNil(t, posted.PostedByID)
	assert.Equal(t, actor.UserID, *posted.PostedByID)
	require.NotNil(t, posted.CashTxnID)

	// Stok ve maliyet
	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, flour.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("10")))
	assert.Equal(t, int64(100_00), bp.AvgUnitCost)

	var oilBP models.BranchProduct
	require.NoError(t, db.First(&oilBP, "branch_id = ? AND product_id = ?", branch.ID, oil.ID).Error)
	assert.True(t, oilBP.StockQty.Equal(qty("5")))
	assert.Equal(t, int64(150_00), oilBP.AvgUnitCost)

	// Kasa: toplam 1750 TL çıkış
	var fresh models.MoneyAccount
	require.NoError(t, db.First(&fresh, "id = ?", acc.ID).Error)
	assert.Equal(t, int64(3250_00), fresh.BalanceCache)

	var txn models.CashTransaction
	require.NoError(t, db.First(&txn, "id = ?", *posted.CashTxnID).Error)
	assert.Equal(t, models.DirectionOut, txn.Direction)
	assert.Equal(t, models.TxnTypeImport, txn.TxnType)
	assert.Equal(t, int64(1750_00), txn.Amount)
	assert.Equal(t, models.RefTypeStockImport, txn.RefType)
	require.NotNil(t, txn.RefID)
	assert.Equal(t, si.ID, *txn.RefID)
}

func TestPostStockImportIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	acc := seedAccount(t, db, branch.ID, 2000_00)
	product := seedProduct(t, db, "Pirinç")

	si := seedDraftImport(t, db, branch.ID, &acc.ID)
	addImportItem(t, db, si.ID, product.ID, "8", 800_00)

	actor := superAdmin()
	first, err := PostStockImport(db, si.ID, actor)
	require.NoError(t, err)

	// İkinci POST no-op: stok, kasa ve txn aynı kalır
	second, err := PostStockImport(db, si.ID, actor)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusPosted, second.Status)
	assert.Equal(t, *first.CashTxnID, *second.CashTxnID)

	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, product.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("8")))

	var txnCount int64
	require.NoError(t, db.Model(&models.CashTransaction{}).
		Where("ref_type = ? AND ref_id = ?", models.RefTypeStockImport, si.ID).
		Count(&txnCount).Error)
	assert.Equal(t, int64(1), txnCount)

	var fresh models.MoneyAccount
	require.NoError(t, db.First(&fresh, "id = ?", acc.ID).Error)
	assert.Equal(t, int64(1200_00), fresh.BalanceCache)
}

func TestPostStockImportInsufficientFundsLeavesNothing(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	acc := seedAccount(t, db, branch.ID, 100_00)
	product := seedProduct(t, db, "Kaşar")

	si := seedDraftImport(t, db, branch.ID, &acc.ID)
	addImportItem(t, db, si.ID, product.ID, "2", 500_00)

	_, err := PostStockImport(db, si.ID, superAdmin())
	assert.ErrorIs(t, err, core.ErrInsufficientFunds)

	// Tamamı geri alındı: import DRAFT, stok yok, kasa dokunulmadı
	var fresh models.StockImport
	require.NoError(t, db.First(&fresh, "id = ?", si.ID).Error)
	assert.Equal(t, models.ImportStatusDraft, fresh.Status)
	assert.Nil(t, fresh.CashTxnID)

	var bpCount int64
	require.NoError(t, db.Model(&models.BranchProduct{}).
		Where("product_id = ?", product.ID).Count(&bpCount).Error)
	assert.Equal(t, int64(0), bpCount)

	var freshAcc models.MoneyAccount
	require.NoError(t, db.First(&freshAcc, "id = ?", acc.ID).Error)
	assert.Equal(t, int64(100_00), freshAcc.BalanceCache)
}

func TestPostStockImportWithoutAccountSkipsCash(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Tuz")

	si := seedDraftImport(t, db, branch.ID, nil)
	addImportItem(t, db, si.ID, product.ID, "1", 20_00)

	posted, err := PostStockImport(db, si.ID, superAdmin())
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusPosted, posted.Status)
	assert.Nil(t, posted.CashTxnID)

	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, product.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("1")))
}

func TestPostStockImportEmptyItems(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)

	si := seedDraftImport(t, db, branch.ID, nil)

	_, err := PostStockImport(db, si.ID, superAdmin())
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestPostStockImportCrossBranchAccount(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	otherBranch := seedBranch(t, db)
	foreignAcc := seedAccount(t, db, otherBranch.ID, 10000_00)
	product := seedProduct(t, db, "Yoğurt")

	si := seedDraftImport(t, db, branch.ID, &foreignAcc.ID)
	addImportItem(t, db, si.ID, product.ID, "1", 50_00)

	_, err := PostStockImport(db, si.ID, superAdmin())
	assert.ErrorIs(t, err, core.ErrCrossBranch)
}

func TestPostStockImportScopeEnforced(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	otherBranch := seedBranch(t, db)
	product := seedProduct(t, db, "Biber")

	si := seedDraftImport(t, db, branch.ID, nil)
	addImportItem(t, db, si.ID, product.ID, "1", 10_00)

	outsider := core.Actor{UserID: uuid.New(), Scope: core.ScopeBranch(otherBranch.ID)}
	_, err := PostStockImport(db, si.ID, outsider)
	assert.ErrorIs(t, err, core.ErrForbidden)

	insider := core.Actor{UserID: uuid.New(), Scope: core.ScopeBranch(branch.ID)}
	_, err = PostStockImport(db, si.ID, insider)
	require.NoError(t, err)
}

func TestPostedImportRejectsEdits(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Tuz")

	si := seedDraftImport(t, db, branch.ID, nil)
	addImportItem(t, db, si.ID, product.ID, "2", 40_00)

	_, err := PostStockImport(db, si.ID, superAdmin())
	require.NoError(t, err)

	var posted models.StockImport
	require.NoError(t, db.First(&posted, "id = ?", si.ID).Error)
	assert.ErrorIs(t, posted.EnsureDraft(), core.ErrIllegalState)
}

func TestMutateDraftImportGuardsPostedRow(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Şeker")

	si := seedDraftImport(t, db, branch.ID, nil)
	addImportItem(t, db, si.ID, product.ID, "1", 20_00)

	// Taslakken kilitli satır üzerinden değişiklik geçer
	require.NoError(t, mutateDraftImport(db, si.ID, func(tx *gorm.DB, locked *models.StockImport) error {
		locked.Note = "tedarikçi fişi"
		return tx.Save(locked).Error
	}))

	var fresh models.StockImport
	require.NoError(t, db.First(&fresh, "id = ?", si.ID).Error)
	assert.Equal(t, "tedarikçi fişi", fresh.Note)

	_, err := PostStockImport(db, si.ID, superAdmin())
	require.NoError(t, err)

	// POST sonrası aynı yol durum kontrolünde kesilir, fn hiç çalışmaz
	ran := false
	err = mutateDraftImport(db, si.ID, func(tx *gorm.DB, locked *models.StockImport) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, core.ErrIllegalState)
	assert.False(t, ran)
}
