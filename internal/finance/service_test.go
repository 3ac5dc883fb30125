package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// :memory: bağlantı başına ayrı veritabanı açar; havuzu teke indir
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.MigrateAll(db))
	return db
}

func seedAccount(t *testing.T, db *gorm.DB) *models.MoneyAccount {
	t.Helper()

	branch := models.Branch{Name: "Merkez " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&branch).Error)

	acc := models.MoneyAccount{
		BranchID: branch.ID,
		Name:     "Kasa",
		Kind:     models.AccountKindCash,
		IsActive: true,
	}
	require.NoError(t, db.Create(&acc).Error)
	return &acc
}

func TestRecordCashTxnValidation(t *testing.T) {
	db := newTestDB(t)
	acc := seedAccount(t, db)

	_, err := RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: models.DirectionIn,
		TxnType:   models.TxnTypeSale,
		Amount:    0,
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: "sideways",
		TxnType:   models.TxnTypeSale,
		Amount:    100,
	})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: models.DirectionIn,
		TxnType:   "lottery",
		Amount:    100,
	})
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestRecordCashTxnUpdatesBalanceCache(t *testing.T) {
	db := newTestDB(t)
	acc := seedAccount(t, db)

	_, err := RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: models.DirectionIn,
		TxnType:   models.TxnTypeSale,
		Amount:    150_00,
	})
	require.NoError(t, err)

	_, err = RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: models.DirectionIn,
		TxnType:   models.TxnTypeAdjust,
		Amount:    50_00,
	})
	require.NoError(t, err)

	_, err = RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: models.DirectionOut,
		TxnType:   models.TxnTypeExpense,
		Amount:    30_00,
	})
	require.NoError(t, err)

	var fresh models.MoneyAccount
	require.NoError(t, db.First(&fresh, "id = ?", acc.ID).Error)
	assert.Equal(t, int64(170_00), fresh.BalanceCache)

	// Bakiye cache'i her zaman hareketlerin imzalı toplamına eşit olmalı
	var signedSum int64
	require.NoError(t, db.Model(&models.CashTransaction{}).
		Where("account_id = ?", acc.ID).
		Select("COALESCE(SUM(CASE WHEN direction = 'in' THEN amount ELSE -amount END), 0)").
		Scan(&signedSum).Error)
	assert.Equal(t, signedSum, fresh.BalanceCache)
}

func TestRecalcBalanceRepairsTamperedCache(t *testing.T) {
	db := newTestDB(t)
	acc := seedAccount(t, db)

	_, err := RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: models.DirectionIn,
		TxnType:   models.TxnTypeSale,
		Amount:    500_00,
	})
	require.NoError(t, err)

	// Cache'i dışarıdan boz
	require.NoError(t, db.Model(&models.MoneyAccount{}).
		Where("id = ?", acc.ID).
		Update("balance_cache", int64(999_99)).Error)

	require.NoError(t, RecalcBalance(db, acc.ID))

	var fresh models.MoneyAccount
	require.NoError(t, db.First(&fresh, "id = ?", acc.ID).Error)
	assert.Equal(t, int64(500_00), fresh.BalanceCache)
}

func TestCashTxnCarriesBranchOfAccount(t *testing.T) {
	db := newTestDB(t)
	acc := seedAccount(t, db)

	txn, err := RecordCashTxn(db, RecordCashTxnInput{
		AccountID: acc.ID,
		Direction: models.DirectionIn,
		TxnType:   models.TxnTypeSale,
		Amount:    10_00,
	})
	require.NoError(t, err)
	assert.Equal(t, acc.BranchID, txn.BranchID)
	assert.False(t, txn.OccurredAt.IsZero())
}
