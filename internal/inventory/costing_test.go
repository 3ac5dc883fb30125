package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.MigrateAll(db))
	return db
}

func seedBranch(t *testing.T, db *gorm.DB) *models.Branch {
	t.Helper()
	branch := models.Branch{Name: "Şube " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&branch).Error)
	return &branch
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	product := models.Product{Name: name + " " + uuid.NewString()[:8], Unit: "kg", IsActive: true}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func qty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestUnitCostRoundsHalfUp(t *testing.T) {
	cases := []struct {
		total int64
		qty   string
		want  int64
	}{
		{1000_00, "10", 100_00},
		{100, "3", 33},     // 33.33 -> 33
		{50, "3", 17},      // 16.67 -> 17
		{25, "2", 13},      // 12.5 -> 13 (half-up)
		{1000_00, "2.5", 400_00},
		{0, "4", 0},
	}

	for _, tc := range cases {
		got, err := UnitCost(tc.total, qty(tc.qty))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "total=%d qty=%s", tc.total, tc.qty)
	}

	_, err := UnitCost(100, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestApplyStockIncreaseWeightedAverage(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Un")

	// İlk giriş: 10 kg, toplam 1000 TL -> birim 100 TL
	require.NoError(t, applyStockIncrease(db, branch.ID, product.ID, qty("10"), 1000_00))

	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, product.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("10")))
	assert.Equal(t, int64(100_00), bp.AvgUnitCost)
	assert.Equal(t, int64(100_00), bp.LastUnitCost)

	// İkinci giriş: 10 kg, birim 200 TL -> ortalama 150 TL'ye harmanlanır
	require.NoError(t, applyStockIncrease(db, branch.ID, product.ID, qty("10"), 2000_00))

	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, product.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("20")))
	assert.Equal(t, int64(150_00), bp.AvgUnitCost)
	assert.Equal(t, int64(200_00), bp.LastUnitCost)
}

func TestApplyStockIncreaseOnDepletedStock(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Süt")

	require.NoError(t, applyStockIncrease(db, branch.ID, product.ID, qty("5"), 500_00))

	_, err := ConsumeStock(db, branch.ID, product.ID, qty("5"))
	require.NoError(t, err)

	// Stok sıfırken ortalama harmanlanmaz, yeni birim maliyet doğrudan geçer
	require.NoError(t, applyStockIncrease(db, branch.ID, product.ID, qty("4"), 1200_00))

	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, product.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("4")))
	assert.Equal(t, int64(300_00), bp.AvgUnitCost)
}

func TestConsumeStockComputesCogsBeforeDecrement(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Kıyma")

	require.NoError(t, applyStockIncrease(db, branch.ID, product.ID, qty("10"), 5000_00))

	cogs, err := ConsumeStock(db, branch.ID, product.ID, qty("2.5"))
	require.NoError(t, err)
	// 2.5 * 500 TL = 1250 TL
	assert.True(t, cogs.Equal(qty("125000")), "cogs=%s", cogs.String())

	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, product.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("7.5")))
	// Tüketim maliyet alanlarına dokunmaz
	assert.Equal(t, int64(500_00), bp.AvgUnitCost)
}

func TestConsumeStockRejectsShortage(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Domates")

	require.NoError(t, applyStockIncrease(db, branch.ID, product.ID, qty("3"), 90_00))

	_, err := ConsumeStock(db, branch.ID, product.ID, qty("3.001"))
	assert.ErrorIs(t, err, core.ErrInsufficientStock)

	// Başarısız düşüm miktarı değiştirmez
	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branch.ID, product.ID).Error)
	assert.True(t, bp.StockQty.Equal(qty("3")))
}

func TestConsumeStockMissingRow(t *testing.T) {
	db := newTestDB(t)
	branch := seedBranch(t, db)
	product := seedProduct(t, db, "Hiç girilmemiş")

	_, err := ConsumeStock(db, branch.ID, product.ID, qty("1"))
	assert.ErrorIs(t, err, core.ErrInsufficientStock)

	_, err = ConsumeStock(db, branch.ID, product.ID, decimal.Zero)
	assert.ErrorIs(t, err, core.ErrValidation)
}
