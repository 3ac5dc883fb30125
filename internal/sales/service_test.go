package sales

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

func qty(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func superAdmin() core.Actor {
	return core.Actor{UserID: uuid.New(), Scope: core.ScopeAll()}
}

// fixture: tek şube, kasa, stoklu iki ürün ve reçeteli bir burger.
type fixture struct {
	branch  *models.Branch
	account *models.MoneyAccount
	bread   *models.Product
	meat    *models.Product
	burger  *models.Food
}

func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	branch := models.Branch{Name: "Şube " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&branch).Error)

	account := models.MoneyAccount{
		BranchID: branch.ID,
		Name:     "Kasa",
		Kind:     models.AccountKindCash,
		IsActive: true,
	}
	require.NoError(t, db.Create(&account).Error)

	bread := models.Product{Name: "Ekmek " + uuid.NewString()[:8], Unit: "pcs", IsActive: true}
	require.NoError(t, db.Create(&bread).Error)
	meat := models.Product{Name: "Köfte harcı " + uuid.NewString()[:8], Unit: "kg", IsActive: true}
	require.NoError(t, db.Create(&meat).Error)

	// Stok: 10 ekmek @ 10 TL, 2 kg harç @ 100 TL/kg
	require.NoError(t, db.Create(&models.BranchProduct{
		BranchID: branch.ID, ProductID: bread.ID,
		StockQty: qty("10"), AvgUnitCost: 10_00, LastUnitCost: 10_00,
	}).Error)
	require.NoError(t, db.Create(&models.BranchProduct{
		BranchID: branch.ID, ProductID: meat.ID,
		StockQty: qty("2"), AvgUnitCost: 100_00, LastUnitCost: 100_00,
	}).Error)

	burger := models.Food{
		BranchID:  branch.ID,
		Type:      models.FoodTypeFastfood,
		Name:      "Burger " + uuid.NewString()[:8],
		SellPrice: 350_00,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&burger).Error)
	require.NoError(t, db.Create(&models.FoodItem{FoodID: burger.ID, ProductID: bread.ID, Qty: qty("1")}).Error)
	require.NoError(t, db.Create(&models.FoodItem{FoodID: burger.ID, ProductID: meat.ID, Qty: qty("0.15")}).Error)

	return &fixture{branch: &branch, account: &account, bread: &bread, meat: &meat, burger: &burger}
}

func branchQty(t *testing.T, db *gorm.DB, branchID, productID uuid.UUID) decimal.Decimal {
	t.Helper()
	var bp models.BranchProduct
	require.NoError(t, db.First(&bp, "branch_id = ? AND product_id = ?", branchID, productID).Error)
	return bp.StockQty
}

func TestOrderCompletionScenario(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDraft, order.Status)

	// 2 burger: toplam 700 TL
	_, err = AddItem(db, order.ID, f.burger.ID, 2, actor)
	require.NoError(t, err)

	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.Equal(t, int64(700_00), order.TotalAmount)

	// Tam ödeme: PAID + kasa girişi
	payment, err := PayOrder(db, order.ID, f.account.ID, 700_00, "", actor)
	require.NoError(t, err)
	require.NotNil(t, payment.CashTxnID)

	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(700_00), order.PaidAmount)
	assert.False(t, order.IsLocked, "teslim edilmeden kilitlenmez")

	var acc models.MoneyAccount
	require.NoError(t, db.First(&acc, "id = ?", f.account.ID).Error)
	assert.Equal(t, int64(700_00), acc.BalanceCache)

	var txn models.CashTransaction
	require.NoError(t, db.First(&txn, "id = ?", *payment.CashTxnID).Error)
	assert.Equal(t, models.DirectionIn, txn.Direction)
	assert.Equal(t, models.TxnTypeSale, txn.TxnType)
	assert.Equal(t, models.RefTypeOrderPayment, txn.RefType)

	// Teslim: stok düşer, COGS snapshot alınır, sipariş kilitlenir
	_, err = MarkDelivered(db, order.ID, actor)
	require.NoError(t, err)

	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.True(t, order.IsDelivered)
	assert.True(t, order.StockApplied)
	assert.True(t, order.IsLocked)
	// COGS: 2 x (1 ekmek x 10 TL + 0.15 kg x 100 TL) = 2 x 25 TL
	assert.Equal(t, int64(50_00), order.CogsAmount)
	assert.Equal(t, int64(650_00), order.ProfitAmount)

	assert.True(t, branchQty(t, db, f.branch.ID, f.bread.ID).Equal(qty("8")))
	assert.True(t, branchQty(t, db, f.branch.ID, f.meat.ID).Equal(qty("1.7")))

	// Kilitli siparişte hiçbir mutasyon geçmez
	_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
	assert.ErrorIs(t, err, core.ErrIllegalState)
	_, err = PayOrder(db, order.ID, f.account.ID, 100_00, "", actor)
	assert.ErrorIs(t, err, core.ErrIllegalState)
	_, err = CancelOrder(db, order.ID, actor)
	assert.ErrorIs(t, err, core.ErrIllegalState)
}

func TestAddItemMergesAndKeepsPriceSnapshot(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)

	first, err := AddItem(db, order.ID, f.burger.ID, 1, actor)
	require.NoError(t, err)
	assert.Equal(t, int64(350_00), first.UnitPrice)

	// Menü fiyatı değişse de mevcut satırın snapshot'ı korunur
	require.NoError(t, db.Model(&models.Food{}).
		Where("id = ?", f.burger.ID).Update("sell_price", int64(400_00)).Error)

	merged, err := AddItem(db, order.ID, f.burger.ID, 2, actor)
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID, "aynı food için satır çoğalmaz")
	assert.Equal(t, 3, merged.Qty)
	assert.Equal(t, int64(350_00), merged.UnitPrice)
	assert.Equal(t, int64(1050_00), merged.LineTotal)

	var itemCount int64
	require.NoError(t, db.Model(&models.OrderItem{}).
		Where("order_id = ?", order.ID).Count(&itemCount).Error)
	assert.Equal(t, int64(1), itemCount)
}

func TestPayOrderPartialAndOverpay(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)
	_, err = AddItem(db, order.ID, f.burger.ID, 2, actor)
	require.NoError(t, err)

	// Kalemsiz/borçtan fazla ödeme reddedilir
	_, err = PayOrder(db, order.ID, f.account.ID, 800_00, "", actor)
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = PayOrder(db, order.ID, f.account.ID, 0, "", actor)
	assert.ErrorIs(t, err, core.ErrValidation)

	// Kısmi ödeme DRAFT bırakır
	_, err = PayOrder(db, order.ID, f.account.ID, 300_00, "", actor)
	require.NoError(t, err)
	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusDraft, order.Status)
	assert.Equal(t, int64(300_00), order.PaidAmount)

	// Kalan 400'den fazlası yine reddedilir
	_, err = PayOrder(db, order.ID, f.account.ID, 400_01, "", actor)
	assert.ErrorIs(t, err, core.ErrValidation)

	// Kalanın tamamı: PAID
	_, err = PayOrder(db, order.ID, f.account.ID, 400_00, "", actor)
	require.NoError(t, err)
	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	// PAID siparişe ilave ödeme yazılmaz
	_, err = PayOrder(db, order.ID, f.account.ID, 1_00, "", actor)
	assert.ErrorIs(t, err, core.ErrIllegalState)

	var acc models.MoneyAccount
	require.NoError(t, db.First(&acc, "id = ?", f.account.ID).Error)
	assert.Equal(t, int64(700_00), acc.BalanceCache)
}

func TestMarkDeliveredIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)
	_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
	require.NoError(t, err)

	_, err = MarkDelivered(db, order.ID, actor)
	require.NoError(t, err)
	_, err = MarkDelivered(db, order.ID, actor)
	require.NoError(t, err)

	// Stok yalnızca bir kez düştü
	assert.True(t, branchQty(t, db, f.branch.ID, f.bread.ID).Equal(qty("9")))
	assert.True(t, branchQty(t, db, f.branch.ID, f.meat.ID).Equal(qty("1.85")))
}

func TestMarkDeliveredHealsSkippedStock(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)
	_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
	require.NoError(t, err)

	// Yarım kalmış teslim: bayrak atılmış ama stok düşmemiş
	require.NoError(t, db.Model(order).Update("is_delivered", true).Error)

	_, err = MarkDelivered(db, order.ID, actor)
	require.NoError(t, err)

	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.True(t, order.StockApplied)
	assert.True(t, branchQty(t, db, f.branch.ID, f.bread.ID).Equal(qty("9")))
}

func TestMarkDeliveredInsufficientStockRollsBack(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)
	// 20 burger için 20 ekmek gerekir, stokta 10 var
	_, err = AddItem(db, order.ID, f.burger.ID, 20, actor)
	require.NoError(t, err)

	_, err = MarkDelivered(db, order.ID, actor)
	assert.ErrorIs(t, err, core.ErrInsufficientStock)

	// Teslim bayrağı dahil her şey geri alındı
	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.False(t, order.IsDelivered)
	assert.False(t, order.StockApplied)
	assert.True(t, branchQty(t, db, f.branch.ID, f.bread.ID).Equal(qty("10")))
	assert.True(t, branchQty(t, db, f.branch.ID, f.meat.ID).Equal(qty("2")))
}

func TestDeliverThenPayLocksOrder(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)
	_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
	require.NoError(t, err)

	_, err = MarkDelivered(db, order.ID, actor)
	require.NoError(t, err)

	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.True(t, order.IsDelivered)
	assert.False(t, order.IsLocked, "ödeme tamamlanmadan kilitlenmez")

	// Teslimden sonra kalem düzenlenemez ama ödeme alınabilir
	_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
	assert.ErrorIs(t, err, core.ErrIllegalState)

	_, err = PayOrder(db, order.ID, f.account.ID, 350_00, "", actor)
	require.NoError(t, err)

	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.True(t, order.IsLocked)
}

func TestCancelOrderRules(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	t.Run("ödemesiz DRAFT iptal edilir", func(t *testing.T) {
		order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
		require.NoError(t, err)
		_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
		require.NoError(t, err)

		canceled, err := CancelOrder(db, order.ID, actor)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusCanceled, canceled.Status)

		// İptal edilmiş sipariş ne ödenir ne teslim edilir ne düzenlenir
		_, err = PayOrder(db, order.ID, f.account.ID, 350_00, "", actor)
		assert.ErrorIs(t, err, core.ErrIllegalState)
		_, err = MarkDelivered(db, order.ID, actor)
		assert.ErrorIs(t, err, core.ErrIllegalState)
		_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
		assert.ErrorIs(t, err, core.ErrIllegalState)
	})

	t.Run("ödemesi olan sipariş iptal edilemez", func(t *testing.T) {
		order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
		require.NoError(t, err)
		_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
		require.NoError(t, err)
		_, err = PayOrder(db, order.ID, f.account.ID, 100_00, "", actor)
		require.NoError(t, err)

		_, err = CancelOrder(db, order.ID, actor)
		assert.ErrorIs(t, err, core.ErrIllegalState)
	})

	t.Run("teslim edilmiş sipariş iptal edilemez", func(t *testing.T) {
		order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
		require.NoError(t, err)
		_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
		require.NoError(t, err)
		_, err = MarkDelivered(db, order.ID, actor)
		require.NoError(t, err)

		_, err = CancelOrder(db, order.ID, actor)
		assert.ErrorIs(t, err, core.ErrIllegalState)
	})
}

func TestCrossBranchRules(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	otherBranch := models.Branch{Name: "Diğer Şube " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&otherBranch).Error)
	foreignAccount := models.MoneyAccount{
		BranchID: otherBranch.ID, Name: "Kasa", Kind: models.AccountKindCash, IsActive: true,
	}
	require.NoError(t, db.Create(&foreignAccount).Error)
	foreignFood := models.Food{
		BranchID: otherBranch.ID, Type: models.FoodTypeFastfood,
		Name: "Dürüm " + uuid.NewString()[:8], SellPrice: 120_00, IsActive: true,
	}
	require.NoError(t, db.Create(&foreignFood).Error)

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)

	_, err = AddItem(db, order.ID, foreignFood.ID, 1, actor)
	assert.ErrorIs(t, err, core.ErrCrossBranch)

	_, err = AddItem(db, order.ID, f.burger.ID, 1, actor)
	require.NoError(t, err)

	_, err = PayOrder(db, order.ID, foreignAccount.ID, 350_00, "", actor)
	assert.ErrorIs(t, err, core.ErrCrossBranch)
}

func TestBranchScopeEnforced(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	otherBranch := models.Branch{Name: "Diğer Şube " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&otherBranch).Error)
	outsider := core.Actor{UserID: uuid.New(), Scope: core.ScopeBranch(otherBranch.ID)}

	_, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, outsider)
	assert.ErrorIs(t, err, core.ErrForbidden)

	insider := core.Actor{UserID: uuid.New(), Scope: core.ScopeBranch(f.branch.ID)}
	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, insider)
	require.NoError(t, err)

	_, err = AddItem(db, order.ID, f.burger.ID, 1, outsider)
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = MarkDelivered(db, order.ID, outsider)
	assert.ErrorIs(t, err, core.ErrForbidden)
	_, err = CancelOrder(db, order.ID, outsider)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRemoveItemRecalculatesTotal(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)
	actor := superAdmin()

	order, err := CreateOrder(db, CreateOrderInput{BranchID: f.branch.ID}, actor)
	require.NoError(t, err)
	item, err := AddItem(db, order.ID, f.burger.ID, 2, actor)
	require.NoError(t, err)

	require.NoError(t, RemoveItem(db, order.ID, item.ID, actor))

	require.NoError(t, db.First(order, "id = ?", order.ID).Error)
	assert.Equal(t, int64(0), order.TotalAmount)
}
