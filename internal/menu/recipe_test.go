package menu

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

type fixture struct {
	branch *models.Branch
	bread  *models.Product
	meat   *models.Product
	cola   *models.Product
}

func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	branch := models.Branch{Name: "Şube " + uuid.NewString()[:8]}
	require.NoError(t, db.Create(&branch).Error)

	f := &fixture{branch: &branch}
	for _, p := range []struct {
		dst  **models.Product
		name string
		unit string
	}{
		{&f.bread, "Ekmek", "pcs"},
		{&f.meat, "Köfte harcı", "kg"},
		{&f.cola, "Kola şişe", "pcs"},
	} {
		product := models.Product{Name: p.name + " " + uuid.NewString()[:8], Unit: p.unit, IsActive: true}
		require.NoError(t, db.Create(&product).Error)
		*p.dst = &product
	}
	return f
}

func seedFood(t *testing.T, db *gorm.DB, branchID uuid.UUID, name string, foodType models.FoodType, price int64) *models.Food {
	t.Helper()
	food := models.Food{
		BranchID:  branchID,
		Type:      foodType,
		Name:      name + " " + uuid.NewString()[:8],
		SellPrice: price,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&food).Error)
	return &food
}

func addRecipeLine(t *testing.T, db *gorm.DB, foodID, productID uuid.UUID, q string) {
	t.Helper()
	require.NoError(t, db.Create(&models.FoodItem{
		FoodID:    foodID,
		ProductID: productID,
		Qty:       qty(q),
	}).Error)
}

func linesByProduct(lines []RecipeLine) map[uuid.UUID]decimal.Decimal {
	m := make(map[uuid.UUID]decimal.Decimal, len(lines))
	for _, l := range lines {
		if cur, ok := m[l.ProductID]; ok {
			m[l.ProductID] = cur.Add(l.Qty)
			continue
		}
		m[l.ProductID] = l.Qty
	}
	return m
}

func TestResolveRecipeScalesDirectLines(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	burger := seedFood(t, db, f.branch.ID, "Burger", models.FoodTypeFastfood, 150_00)
	addRecipeLine(t, db, burger.ID, f.bread.ID, "1")
	addRecipeLine(t, db, burger.ID, f.meat.ID, "0.12")

	lines, err := ResolveRecipe(db, burger, 3)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	byProduct := linesByProduct(lines)
	assert.True(t, byProduct[f.bread.ID].Equal(qty("3")))
	assert.True(t, byProduct[f.meat.ID].Equal(qty("0.36")))
}

func TestResolveRecipeExpandsSetOneLevel(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	burger := seedFood(t, db, f.branch.ID, "Burger", models.FoodTypeFastfood, 150_00)
	addRecipeLine(t, db, burger.ID, f.bread.ID, "1")
	addRecipeLine(t, db, burger.ID, f.meat.ID, "0.12")

	cola := seedFood(t, db, f.branch.ID, "Kola", models.FoodTypeDrink, 40_00)
	addRecipeLine(t, db, cola.ID, f.cola.ID, "1")

	combo := seedFood(t, db, f.branch.ID, "Burger Menü", models.FoodTypeSet, 180_00)
	require.NoError(t, db.Create(&models.SetItem{SetFoodID: combo.ID, FoodID: burger.ID, Qty: 1}).Error)
	require.NoError(t, db.Create(&models.SetItem{SetFoodID: combo.ID, FoodID: cola.ID, Qty: 2}).Error)

	// 2 menü: 2 burger + 4 kola
	lines, err := ResolveRecipe(db, combo, 2)
	require.NoError(t, err)

	byProduct := linesByProduct(lines)
	assert.True(t, byProduct[f.bread.ID].Equal(qty("2")))
	assert.True(t, byProduct[f.meat.ID].Equal(qty("0.24")))
	assert.True(t, byProduct[f.cola.ID].Equal(qty("4")))
}

func TestResolveRecipeEmptySetRejected(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	combo := seedFood(t, db, f.branch.ID, "Boş Menü", models.FoodTypeSet, 100_00)

	_, err := ResolveRecipe(db, combo, 1)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestResolveRecipeNestedSetRejected(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	inner := seedFood(t, db, f.branch.ID, "İç Menü", models.FoodTypeSet, 100_00)
	outer := seedFood(t, db, f.branch.ID, "Dış Menü", models.FoodTypeSet, 200_00)
	require.NoError(t, db.Create(&models.SetItem{SetFoodID: outer.ID, FoodID: inner.ID, Qty: 1}).Error)

	_, err := ResolveRecipe(db, outer, 1)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestResolveRecipeEmptyDirectRecipeIsEmptyLines(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	// Reçetesiz içecek satılabilir, stok düşümü boş kümedir
	water := seedFood(t, db, f.branch.ID, "Su", models.FoodTypeDrink, 10_00)

	lines, err := ResolveRecipe(db, water, 5)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestResolveRecipeInvalidMultiplier(t *testing.T) {
	db := newTestDB(t)
	f := seedFixture(t, db)

	burger := seedFood(t, db, f.branch.ID, "Burger", models.FoodTypeFastfood, 150_00)

	_, err := ResolveRecipe(db, burger, 0)
	assert.ErrorIs(t, err, core.ErrValidation)
}
