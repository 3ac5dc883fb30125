package menu

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
	"lokanta-backend/internal/models"
)

// RecipeLine: bir satış kaleminin stoktan düşeceği somut ürün ihtiyacı.
type RecipeLine struct {
	ProductID uuid.UUID
	Qty       decimal.Decimal
}

// ResolveRecipe: satılan food'u çarpanla birlikte (ürün, miktar) çiftlerine
// açar. Yan etkisizdir, stoka dokunmaz.
//
// FASTFOOD/DRINK: kendi reçete satırları çarpanla ölçeklenir.
// SET: her bileşen food, çarpan x bileşen adedi ile açılır; bileşenler veri
// kuralı gereği SET olamayacağı için açılım tek seviyede biter.
func ResolveRecipe(db *gorm.DB, food *models.Food, multiplier int) ([]RecipeLine, error) {
	if multiplier <= 0 {
		return nil, core.Validationf("çarpan 0'dan büyük olmalı")
	}

	switch food.Type {
	case models.FoodTypeFastfood, models.FoodTypeDrink:
		return directLines(db, food.ID, decimal.NewFromInt(int64(multiplier)))

	case models.FoodTypeSet:
		var components []models.SetItem
		if err := db.Preload("Food").Where("set_food_id = ?", food.ID).Find(&components).Error; err != nil {
			return nil, err
		}
		if len(components) == 0 {
			return nil, core.Validationf("set içeriği boş: %s", food.Name)
		}

		var lines []RecipeLine
		for _, comp := range components {
			if comp.Food.Type == models.FoodTypeSet {
				return nil, core.Validationf("set içinde set olamaz: %s", comp.Food.Name)
			}
			sub, err := directLines(db, comp.FoodID, decimal.NewFromInt(int64(multiplier*comp.Qty)))
			if err != nil {
				return nil, err
			}
			lines = append(lines, sub...)
		}
		return lines, nil

	default:
		return nil, core.Validationf("stok düşümü için desteklenmeyen food tipi: %s", food.Type)
	}
}

func directLines(db *gorm.DB, foodID uuid.UUID, multiplier decimal.Decimal) ([]RecipeLine, error) {
	var items []models.FoodItem
	if err := db.Where("food_id = ?", foodID).Find(&items).Error; err != nil {
		return nil, err
	}

	lines := make([]RecipeLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, RecipeLine{
			ProductID: it.ProductID,
			Qty:       it.Qty.Mul(multiplier),
		})
	}
	return lines, nil
}
