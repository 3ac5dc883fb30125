package menu

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

func validFoodType(t models.FoodType) bool {
	switch t {
	case models.FoodTypeFastfood, models.FoodTypeDrink, models.FoodTypeSet:
		return true
	}
	return false
}

// scopedFood: food'u yükler ve aktör kapsamını doğrular.
func scopedFood(c *fiber.Ctx, id string) (*models.Food, error) {
	var food models.Food
	if err := database.DB.First(&food, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Menü kalemi bulunamadı")
	}

	actor, err := auth.ActorFromCtx(c)
	if err != nil {
		return nil, err
	}
	if !actor.Scope.CanAccessBranch(food.BranchID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "Bu menü kalemi başka bir şubeye ait")
	}

	return &food, nil
}

// ----------------------------------------
// KATEGORİLER
// ----------------------------------------

type CategoryRequest struct {
	BranchID  *uuid.UUID      `json:"branch_id"`
	Type      models.FoodType `json:"type"`
	Name      string          `json:"name"`
	SortOrder int             `json:"sort_order"`
}

type CategoryResponse struct {
	ID        uuid.UUID       `json:"id"`
	BranchID  uuid.UUID       `json:"branch_id"`
	Type      models.FoodType `json:"type"`
	Name      string          `json:"name"`
	SortOrder int             `json:"sort_order"`
	IsActive  bool            `json:"is_active"`
}

func categoryResponse(fc *models.FoodCategory) CategoryResponse {
	return CategoryResponse{
		ID:        fc.ID,
		BranchID:  fc.BranchID,
		Type:      fc.Type,
		Name:      fc.Name,
		SortOrder: fc.SortOrder,
		IsActive:  fc.IsActive,
	}
}

func CreateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CategoryRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		branchID, err := auth.ResolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Kategori adı boş olamaz")
		}
		if body.Type == "" {
			body.Type = models.FoodTypeFastfood
		}
		if !validFoodType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz tür (FASTFOOD|DRINK|SET)")
		}

		category := models.FoodCategory{
			BranchID:  branchID,
			Type:      body.Type,
			Name:      body.Name,
			SortOrder: body.SortOrder,
			IsActive:  true,
		}
		if err := database.DB.Create(&category).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Kategori oluşturulamadı (aynı isim olabilir)")
		}

		return c.Status(fiber.StatusCreated).JSON(categoryResponse(&category))
	}
}

func ListCategoriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("branch_id = ?", branchID)
		if t := c.Query("type"); t != "" {
			dbq = dbq.Where("type = ?", t)
		}

		var categories []models.FoodCategory
		if err := dbq.Order("sort_order, name").Find(&categories).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategoriler listelenemedi")
		}

		res := make([]CategoryResponse, 0, len(categories))
		for i := range categories {
			res = append(res, categoryResponse(&categories[i]))
		}

		return c.JSON(res)
	}
}

func UpdateCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var category models.FoodCategory
		if err := database.DB.First(&category, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if !actor.Scope.CanAccessBranch(category.BranchID) {
			return fiber.NewError(fiber.StatusForbidden, "Bu kategori başka bir şubeye ait")
		}

		var body struct {
			Name      *string `json:"name"`
			SortOrder *int    `json:"sort_order"`
			IsActive  *bool   `json:"is_active"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Kategori adı boş olamaz")
			}
			category.Name = name
		}
		if body.SortOrder != nil {
			category.SortOrder = *body.SortOrder
		}
		if body.IsActive != nil {
			category.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&category).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Kategori güncellenemedi")
		}

		return c.JSON(categoryResponse(&category))
	}
}

func DeleteCategoryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var category models.FoodCategory
		if err := database.DB.First(&category, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Kategori bulunamadı")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if !actor.Scope.CanAccessBranch(category.BranchID) {
			return fiber.NewError(fiber.StatusForbidden, "Bu kategori başka bir şubeye ait")
		}

		var foodCount int64
		database.DB.Model(&models.Food{}).Where("category_id = ?", category.ID).Count(&foodCount)
		if foodCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Menü kalemi olan kategori silinemez")
		}

		if err := database.DB.Delete(&category).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kategori silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// MENÜ KALEMLERİ
// ----------------------------------------

type CreateFoodRequest struct {
	BranchID   *uuid.UUID      `json:"branch_id"`
	Type       models.FoodType `json:"type"`
	CategoryID *uuid.UUID      `json:"category_id"`
	Name       string          `json:"name"`
	SellPrice  int64           `json:"sell_price"` // kuruş
	SortOrder  int             `json:"sort_order"`
}

type FoodResponse struct {
	ID         uuid.UUID       `json:"id"`
	BranchID   uuid.UUID       `json:"branch_id"`
	Type       models.FoodType `json:"type"`
	CategoryID *uuid.UUID      `json:"category_id"`
	Name       string          `json:"name"`
	SellPrice  int64           `json:"sell_price"`
	SortOrder  int             `json:"sort_order"`
	IsActive   bool            `json:"is_active"`
}

func foodResponse(f *models.Food) FoodResponse {
	return FoodResponse{
		ID:         f.ID,
		BranchID:   f.BranchID,
		Type:       f.Type,
		CategoryID: f.CategoryID,
		Name:       f.Name,
		SellPrice:  f.SellPrice,
		SortOrder:  f.SortOrder,
		IsActive:   f.IsActive,
	}
}

// validateCategory: kategori food ile aynı şube ve aynı türde olmalı.
func validateCategory(branchID uuid.UUID, foodType models.FoodType, categoryID uuid.UUID) error {
	var category models.FoodCategory
	if err := database.DB.First(&category, "id = ?", categoryID).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Kategori bulunamadı")
	}
	if category.BranchID != branchID {
		return fiber.NewError(fiber.StatusBadRequest, "Kategori başka bir şubeye ait")
	}
	if category.Type != foodType {
		return fiber.NewError(fiber.StatusBadRequest, "Kategori türü menü kaleminin türüyle uyuşmuyor")
	}
	return nil
}

func CreateFoodHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateFoodRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		branchID, err := auth.ResolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Menü kalemi adı boş olamaz")
		}
		if body.Type == "" {
			body.Type = models.FoodTypeFastfood
		}
		if !validFoodType(body.Type) {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz tür (FASTFOOD|DRINK|SET)")
		}
		if body.SellPrice < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Satış fiyatı negatif olamaz")
		}
		if body.CategoryID != nil {
			if err := validateCategory(branchID, body.Type, *body.CategoryID); err != nil {
				return err
			}
		}

		food := models.Food{
			BranchID:   branchID,
			Type:       body.Type,
			CategoryID: body.CategoryID,
			Name:       body.Name,
			SellPrice:  body.SellPrice,
			SortOrder:  body.SortOrder,
			IsActive:   true,
		}
		if err := database.DB.Create(&food).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Menü kalemi oluşturulamadı (aynı isim olabilir)")
		}

		return c.Status(fiber.StatusCreated).JSON(foodResponse(&food))
	}
}

func ListFoodsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Where("branch_id = ?", branchID)
		if t := c.Query("type"); t != "" {
			dbq = dbq.Where("type = ?", t)
		}
		if cat := c.Query("category_id"); cat != "" {
			dbq = dbq.Where("category_id = ?", cat)
		}
		if c.Query("include_inactive") != "true" {
			dbq = dbq.Where("is_active = ?", true)
		}

		var foods []models.Food
		if err := dbq.Order("sort_order, name").Find(&foods).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menü listelenemedi")
		}

		res := make([]FoodResponse, 0, len(foods))
		for i := range foods {
			res = append(res, foodResponse(&foods[i]))
		}

		return c.JSON(res)
	}
}

func UpdateFoodHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		food, err := scopedFood(c, c.Params("id"))
		if err != nil {
			return err
		}

		var body struct {
			Name       *string    `json:"name"`
			CategoryID *uuid.UUID `json:"category_id"`
			SellPrice  *int64     `json:"sell_price"`
			SortOrder  *int       `json:"sort_order"`
			IsActive   *bool      `json:"is_active"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Menü kalemi adı boş olamaz")
			}
			food.Name = name
		}
		if body.CategoryID != nil {
			if err := validateCategory(food.BranchID, food.Type, *body.CategoryID); err != nil {
				return err
			}
			food.CategoryID = body.CategoryID
		}
		if body.SellPrice != nil {
			if *body.SellPrice < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Satış fiyatı negatif olamaz")
			}
			food.SellPrice = *body.SellPrice
		}
		if body.SortOrder != nil {
			food.SortOrder = *body.SortOrder
		}
		if body.IsActive != nil {
			food.IsActive = *body.IsActive
		}

		if err := database.DB.Save(food).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Menü kalemi güncellenemedi")
		}

		return c.JSON(foodResponse(food))
	}
}

func DeleteFoodHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		food, err := scopedFood(c, c.Params("id"))
		if err != nil {
			return err
		}

		// Sipariş geçmişi veya set bağı olan food silinmez, pasife alınır
		var refCount int64
		database.DB.Model(&models.OrderItem{}).Where("food_id = ?", food.ID).Count(&refCount)
		if refCount == 0 {
			database.DB.Model(&models.SetItem{}).Where("food_id = ?", food.ID).Count(&refCount)
		}
		if refCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Kullanımda olan menü kalemi silinemez, pasife alın")
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("food_id = ?", food.ID).Delete(&models.FoodItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("set_food_id = ?", food.ID).Delete(&models.SetItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(food).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Menü kalemi silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// REÇETE (FoodItem)
// ----------------------------------------

type RecipeLineRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Qty       decimal.Decimal `json:"qty"`
}

type RecipeLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Qty         decimal.Decimal `json:"qty"`
}

// GET /api/foods/:id/recipe
func GetRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		food, err := scopedFood(c, c.Params("id"))
		if err != nil {
			return err
		}

		var items []models.FoodItem
		if err := database.DB.Preload("Product").
			Where("food_id = ?", food.ID).Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Reçete okunamadı")
		}

		res := make([]RecipeLineResponse, 0, len(items))
		for _, it := range items {
			res = append(res, RecipeLineResponse{
				ID:          it.ID,
				ProductID:   it.ProductID,
				ProductName: it.Product.Name,
				Unit:        it.Product.Unit,
				Qty:         it.Qty,
			})
		}

		return c.JSON(res)
	}
}

// PUT /api/foods/:id/recipe  (reçeteyi komple değiştirir)
func ReplaceRecipeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		food, err := scopedFood(c, c.Params("id"))
		if err != nil {
			return err
		}

		// SET food'un reçetesi yoktur, içeriği SetItem ile kurulur
		if food.Type == models.FoodTypeSet {
			return fiber.NewError(fiber.StatusBadRequest, "SET menüye reçete yazılamaz, bileşen ekleyin")
		}

		var body []RecipeLineRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		seen := map[uuid.UUID]bool{}
		for _, line := range body {
			if seen[line.ProductID] {
				return fiber.NewError(fiber.StatusBadRequest, "Aynı ürün reçetede iki kez olamaz")
			}
			seen[line.ProductID] = true
			if !line.Qty.IsPositive() {
				return fiber.NewError(fiber.StatusBadRequest, "Miktar 0'dan büyük olmalı")
			}
			var product models.Product
			if err := database.DB.First(&product, "id = ?", line.ProductID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Ürün bulunamadı: "+line.ProductID.String())
			}
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("food_id = ?", food.ID).Delete(&models.FoodItem{}).Error; err != nil {
				return err
			}
			for _, line := range body {
				item := models.FoodItem{
					FoodID:    food.ID,
					ProductID: line.ProductID,
					Qty:       line.Qty,
				}
				if err := tx.Create(&item).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Reçete kaydedilemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// SET BİLEŞENLERİ (SetItem)
// ----------------------------------------

type SetItemRequest struct {
	FoodID uuid.UUID `json:"food_id"`
	Qty    int       `json:"qty"`
}

type SetItemResponse struct {
	ID       uuid.UUID `json:"id"`
	FoodID   uuid.UUID `json:"food_id"`
	FoodName string    `json:"food_name"`
	Qty      int       `json:"qty"`
}

// GET /api/foods/:id/set-items
func ListSetItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		food, err := scopedFood(c, c.Params("id"))
		if err != nil {
			return err
		}

		var items []models.SetItem
		if err := database.DB.Preload("Food").
			Where("set_food_id = ?", food.ID).Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bileşenler okunamadı")
		}

		res := make([]SetItemResponse, 0, len(items))
		for _, it := range items {
			res = append(res, SetItemResponse{
				ID:       it.ID,
				FoodID:   it.FoodID,
				FoodName: it.Food.Name,
				Qty:      it.Qty,
			})
		}

		return c.JSON(res)
	}
}

// POST /api/foods/:id/set-items
func AddSetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		food, err := scopedFood(c, c.Params("id"))
		if err != nil {
			return err
		}
		if food.Type != models.FoodTypeSet {
			return fiber.NewError(fiber.StatusBadRequest, "Bileşen yalnızca SET menüye eklenebilir")
		}

		var body SetItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}
		if body.Qty < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Adet en az 1 olmalı")
		}

		var component models.Food
		if err := database.DB.First(&component, "id = ?", body.FoodID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Bileşen menü kalemi bulunamadı")
		}
		// Tek seviye kompozisyon: set içine set konulamaz
		if component.Type == models.FoodTypeSet {
			return fiber.NewError(fiber.StatusBadRequest, "SET içine SET eklenemez")
		}
		if component.BranchID != food.BranchID {
			return fiber.NewError(fiber.StatusBadRequest, "Bileşen başka bir şubeye ait")
		}

		item := models.SetItem{
			SetFoodID: food.ID,
			FoodID:    component.ID,
			Qty:       body.Qty,
		}
		if err := database.DB.Create(&item).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Bileşen eklenemedi (zaten listede olabilir)")
		}

		return c.Status(fiber.StatusCreated).JSON(SetItemResponse{
			ID:       item.ID,
			FoodID:   item.FoodID,
			FoodName: component.Name,
			Qty:      item.Qty,
		})
	}
}

// DELETE /api/foods/:id/set-items/:itemID
func DeleteSetItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		food, err := scopedFood(c, c.Params("id"))
		if err != nil {
			return err
		}

		res := database.DB.Where("id = ? AND set_food_id = ?", c.Params("itemID"), food.ID).
			Delete(&models.SetItem{})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bileşen silinemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Bileşen bulunamadı")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
