package inventory

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

type ProductResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Unit     string    `json:"unit"`
	SKU      *string   `json:"sku"`
	Barcode  *string   `json:"barcode"`
	IsActive bool      `json:"is_active"`
}

type CreateProductRequest struct {
	Name    string  `json:"name"`
	Unit    string  `json:"unit"`
	SKU     *string `json:"sku"`
	Barcode *string `json:"barcode"`
}

type UpdateProductRequest struct {
	Name     *string `json:"name"`
	Unit     *string `json:"unit"`
	SKU      *string `json:"sku"`
	Barcode  *string `json:"barcode"`
	IsActive *bool   `json:"is_active"`
}

var validUnits = map[string]bool{
	"pcs": true, "kg": true, "gr": true, "l": true, "ml": true,
}

func productResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:       p.ID,
		Name:     p.Name,
		Unit:     p.Unit,
		SKU:      p.SKU,
		Barcode:  p.Barcode,
		IsActive: p.IsActive,
	}
}

// boş string gelen kodu nil'e çevirir, unique index boş değerlerle çakışmasın
func normalizeCode(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün adı boş olamaz")
		}
		if !validUnits[body.Unit] {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz birim (pcs|kg|gr|l|ml)")
		}

		product := models.Product{
			Name:     body.Name,
			Unit:     body.Unit,
			SKU:      normalizeCode(body.SKU),
			Barcode:  normalizeCode(body.Barcode),
			IsActive: true,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Ürün oluşturulamadı (isim/sku/barkod kullanımda olabilir)")
		}

		return c.Status(fiber.StatusCreated).JSON(productResponse(&product))
	}
}

func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Product{})

		if q := strings.TrimSpace(c.Query("q")); q != "" {
			dbq = dbq.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
		if c.Query("include_inactive") != "true" {
			dbq = dbq.Where("is_active = ?", true)
		}

		var products []models.Product
		if err := dbq.Order("name").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}

		res := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			res = append(res, productResponse(&p))
		}

		return c.JSON(res)
	}
}

func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Ürün adı boş olamaz")
			}
			product.Name = name
		}
		if body.Unit != nil {
			if !validUnits[*body.Unit] {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz birim (pcs|kg|gr|l|ml)")
			}
			product.Unit = *body.Unit
		}
		if body.SKU != nil {
			product.SKU = normalizeCode(body.SKU)
		}
		if body.Barcode != nil {
			product.Barcode = normalizeCode(body.Barcode)
		}
		if body.IsActive != nil {
			product.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Ürün güncellenemedi")
		}

		return c.JSON(productResponse(&product))
	}
}

func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}

		// Stok hareketi görmüş ürün silinmez, pasife alınır
		var refCount int64
		database.DB.Model(&models.BranchProduct{}).Where("product_id = ?", product.ID).Count(&refCount)
		if refCount == 0 {
			database.DB.Model(&models.StockImportItem{}).Where("product_id = ?", product.ID).Count(&refCount)
		}
		if refCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Stok geçmişi olan ürün silinemez, pasife alın")
		}

		if err := database.DB.Delete(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
