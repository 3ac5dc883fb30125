package inventory

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lokanta-backend/internal/audit"
	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/logger"
	"lokanta-backend/internal/models"
)

type CreateImportRequest struct {
	BranchID          *uuid.UUID `json:"branch_id"` // super_admin için zorunlu
	Note              string     `json:"note"`
	PaidFromAccountID *uuid.UUID `json:"paid_from_account_id"`
}

type UpdateImportRequest struct {
	Note              *string    `json:"note"`
	PaidFromAccountID *uuid.UUID `json:"paid_from_account_id"`
	ClearAccount      bool       `json:"clear_account"` // true ise ödeme hesabı kaldırılır
}

type ImportItemRequest struct {
	ProductID     uuid.UUID       `json:"product_id"`
	Qty           decimal.Decimal `json:"qty"`
	LineTotalCost int64           `json:"line_total_cost"` // kuruş
}

type ImportItemResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Unit          string          `json:"unit"`
	Qty           decimal.Decimal `json:"qty"`
	LineTotalCost int64           `json:"line_total_cost"`
}

type ImportResponse struct {
	ID                uuid.UUID           `json:"id"`
	BranchID          uuid.UUID           `json:"branch_id"`
	Status            models.ImportStatus `json:"status"`
	Note              string              `json:"note"`
	PaidFromAccountID *uuid.UUID          `json:"paid_from_account_id"`
	CashTxnID         *uuid.UUID          `json:"cash_txn_id"`
	PostedAt          *string             `json:"posted_at"`
	TotalCost         int64               `json:"total_cost"`
	Items             []ImportItemResponse `json:"items,omitempty"`
	CreatedAt         string              `json:"created_at"`
}

func importResponse(si *models.StockImport, withItems bool) ImportResponse {
	res := ImportResponse{
		ID:                si.ID,
		BranchID:          si.BranchID,
		Status:            si.Status,
		Note:              si.Note,
		PaidFromAccountID: si.PaidFromAccountID,
		CashTxnID:         si.CashTxnID,
		CreatedAt:         si.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if si.PostedAt != nil {
		s := si.PostedAt.Format("2006-01-02 15:04:05")
		res.PostedAt = &s
	}
	for _, it := range si.Items {
		res.TotalCost += it.LineTotalCost
		if withItems {
			res.Items = append(res.Items, ImportItemResponse{
				ID:            it.ID,
				ProductID:     it.ProductID,
				ProductName:   it.Product.Name,
				Unit:          it.Product.Unit,
				Qty:           it.Qty,
				LineTotalCost: it.LineTotalCost,
			})
		}
	}
	return res
}

// loadScopedImport: importu kalemleriyle yükler ve aktör kapsamını doğrular.
func loadScopedImport(c *fiber.Ctx, id string) (*models.StockImport, error) {
	var si models.StockImport
	if err := database.DB.Preload("Items.Product").First(&si, "id = ?", id).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Stok girişi bulunamadı")
	}

	actor, err := auth.ActorFromCtx(c)
	if err != nil {
		return nil, err
	}
	if !actor.Scope.CanAccessBranch(si.BranchID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "Bu stok girişi başka bir şubeye ait")
	}

	return &si, nil
}

// mutateDraftImport: import satırını kilitleyip DRAFT kontrolünü ve
// değişikliği aynı transaction içinde yapar; araya giren bir POST,
// POSTED bir importa kalem yazılmasına yol açamaz.
func mutateDraftImport(db *gorm.DB, importID uuid.UUID, fn func(tx *gorm.DB, si *models.StockImport) error) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var si models.StockImport
		if err := database.ForUpdate(tx).First(&si, "id = ?", importID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Stok girişi bulunamadı")
		}
		if err := si.EnsureDraft(); err != nil {
			return err
		}
		return fn(tx, &si)
	})
}

// asHTTPError: transaction içinden dönen hata zaten fiber hatasıysa aynen,
// değilse core eşlemesiyle döner.
func asHTTPError(err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe
	}
	return core.HTTPError(err)
}

// validateImportAccount: ödeme hesabı importun şubesine ait ve aktif olmalı.
func validateImportAccount(branchID uuid.UUID, accountID uuid.UUID) error {
	var acc models.MoneyAccount
	if err := database.DB.First(&acc, "id = ?", accountID).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Ödeme hesabı bulunamadı")
	}
	if acc.BranchID != branchID {
		return fiber.NewError(fiber.StatusBadRequest, "Ödeme hesabı başka bir şubeye ait")
	}
	if !acc.IsActive {
		return fiber.NewError(fiber.StatusBadRequest, "Ödeme hesabı pasif durumda")
	}
	return nil
}

// -------------------------------------------------
// POST /api/stock-imports  (taslak oluştur)
// -------------------------------------------------
func CreateImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateImportRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		branchID, err := auth.ResolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		if body.PaidFromAccountID != nil {
			if err := validateImportAccount(branchID, *body.PaidFromAccountID); err != nil {
				return err
			}
		}

		si := models.StockImport{
			BranchID:          branchID,
			Status:            models.ImportStatusDraft,
			Note:              body.Note,
			PaidFromAccountID: body.PaidFromAccountID,
		}
		if userID, _, uErr := auth.UserInfo(c); uErr == nil {
			si.CreatedByID = &userID
		}
		if err := database.DB.Create(&si).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok girişi oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(importResponse(&si, true))
	}
}

// -------------------------------------------------
// GET /api/stock-imports?status=DRAFT&branch_id=...
// -------------------------------------------------
func ListImportsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Items").Where("branch_id = ?", branchID)
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}

		var imports []models.StockImport
		if err := dbq.Order("created_at desc").Find(&imports).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok girişleri listelenemedi")
		}

		res := make([]ImportResponse, 0, len(imports))
		for i := range imports {
			res = append(res, importResponse(&imports[i], false))
		}

		return c.JSON(res)
	}
}

// -------------------------------------------------
// GET /api/stock-imports/:id
// -------------------------------------------------
func GetImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		si, err := loadScopedImport(c, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(importResponse(si, true))
	}
}

// -------------------------------------------------
// PATCH /api/stock-imports/:id  (yalnızca DRAFT)
// -------------------------------------------------
func UpdateImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		si, err := loadScopedImport(c, c.Params("id"))
		if err != nil {
			return err
		}

		var body UpdateImportRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		err = mutateDraftImport(database.DB, si.ID, func(tx *gorm.DB, locked *models.StockImport) error {
			if body.Note != nil {
				locked.Note = *body.Note
			}
			if body.ClearAccount {
				locked.PaidFromAccountID = nil
			} else if body.PaidFromAccountID != nil {
				if err := validateImportAccount(locked.BranchID, *body.PaidFromAccountID); err != nil {
					return err
				}
				locked.PaidFromAccountID = body.PaidFromAccountID
			}
			if err := tx.Save(locked).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Stok girişi güncellenemedi")
			}
			si.Note = locked.Note
			si.PaidFromAccountID = locked.PaidFromAccountID
			return nil
		})
		if err != nil {
			return asHTTPError(err)
		}

		return c.JSON(importResponse(si, true))
	}
}

// -------------------------------------------------
// DELETE /api/stock-imports/:id  (yalnızca DRAFT)
// -------------------------------------------------
func DeleteImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		si, err := loadScopedImport(c, c.Params("id"))
		if err != nil {
			return err
		}

		err = mutateDraftImport(database.DB, si.ID, func(tx *gorm.DB, locked *models.StockImport) error {
			if err := tx.Where("stock_import_id = ?", locked.ID).Delete(&models.StockImportItem{}).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Kalemler silinemedi")
			}
			if err := tx.Delete(locked).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Stok girişi silinemedi")
			}
			return nil
		})
		if err != nil {
			return asHTTPError(err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------------------------------
// POST /api/stock-imports/:id/items
// -------------------------------------------------
func AddImportItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		si, err := loadScopedImport(c, c.Params("id"))
		if err != nil {
			return err
		}

		var body ImportItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}
		if !body.Qty.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Miktar 0'dan büyük olmalı")
		}
		if body.LineTotalCost < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Maliyet negatif olamaz")
		}

		var product models.Product
		if err := database.DB.First(&product, "id = ?", body.ProductID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün bulunamadı")
		}
		if !product.IsActive {
			return fiber.NewError(fiber.StatusBadRequest, "Ürün pasif durumda")
		}

		var item models.StockImportItem
		err = mutateDraftImport(database.DB, si.ID, func(tx *gorm.DB, locked *models.StockImport) error {
			item = models.StockImportItem{
				StockImportID: locked.ID,
				ProductID:     product.ID,
				Qty:           body.Qty,
				LineTotalCost: body.LineTotalCost,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fiber.NewError(fiber.StatusConflict, "Kalem eklenemedi (ürün zaten listede olabilir)")
			}
			return nil
		})
		if err != nil {
			return asHTTPError(err)
		}
		item.Product = product

		return c.Status(fiber.StatusCreated).JSON(ImportItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   product.Name,
			Unit:          product.Unit,
			Qty:           item.Qty,
			LineTotalCost: item.LineTotalCost,
		})
	}
}

// -------------------------------------------------
// PUT /api/stock-imports/:id/items/:itemID
// -------------------------------------------------
func UpdateImportItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		si, err := loadScopedImport(c, c.Params("id"))
		if err != nil {
			return err
		}

		var body ImportItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}
		if !body.Qty.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "Miktar 0'dan büyük olmalı")
		}
		if body.LineTotalCost < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Maliyet negatif olamaz")
		}

		var item models.StockImportItem
		err = mutateDraftImport(database.DB, si.ID, func(tx *gorm.DB, locked *models.StockImport) error {
			if err := tx.Preload("Product").
				First(&item, "id = ? AND stock_import_id = ?", c.Params("itemID"), locked.ID).Error; err != nil {
				return fiber.NewError(fiber.StatusNotFound, "Kalem bulunamadı")
			}
			item.Qty = body.Qty
			item.LineTotalCost = body.LineTotalCost
			if err := tx.Save(&item).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Kalem güncellenemedi")
			}
			return nil
		})
		if err != nil {
			return asHTTPError(err)
		}

		return c.JSON(ImportItemResponse{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.Product.Name,
			Unit:          item.Product.Unit,
			Qty:           item.Qty,
			LineTotalCost: item.LineTotalCost,
		})
	}
}

// -------------------------------------------------
// DELETE /api/stock-imports/:id/items/:itemID
// -------------------------------------------------
func DeleteImportItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		si, err := loadScopedImport(c, c.Params("id"))
		if err != nil {
			return err
		}

		err = mutateDraftImport(database.DB, si.ID, func(tx *gorm.DB, locked *models.StockImport) error {
			res := tx.Where("id = ? AND stock_import_id = ?", c.Params("itemID"), locked.ID).
				Delete(&models.StockImportItem{})
			if res.Error != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Kalem silinemedi")
			}
			if res.RowsAffected == 0 {
				return fiber.NewError(fiber.StatusNotFound, "Kalem bulunamadı")
			}
			return nil
		})
		if err != nil {
			return asHTTPError(err)
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------------------------------
// POST /api/stock-imports/:id/post
// -------------------------------------------------
func PostImportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		importID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "id geçersiz")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		posted, err := PostStockImport(database.DB, importID, actor)
		if err != nil {
			return core.HTTPError(err)
		}

		// yanıt için kalemleri tazele
		var si models.StockImport
		if err := database.DB.Preload("Items.Product").First(&si, "id = ?", posted.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Stok girişi okunamadı")
		}

		if userID, userName, uErr := auth.UserInfo(c); uErr == nil {
			if logErr := audit.WriteLog(database.DB, audit.LogOptions{
				BranchID:    &si.BranchID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "stock_import",
				EntityID:    si.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Stok girişi POST edildi (%d kalem)", len(si.Items)),
				After:       importResponse(&si, false),
			}); logErr != nil {
				logger.L().Warn("audit log yazılamadı", zap.Error(logErr))
			}
		}

		return c.JSON(importResponse(&si, true))
	}
}
