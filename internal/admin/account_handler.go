package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

type AccountResponse struct {
	ID           uuid.UUID          `json:"id"`
	BranchID     uuid.UUID          `json:"branch_id"`
	Name         string             `json:"name"`
	Kind         models.AccountKind `json:"kind"`
	IsActive     bool               `json:"is_active"`
	BalanceCache int64              `json:"balance"`
}

type CreateAccountRequest struct {
	BranchID *uuid.UUID         `json:"branch_id"` // super_admin için zorunlu
	Name     string             `json:"name"`
	Kind     models.AccountKind `json:"kind"`
}

type UpdateAccountRequest struct {
	Name     *string             `json:"name"`
	Kind     *models.AccountKind `json:"kind"`
	IsActive *bool               `json:"is_active"`
}

func accountResponse(a *models.MoneyAccount) AccountResponse {
	return AccountResponse{
		ID:           a.ID,
		BranchID:     a.BranchID,
		Name:         a.Name,
		Kind:         a.Kind,
		IsActive:     a.IsActive,
		BalanceCache: a.BalanceCache,
	}
}

func validAccountKind(k models.AccountKind) bool {
	switch k {
	case models.AccountKindCash, models.AccountKindCard, models.AccountKindBank, models.AccountKindOther:
		return true
	}
	return false
}

func CreateAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateAccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		branchID, err := auth.ResolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Hesap adı boş olamaz")
		}
		if body.Kind == "" {
			body.Kind = models.AccountKindCash
		}
		if !validAccountKind(body.Kind) {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz hesap türü")
		}

		account := models.MoneyAccount{
			BranchID: branchID,
			Name:     body.Name,
			Kind:     body.Kind,
			IsActive: true,
		}
		if err := database.DB.Create(&account).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Hesap oluşturulamadı (aynı isimde hesap olabilir)")
		}

		return c.Status(fiber.StatusCreated).JSON(accountResponse(&account))
	}
}

func ListAccountsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		var accounts []models.MoneyAccount
		if err := database.DB.
			Where("branch_id = ?", branchID).
			Order("name").
			Find(&accounts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hesaplar listelenemedi")
		}

		res := make([]AccountResponse, 0, len(accounts))
		for _, a := range accounts {
			res = append(res, accountResponse(&a))
		}

		return c.JSON(res)
	}
}

func UpdateAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var account models.MoneyAccount
		if err := database.DB.First(&account, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Hesap bulunamadı")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if !actor.Scope.CanAccessBranch(account.BranchID) {
			return fiber.NewError(fiber.StatusForbidden, "Bu hesap başka bir şubeye ait")
		}

		var body UpdateAccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Hesap adı boş olamaz")
			}
			account.Name = name
		}
		if body.Kind != nil {
			if !validAccountKind(*body.Kind) {
				return fiber.NewError(fiber.StatusBadRequest, "Geçersiz hesap türü")
			}
			account.Kind = *body.Kind
		}
		if body.IsActive != nil {
			account.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&account).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hesap güncellenemedi")
		}

		return c.JSON(accountResponse(&account))
	}
}

func DeleteAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var account models.MoneyAccount
		if err := database.DB.First(&account, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Hesap bulunamadı")
		}

		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		if !actor.Scope.CanAccessBranch(account.BranchID) {
			return fiber.NewError(fiber.StatusForbidden, "Bu hesap başka bir şubeye ait")
		}

		// Hareketi olan hesap silinmez, pasife alınır
		var txnCount int64
		database.DB.Model(&models.CashTransaction{}).Where("account_id = ?", account.ID).Count(&txnCount)
		if txnCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Hareketi olan hesap silinemez, pasife alın")
		}

		if err := database.DB.Delete(&account).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Hesap silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}
