package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

// Handler'ların ortak şube çözümü: branch_admin şubesini JWT'den alır,
// super_admin body/query ile söylemek zorundadır.

func ResolveBranchIDFromBodyOrRole(c *fiber.Ctx, bodyBranchID *uuid.UUID) (uuid.UUID, error) {
	roleVal := c.Locals(CtxUserRoleKey)
	role, ok := roleVal.(models.UserRole)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}

	if role == models.RoleBranchAdmin {
		bPtr, ok := c.Locals(CtxBranchIDKey).(*uuid.UUID)
		if !ok || bPtr == nil {
			return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
		}
		return *bPtr, nil
	}

	// super_admin
	if bodyBranchID == nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	return *bodyBranchID, nil
}

func ResolveBranchIDFromQueryOrRole(c *fiber.Ctx) (uuid.UUID, error) {
	roleVal := c.Locals(CtxUserRoleKey)
	role, ok := roleVal.(models.UserRole)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}

	if role == models.RoleBranchAdmin {
		bPtr, ok := c.Locals(CtxBranchIDKey).(*uuid.UUID)
		if !ok || bPtr == nil {
			return uuid.Nil, fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
		}
		return *bPtr, nil
	}

	// super_admin
	bidStr := c.Query("branch_id")
	if bidStr == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	bid, err := uuid.Parse(bidStr)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "branch_id geçersiz")
	}
	return bid, nil
}

// UserInfo: audit log için kullanıcı kimliği ve adı.
func UserInfo(c *fiber.Ctx) (uuid.UUID, string, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, "", fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return uuid.Nil, "", fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı bulunamadı")
	}

	return userID, user.Name, nil
}
