package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

type BranchResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	CreatedAt string    `json:"created_at"`
}

type CreateBranchRequest struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   *string `json:"phone"` // Opsiyonel
}

type UpdateBranchRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
}

type CreateBranchAdminRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ----------------------------------------
// ŞUBE CRUD
// ----------------------------------------

func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Şube adı boş olamaz")
		}

		branch := models.Branch{
			Name:    body.Name,
			Address: body.Address,
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		// Şube ile birlikte varsayılan nakit kasası tek transaction'da açılır
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&branch).Error; err != nil {
				return err
			}
			return tx.Create(&models.MoneyAccount{
				BranchID: branch.ID,
				Name:     "Kasa",
				Kind:     models.AccountKindCash,
				IsActive: true,
			}).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(BranchResponse{
			ID:        branch.ID,
			Name:      branch.Name,
			Address:   branch.Address,
			Phone:     branch.Phone,
			CreatedAt: branch.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şubeler listelenemedi")
		}

		res := make([]BranchResponse, 0, len(branches))
		for _, b := range branches {
			res = append(res, BranchResponse{
				ID:        b.ID,
				Name:      b.Name,
				Address:   b.Address,
				Phone:     b.Phone,
				CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}

		return c.JSON(res)
	}
}

func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		return c.JSON(BranchResponse{
			ID:        branch.ID,
			Name:      branch.Name,
			Address:   branch.Address,
			Phone:     branch.Phone,
			CreatedAt: branch.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Şube adı boş olamaz")
			}
			branch.Name = name
		}
		if body.Address != nil {
			branch.Address = *body.Address
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.Save(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube güncellenemedi")
		}

		return c.JSON(BranchResponse{
			ID:        branch.ID,
			Name:      branch.Name,
			Address:   branch.Address,
			Phone:     branch.Phone,
			CreatedAt: branch.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

func DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		// Finansal geçmişi olan şube silinemez
		var txnCount int64
		database.DB.Model(&models.CashTransaction{}).Where("branch_id = ?", branch.ID).Count(&txnCount)
		if txnCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Kasa hareketi olan şube silinemez")
		}
		var orderCount int64
		database.DB.Model(&models.Order{}).Where("branch_id = ?", branch.ID).Count(&orderCount)
		if orderCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Siparişi olan şube silinemez")
		}

		if err := database.DB.Delete(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şube silinemedi")
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// ŞUBE ADMİNİ
// ----------------------------------------

func CreateBranchAdminHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Şube id geçersiz")
		}

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", branchID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Şube bulunamadı")
		}

		var body CreateBranchAdminRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz veri gönderildi")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "İsim, email ve şifre zorunlu")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			BranchID:     &branch.ID,
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleBranchAdmin,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Kullanıcı oluşturulamadı (email kullanımda olabilir)")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"branch_id": user.BranchID,
		})
	}
}

func ListBranchAdminsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Şube id geçersiz")
		}

		var users []models.User
		if err := database.DB.
			Where("branch_id = ? AND role = ?", branchID, models.RoleBranchAdmin).
			Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]fiber.Map, 0, len(users))
		for _, u := range users {
			res = append(res, fiber.Map{
				"id":        u.ID,
				"name":      u.Name,
				"email":     u.Email,
				"role":      u.Role,
				"branch_id": u.BranchID,
				"is_active": u.IsActive,
			})
		}

		return c.JSON(res)
	}
}
