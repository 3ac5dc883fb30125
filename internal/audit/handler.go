package audit

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

type AuditLogResponse struct {
	ID          uuid.UUID          `json:"id"`
	CreatedAt   string             `json:"created_at"`
	BranchID    *uuid.UUID         `json:"branch_id"`
	UserID      uuid.UUID          `json:"user_id"`
	UserName    string             `json:"user_name"`
	EntityType  string             `json:"entity_type"`
	EntityID    uuid.UUID          `json:"entity_id"`
	Action      models.AuditAction `json:"action"`
	Description string             `json:"description"`
}

// GET /api/audit-logs?entity_type=order&entity_id=...&branch_id=...
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.AuditLog{})

		// Branch filtresi: branch_admin kendi şubesine kilitli,
		// super_admin isterse query ile daraltır
		if !actor.Scope.All {
			if actor.Scope.BranchID == nil {
				return fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
			}
			dbq = dbq.Where("branch_id = ?", *actor.Scope.BranchID)
		} else if bidStr := c.Query("branch_id"); bidStr != "" {
			bid, err := uuid.Parse(bidStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "branch_id geçersiz")
			}
			dbq = dbq.Where("branch_id = ?", bid)
		}

		if entityType := c.Query("entity_type"); entityType != "" {
			dbq = dbq.Where("entity_type = ?", entityType)
		}
		if eidStr := c.Query("entity_id"); eidStr != "" {
			eid, err := uuid.Parse(eidStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "entity_id geçersiz")
			}
			dbq = dbq.Where("entity_id = ?", eid)
		}
		if uidStr := c.Query("user_id"); uidStr != "" {
			uid, err := uuid.Parse(uidStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "user_id geçersiz")
			}
			dbq = dbq.Where("user_id = ?", uid)
		}

		var logs []models.AuditLog
		if err := dbq.Order("created_at DESC").Limit(500).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Loglar listelenemedi")
		}

		resp := make([]AuditLogResponse, 0, len(logs))
		for _, log := range logs {
			resp = append(resp, AuditLogResponse{
				ID:          log.ID,
				CreatedAt:   log.CreatedAt.Format("2006-01-02 15:04:05"),
				BranchID:    log.BranchID,
				UserID:      log.UserID,
				UserName:    log.UserName,
				EntityType:  log.EntityType,
				EntityID:    log.EntityID,
				Action:      log.Action,
				Description: log.Description,
			})
		}

		return c.JSON(resp)
	}
}
