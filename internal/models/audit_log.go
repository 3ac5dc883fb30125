package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditLog: yalnızca yazılan işlem izi. Kasa defteri append-only olduğu için
// loglardan geri alma (undo) yoktur.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Hangi şube?
	BranchID *uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`

	// Hangi kullanıcı?
	UserID   uuid.UUID `gorm:"type:uuid" json:"user_id"`
	UserName string    `gorm:"size:100" json:"user_name"` // denormalize

	// Hangi entity? (ör: "stock_import", "order", "cash_transaction")
	EntityType string    `gorm:"size:50;index" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;index" json:"entity_id"`

	Action AuditAction `gorm:"size:20" json:"action"`

	// Opsiyonel açıklama (küçük bir özet)
	Description string `gorm:"size:255" json:"description"`

	// Önceki ve sonraki hal (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
