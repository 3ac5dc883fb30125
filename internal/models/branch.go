package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Branch: tenancy kökü. Parasal ve stok taşıyan her kayıt bir şubeye bağlıdır.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:100;not null;unique"`
	Address   string    `gorm:"size:255"`
	Phone     string    `gorm:"size:50"` // Opsiyonel telefon
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
