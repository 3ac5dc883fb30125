package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleSuperAdmin  UserRole = "super_admin"  // tüm şubeler
	RoleBranchAdmin UserRole = "branch_admin" // yalnızca kendi şubesi
)

type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index"`
	Branch       *Branch
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	IsActive     bool     `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
