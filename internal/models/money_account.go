package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountKind string

const (
	AccountKindCash  AccountKind = "cash"  // nakit kasa
	AccountKindCard  AccountKind = "card"  // pos / kart
	AccountKindBank  AccountKind = "bank"  // banka hesabı
	AccountKindOther AccountKind = "other"
)

// MoneyAccount: şube kasası. BalanceCache türetilmiş alandır; tek gerçek
// kaynak CashTransaction kayıtlarıdır, her insert sonrası toplamdan yeniden
// hesaplanır.
type MoneyAccount struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uniq_branch_account_name"`
	Branch   Branch
	Name     string      `gorm:"size:80;not null;uniqueIndex:uniq_branch_account_name"`
	Kind     AccountKind `gorm:"size:10;not null;default:cash"`
	IsActive bool        `gorm:"not null;default:true"`

	BalanceCache int64 `gorm:"not null;default:0"` // imzalı toplam: IN - OUT

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *MoneyAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
