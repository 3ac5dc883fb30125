package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
)

type ImportStatus string

const (
	ImportStatusDraft  ImportStatus = "DRAFT"
	ImportStatusPosted ImportStatus = "POSTED"
)

// StockImport: taslak/post edilmiş mal giriş belgesi. DRAFT -> POSTED tek
// yönlüdür, geri alma yoktur. CashTxnID en fazla bir kez set edilir ve
// ikinci bir kasa çıkışını yapısal olarak engeller.
type StockImport struct {
	ID       uuid.UUID    `gorm:"type:uuid;primaryKey"`
	BranchID uuid.UUID    `gorm:"type:uuid;not null;index"`
	Branch   Branch
	Status   ImportStatus `gorm:"size:10;not null;default:DRAFT"`
	Note     string       `gorm:"size:255"`

	PaidFromAccountID *uuid.UUID `gorm:"type:uuid"`
	PaidFromAccount   *MoneyAccount
	CashTxnID         *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	CashTxn           *CashTransaction

	CreatedByID *uuid.UUID `gorm:"type:uuid"`
	PostedByID  *uuid.UUID `gorm:"type:uuid"`
	PostedAt    *time.Time

	Items []StockImportItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (si *StockImport) BeforeCreate(tx *gorm.DB) error {
	if si.ID == uuid.Nil {
		si.ID = uuid.New()
	}
	return nil
}

// EnsureDraft: POSTED bir importun kendisi ve kalemleri değiştirilemez.
func (si *StockImport) EnsureDraft() error {
	if si.Status == ImportStatusPosted {
		return core.IllegalStatef("import POST edilmiş, kalemleri değiştirilemez")
	}
	return nil
}

// StockImportItem: import kalemi. Parent DRAFT olduğu sürece değiştirilebilir.
type StockImportItem struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	StockImportID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_import_product"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_import_product"`
	Product       Product

	Qty           decimal.Decimal `gorm:"type:numeric(14,3);not null"`
	LineTotalCost int64           `gorm:"not null"` // kalemin toplam maliyeti

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (it *StockImportItem) BeforeCreate(tx *gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}
