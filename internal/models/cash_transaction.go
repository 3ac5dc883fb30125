package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TxnDirection string

const (
	DirectionIn  TxnDirection = "in"
	DirectionOut TxnDirection = "out"
)

type TxnType string

const (
	TxnTypeSale     TxnType = "sale"
	TxnTypeImport   TxnType = "import"
	TxnTypeExpense  TxnType = "expense"
	TxnTypeTransfer TxnType = "transfer"
	TxnTypeAdjust   TxnType = "adjust"
)

// Referans türleri: ref_type/ref_id kaynağı olan iş belgesine bağlar ve
// aynı belge için ikinci bir para kaydını engelleyen idempotency anahtarıdır.
const (
	RefTypeStockImport  = "stock_import"
	RefTypeOrderPayment = "order_payment"
	RefTypeCashTransfer = "cash_transfer" // virman: iki bacağı aynı ref_id taşır
)

// CashTransaction: append-only kasa hareketi. Oluşturulduktan sonra update
// yolu yoktur; düzeltme ancak yeni bir ters kayıtla yapılır (bu sistemde yok).
type CashTransaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;index:idx_cash_txn_branch_date"`
	Branch    Branch
	AccountID uuid.UUID `gorm:"type:uuid;not null;index:idx_cash_txn_account_date"`
	Account   MoneyAccount

	Direction TxnDirection `gorm:"size:5;not null"`
	TxnType   TxnType      `gorm:"size:12;not null"`
	Amount    int64        `gorm:"not null"` // her zaman > 0, yönü Direction belirler

	OccurredAt time.Time `gorm:"not null;index:idx_cash_txn_branch_date;index:idx_cash_txn_account_date"`
	Note       string    `gorm:"size:255"`

	RefType string     `gorm:"size:30;index"`
	RefID   *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
}

func (t *CashTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
