package finance

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/models"
)

type RecordCashTxnInput struct {
	AccountID  uuid.UUID
	Direction  models.TxnDirection
	TxnType    models.TxnType
	Amount     int64
	OccurredAt *time.Time // boşsa şimdi
	Note       string
	RefType    string
	RefID      *uuid.UUID
}

// RecordCashTxn: kasaya tek bir hareket yazar ve bakiye cache'ini yeniler.
// Çağıranın açtığı transaction içinde koşar; hesap satırı insert + yeniden
// hesap boyunca kilitli kalır, iki eşzamanlı kayıt bayat bakiye yazamaz.
// Bakiye yetersizliği burada kontrol edilmez; o, çağıranın sorumluluğudur
// (import POST'u, sipariş ödemesi).
func RecordCashTxn(tx *gorm.DB, in RecordCashTxnInput) (*models.CashTransaction, error) {
	if in.Amount <= 0 {
		return nil, core.Validationf("tutar 0'dan büyük olmalı")
	}
	if in.Direction != models.DirectionIn && in.Direction != models.DirectionOut {
		return nil, core.Validationf("yön 'in' veya 'out' olmalı")
	}
	switch in.TxnType {
	case models.TxnTypeSale, models.TxnTypeImport, models.TxnTypeExpense, models.TxnTypeTransfer, models.TxnTypeAdjust:
	default:
		return nil, core.Validationf("geçersiz işlem tipi: %s", in.TxnType)
	}

	var acc models.MoneyAccount
	if err := database.ForUpdate(tx).First(&acc, "id = ?", in.AccountID).Error; err != nil {
		return nil, err
	}

	occurredAt := time.Now()
	if in.OccurredAt != nil {
		occurredAt = *in.OccurredAt
	}

	txn := models.CashTransaction{
		BranchID:   acc.BranchID,
		AccountID:  acc.ID,
		Direction:  in.Direction,
		TxnType:    in.TxnType,
		Amount:     in.Amount,
		OccurredAt: occurredAt,
		Note:       in.Note,
		RefType:    in.RefType,
		RefID:      in.RefID,
	}
	if err := tx.Create(&txn).Error; err != nil {
		return nil, err
	}

	if err := RecalcBalance(tx, acc.ID); err != nil {
		return nil, err
	}

	return &txn, nil
}

// RecalcBalance: bakiye cache'ini artımlı toplamayla değil, hesabın tüm
// hareketleri üzerinden imzalı toplam olarak yeniden kurar. Böylece elle
// eklenmiş bir kayıt bile cache'i kalıcı bozamaz.
func RecalcBalance(tx *gorm.DB, accountID uuid.UUID) error {
	var balance int64
	err := tx.Model(&models.CashTransaction{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(CASE WHEN direction = 'in' THEN amount ELSE -amount END), 0)").
		Scan(&balance).Error
	if err != nil {
		return err
	}

	return tx.Model(&models.MoneyAccount{}).
		Where("id = ?", accountID).
		Update("balance_cache", balance).Error
}
