package finance

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lokanta-backend/internal/audit"
	"lokanta-backend/internal/auth"
	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/logger"
	"lokanta-backend/internal/models"
)

type CreateCashTxnRequest struct {
	AccountID uuid.UUID           `json:"account_id"`
	Direction models.TxnDirection `json:"direction"` // "in" | "out"
	TxnType   models.TxnType      `json:"txn_type"`  // "expense" | "adjust"
	Amount    int64               `json:"amount"`    // kuruş
	Date      *string             `json:"date"`      // "2026-01-15", boşsa şimdi
	Note      string              `json:"note"`
}

type TransferRequest struct {
	FromAccountID uuid.UUID `json:"from_account_id"`
	ToAccountID   uuid.UUID `json:"to_account_id"`
	Amount        int64     `json:"amount"`
	Note          string    `json:"note"`
}

type CashTxnResponse struct {
	ID         uuid.UUID           `json:"id"`
	BranchID   uuid.UUID           `json:"branch_id"`
	AccountID  uuid.UUID           `json:"account_id"`
	Direction  models.TxnDirection `json:"direction"`
	TxnType    models.TxnType      `json:"txn_type"`
	Amount     int64               `json:"amount"`
	OccurredAt string              `json:"occurred_at"`
	Note       string              `json:"note"`
	RefType    string              `json:"ref_type,omitempty"`
	RefID      *uuid.UUID          `json:"ref_id,omitempty"`
}

func txnResponse(t *models.CashTransaction) CashTxnResponse {
	return CashTxnResponse{
		ID:         t.ID,
		BranchID:   t.BranchID,
		AccountID:  t.AccountID,
		Direction:  t.Direction,
		TxnType:    t.TxnType,
		Amount:     t.Amount,
		OccurredAt: t.OccurredAt.Format("2006-01-02 15:04:05"),
		Note:       t.Note,
		RefType:    t.RefType,
		RefID:      t.RefID,
	}
}

func parseOccurredAt(dateStr *string) (*time.Time, error) {
	if dateStr == nil || *dateStr == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", *dateStr)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Tarih formatı geçersiz, 'YYYY-MM-DD' olmalı")
	}
	return &d, nil
}

// scopedAccount: hesabı yükler ve aktörün şube kapsamında olduğunu doğrular.
func scopedAccount(c *fiber.Ctx, accountID uuid.UUID) (*models.MoneyAccount, error) {
	var acc models.MoneyAccount
	if err := database.DB.First(&acc, "id = ?", accountID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Hesap bulunamadı")
	}

	actor, err := auth.ActorFromCtx(c)
	if err != nil {
		return nil, err
	}
	if !actor.Scope.CanAccessBranch(acc.BranchID) {
		return nil, fiber.NewError(fiber.StatusForbidden, "Bu hesap başka bir şubeye ait")
	}
	if !acc.IsActive {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Hesap pasif durumda")
	}

	return &acc, nil
}

// -------------------------------------------------
// POST /api/cash-transactions  (elle gider / düzeltme)
// -------------------------------------------------
func CreateCashTxnHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCashTxnRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		// sale ve import yalnızca belge akışlarından (ödeme, stok girişi) yazılır
		switch body.TxnType {
		case models.TxnTypeExpense, models.TxnTypeAdjust:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz işlem tipi (expense|adjust)")
		}
		if body.TxnType == models.TxnTypeExpense && body.Direction != models.DirectionOut {
			return fiber.NewError(fiber.StatusBadRequest, "Gider kaydı yalnızca 'out' yönünde olabilir")
		}

		occurredAt, err := parseOccurredAt(body.Date)
		if err != nil {
			return err
		}

		acc, err := scopedAccount(c, body.AccountID)
		if err != nil {
			return err
		}

		var txn *models.CashTransaction
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			var innerErr error
			txn, innerErr = RecordCashTxn(tx, RecordCashTxnInput{
				AccountID:  acc.ID,
				Direction:  body.Direction,
				TxnType:    body.TxnType,
				Amount:     body.Amount,
				OccurredAt: occurredAt,
				Note:       body.Note,
			})
			return innerErr
		})
		if txErr != nil {
			return core.HTTPError(txErr)
		}

		if userID, userName, uErr := auth.UserInfo(c); uErr == nil {
			if logErr := audit.WriteLog(database.DB, audit.LogOptions{
				BranchID:    &txn.BranchID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "cash_transaction",
				EntityID:    txn.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Kasa hareketi: %s %s %d kuruş", txn.TxnType, txn.Direction, txn.Amount),
				After:       txnResponse(txn),
			}); logErr != nil {
				logger.L().Warn("audit log yazılamadı", zap.Error(logErr))
			}
		}

		return c.Status(fiber.StatusCreated).JSON(txnResponse(txn))
	}
}

// -------------------------------------------------
// POST /api/cash-transactions/transfer  (hesaplar arası virman)
// -------------------------------------------------
func TransferHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body TransferRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Amount <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Tutar 0'dan büyük olmalı")
		}
		if body.FromAccountID == body.ToAccountID {
			return fiber.NewError(fiber.StatusBadRequest, "Kaynak ve hedef hesap aynı olamaz")
		}

		from, err := scopedAccount(c, body.FromAccountID)
		if err != nil {
			return err
		}
		to, err := scopedAccount(c, body.ToAccountID)
		if err != nil {
			return err
		}
		if from.BranchID != to.BranchID {
			return fiber.NewError(fiber.StatusBadRequest, "Virman yalnızca aynı şubenin hesapları arasında yapılabilir")
		}

		// İki bacak aynı ref_id'yi taşır, raporda eşleştirilebilir
		transferID := uuid.New()
		var outTxn, inTxn *models.CashTransaction
		txErr := database.DB.Transaction(func(tx *gorm.DB) error {
			var acc models.MoneyAccount
			if err := database.ForUpdate(tx).First(&acc, "id = ?", from.ID).Error; err != nil {
				return err
			}
			if acc.BalanceCache < body.Amount {
				return core.InsufficientFundsf("hesap bakiyesi yetersiz: %d < %d", acc.BalanceCache, body.Amount)
			}

			var innerErr error
			outTxn, innerErr = RecordCashTxn(tx, RecordCashTxnInput{
				AccountID: from.ID,
				Direction: models.DirectionOut,
				TxnType:   models.TxnTypeTransfer,
				Amount:    body.Amount,
				Note:      body.Note,
				RefType:   models.RefTypeCashTransfer,
				RefID:     &transferID,
			})
			if innerErr != nil {
				return innerErr
			}
			inTxn, innerErr = RecordCashTxn(tx, RecordCashTxnInput{
				AccountID: to.ID,
				Direction: models.DirectionIn,
				TxnType:   models.TxnTypeTransfer,
				Amount:    body.Amount,
				Note:      body.Note,
				RefType:   models.RefTypeCashTransfer,
				RefID:     &transferID,
			})
			return innerErr
		})
		if txErr != nil {
			return core.HTTPError(txErr)
		}

		if userID, userName, uErr := auth.UserInfo(c); uErr == nil {
			if logErr := audit.WriteLog(database.DB, audit.LogOptions{
				BranchID:    &from.BranchID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "cash_transfer",
				EntityID:    transferID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("Virman: %s -> %s, %d kuruş", from.Name, to.Name, body.Amount),
				After:       fiber.Map{"out": txnResponse(outTxn), "in": txnResponse(inTxn)},
			}); logErr != nil {
				logger.L().Warn("audit log yazılamadı", zap.Error(logErr))
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"transfer_id": transferID,
			"out":         txnResponse(outTxn),
			"in":          txnResponse(inTxn),
		})
	}
}

// -------------------------------------------------
// GET /api/cash-transactions?from=2026-01-01&to=2026-01-31&account_id=...&txn_type=sale
// -------------------------------------------------
func ListCashTxnsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.CashTransaction{}).Where("branch_id = ?", branchID)

		if fromStr := c.Query("from"); fromStr != "" {
			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from tarihi geçersiz")
			}
			dbq = dbq.Where("occurred_at >= ?", from)
		}
		if toStr := c.Query("to"); toStr != "" {
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to tarihi geçersiz")
			}
			dbq = dbq.Where("occurred_at < ?", to.AddDate(0, 0, 1))
		}
		if accStr := c.Query("account_id"); accStr != "" {
			accID, err := uuid.Parse(accStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "account_id geçersiz")
			}
			dbq = dbq.Where("account_id = ?", accID)
		}
		if typeStr := c.Query("txn_type"); typeStr != "" {
			dbq = dbq.Where("txn_type = ?", typeStr)
		}

		var txns []models.CashTransaction
		if err := dbq.Order("occurred_at asc, created_at asc").Find(&txns).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kayıtlar listelenemedi")
		}

		resp := make([]CashTxnResponse, 0, len(txns))
		for _, t := range txns {
			resp = append(resp, txnResponse(&t))
		}

		return c.JSON(resp)
	}
}

type MonthlySummaryItem struct {
	TxnType models.TxnType `json:"txn_type"`
	In      int64          `json:"in"`
	Out     int64          `json:"out"`
}

type MonthlySummaryResponse struct {
	BranchID uuid.UUID            `json:"branch_id"`
	Year     int                  `json:"year"`
	Month    int                  `json:"month"`
	Items    []MonthlySummaryItem `json:"items"`
	TotalIn  int64                `json:"total_in"`
	TotalOut int64                `json:"total_out"`
	Net      int64                `json:"net"`
}

// -------------------------------------------------
// GET /api/cash-transactions/summary/monthly?year=2026&month=1&branch_id=...
// branch_admin için branch_id query gerekmez (JWT'den)
// -------------------------------------------------
func MonthlySummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		yearStr := c.Query("year")
		monthStr := c.Query("month")
		if yearStr == "" || monthStr == "" {
			return fiber.NewError(fiber.StatusBadRequest, "year ve month zorunlu")
		}

		var year, month int
		if _, err := fmt.Sscan(yearStr, &year); err != nil || year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "year geçersiz")
		}
		if _, err := fmt.Sscan(monthStr, &month); err != nil || month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month geçersiz")
		}

		loc := time.Now().Location()
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		end := start.AddDate(0, 1, 0)

		type row struct {
			TxnType   string `gorm:"column:txn_type"`
			Direction string `gorm:"column:direction"`
			Total     int64  `gorm:"column:total"`
		}
		var rows []row

		if err := database.DB.Model(&models.CashTransaction{}).
			Select("txn_type, direction, SUM(amount) as total").
			Where("branch_id = ? AND occurred_at >= ? AND occurred_at < ?", branchID, start, end).
			Group("txn_type").Group("direction").
			Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet hesaplanamadı")
		}

		byType := map[models.TxnType]*MonthlySummaryItem{}
		order := []models.TxnType{}
		resp := MonthlySummaryResponse{BranchID: branchID, Year: year, Month: month}

		for _, r := range rows {
			t := models.TxnType(r.TxnType)
			item, ok := byType[t]
			if !ok {
				item = &MonthlySummaryItem{TxnType: t}
				byType[t] = item
				order = append(order, t)
			}
			if models.TxnDirection(r.Direction) == models.DirectionIn {
				item.In += r.Total
				resp.TotalIn += r.Total
			} else {
				item.Out += r.Total
				resp.TotalOut += r.Total
			}
		}

		resp.Items = make([]MonthlySummaryItem, 0, len(order))
		for _, t := range order {
			resp.Items = append(resp.Items, *byType[t])
		}
		resp.Net = resp.TotalIn - resp.TotalOut

		return c.JSON(resp)
	}
}
