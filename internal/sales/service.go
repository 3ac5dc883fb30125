package sales

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
	"lokanta-backend/internal/database"
	"lokanta-backend/internal/finance"
	"lokanta-backend/internal/inventory"
	"lokanta-backend/internal/menu"
	"lokanta-backend/internal/models"
)

// Sipariş yaşam döngüsü: DRAFT --(kalem ekle)--> DRAFT --(tam ödeme)--> PAID.
// Ondan bağımsız mark_delivered bir kez stok düşer; PAID + teslim bir araya
// gelince sipariş kalıcı olarak kilitlenir.

func lockOrder(tx *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var o models.Order
	if err := database.ForUpdate(tx).First(&o, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

type CreateOrderInput struct {
	BranchID  uuid.UUID
	OrderType models.OrderType
	Note      string
}

func CreateOrder(db *gorm.DB, in CreateOrderInput, actor core.Actor) (*models.Order, error) {
	if !actor.Scope.CanAccessBranch(in.BranchID) {
		return nil, core.Forbiddenf("başka şube için sipariş açılamaz")
	}

	orderType := in.OrderType
	if orderType == "" {
		orderType = models.OrderTypeDineIn
	}
	switch orderType {
	case models.OrderTypeDineIn, models.OrderTypeTakeaway, models.OrderTypeDelivery:
	default:
		return nil, core.Validationf("geçersiz sipariş tipi: %s", orderType)
	}

	o := models.Order{
		BranchID:    in.BranchID,
		OrderType:   orderType,
		Status:      models.OrderStatusDraft,
		Note:        in.Note,
		CreatedByID: &actor.UserID,
	}
	if err := db.Create(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// RecalcOrderTotals: total_amount ve paid_amount cache'lerini satırlardan
// yeniden hesaplar. Artımlı aritmetiğe güvenilmez; her mutasyondan sonra
// buradan geçilir.
func RecalcOrderTotals(tx *gorm.DB, order *models.Order) error {
	var total int64
	if err := tx.Model(&models.OrderItem{}).
		Where("order_id = ?", order.ID).
		Select("COALESCE(SUM(line_total), 0)").
		Scan(&total).Error; err != nil {
		return err
	}

	var paid int64
	if err := tx.Model(&models.OrderPayment{}).
		Where("order_id = ?", order.ID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&paid).Error; err != nil {
		return err
	}

	if err := tx.Model(order).Updates(map[string]interface{}{
		"total_amount": total,
		"paid_amount":  paid,
	}).Error; err != nil {
		return err
	}

	order.TotalAmount = total
	order.PaidAmount = paid
	return nil
}

// AddItem: DRAFT siparişe kalem ekler; aynı food zaten varsa miktarı artırır.
// UnitPrice food'un o anki satış fiyatından snapshot alınır.
func AddItem(db *gorm.DB, orderID, foodID uuid.UUID, qty int, actor core.Actor) (*models.OrderItem, error) {
	if qty <= 0 {
		return nil, core.Validationf("miktar 0'dan büyük olmalı")
	}

	var item models.OrderItem
	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		if !actor.Scope.CanAccessBranch(o.BranchID) {
			return core.Forbiddenf("başka şubenin siparişi düzenlenemez")
		}
		if err := o.EnsureItemsEditable(); err != nil {
			return err
		}

		var food models.Food
		if err := tx.First(&food, "id = ?", foodID).Error; err != nil {
			return err
		}
		if food.BranchID != o.BranchID {
			return core.CrossBranchf("food siparişin şubesine ait değil")
		}
		if !food.IsActive {
			return core.Validationf("pasif food siparişe eklenemez: %s", food.Name)
		}

		unitPrice := food.SellPrice

		err = tx.Where("order_id = ? AND food_id = ?", o.ID, food.ID).First(&item).Error
		switch {
		case err == nil:
			// Aynı food tekrar eklendi: satır çoğaltılmaz, miktar artar.
			// UnitPrice ilk snapshot'ta kalır.
			item.Qty += qty
			item.LineTotal = item.UnitPrice * int64(item.Qty)
			if err := tx.Model(&item).Updates(map[string]interface{}{
				"qty":        item.Qty,
				"line_total": item.LineTotal,
			}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			item = models.OrderItem{
				OrderID:   o.ID,
				FoodID:    food.ID,
				Qty:       qty,
				UnitPrice: unitPrice,
				LineTotal: unitPrice * int64(qty),
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		default:
			return err
		}

		return RecalcOrderTotals(tx, o)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// RemoveItem: DRAFT siparişten kalem siler. Kilit/teslim kuralları AddItem
// ile aynıdır.
func RemoveItem(db *gorm.DB, orderID, itemID uuid.UUID, actor core.Actor) error {
	return db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		if !actor.Scope.CanAccessBranch(o.BranchID) {
			return core.Forbiddenf("başka şubenin siparişi düzenlenemez")
		}
		if err := o.EnsureItemsEditable(); err != nil {
			return err
		}

		var item models.OrderItem
		if err := tx.Where("id = ? AND order_id = ?", itemID, o.ID).First(&item).Error; err != nil {
			return err
		}
		if err := tx.Delete(&item).Error; err != nil {
			return err
		}

		return RecalcOrderTotals(tx, o)
	})
}

// PayOrder: siparişe ödeme yazar ve kasaya IN kaydı düşer. Ödeme ile kasa
// kaydı bire bir bağlanır; aynı ödeme için ikinci bir kasa kaydı yapısal
// olarak imkansızdır.
func PayOrder(db *gorm.DB, orderID, accountID uuid.UUID, amount int64, note string, actor core.Actor) (*models.OrderPayment, error) {
	var payment models.OrderPayment

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		if err := o.EnsureMutable(); err != nil {
			return err
		}
		if !actor.Scope.CanAccessBranch(o.BranchID) {
			return core.Forbiddenf("başka şubenin siparişine ödeme yazılamaz")
		}

		var acc models.MoneyAccount
		if err := tx.First(&acc, "id = ?", accountID).Error; err != nil {
			return err
		}
		if acc.BranchID != o.BranchID {
			return core.CrossBranchf("ödeme hesabı siparişin şubesine ait değil")
		}
		if !acc.IsActive {
			return core.Validationf("pasif hesaba ödeme yazılamaz: %s", acc.Name)
		}

		if o.Status == models.OrderStatusCanceled {
			return core.IllegalStatef("iptal edilmiş sipariş ödenemez")
		}
		if o.Status == models.OrderStatusPaid {
			return core.IllegalStatef("sipariş zaten ödenmiş")
		}

		if err := RecalcOrderTotals(tx, o); err != nil {
			return err
		}

		due := o.TotalAmount - o.PaidAmount
		if amount <= 0 {
			return core.Validationf("tutar 0'dan büyük olmalı")
		}
		if amount > due {
			return core.Validationf("tutar kalan borçtan büyük: kalan=%d", due)
		}

		payment = models.OrderPayment{
			OrderID:   o.ID,
			AccountID: acc.ID,
			Amount:    amount,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		txnNote := note
		if txnNote == "" {
			txnNote = "Sipariş " + o.ID.String()[:8] + " ödemesi"
		}
		txn, err := finance.RecordCashTxn(tx, finance.RecordCashTxnInput{
			AccountID: acc.ID,
			Direction: models.DirectionIn,
			TxnType:   models.TxnTypeSale,
			Amount:    amount,
			Note:      txnNote,
			RefType:   models.RefTypeOrderPayment,
			RefID:     &payment.ID,
		})
		if err != nil {
			return err
		}
		if err := tx.Model(&payment).Update("cash_txn_id", txn.ID).Error; err != nil {
			return err
		}
		payment.CashTxnID = &txn.ID

		if err := RecalcOrderTotals(tx, o); err != nil {
			return err
		}

		// Tam ödendiyse PAID; teslim de edildiyse sipariş kilitlenir
		if o.IsFullyPaid() {
			now := time.Now()
			if err := tx.Model(o).Updates(map[string]interface{}{
				"status":     models.OrderStatusPaid,
				"paid_at":    now,
				"paid_by_id": actor.UserID,
			}).Error; err != nil {
				return err
			}
			o.Status = models.OrderStatusPaid
			o.PaidAt = &now
			o.PaidByID = &actor.UserID

			if o.IsDelivered && !o.IsLocked {
				if err := lockOrderPermanently(tx, o, actor); err != nil {
					return err
				}
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// MarkDelivered: siparişi teslim edildi işaretler ve stoğu (bir kez) düşer.
// İdempotent ve kendi kendini onaran: zaten teslim edilmişse yalnızca stok
// düşümünün yapılmış olduğundan emin olur.
func MarkDelivered(db *gorm.DB, orderID uuid.UUID, actor core.Actor) (*models.Order, error) {
	var result models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		if !actor.Scope.CanAccessBranch(o.BranchID) {
			return core.Forbiddenf("başka şubenin siparişi teslim edilemez")
		}

		if o.IsDelivered {
			// yarım kalmış önceki denemeyi tamamla
			if err := applyStock(tx, o, actor); err != nil {
				return err
			}
			result = *o
			return nil
		}

		if o.Status == models.OrderStatusCanceled {
			return core.IllegalStatef("iptal edilmiş sipariş teslim edilemez")
		}

		now := time.Now()
		if err := tx.Model(o).Updates(map[string]interface{}{
			"is_delivered":    true,
			"delivered_at":    now,
			"delivered_by_id": actor.UserID,
		}).Error; err != nil {
			return err
		}
		o.IsDelivered = true
		o.DeliveredAt = &now
		o.DeliveredByID = &actor.UserID

		if err := applyStock(tx, o, actor); err != nil {
			return err
		}

		// Zaten tam ödenmişse teslimle birlikte kilitlenir
		if o.Status == models.OrderStatusPaid && !o.IsLocked {
			if err := lockOrderPermanently(tx, o, actor); err != nil {
				return err
			}
		}

		result = *o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ApplyStockForOrderIfNeeded: teslim edilmiş ama stoğu düşülmemiş sipariş
// için reçete tüketimini uygular. stock_applied bayrağı ile idempotenttir.
func ApplyStockForOrderIfNeeded(db *gorm.DB, orderID uuid.UUID, actor core.Actor) error {
	return db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !actor.Scope.CanAccessBranch(o.BranchID) {
			return core.Forbiddenf("başka şubenin siparişinde stok düşülemez")
		}
		return applyStock(tx, o, actor)
	})
}

// applyStock: asıl stok düşümü. Çağıranın transaction'ı içinde koşar; tek bir
// kalemde bile stok yetmezse tüm düşümler geri alınır.
func applyStock(tx *gorm.DB, o *models.Order, actor core.Actor) error {
	if o.StockApplied {
		return nil
	}
	if !o.IsDelivered {
		return core.IllegalStatef("stok yalnızca teslim edilmiş sipariş için düşülür")
	}

	var items []models.OrderItem
	if err := tx.Preload("Food").Where("order_id = ?", o.ID).Find(&items).Error; err != nil {
		return err
	}

	totalCogs := decimal.Zero
	for _, it := range items {
		lines, err := menu.ResolveRecipe(tx, &it.Food, it.Qty)
		if err != nil {
			return err
		}
		for _, line := range lines {
			cogs, err := inventory.ConsumeStock(tx, o.BranchID, line.ProductID, line.Qty)
			if err != nil {
				return err
			}
			totalCogs = totalCogs.Add(cogs)
		}
	}

	cogsAmount := totalCogs.Round(0).IntPart()
	profitAmount := o.TotalAmount - cogsAmount

	if err := tx.Model(o).Updates(map[string]interface{}{
		"stock_applied": true,
		"cogs_amount":   cogsAmount,
		"profit_amount": profitAmount,
	}).Error; err != nil {
		return err
	}

	o.StockApplied = true
	o.CogsAmount = cogsAmount
	o.ProfitAmount = profitAmount
	return nil
}

// CancelOrder: yalnızca ödemesi olmayan DRAFT sipariş iptal edilebilir;
// sonrası kasa/stok geri alımı gerektirir ve bu sistemde yoktur.
func CancelOrder(db *gorm.DB, orderID uuid.UUID, actor core.Actor) (*models.Order, error) {
	var result models.Order

	err := db.Transaction(func(tx *gorm.DB) error {
		o, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}

		if !actor.Scope.CanAccessBranch(o.BranchID) {
			return core.Forbiddenf("başka şubenin siparişi iptal edilemez")
		}
		if err := o.EnsureMutable(); err != nil {
			return err
		}
		if o.Status != models.OrderStatusDraft {
			return core.IllegalStatef("yalnızca DRAFT sipariş iptal edilebilir")
		}
		if o.IsDelivered || o.StockApplied {
			return core.IllegalStatef("teslim edilmiş sipariş iptal edilemez")
		}
		if o.PaidAmount > 0 {
			return core.IllegalStatef("ödemesi olan sipariş iptal edilemez")
		}

		if err := tx.Model(o).Update("status", models.OrderStatusCanceled).Error; err != nil {
			return err
		}
		o.Status = models.OrderStatusCanceled
		result = *o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func lockOrderPermanently(tx *gorm.DB, o *models.Order, actor core.Actor) error {
	now := time.Now()
	if err := tx.Model(o).Updates(map[string]interface{}{
		"is_locked":    true,
		"locked_at":    now,
		"locked_by_id": actor.UserID,
	}).Error; err != nil {
		return err
	}
	o.IsLocked = true
	o.LockedAt = &now
	o.LockedByID = &actor.UserID
	return nil
}
