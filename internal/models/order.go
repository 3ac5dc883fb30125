package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"lokanta-backend/internal/core"
)

type OrderStatus string

const (
	OrderStatusDraft    OrderStatus = "draft"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

// Order: sipariş. Status (draft/paid/canceled) ile iki tek yönlü bayrak
// (IsDelivered, IsLocked) ve StockApplied birlikte yaşar. IsLocked bir kez
// true olduktan sonra sipariş, kalemleri ve ödemeleri kalıcı olarak
// değiştirilemez; geri açma yolu yoktur.
type Order struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID uuid.UUID `gorm:"type:uuid;not null;index:idx_order_branch_created"`
	Branch   Branch

	OrderType OrderType   `gorm:"size:12;not null;default:dine_in"`
	Status    OrderStatus `gorm:"size:12;not null;default:draft;index"`
	Note      string      `gorm:"size:255"`

	IsDelivered   bool `gorm:"not null;default:false"`
	DeliveredAt   *time.Time
	DeliveredByID *uuid.UUID `gorm:"type:uuid"`

	StockApplied bool `gorm:"not null;default:false"`

	// Türetilmiş cache'ler; RecalcOrderTotals satırlardan yeniden hesaplar.
	TotalAmount int64 `gorm:"not null;default:0"`
	PaidAmount  int64 `gorm:"not null;default:0"`

	// Teslimatta stok düşerken alınan maliyet snapshot'ları.
	CogsAmount   int64 `gorm:"not null;default:0"`
	ProfitAmount int64 `gorm:"not null;default:0"`

	CreatedByID *uuid.UUID `gorm:"type:uuid"`
	PaidByID    *uuid.UUID `gorm:"type:uuid"`
	PaidAt      *time.Time

	IsLocked   bool `gorm:"not null;default:false"`
	LockedAt   *time.Time
	LockedByID *uuid.UUID `gorm:"type:uuid"`

	Items    []OrderItem
	Payments []OrderPayment

	CreatedAt time.Time `gorm:"index:idx_order_branch_created"`
	UpdatedAt time.Time
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *Order) IsFullyPaid() bool {
	return o.TotalAmount > 0 && o.PaidAmount >= o.TotalAmount
}

// EnsureMutable: kilitli siparişte her türlü mutasyonu reddeder.
// Entity seviyesinde tek kapı; servisler her işlemin başında çağırır.
func (o *Order) EnsureMutable() error {
	if o.IsLocked {
		return core.IllegalStatef("sipariş kilitlendi, artık değiştirilemez")
	}
	return nil
}

// EnsureItemsEditable: kalem ekleme/silme yalnızca DRAFT, teslim edilmemiş
// ve stoğu düşülmemiş siparişte yapılabilir.
func (o *Order) EnsureItemsEditable() error {
	if err := o.EnsureMutable(); err != nil {
		return err
	}
	if o.IsDelivered || o.StockApplied {
		return core.IllegalStatef("teslim edilmiş siparişin kalemleri değiştirilemez")
	}
	if o.Status != OrderStatusDraft {
		return core.IllegalStatef("yalnızca DRAFT sipariş düzenlenebilir")
	}
	return nil
}

// OrderItem: sipariş kalemi. UnitPrice food eklendiği andaki satış fiyatının
// snapshot'ıdır.
type OrderItem struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_order_food"`
	FoodID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_order_food"`
	Food    Food

	Qty       int   `gorm:"not null"` // >= 1
	UnitPrice int64 `gorm:"not null"`
	LineTotal int64 `gorm:"not null"` // UnitPrice * Qty

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}

// OrderPayment: sipariş ödemesi. CashTxnID bire bir bağdır; ödeme başına en
// fazla bir kasa kaydı garantisi buradan gelir.
type OrderPayment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index"`
	AccountID uuid.UUID `gorm:"type:uuid;not null"`
	Account   MoneyAccount

	Amount int64 `gorm:"not null"` // > 0

	CashTxnID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	CashTxn   *CashTransaction

	CreatedAt time.Time
}

func (op *OrderPayment) BeforeCreate(tx *gorm.DB) error {
	if op.ID == uuid.Nil {
		op.ID = uuid.New()
	}
	return nil
}
