package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BranchProduct: stok defterinin güncel durum projeksiyonu; (şube, ürün)
// başına tek satır. Yalnızca import POST'u (artış + ağırlıklı ortalama) ve
// reçete tüketimi (azalış) tarafından değiştirilir. StockQty hiçbir zaman
// negatife düşmez; düşürecek deneme hata ile reddedilir.
type BranchProduct struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_branch_product"`
	Branch    Branch
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_branch_product"`
	Product   Product

	StockQty     decimal.Decimal `gorm:"type:numeric(14,3);not null;default:0"`
	AvgUnitCost  int64           `gorm:"not null;default:0"`
	LastUnitCost int64           `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (bp *BranchProduct) BeforeCreate(tx *gorm.DB) error {
	if bp.ID == uuid.Nil {
		bp.ID = uuid.New()
	}
	return nil
}
