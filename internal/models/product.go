package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product: ham madde katalog kaydı. Stok ve maliyet şube bazında
// BranchProduct üzerinde tutulur.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:255;not null;unique"`
	Unit      string    `gorm:"size:10;not null"` // pcs, kg, l, gr, ml
	SKU       *string   `gorm:"size:64;uniqueIndex"` // nil = kodsuz ürün
	Barcode   *string   `gorm:"size:64;uniqueIndex"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
