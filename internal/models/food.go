package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FoodType string

const (
	FoodTypeFastfood FoodType = "FASTFOOD"
	FoodTypeDrink    FoodType = "DRINK"
	FoodTypeSet      FoodType = "SET"
)

type FoodCategory struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_branch_foodcategory"`
	Branch    Branch
	Type      FoodType `gorm:"size:20;not null;default:FASTFOOD;uniqueIndex:uniq_branch_foodcategory"`
	Name      string   `gorm:"size:80;not null;uniqueIndex:uniq_branch_foodcategory"`
	SortOrder int      `gorm:"not null;default:0"`
	IsActive  bool     `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (fc *FoodCategory) BeforeCreate(tx *gorm.DB) error {
	if fc.ID == uuid.Nil {
		fc.ID = uuid.New()
	}
	return nil
}

// Food: satılabilir menü kalemi. SellPrice sipariş kalemine eklenirken
// snapshot alınır; sonradan fiyat değişse de eski siparişler etkilenmez.
type Food struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BranchID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uniq_branch_food_name"`
	Branch     Branch
	Type       FoodType   `gorm:"size:20;not null;default:FASTFOOD"`
	CategoryID *uuid.UUID `gorm:"type:uuid"`
	Category   *FoodCategory

	Name      string `gorm:"size:255;not null;uniqueIndex:uniq_branch_food_name"`
	SellPrice int64  `gorm:"not null;default:0"`
	SortOrder int    `gorm:"not null;default:0"`
	IsActive  bool   `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (f *Food) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// FoodItem: SET olmayan bir Food'un reçete satırı (ürün + miktar).
// SET food için FoodItem yazılmaz; SET içeriği SetItem ile kurulur.
type FoodItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FoodID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_food_product"`
	Food      Food
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_food_product"`
	Product   Product

	Qty decimal.Decimal `gorm:"type:numeric(14,3);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (fi *FoodItem) BeforeCreate(tx *gorm.DB) error {
	if fi.ID == uuid.Nil {
		fi.ID = uuid.New()
	}
	return nil
}

// SetItem: SET menünün bileşeni; bileşen food SET olamaz, yani kompozisyon
// tek seviyedir.
type SetItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SetFoodID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_set_food"`
	SetFood   Food      `gorm:"foreignKey:SetFoodID"`
	FoodID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_set_food"`
	Food      Food      `gorm:"foreignKey:FoodID"`

	Qty int `gorm:"not null;default:1"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (si *SetItem) BeforeCreate(tx *gorm.DB) error {
	if si.ID == uuid.Nil {
		si.ID = uuid.New()
	}
	return nil
}
