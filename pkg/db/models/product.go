package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
)

// Product is a sellable catalog listing.
type Product struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name           string              `gorm:"column:name;not null"`
	Slug           string              `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Description    *string             `gorm:"column:description"`
	Price          decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null"`
	CompareAtPrice decimal.NullDecimal `gorm:"column:compare_at_price;type:numeric(10,2)"`
	CategoryID     *uuid.UUID          `gorm:"column:category_id;type:uuid"`
	Category       *Category           `gorm:"foreignKey:CategoryID"`
	StockQuantity  int                 `gorm:"column:stock_quantity;not null;default:0"`
	Images         dbtypes.StringArray `gorm:"column:images"`
	IsFeatured     bool                `gorm:"column:is_featured;not null;default:false"`
	IsActive       bool                `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Images == nil {
		p.Images = dbtypes.StringArray{}
	}
	return nil
}
