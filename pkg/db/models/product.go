package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// DefaultBrand is stored when a product is created without a brand.
const DefaultBrand = "Unknown"

// Product is a sellable catalog entry. Sizes is an ordered set of labels.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CategoryID    uuid.UUID        `gorm:"column:category_id;type:uuid;not null;index"`
	Category      *Category        `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex"`
	Description   string           `gorm:"column:description;not null;default:''"`
	Brand         string           `gorm:"column:brand;not null;default:'Unknown'"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	DiscountPrice *decimal.Decimal `gorm:"column:discount_price;type:numeric(10,2)"`
	Stock         int              `gorm:"column:stock;not null;default:0"`
	Sizes         pq.StringArray   `gorm:"column:sizes;type:text[];not null;default:'{}'"`
	ImageURL      *string          `gorm:"column:image_url"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}
