package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product line in a cart.
type CartItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID    uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Product   *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Quantity  int       `gorm:"column:quantity;not null;default:1"`
	Size      *string   `gorm:"column:size"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
