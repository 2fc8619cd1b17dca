package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the single shopping cart owned by a user.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
