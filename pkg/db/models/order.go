package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a placed purchase. Items are immutable once written.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	User        *User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	AddressID   *uuid.UUID        `gorm:"column:address_id;type:uuid"`
	Address     *Address          `gorm:"foreignKey:AddressID;constraint:OnDelete:SET NULL"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'Placed'"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment     *Payment          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem freezes the product name and unit price at order time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Product     *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Size        *string         `gorm:"column:size"`
}
