package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Payment records how an order was paid. At most one exists per order.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method        enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	TransactionID *string             `gorm:"column:transaction_id"`
	Amount        decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	IsSuccessful  bool                `gorm:"column:is_successful;not null;default:false"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
