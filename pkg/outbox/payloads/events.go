package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderPlacedEvent carries everything the notification email needs so the
// consumer never reads back from the order tables.
type OrderPlacedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	UserID       uuid.UUID         `json:"user_id"`
	CustomerName string            `json:"customer_name"`
	Email        string            `json:"email"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Items        []OrderPlacedItem `json:"items"`
	ShipTo       *ShippingAddress  `json:"ship_to,omitempty"`
	BuyNow       bool              `json:"buy_now"`
	PlacedAt     time.Time         `json:"placed_at"`
}

// OrderPlacedItem is the line snapshot included in OrderPlacedEvent.
type OrderPlacedItem struct {
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Size        *string         `json:"size,omitempty"`
}

// ShippingAddress is the address snapshot included in OrderPlacedEvent.
type ShippingAddress struct {
	FullName    string  `json:"full_name"`
	PhoneNumber string  `json:"phone_number"`
	AddressLine string  `json:"address_line"`
	Landmark    *string `json:"landmark,omitempty"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Pincode     string  `json:"pincode"`
}

// OrderStatusChangedEvent is emitted when an operator moves an order along its lifecycle.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	ChangedAt time.Time         `json:"changed_at"`
}

// PaymentRecordedEvent is emitted once a payment row is stored for an order.
type PaymentRecordedEvent struct {
	PaymentID    uuid.UUID           `json:"payment_id"`
	OrderID      uuid.UUID           `json:"order_id"`
	Method       enums.PaymentMethod `json:"method"`
	Amount       decimal.Decimal     `json:"amount"`
	IsSuccessful bool                `json:"is_successful"`
}
