package checkout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/orders"
)

// BuyNowInput selects a single product instead of the cart.
type BuyNowInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=1"`
	Size      *string   `json:"size,omitempty" validate:"omitempty,max=32"`
}

// PlaceOrderInput is the order request. A nil BuyNow orders the whole cart.
type PlaceOrderInput struct {
	UserID    uuid.UUID
	AddressID uuid.UUID
	BuyNow    *BuyNowInput
}

type PlaceOrderResult struct {
	Order orders.OrderDTO `json:"order"`
}

type PreviewInput struct {
	UserID uuid.UUID
	BuyNow *BuyNowInput
}

// BuyNowLine is the single line of a buy-now preview.
type BuyNowLine struct {
	Product    catalog.ProductDTO `json:"product"`
	Quantity   int                `json:"quantity"`
	Size       *string            `json:"size,omitempty"`
	UnitPrice  decimal.Decimal    `json:"unit_price"`
	TotalPrice decimal.Decimal    `json:"total_price"`
}

// Preview is the checkout page payload.
type Preview struct {
	BuyNow    *BuyNowLine    `json:"buy_now,omitempty"`
	Items     []cart.LineDTO `json:"items,omitempty"`
	Message   string         `json:"message,omitempty"`
	Addresses []address.DTO  `json:"addresses"`
	cart.Totals
}
