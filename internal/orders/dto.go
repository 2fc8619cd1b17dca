package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ItemDTO is a frozen order line.
type ItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Size        *string         `json:"size,omitempty"`
}

// OrderDTO is the order summary used by lists and confirmations.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	AddressID   *uuid.UUID        `json:"address_id,omitempty"`
	Items       []ItemDTO         `json:"items"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// PaymentDTO is the informational payment record of an order.
type PaymentDTO struct {
	ID            uuid.UUID           `json:"id"`
	OrderID       uuid.UUID           `json:"order_id"`
	Method        enums.PaymentMethod `json:"method"`
	TransactionID *string             `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal     `json:"amount"`
	IsSuccessful  bool                `json:"is_successful"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Detail is the full order page payload.
type Detail struct {
	OrderDTO
	Address  *address.DTO   `json:"address,omitempty"`
	Payment  *PaymentDTO    `json:"payment,omitempty"`
	Timeline []TimelineStep `json:"timeline"`
}

// List is a cursor page of orders.
type List struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func NewOrderDTO(order *models.Order) OrderDTO {
	items := make([]ItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, ItemDTO{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			TotalPrice:  item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
			Size:        item.Size,
		})
	}
	return OrderDTO{
		ID:          order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		AddressID:   order.AddressID,
		Items:       items,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}
}

func NewPaymentDTO(p *models.Payment) *PaymentDTO {
	if p == nil {
		return nil
	}
	return &PaymentDTO{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Method:        p.Method,
		TransactionID: p.TransactionID,
		Amount:        p.Amount,
		IsSuccessful:  p.IsSuccessful,
		CreatedAt:     p.CreatedAt,
	}
}

func newDetail(order *models.Order) *Detail {
	detail := &Detail{
		OrderDTO: NewOrderDTO(order),
		Payment:  NewPaymentDTO(order.Payment),
		Timeline: BuildTimeline(order.Status),
	}
	if order.Address != nil {
		addr := address.FromModel(order.Address)
		detail.Address = &addr
	}
	return detail
}
