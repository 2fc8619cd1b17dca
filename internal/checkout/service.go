package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout/stock"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// Service turns a cart or a buy-now selection into an order.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	Preview(ctx context.Context, input PreviewInput) (*Preview, error)
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Deps struct {
	Tx        db.TxRunner
	Catalog   *catalog.Repository
	Carts     cart.CartRepository
	Addresses *address.Repository
	Orders    orders.Repository
	Users     userLoader
	Outbox    outbox.Emitter
	Metrics   *metrics.OrderMetrics
	Logger    *logger.Logger
}

type service struct {
	tx        db.TxRunner
	catalog   *catalog.Repository
	carts     cart.CartRepository
	addresses *address.Repository
	orders    orders.Repository
	users     userLoader
	outbox    outbox.Emitter
	metrics   *metrics.OrderMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the checkout service. Metrics and Logger are optional.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Addresses == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		tx:        deps.Tx,
		catalog:   deps.Catalog,
		carts:     deps.Carts,
		addresses: deps.Addresses,
		orders:    deps.Orders,
		users:     deps.Users,
		outbox:    deps.Outbox,
		metrics:   deps.Metrics,
		logg:      deps.Logger,
		now:       time.Now,
	}, nil
}

// orderLine is a priced line ready to be written as an order item.
type orderLine struct {
	product  *models.Product
	quantity int
	size     *string
	price    decimal.Decimal
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	flow := metrics.FlowCart
	if input.BuyNow != nil {
		flow = metrics.FlowBuyNow
	}

	result, err := s.placeOrder(ctx, input)
	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		s.metrics.IncRejected(flow, string(code))
		if s.logg != nil && (code == pkgerrors.CodeInternal || code == pkgerrors.CodeDependency) {
			s.logg.Error(s.logg.WithUserID(ctx, input.UserID.String()), "place order failed", err)
		}
		return nil, err
	}

	s.metrics.IncPlaced(flow)
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, input.UserID.String()), result.Order.ID.String())
		s.logg.Info(s.logg.WithField(logCtx, "flow", flow), "order placed")
	}
	return result, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if input.AddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address_id is required")
	}
	if input.BuyNow != nil {
		if input.BuyNow.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if input.BuyNow.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	var placed *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		addr, err := s.addresses.WithTx(tx).FindForUser(ctx, input.UserID, input.AddressID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}

		var (
			lines  []orderLine
			cartID *uuid.UUID
		)
		if input.BuyNow != nil {
			lines, err = s.buyNowLines(ctx, tx, input.BuyNow)
		} else {
			lines, cartID, err = s.cartLines(ctx, tx, input.UserID)
		}
		if err != nil {
			return err
		}

		now := s.now().UTC()
		order, err := s.writeOrder(ctx, tx, input.UserID, addr.ID, lines, now)
		if err != nil {
			return err
		}

		if err := stock.Decrement(ctx, tx, stockLines(lines)); err != nil {
			return err
		}

		if cartID != nil {
			if err := s.carts.WithTx(tx).ClearItems(ctx, *cartID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			Data:          orderPlacedPayload(user, addr, order, input.BuyNow != nil),
			OccurredAt:    now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_placed")
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &PlaceOrderResult{Order: orders.NewOrderDTO(placed)}, nil
}

func (s *service) buyNowLines(ctx context.Context, tx *gorm.DB, in *BuyNowInput) ([]orderLine, error) {
	product, err := s.catalog.WithTx(tx).FindProductByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.Stock < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "Sorry, this product is out of stock.").
			WithDetails(map[string]any{"product_id": product.ID})
	}
	if in.Quantity > product.Stock {
		return nil, pkgerrors.Newf(pkgerrors.CodeInsufficient, "Only %d items available.", product.Stock).
			WithDetails(map[string]any{"product_id": product.ID, "available": product.Stock})
	}
	size := trimSize(in.Size)
	if size != nil && !catalog.HasSize(product, *size) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size not available for this product").
			WithDetails(map[string]any{"size": *size, "sizes": catalog.NormalizeSizes(product.Sizes)})
	}
	return []orderLine{{
		product:  product,
		quantity: in.Quantity,
		size:     size,
		price:    catalog.FinalPrice(product),
	}}, nil
}

// cartLines loads the cart and checks every line against stock before any
// row is touched.
func (s *service) cartLines(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]orderLine, *uuid.UUID, error) {
	carts := s.carts.WithTx(tx)
	c, err := carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	items, err := carts.ListItems(ctx, c.ID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	checks := make([]stock.Line, 0, len(items))
	lines := make([]orderLine, 0, len(items))
	for _, item := range items {
		if item.Product == nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		checks = append(checks, stock.Line{
			ProductID: item.ProductID,
			Name:      item.Product.Name,
			Requested: item.Quantity,
			Available: item.Product.Stock,
		})
		lines = append(lines, orderLine{
			product:  item.Product,
			quantity: item.Quantity,
			size:     item.Size,
			price:    catalog.FinalPrice(item.Product),
		})
	}
	if err := stock.Check(checks); err != nil {
		return nil, nil, err
	}
	return lines, &c.ID, nil
}

func (s *service) writeOrder(ctx context.Context, tx *gorm.DB, userID, addressID uuid.UUID, lines []orderLine, now time.Time) (*models.Order, error) {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
	}

	repo := s.orders.WithTx(tx)
	order := &models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		AddressID:   &addressID,
		Status:      enums.OrderStatusPlaced,
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repo.CreateOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		productID := line.product.ID
		items = append(items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: line.product.Name,
			Quantity:    line.quantity,
			Price:       line.price,
			Size:        line.size,
		})
	}
	if err := repo.CreateItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
	}
	order.Items = items
	return order, nil
}

func (s *service) Preview(ctx context.Context, input PreviewInput) (*Preview, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	addrs, err := s.addresses.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	out := &Preview{Addresses: address.FromModels(addrs)}

	if input.BuyNow != nil {
		if err := s.previewBuyNow(ctx, input.BuyNow, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	out.Items = make([]cart.LineDTO, 0)
	out.Totals = cart.Summarize(nil)
	c, err := s.carts.FindByUser(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return out, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	items, err := s.carts.ListItems(ctx, c.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	for _, item := range items {
		out.Items = append(out.Items, cart.NewLineDTO(item))
	}
	out.Totals = cart.Summarize(items)
	return out, nil
}

// previewBuyNow clamps the requested quantity into [1, stock].
func (s *service) previewBuyNow(ctx context.Context, in *BuyNowInput, out *Preview) error {
	product, err := s.catalog.FindProductByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	quantity := in.Quantity
	if quantity < 1 {
		quantity = 1
	}
	switch {
	case product.Stock < 1:
		quantity = 0
		out.Message = "Sorry, this product is out of stock."
	case quantity > product.Stock:
		quantity = product.Stock
		out.Message = fmt.Sprintf("Only %d items available. Quantity adjusted.", product.Stock)
	}

	item := models.CartItem{ProductID: product.ID, Product: product, Quantity: quantity, Size: trimSize(in.Size)}
	line := cart.NewLineDTO(item)
	out.BuyNow = &BuyNowLine{
		Product:    line.Product,
		Quantity:   quantity,
		Size:       item.Size,
		UnitPrice:  line.UnitPrice,
		TotalPrice: line.TotalPrice,
	}
	out.Totals = cart.Summarize([]models.CartItem{item})
	return nil
}

func stockLines(lines []orderLine) []stock.Line {
	out := make([]stock.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, stock.Line{
			ProductID: line.product.ID,
			Name:      line.product.Name,
			Requested: line.quantity,
			Available: line.product.Stock,
		})
	}
	return out
}

func trimSize(size *string) *string {
	if size == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*size)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func orderPlacedPayload(user *models.User, addr *models.Address, order *models.Order, buyNow bool) payloads.OrderPlacedEvent {
	items := make([]payloads.OrderPlacedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, payloads.OrderPlacedItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Size:        item.Size,
		})
	}
	return payloads.OrderPlacedEvent{
		OrderID:      order.ID,
		UserID:       user.ID,
		CustomerName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		Email:        user.Email,
		TotalAmount:  order.TotalAmount,
		Items:        items,
		ShipTo: &payloads.ShippingAddress{
			FullName:    addr.FullName,
			PhoneNumber: addr.PhoneNumber,
			AddressLine: addr.AddressLine,
			Landmark:    addr.Landmark,
			City:        addr.City,
			State:       addr.State,
			Pincode:     addr.Pincode,
		},
		BuyNow:   buyNow,
		PlacedAt: order.CreatedAt,
	}
}
