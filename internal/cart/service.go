package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Service exposes the shopper's cart.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*LineResult, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*LineResult, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*LineResult, error)
	Count(ctx context.Context, userID uuid.UUID) (int, error)
}

// AddItemInput adds Quantity units of a product. Quantity defaults to 1.
type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int
	Size      *string
}

// UpdateItemInput changes a line. Remove or a non-positive Quantity deletes it.
type UpdateItemInput struct {
	Quantity int
	Size     *string
	Remove   bool
}

type service struct {
	repo     CartRepository
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, products productLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: repo, products: products}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}

	lines := make([]LineDTO, 0, len(items))
	inCart := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		lines = append(lines, NewLineDTO(item))
		inCart = append(inCart, item.ProductID)
	}

	related, err := s.products.Related(ctx, nil, inCart, catalog.RelatedLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load related products")
	}

	return &View{
		ID:      cart.ID,
		Items:   lines,
		Related: catalog.NewProductDTOs(related),
		Totals:  Summarize(items),
	}, nil
}

func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*LineResult, error) {
	qty := input.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	size := normalizeSize(input.Size)

	product, err := s.products.FindProductByID(ctx, input.ProductID)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if product.Stock <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "Sorry, this product is out of stock.").
			WithDetails(map[string]any{"product_id": product.ID, "remaining": 0})
	}
	if size != nil && !catalog.HasSize(product, *size) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size is not offered for this product").
			WithDetails(map[string]any{"size": *size, "sizes": []string(product.Sizes)})
	}

	cart, err := s.ensureCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindItemByProduct(ctx, cart.ID, product.ID)
	switch {
	case err == nil:
		total := existing.Quantity + qty
		if total > product.Stock {
			return nil, notEnoughStock(product, fmt.Sprintf("Not enough stock. Only %d left.", product.Stock))
		}
		if err := s.repo.UpdateItem(ctx, existing.ID, total, size); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		existing.Quantity = total
		if size != nil {
			existing.Size = size
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if qty > product.Stock {
			return nil, notEnoughStock(product, fmt.Sprintf("Not enough stock. Only %d left.", product.Stock))
		}
		existing = &models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: qty, Size: size}
		if err := s.repo.CreateItem(ctx, existing); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item was added concurrently; retry")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	existing.Product = product
	return s.lineResult(ctx, userID, existing)
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*LineResult, error) {
	item, err := s.repo.FindItemForUser(ctx, userID, itemID)
	if err != nil {
		return nil, notFoundOr(err, "Item no longer in cart.", "load cart item")
	}

	if input.Remove || input.Quantity <= 0 {
		return s.deleteLine(ctx, userID, item.ID)
	}

	size := normalizeSize(input.Size)
	if size != nil && !catalog.HasSize(item.Product, *size) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size is not offered for this product")
	}
	if item.Product != nil && input.Quantity > item.Product.Stock {
		return nil, notEnoughStock(item.Product, fmt.Sprintf("Only %d left in stock.", item.Product.Stock))
	}

	if err := s.repo.UpdateItem(ctx, item.ID, input.Quantity, size); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	item.Quantity = input.Quantity
	if size != nil {
		item.Size = size
	}
	return s.lineResult(ctx, userID, item)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*LineResult, error) {
	item, err := s.repo.FindItemForUser(ctx, userID, itemID)
	if err != nil {
		return nil, notFoundOr(err, "Item no longer in cart.", "load cart item")
	}
	return s.deleteLine(ctx, userID, item.ID)
}

func (s *service) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.SumQuantity(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cart items")
	}
	return count, nil
}

func (s *service) deleteLine(ctx context.Context, userID, itemID uuid.UUID) (*LineResult, error) {
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	count, err := s.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &LineResult{Removed: true, CartCount: count}, nil
}

func (s *service) lineResult(ctx context.Context, userID uuid.UUID, item *models.CartItem) (*LineResult, error) {
	count, err := s.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	line := NewLineDTO(*item)
	return &LineResult{Item: &line, CartCount: count}, nil
}

// ensureCart returns the user's cart, creating it on first access.
func (s *service) ensureCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{UserID: userID}
	if err := s.repo.Create(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, "") {
			// Lost a get-or-create race; the winner's row is the cart.
			if cart, err = s.repo.FindByUser(ctx, userID); err == nil {
				return cart, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func normalizeSize(size *string) *string {
	if size == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*size)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func notEnoughStock(product *models.Product, message string) error {
	return pkgerrors.New(pkgerrors.CodeInsufficient, message).
		WithDetails(map[string]any{"product_id": product.ID, "remaining": product.Stock})
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
