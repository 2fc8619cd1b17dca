// Package stock validates and decrements product stock for order placement.
package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Line is one product quantity an order wants to take.
type Line struct {
	ProductID uuid.UUID
	Name      string
	Requested int
	Available int
}

// Shortage describes a line that asks for more than is available.
type Shortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name,omitempty"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// ShortageError carries a single Shortage.
type ShortageError struct {
	Shortage
}

func (e *ShortageError) Error() string {
	return fmt.Sprintf("product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Check verifies every line against the stock it was loaded with. All
// shortages are reported together so the shopper can fix the cart in one go.
func Check(lines []Line) error {
	var errs error
	for _, line := range lines {
		if line.Requested > line.Available {
			errs = multierr.Append(errs, &ShortageError{Shortage{
				ProductID: line.ProductID,
				Name:      line.Name,
				Requested: line.Requested,
				Available: line.Available,
			}})
		}
	}
	if errs == nil {
		return nil
	}

	shortages := make([]Shortage, 0)
	for _, err := range multierr.Errors(errs) {
		if se, ok := err.(*ShortageError); ok {
			shortages = append(shortages, se.Shortage)
		}
	}
	message := "Not enough stock."
	if len(shortages) == 1 && shortages[0].Name != "" {
		message = fmt.Sprintf("Not enough stock for %s.", shortages[0].Name)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInsufficient, errs, message).
		WithDetails(map[string]any{"items": shortages})
}

// Decrement takes each line's quantity off products.stock inside tx. The
// update only applies while enough stock remains, so concurrent orders can
// never drive stock negative; a line that loses the race fails the whole tx.
func Decrement(ctx context.Context, tx *gorm.DB, lines []Line) error {
	for _, line := range lines {
		if line.Requested <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		res := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND stock >= ?", line.ProductID, line.Requested).
			UpdateColumn("stock", gorm.Expr("stock - ?", line.Requested))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
		}
		if res.RowsAffected == 0 {
			available, err := currentStock(ctx, tx, line.ProductID)
			if err != nil {
				return err
			}
			return pkgerrors.New(pkgerrors.CodeInsufficient, "Not enough stock.").
				WithDetails(map[string]any{"items": []Shortage{{
					ProductID: line.ProductID,
					Name:      line.Name,
					Requested: line.Requested,
					Available: available,
				}}})
		}
	}
	return nil
}

// currentStock reads what a competing order left behind. A product deleted in
// the meantime counts as zero.
func currentStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (int, error) {
	var product models.Product
	err := tx.WithContext(ctx).Select("stock").Where("id = ?", productID).Take(&product).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return 0, nil
	case err != nil:
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read stock")
	}
	return max(product.Stock, 0), nil
}
