package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Totals summarizes a set of lines. TotalPrice is at list price, TotalDiscount
// is what discounts take off, and Total is what the shopper pays.
type Totals struct {
	TotalPrice    decimal.Decimal `json:"total_price"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	Total         decimal.Decimal `json:"total"`
	Count         int             `json:"count"`
}

// Summarize computes Totals for lines whose Product is loaded.
func Summarize(items []models.CartItem) Totals {
	totals := Totals{TotalPrice: decimal.Zero, TotalDiscount: decimal.Zero}
	for _, item := range items {
		if item.Product == nil {
			continue
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		totals.TotalPrice = totals.TotalPrice.Add(item.Product.Price.Mul(qty))
		totals.TotalDiscount = totals.TotalDiscount.Add(item.Product.Price.Sub(catalog.FinalPrice(item.Product)).Mul(qty))
		totals.Count += item.Quantity
	}
	totals.Total = totals.TotalPrice.Sub(totals.TotalDiscount)
	return totals
}

// LineTotal is quantity times the line's final unit price.
func LineTotal(item models.CartItem) decimal.Decimal {
	return catalog.FinalPrice(item.Product).Mul(decimal.NewFromInt(int64(item.Quantity)))
}
