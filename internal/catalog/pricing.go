package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// FinalPrice is the discount price when one is set, otherwise the list price.
func FinalPrice(p *models.Product) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// DiscountPercent truncates (price - discount) / price to a whole percentage.
func DiscountPercent(p *models.Product) int {
	if p == nil || p.DiscountPrice == nil || !p.Price.IsPositive() {
		return 0
	}
	return int(p.Price.Sub(*p.DiscountPrice).Div(p.Price).Mul(hundred).IntPart())
}

// InStock reports whether at least one unit is available.
func InStock(p *models.Product) bool {
	return p != nil && p.Stock > 0
}

// NormalizeSizes trims labels, drops blanks and removes duplicates keeping the
// first occurrence. The result is never nil.
func NormalizeSizes(labels []string) []string {
	out := make([]string, 0, len(labels))
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// ParseSizes accepts the comma-delimited form older clients still send.
func ParseSizes(raw string) []string {
	return NormalizeSizes(strings.Split(raw, ","))
}

// HasSize reports whether size is acceptable for p. Products that declare no
// sizes accept any label.
func HasSize(p *models.Product, size string) bool {
	if p == nil {
		return false
	}
	if len(p.Sizes) == 0 {
		return true
	}
	for _, candidate := range p.Sizes {
		if candidate == size {
			return true
		}
	}
	return false
}
