package dbtest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// SeedUser inserts a user together with the cart every account owns.
func SeedUser(t *testing.T, conn *gorm.DB, email string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Test",
		LastName:     "Shopper",
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&user).Error)
	require.NoError(t, conn.Create(&models.Cart{ID: uuid.New(), UserID: user.ID}).Error)
	return user
}

// SeedCategory inserts a category whose slug is the lower-cased name.
func SeedCategory(t *testing.T, conn *gorm.DB, name string) models.Category {
	t.Helper()
	category := models.Category{
		ID:   uuid.New(),
		Name: name,
		Slug: strings.ToLower(strings.ReplaceAll(name, " ", "-")),
	}
	require.NoError(t, conn.Create(&category).Error)
	return category
}

// ProductOpts tweaks SeedProduct.
type ProductOpts struct {
	Discount string
	Sizes    []string
}

// SeedProduct inserts a product priced at price with the given stock.
func SeedProduct(t *testing.T, conn *gorm.DB, categoryID uuid.UUID, name, price string, stock int, opts ...ProductOpts) models.Product {
	t.Helper()
	product := models.Product{
		ID:         uuid.New(),
		CategoryID: categoryID,
		Name:       name,
		Slug:       strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		Brand:      models.DefaultBrand,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		Sizes:      pq.StringArray{},
	}
	for _, opt := range opts {
		if opt.Discount != "" {
			d := decimal.RequireFromString(opt.Discount)
			product.DiscountPrice = &d
		}
		if opt.Sizes != nil {
			product.Sizes = pq.StringArray(opt.Sizes)
		}
	}
	require.NoError(t, conn.Create(&product).Error)
	return product
}

// SeedAddress inserts an address owned by userID.
func SeedAddress(t *testing.T, conn *gorm.DB, userID uuid.UUID) models.Address {
	t.Helper()
	address := models.Address{
		ID:          uuid.New(),
		UserID:      userID,
		FullName:    "Test Shopper",
		PhoneNumber: "5550100",
		Pincode:     "560001",
		City:        "Bengaluru",
		State:       "KA",
		AddressLine: "1 Main Road",
	}
	require.NoError(t, conn.Create(&address).Error)
	return address
}

// CartOf loads the cart owned by userID.
func CartOf(t *testing.T, conn *gorm.DB, userID uuid.UUID) models.Cart {
	t.Helper()
	var cart models.Cart
	require.NoError(t, conn.Where("user_id = ?", userID).First(&cart).Error)
	return cart
}
