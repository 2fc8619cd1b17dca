package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func lineQuantity(t *testing.T, conn *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var item models.CartItem
	require.NoError(t, conn.Where("product_id = ?", productID).First(&item).Error)
	return item.Quantity
}

func TestAddItemRespectsStockCeiling(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "a@example.com")
	category := dbtest.SeedCategory(t, conn, "Mugs")
	product := dbtest.SeedProduct(t, conn, category.ID, "Mug", "12", 5)

	res, err := svc.AddItem(ctx, user.ID, AddItemInput{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.CartCount)

	res, err = svc.AddItem(ctx, user.ID, AddItemInput{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Item.Quantity)

	_, err = svc.AddItem(ctx, user.ID, AddItemInput{ProductID: product.ID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficient, typed.Code())
	assert.Equal(t, "Not enough stock. Only 5 left.", typed.Message())
	assert.Equal(t, 5, lineQuantity(t, conn, product.ID), "failed add must not mutate the line")
}

func TestAddItemNewLineOverStock(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.SeedUser(t, conn, "b@example.com")
	category := dbtest.SeedCategory(t, conn, "Lamps")
	product := dbtest.SeedProduct(t, conn, category.ID, "Lamp", "40", 2)

	_, err := svc.AddItem(context.Background(), user.ID, AddItemInput{ProductID: product.ID, Quantity: 3})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficient))

	var count int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAddItemOutOfStockAndMissing(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "c@example.com")
	category := dbtest.SeedCategory(t, conn, "Rugs")
	product := dbtest.SeedProduct(t, conn, category.ID, "Rug", "80", 0)

	_, err := svc.AddItem(ctx, user.ID, AddItemInput{ProductID: product.ID})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeOutOfStock))
	assert.Equal(t, "Sorry, this product is out of stock.", pkgerrors.As(err).Message())

	_, err = svc.AddItem(ctx, user.ID, AddItemInput{ProductID: uuid.New()})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestAddItemValidatesSize(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "d@example.com")
	category := dbtest.SeedCategory(t, conn, "Tees")
	product := dbtest.SeedProduct(t, conn, category.ID, "Tee", "20", 10, dbtest.ProductOpts{Sizes: []string{"S", "M"}})

	bad := "XL"
	_, err := svc.AddItem(ctx, user.ID, AddItemInput{ProductID: product.ID, Size: &bad})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	good := " M "
	res, err := svc.AddItem(ctx, user.ID, AddItemInput{ProductID: product.ID, Size: &good})
	require.NoError(t, err)
	require.NotNil(t, res.Item.Size)
	assert.Equal(t, "M", *res.Item.Size)
}

func TestGetCartTotalsAndRelated(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "e@example.com")
	category := dbtest.SeedCategory(t, conn, "Audio")
	headphones := dbtest.SeedProduct(t, conn, category.ID, "Headphones", "100", 5, dbtest.ProductOpts{Discount: "80"})
	cable := dbtest.SeedProduct(t, conn, category.ID, "Cable", "10", 5)
	speaker := dbtest.SeedProduct(t, conn, category.ID, "Speaker", "60", 5)

	_, err := svc.AddItem(ctx, user.ID, AddItemInput{ProductID: headphones.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user.ID, AddItemInput{ProductID: cable.ID, Quantity: 1})
	require.NoError(t, err)

	view, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "210", view.TotalPrice.String())
	assert.Equal(t, "40", view.TotalDiscount.String())
	assert.Equal(t, "170", view.Total.String())
	assert.Equal(t, 3, view.Count)
	assert.Equal(t, "160", view.Items[0].TotalPrice.String())
	require.Len(t, view.Related, 1)
	assert.Equal(t, speaker.ID, view.Related[0].ID)
}

func TestGetCartCreatesCartLazily(t *testing.T) {
	svc, conn := newTestService(t)
	user := models.User{ID: uuid.New(), Email: "lazy@example.com", PasswordHash: "x", FirstName: "L", LastName: "Z", IsActive: true}
	require.NoError(t, conn.Create(&user).Error)

	view, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Total.IsZero())

	again, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, view.ID, again.ID)
}

func TestUpdateItem(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "f@example.com")
	other := dbtest.SeedUser(t, conn, "g@example.com")
	category := dbtest.SeedCategory(t, conn, "Pens")
	product := dbtest.SeedProduct(t, conn, category.ID, "Pen", "2", 4)

	added, err := svc.AddItem(ctx, user.ID, AddItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := added.Item.ID

	_, err = svc.UpdateItem(ctx, user.ID, itemID, UpdateItemInput{Quantity: 5})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficient))
	assert.Equal(t, "Only 4 left in stock.", pkgerrors.As(err).Message())

	_, err = svc.UpdateItem(ctx, other.ID, itemID, UpdateItemInput{Quantity: 2})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "another user's line must be invisible")

	res, err := svc.UpdateItem(ctx, user.ID, itemID, UpdateItemInput{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, res.CartCount)

	res, err = svc.UpdateItem(ctx, user.ID, itemID, UpdateItemInput{Quantity: 0})
	require.NoError(t, err)
	assert.True(t, res.Removed)
	assert.Zero(t, res.CartCount)

	_, err = svc.RemoveItem(ctx, user.ID, itemID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	assert.Equal(t, "Item no longer in cart.", pkgerrors.As(err).Message())
}

func TestCountWithoutCart(t *testing.T) {
	svc, _ := newTestService(t)
	count, err := svc.Count(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, count)
}
