package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.NewFromGorm(conn), outbox.NewService(outbox.NewRepository(conn), nil))
	require.NoError(t, err)
	return svc, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, addressID *uuid.UUID, createdAt time.Time) models.Order {
	t.Helper()
	order := models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		AddressID:   addressID,
		Status:      enums.OrderStatusPlaced,
		TotalAmount: decimal.RequireFromString("30"),
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	require.NoError(t, conn.Omit("Items", "Payment", "Address", "User").Create(&order).Error)
	size := "M"
	require.NoError(t, conn.Create(&models.OrderItem{
		ID:          uuid.New(),
		OrderID:     order.ID,
		ProductName: "Scarf",
		Quantity:    3,
		Price:       decimal.RequireFromString("10"),
		Size:        &size,
	}).Error)
	return order
}

func TestListNewestFirstWithCursor(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "list@example.com")
	other := dbtest.SeedUser(t, conn, "other@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	oldest := seedOrder(t, conn, user.ID, nil, base)
	middle := seedOrder(t, conn, user.ID, nil, base.Add(time.Minute))
	newest := seedOrder(t, conn, user.ID, nil, base.Add(2*time.Minute))
	seedOrder(t, conn, other.ID, nil, base.Add(3*time.Minute))

	page, err := svc.List(ctx, user.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, newest.ID, page.Orders[0].ID)
	assert.Equal(t, middle.ID, page.Orders[1].ID)
	require.Len(t, page.Orders[0].Items, 1)
	assert.Equal(t, "30", page.Orders[0].Items[0].TotalPrice.String())

	next, err := svc.List(ctx, user.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Orders, 1)
	assert.Equal(t, oldest.ID, next.Orders[0].ID)
	assert.Empty(t, next.NextCursor)
}

func TestDetailIsOwnerScoped(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "detail@example.com")
	intruder := dbtest.SeedUser(t, conn, "intruder@example.com")
	addr := dbtest.SeedAddress(t, conn, user.ID)
	order := seedOrder(t, conn, user.ID, &addr.ID, time.Now().UTC())
	require.NoError(t, conn.Create(&models.Payment{
		ID:      uuid.New(),
		OrderID: order.ID,
		Method:  enums.PaymentMethodCOD,
		Amount:  order.TotalAmount,
	}).Error)

	detail, err := svc.Detail(ctx, user.ID, order.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Address)
	assert.Equal(t, addr.ID, detail.Address.ID)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, enums.PaymentMethodCOD, detail.Payment.Method)
	assert.Equal(t, StepActive, detail.Timeline[0].Status)

	_, err = svc.Detail(ctx, intruder.ID, order.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	_, err = svc.Success(ctx, intruder.ID, order.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	success, err := svc.Success(ctx, user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, success.ID)
}

func TestUpdateStatusEmitsEvent(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "status@example.com")
	order := seedOrder(t, conn, user.ID, nil, time.Now().UTC())

	updated, err := svc.UpdateStatus(ctx, order.ID, enums.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPlaced)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	_, err = svc.UpdateStatus(ctx, order.ID, enums.OrderStatus("Lost"))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateStatus(ctx, uuid.New(), enums.OrderStatusCancelled)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	var stored models.Order
	require.NoError(t, conn.First(&stored, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusShipped, stored.Status)
}
