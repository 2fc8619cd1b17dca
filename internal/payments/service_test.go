package payments

import (
	"context"
	"testing"

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
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(conn),
		Tx:     db.NewFromGorm(conn),
		Outbox: outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)
	return svc, conn
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, total string) models.Order {
	t.Helper()
	order := models.Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      enums.OrderStatusPlaced,
		TotalAmount: decimal.RequireFromString(total),
	}
	require.NoError(t, conn.Omit("Items", "Payment", "Address", "User").Create(&order).Error)
	return order
}

func TestRecordUsesOrderTotalAndRejectsSecondPayment(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "pay@example.com")
	order := seedOrder(t, conn, user.ID, "149.50")
	txID := "  txn-1 "

	payment, err := svc.Record(ctx, user.ID, order.ID, RecordInput{Method: "upi", TransactionID: &txID, IsSuccessful: true})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentMethodUPI, payment.Method)
	assert.True(t, decimal.RequireFromString("149.50").Equal(payment.Amount))
	require.NotNil(t, payment.TransactionID)
	assert.Equal(t, "txn-1", *payment.TransactionID)

	_, err = svc.Record(ctx, user.ID, order.ID, RecordInput{Method: "COD"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict), "got %v", err)

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventPaymentRecorded, events[0].EventType)
	assert.Equal(t, payment.ID, events[0].AggregateID)

	found, err := svc.ForOrder(ctx, user.ID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, found.ID)
}

func TestRecordIsOwnerScoped(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner@example.com")
	stranger := dbtest.SeedUser(t, conn, "stranger@example.com")
	order := seedOrder(t, conn, owner.ID, "10")

	_, err := svc.Record(ctx, stranger.ID, order.ID, RecordInput{Method: "CARD"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.ForOrder(ctx, stranger.ID, order.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.ForOrder(ctx, owner.ID, order.ID)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound), "no payment recorded yet")
}

func TestRecordRejectsUnknownMethod(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.SeedUser(t, conn, "method@example.com")
	order := seedOrder(t, conn, user.ID, "10")

	_, err := svc.Record(context.Background(), user.ID, order.ID, RecordInput{Method: "cheque"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, conn.Model(&models.Payment{}).Count(&count).Error)
	assert.Zero(t, count)
}
