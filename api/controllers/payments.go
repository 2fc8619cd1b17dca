package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// PaymentService is the payment surface the HTTP layer needs.
type PaymentService interface {
	Record(ctx context.Context, userID, orderID uuid.UUID, input payments.RecordInput) (*orders.PaymentDTO, error)
	ForOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.PaymentDTO, error)
}

// PaymentRecord stores the informational payment record for an order.
func PaymentRecord(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "payment", svc != nil, http.StatusCreated, func(r *http.Request) (any, error) {
		userID, orderID, err := owned(r, "orderId", "order id")
		if err != nil {
			return nil, err
		}
		body, err := bind[payments.RecordInput](r)
		if err != nil {
			return nil, err
		}
		return svc.Record(r.Context(), userID, orderID, body)
	})
}

func PaymentFetch(svc PaymentService, logg *logger.Logger) http.HandlerFunc {
	return endpoint(logg, "payment", svc != nil, http.StatusOK, func(r *http.Request) (any, error) {
		userID, orderID, err := owned(r, "orderId", "order id")
		if err != nil {
			return nil, err
		}
		return svc.ForOrder(r.Context(), userID, orderID)
	})
}
