package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service is the shopper-facing order read model plus the operator status transition.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*List, error)
	Detail(ctx context.Context, userID, orderID uuid.UUID) (*Detail, error)
	Success(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error)
}

type service struct {
	repo   Repository
	tx     db.TxRunner
	outbox outbox.Emitter
	now    func() time.Time
}

// NewService builds the orders service.
func NewService(repo Repository, tx db.TxRunner, emitter outbox.Emitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, tx: tx, outbox: emitter, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*List, error) {
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	size := params.Size()
	rows, err := s.repo.ListByUser(ctx, userID, size, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, next := pagination.Trim(rows, size, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})

	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewOrderDTO(&rows[i]))
	}
	return &List{Orders: out, NextCursor: next}, nil
}

func (s *service) Detail(ctx context.Context, userID, orderID uuid.UUID) (*Detail, error) {
	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	return newDetail(order), nil
}

func (s *service) Success(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*OrderDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": status})
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
				WithDetails(map[string]any{"from": order.Status, "to": status})
		}

		now := s.now().UTC()
		ok, err := repo.UpdateStatus(ctx, order.ID, order.Status, status, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				UserID:    order.UserID,
				From:      order.Status,
				To:        status,
				ChangedAt: now,
			},
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_status_changed")
		}

		order.Status = status
		order.UpdatedAt = now
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := NewOrderDTO(result)
	return &dto, nil
}

func (s *service) loadOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
