package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// RecordInput describes a payment reported for an order. Nothing is charged.
type RecordInput struct {
	Method        string  `json:"method" validate:"required"`
	TransactionID *string `json:"transaction_id,omitempty" validate:"omitempty,max=128"`
	IsSuccessful  bool    `json:"is_successful"`
}

// ServiceParams groups dependencies for the payments service.
type ServiceParams struct {
	Repo   Repository
	Tx     db.TxRunner
	Outbox outbox.Emitter
}

// Service records informational payments against orders.
type Service struct {
	repo   Repository
	tx     db.TxRunner
	outbox outbox.Emitter
}

// NewService builds a payments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter is required")
	}
	return &Service{repo: params.Repo, tx: params.Tx, outbox: params.Outbox}, nil
}

// Record stores the single payment of an order owned by userID. The amount is
// always the order total.
func (s *Service) Record(ctx context.Context, userID, orderID uuid.UUID, input RecordInput) (*orders.PaymentDTO, error) {
	method, err := enums.ParsePaymentMethod(input.Method)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]any{"method": input.Method})
	}
	var txID *string
	if input.TransactionID != nil {
		if trimmed := strings.TrimSpace(*input.TransactionID); trimmed != "" {
			txID = &trimmed
		}
	}

	var payment *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUser(ctx, userID, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if _, err := repo.FindByOrder(ctx, order.ID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "payment already recorded for this order")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}

		payment = &models.Payment{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Method:        method,
			TransactionID: txID,
			Amount:        order.TotalAmount,
			IsSuccessful:  input.IsSuccessful,
		}
		if err := repo.Create(ctx, payment); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payment already recorded for this order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRecorded,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.PaymentRecordedEvent{
				PaymentID:    payment.ID,
				OrderID:      order.ID,
				Method:       payment.Method,
				Amount:       payment.Amount,
				IsSuccessful: payment.IsSuccessful,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment_recorded")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders.NewPaymentDTO(payment), nil
}

// ForOrder returns the payment of an order owned by userID.
func (s *Service) ForOrder(ctx context.Context, userID, orderID uuid.UUID) (*orders.PaymentDTO, error) {
	order, err := s.repo.FindOrderForUser(ctx, userID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	payment, err := s.repo.FindByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return orders.NewPaymentDTO(payment), nil
}
