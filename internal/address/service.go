package address

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	maxPhoneLen   = 15
	maxPincodeLen = 10
)

// Service manages a user's address book.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]DTO, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*DTO, error)
	Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*DTO, error)
	Delete(ctx context.Context, userID, addressID uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]DTO, error) {
	addresses, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return FromModels(addresses), nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*DTO, error) {
	address, err := toModel(input)
	if err != nil {
		return nil, err
	}
	address.UserID = userID
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	dto := FromModel(address)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, addressID uuid.UUID, input Input) (*DTO, error) {
	existing, err := s.repo.FindForUser(ctx, userID, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}

	updated, err := toModel(input)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt

	ok, err := s.repo.Update(ctx, userID, updated)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID, addressID uuid.UUID) error {
	ok, err := s.repo.Delete(ctx, userID, addressID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return nil
}

func toModel(input Input) (*models.Address, error) {
	address := &models.Address{
		FullName:    strings.TrimSpace(input.FullName),
		PhoneNumber: strings.TrimSpace(input.PhoneNumber),
		Pincode:     strings.TrimSpace(input.Pincode),
		City:        strings.TrimSpace(input.City),
		State:       strings.TrimSpace(input.State),
		AddressLine: strings.TrimSpace(input.AddressLine),
	}
	if input.Landmark != nil {
		if landmark := strings.TrimSpace(*input.Landmark); landmark != "" {
			address.Landmark = &landmark
		}
	}

	missing := map[string]string{}
	for field, value := range map[string]string{
		"full_name":    address.FullName,
		"phone_number": address.PhoneNumber,
		"pincode":      address.Pincode,
		"city":         address.City,
		"state":        address.State,
		"address_line": address.AddressLine,
	} {
		if value == "" {
			missing[field] = "is required"
		}
	}
	if len(address.PhoneNumber) > maxPhoneLen {
		missing["phone_number"] = fmt.Sprintf("must be at most %d", maxPhoneLen)
	}
	if len(address.Pincode) > maxPincodeLen {
		missing["pincode"] = fmt.Sprintf("must be at most %d", maxPincodeLen)
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(missing)
	}
	return address, nil
}
