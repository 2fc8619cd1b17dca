package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists address book entries. Every lookup is owner scoped.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var addresses []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&addresses).Error
	if err != nil {
		return nil, err
	}
	return addresses, nil
}

// FindForUser loads the address only when userID owns it.
func (r *Repository) FindForUser(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	var address models.Address
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).First(&address).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *Repository) Create(ctx context.Context, address *models.Address) error {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(address).Error
}

// Update rewrites the editable columns of an address owned by userID.
func (r *Repository) Update(ctx context.Context, userID uuid.UUID, address *models.Address) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Address{}).
		Where("id = ? AND user_id = ?", address.ID, userID).
		Updates(map[string]any{
			"full_name":    address.FullName,
			"phone_number": address.PhoneNumber,
			"pincode":      address.Pincode,
			"city":         address.City,
			"state":        address.State,
			"landmark":     address.Landmark,
			"address_line": address.AddressLine,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes an address owned by userID; orders pointing at it keep a null address.
func (r *Repository) Delete(ctx context.Context, userID, addressID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", addressID, userID).Delete(&models.Address{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
