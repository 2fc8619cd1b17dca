package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to tx. A nil tx keeps the receiver.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, in NewUser) (*models.User, error) {
	user := in.model()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// EmailTaken reports whether any account, active or not, uses email.
func (r *Repository) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Count(&n).Error
	return n > 0, err
}

// FindByEmail returns gorm.ErrRecordNotFound for unknown addresses.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", NormalizeEmail(email))
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, cond string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// RecordLogin stamps last_login_at. A non-empty rehash replaces the stored
// password hash in the same statement.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, rehash string) error {
	cols := map[string]any{"last_login_at": at}
	if rehash != "" {
		cols["password_hash"] = rehash
	}
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumns(cols).Error
}
