package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
)

func TestCreateNormalizesEmailAndRejectsDuplicates(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	user, err := repo.Create(ctx, NewUser{
		Email:        "  Shopper@Example.COM ",
		PasswordHash: "hash",
		FirstName:    " Ada ",
		LastName:     "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "shopper@example.com", user.Email)
	assert.Equal(t, "Ada Lovelace", FullName(user))
	assert.True(t, user.IsActive)

	found, err := repo.FindByEmail(ctx, "SHOPPER@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	taken, err := repo.EmailTaken(ctx, " shopper@EXAMPLE.com")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.EmailTaken(ctx, "other@example.com")
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = repo.Create(ctx, NewUser{Email: "shopper@example.com", PasswordHash: "x", FirstName: "B", LastName: "C"})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestRecordLogin(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	seeded := dbtest.SeedUser(t, conn, "login@example.com")

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordLogin(ctx, seeded.ID, at, ""))

	user, err := repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	require.NotNil(t, user.LastLoginAt)
	assert.True(t, at.Equal(*user.LastLoginAt))
	assert.Equal(t, seeded.PasswordHash, user.PasswordHash)

	require.NoError(t, repo.RecordLogin(ctx, seeded.ID, at.Add(time.Hour), "rehashed"))
	user, err = repo.FindByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "rehashed", user.PasswordHash)

	dto := FromModel(user)
	assert.Equal(t, "login@example.com", dto.Email)
	assert.Nil(t, FromModel(nil))
}

func TestFindByIDMissing(t *testing.T) {
	_, err := NewRepository(dbtest.Open(t)).FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
