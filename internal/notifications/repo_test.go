package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

func TestRepositoryDeleteOlderThan(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC()

	old := &models.Notification{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		Channel:   enums.NotificationChannelEmail,
		Recipient: "ops@example.com",
		Subject:   "old",
		Body:      "old",
		CreatedAt: now.Add(-100 * 24 * time.Hour),
	}
	fresh := &models.Notification{
		ID:        uuid.New(),
		EventID:   uuid.New(),
		Channel:   enums.NotificationChannelEmail,
		Recipient: "ops@example.com",
		Subject:   "fresh",
		Body:      "fresh",
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))

	deleted, err := repo.DeleteOlderThan(ctx, nil, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = repo.FindByEventID(ctx, old.EventID)
	assert.Error(t, err)
	found, err := repo.FindByEventID(ctx, fresh.EventID)
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, found.ID)
}
