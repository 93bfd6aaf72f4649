package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlvery/internal/auth/models"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := New()
	userID := id.NewUserID()

	_, err := store.FindByUserID(ctx, userID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	p := &models.AgentProfile{UserID: userID, DisplayName: "Ada", City: "Springfield", CreatedAt: time.Now()}
	require.NoError(t, store.Save(ctx, p))

	p.City = "Shelbyville"
	found, err := store.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Springfield", found.City, "stored profile is detached from the caller's copy")

	require.NoError(t, store.Save(ctx, p))
	found, err = store.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", found.City)
}
