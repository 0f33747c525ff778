package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postura/api/internal/models"
	"postura/api/internal/repository"
)

func TestTokensAreValidUntilTheirExpiryInstant(t *testing.T) {
	ctx := context.Background()
	users := New().Users()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.Add(48 * time.Hour)

	user := &models.User{Email: "a@b.com"}
	require.NoError(t, users.Create(ctx, user))

	_, err := users.SetConfirmationToken(ctx, user.ID, "confirm", expiry, now)
	require.NoError(t, err)
	confirmed, err := users.ConfirmEmail(ctx, "confirm", expiry)
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed)

	require.NoError(t, users.SetPasswordResetToken(ctx, user.ID, "reset", expiry, now))
	_, err = users.ConsumePasswordResetToken(ctx, "reset", expiry.Add(time.Nanosecond), []byte("hash"))
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	_, err = users.ConsumePasswordResetToken(ctx, "reset", expiry, []byte("hash"))
	require.NoError(t, err)
}
