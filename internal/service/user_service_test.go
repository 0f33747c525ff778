package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postura/api/internal/apperr"
	"postura/api/internal/security"
)

func TestSignupStoresHashAndDefaults(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@b.com")

	assert.Nil(t, user.Password)
	assert.Empty(t, user.EmailConfirmationToken)
	assert.False(t, user.IsConfirmed)
	assert.Len(t, user.AccessToken, 64)
	assert.Equal(t, []any{f.plan.ID}, toAny(user.TrainingPlans))

	stored := f.stored(t, user.ID)
	ok, err := security.VerifyPassword("Abcdef01", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, f.mailedToken(t, "a@b.com"), stored.EmailConfirmationToken)
}

func TestSignupSurvivesCatalogAndMailFailures(t *testing.T) {
	f := newFixture(t)
	f.store.Catalog().FailWith(errBoom)
	f.outbox.FailWith(errBoom)

	user := f.signup(t, "a@b.com")
	assert.Empty(t, user.TrainingPlans)
	assert.NotEmpty(t, user.AccessToken)
}

func TestSignupDuplicateEmailIgnoresCase(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.com")

	_, err := f.Users.Signup(context.Background(), map[string]any{"email": "A@B.COM", "password": "Abcdef01"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestConfirmationTokenExpires(t *testing.T) {
	f := newFixture(t)
	f.signup(t, "a@b.com")
	token := f.mailedToken(t, "a@b.com")

	f.clock.Advance(security.ConfirmationTokenTTL + time.Minute)
	_, err := f.Users.ConfirmEmail(context.Background(), map[string]any{"token": token})
	assert.Equal(t, apperr.MsgInvalidToken, apperr.Public(err))
}

func TestResendConfirmationRotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "a@b.com")
	first := f.mailedToken(t, "a@b.com")

	require.NoError(t, f.Users.ResendConfirmation(ctx, user.ID))
	second := f.mailedToken(t, "a@b.com")
	assert.NotEqual(t, first, second)

	_, err := f.Users.ConfirmEmail(ctx, map[string]any{"token": first})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	confirmed, err := f.Users.ConfirmEmail(ctx, map[string]any{"token": second})
	require.NoError(t, err)
	assert.True(t, confirmed.IsConfirmed)

	err = f.Users.ResendConfirmation(ctx, user.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestResetRequestMailFailureLooksLikeSuccess(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@b.com")
	f.outbox.FailWith(errBoom)

	err := f.Users.RequestPasswordReset(context.Background(), map[string]any{"email": "a@b.com"})
	assert.NoError(t, err)
	assert.NotEmpty(t, f.stored(t, user.ID).PasswordResetToken)
}

func TestResetTokenExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "a@b.com")
	require.NoError(t, f.Users.RequestPasswordReset(ctx, map[string]any{"email": "a@b.com"}))
	token := f.mailedToken(t, "a@b.com")

	f.clock.Advance(security.ConfirmationTokenTTL + time.Minute)
	err := f.Users.ResetPassword(ctx, map[string]any{"token": token, "password": "Newpass99", "password2": "Newpass99"})
	assert.Equal(t, apperr.KindAuthorization, apperr.KindOf(err))
	assert.Equal(t, apperr.MsgInvalidToken, apperr.Public(err))

	ok, err := security.VerifyPassword("Newpass99", f.stored(t, user.ID).Password)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetPasswordMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.signup(t, "a@b.com")
	require.NoError(t, f.Users.RequestPasswordReset(ctx, map[string]any{"email": "a@b.com"}))
	token := f.mailedToken(t, "a@b.com")

	err := f.Users.ResetPassword(ctx, map[string]any{"token": token, "password": "Newpass99", "password2": "Newpass98"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, f.Users.ResetPassword(ctx, map[string]any{"token": token, "password": "Newpass99", "password2": "Newpass99"}))
	msg, ok := f.outbox.Last()
	require.True(t, ok)
	assert.Equal(t, "Your password was changed", msg.Subject)
}

func TestUpdatePasswordNeedsBothFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "a@b.com")

	_, err := f.Users.Update(ctx, user.ID, map[string]any{"password2": "Newpass99"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.Users.Update(ctx, user.ID, map[string]any{"password": "Newpass99", "password2": "Newpass98"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.Users.Update(ctx, user.ID, map[string]any{"password": "Newpass99", "password2": "Newpass99"})
	require.NoError(t, err)
	ok, _ := security.VerifyPassword("Newpass99", f.stored(t, user.ID).Password)
	assert.True(t, ok)
}

func TestUpdateClearsBirthdateAndKeepsSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "a@b.com")

	updated, err := f.Users.Update(ctx, user.ID, map[string]any{
		"birthdate": "1990-04-01",
		"settings":  map[string]any{"reminderEnabled": true},
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Birthdate)
	assert.True(t, *updated.Settings.ReminderEnabled)

	updated, err = f.Users.Update(ctx, user.ID, map[string]any{"birthdate": nil})
	require.NoError(t, err)
	assert.Nil(t, updated.Birthdate)
	assert.True(t, *updated.Settings.ReminderEnabled)
	assert.Equal(t, 0.2, *updated.Settings.PostureThreshold)
}

func TestEmptyUpdateReturnsCurrent(t *testing.T) {
	f := newFixture(t)
	user := f.signup(t, "a@b.com")

	current, err := f.Users.Update(context.Background(), user.ID, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)
	assert.Nil(t, current.Password)
}

func TestNextStreak(t *testing.T) {
	day := time.Date(2026, 2, 10, 22, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		current int
		last    *time.Time
		at      time.Time
		want    int
		changed bool
	}{
		{"first session", 0, nil, day, 1, true},
		{"same day", 3, &day, day.Add(time.Hour), 3, true},
		{"next day", 3, &day, day.Add(3 * time.Hour), 4, true},
		{"gap", 3, &day, day.Add(72 * time.Hour), 1, true},
		{"earlier", 3, &day, day.Add(-48 * time.Hour), 3, false},
	}
	for _, tc := range cases {
		got, changed := nextStreak(tc.current, tc.last, tc.at)
		assert.Equal(t, tc.want, got, tc.name)
		assert.Equal(t, tc.changed, changed, tc.name)
	}
}

func TestFavoriteWorkoutsResolveThroughCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.signup(t, "a@b.com")

	_, err := f.Users.Update(ctx, user.ID, map[string]any{
		"favoriteWorkouts": []any{f.workout.ID.Hex(), f.plan.ID.Hex()},
	})
	require.NoError(t, err)

	workouts, err := f.Users.FavoriteWorkouts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, workouts, 1)
	assert.Equal(t, "Chin tucks", workouts[0].Name)

	plans, err := f.Users.TrainingPlans(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "Beginner", plans[0].Name)
}
