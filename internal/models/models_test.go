package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSettingsWithDefaultsIsIdempotent(t *testing.T) {
	partials := []Settings{
		{},
		{VibrationStrength: ptr(80)},
		{BackEnabled: ptr(false), ReminderTime: ptr(0)},
		{PostureThreshold: ptr(0.5), PhoneNotificationsEnabled: ptr(false), SlouchTimeThreshold: ptr(30)},
	}
	for _, partial := range partials {
		once := MergeSettingsWithDefaults(partial)
		twice := MergeSettingsWithDefaults(once)
		assert.Equal(t, once, twice)
	}
}

func TestMergeSettingsKeepsExplicitZeroValues(t *testing.T) {
	merged := MergeSettingsWithDefaults(Settings{BackEnabled: ptr(false), VibrationStrength: ptr(0)})

	require.NotNil(t, merged.BackEnabled)
	assert.False(t, *merged.BackEnabled)
	assert.Equal(t, 0, *merged.VibrationStrength)
	assert.Equal(t, DefaultPostureThreshold, *merged.PostureThreshold)
	assert.Equal(t, DefaultReminderTime, *merged.ReminderTime)
}

func TestMergeSettingsDoesNotAlias(t *testing.T) {
	strength := 10
	in := Settings{VibrationStrength: &strength}
	out := MergeSettingsWithDefaults(in)

	strength = 99
	assert.Equal(t, 10, *out.VibrationStrength)
}

func TestUserPatchApplyAndSetFields(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	user := NewUser(now.Add(-time.Hour))
	patch := UserPatch{
		FirstName: ptr("Ana"),
		Settings:  &Settings{VibrationStrength: ptr(75)},
	}

	patch.Apply(&user, now)
	assert.Equal(t, "Ana", user.FirstName)
	assert.Equal(t, 75, *user.Settings.VibrationStrength)
	assert.Equal(t, DefaultVibrationPattern, *user.Settings.VibrationPattern)
	assert.Equal(t, now, user.UpdatedAt)

	set, unset := patch.SetFields(now)
	assert.Equal(t, "Ana", set["firstName"])
	assert.Equal(t, 75, set["settings.vibrationStrength"])
	assert.NotContains(t, set, "settings")
	assert.Empty(t, unset)
}

func TestSanitizedDropsSecrets(t *testing.T) {
	expiry := time.Now()
	user := User{
		Password:                     []byte("hash"),
		EmailConfirmationToken:       "abc",
		EmailConfirmationTokenExpiry: &expiry,
		PasswordResetToken:           "def",
		PasswordResetTokenExpiry:     &expiry,
	}

	clean := user.Sanitized()
	assert.Nil(t, clean.Password)
	assert.Empty(t, clean.EmailConfirmationToken)
	assert.Nil(t, clean.PasswordResetTokenExpiry)
	assert.True(t, user.HasPassword())
}
