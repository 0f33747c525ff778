package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/apperr"
	"postura/api/internal/catalog"
	"postura/api/internal/models"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/validation"
)

type UserService struct {
	users        UserStore
	tokens       TokenStore
	factory      *security.TokenFactory
	mailer       Mailer
	catalog      *catalog.Catalog
	defaultPlans []string
	log          zerolog.Logger
}

func NewUserService(
	users UserStore,
	tokens TokenStore,
	factory *security.TokenFactory,
	mailer Mailer,
	cat *catalog.Catalog,
	defaultPlans []string,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:        users,
		tokens:       tokens,
		factory:      factory,
		mailer:       mailer,
		catalog:      cat,
		defaultPlans: defaultPlans,
		log:          log,
	}
}

// UserWithToken is a user document with a freshly issued access token.
type UserWithToken struct {
	models.User
	AccessToken string `json:"accessToken"`
}

func (s *UserService) Signup(ctx context.Context, body map[string]any) (UserWithToken, error) {
	normalized, err := validate(body, validation.UserFields, validation.Options{
		Required:  validation.SignupRequired,
		Forbidden: validation.SignupForbidden,
	})
	if err != nil {
		return UserWithToken{}, err
	}
	creds, err := decodeCredentials(normalized)
	if err != nil {
		return UserWithToken{}, apperr.Dependency(err)
	}
	profile, err := decodeProfile(normalized)
	if err != nil {
		return UserWithToken{}, apperr.Dependency(err)
	}

	if _, err := s.users.FindByEmail(ctx, creds.Email); err == nil {
		return UserWithToken{}, apperr.Conflict("Email already registered")
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return UserWithToken{}, apperr.Dependency(err)
	}

	hash, err := security.HashPassword(creds.Password)
	if err != nil {
		return UserWithToken{}, apperr.Dependency(err)
	}
	confirmToken, expiry, err := s.factory.CreateConfirmationToken()
	if err != nil {
		return UserWithToken{}, apperr.Dependency(err)
	}

	now := s.factory.Now()
	user := models.NewUser(now)
	profile.Apply(&user, now)
	user.Email = creds.Email
	user.Password = hash
	user.TrainingPlans = defaultPlanIDs(ctx, s.catalog, s.defaultPlans, s.log)
	user.EmailConfirmationToken = confirmToken
	user.EmailConfirmationTokenExpiry = &expiry

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return UserWithToken{}, apperr.Conflict("Email already registered")
		}
		return UserWithToken{}, apperr.Dependency(err)
	}

	token, err := issueAccessToken(ctx, s.factory, s.tokens, user)
	if err != nil {
		return UserWithToken{}, err
	}

	if err := s.mailer.SendConfirmationEmail(ctx, user.Email, confirmToken); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("confirmation email failed")
	}

	s.log.Info().Str("user_id", user.ID.Hex()).Msg("user signed up")
	return UserWithToken{User: user.Sanitized(), AccessToken: token}, nil
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, userNotFound(err)
	}
	return user.Sanitized(), nil
}

// Update applies a partial user body. Settings are merged field by field.
// A password change needs password and password2 to match; an email change
// marks the account unconfirmed and sends a new confirmation email.
func (s *UserService) Update(ctx context.Context, id primitive.ObjectID, body map[string]any) (models.User, error) {
	normalized, err := validate(body, validation.UserFields, validation.Options{Forbidden: validation.UpdateForbidden})
	if err != nil {
		return models.User{}, err
	}
	creds, err := decodeCredentials(normalized)
	if err != nil {
		return models.User{}, apperr.Dependency(err)
	}
	patch, err := decodeProfile(normalized)
	if err != nil {
		return models.User{}, apperr.Dependency(err)
	}

	current, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, userNotFound(err)
	}

	_, hasPassword := normalized["password"]
	_, hasPassword2 := normalized["password2"]
	if hasPassword || hasPassword2 {
		if !hasPassword || !hasPassword2 {
			return models.User{}, apperr.Validation(`"password" and "password2" must both be provided`)
		}
		if creds.Password != creds.Password2 {
			return models.User{}, apperr.Validation("Passwords do not match")
		}
		hash, err := security.HashPassword(creds.Password)
		if err != nil {
			return models.User{}, apperr.Dependency(err)
		}
		patch.Password = hash
	}

	var confirmToken string
	if _, ok := normalized["email"]; ok && !strings.EqualFold(creds.Email, current.Email) {
		taken, err := s.users.EmailTakenByOther(ctx, creds.Email, id)
		if err != nil {
			return models.User{}, apperr.Dependency(err)
		}
		if taken {
			return models.User{}, apperr.Conflict("Email already in use")
		}
		token, expiry, err := s.factory.CreateConfirmationToken()
		if err != nil {
			return models.User{}, apperr.Dependency(err)
		}
		confirmed := false
		patch.Email = &creds.Email
		patch.IsConfirmed = &confirmed
		patch.EmailConfirmationToken = &token
		patch.EmailConfirmationTokenExpiry = &expiry
		confirmToken = token
	}

	if patch.IsEmpty() {
		return current.Sanitized(), nil
	}

	updated, err := s.users.Update(ctx, id, patch, s.factory.Now())
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, apperr.Conflict("Email already in use")
		}
		return models.User{}, userNotFound(err)
	}

	if confirmToken != "" {
		if err := s.mailer.SendConfirmationEmail(ctx, updated.Email, confirmToken); err != nil {
			s.log.Error().Err(err).Str("user_id", id.Hex()).Msg("confirmation email failed after email change")
		}
	}
	return updated.Sanitized(), nil
}

// ConfirmEmail consumes a confirmation token. Reusing a token fails the same
// way an unknown or expired token does.
func (s *UserService) ConfirmEmail(ctx context.Context, query map[string]any) (models.User, error) {
	normalized, err := validate(query, validation.TokenFields, validation.Options{})
	if err != nil {
		return models.User{}, err
	}
	token, _ := normalized["token"].(string)

	user, err := s.users.ConfirmEmail(ctx, token, s.factory.Now())
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return models.User{}, apperr.InvalidToken()
		}
		return models.User{}, apperr.Dependency(err)
	}
	s.log.Info().Str("user_id", user.ID.Hex()).Msg("email confirmed")
	return user.Sanitized(), nil
}

// ResendConfirmation rotates the confirmation token and mails it again.
func (s *UserService) ResendConfirmation(ctx context.Context, id primitive.ObjectID) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return userNotFound(err)
	}
	if user.IsConfirmed {
		return apperr.Conflict("Email already confirmed")
	}
	if user.Email == "" {
		return apperr.Validation(`"email" is required`)
	}

	token, expiry, err := s.factory.CreateConfirmationToken()
	if err != nil {
		return apperr.Dependency(err)
	}
	if _, err := s.users.SetConfirmationToken(ctx, id, token, expiry, s.factory.Now()); err != nil {
		return userNotFound(err)
	}
	if err := s.mailer.SendConfirmationEmail(ctx, user.Email, token); err != nil {
		return apperr.Dependency(err)
	}
	return nil
}

// RequestPasswordReset succeeds without sending anything when the email is
// unknown, so callers cannot probe for accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, body map[string]any) error {
	normalized, err := validate(body, validation.PasswordResetRequestFields, validation.Options{})
	if err != nil {
		return err
	}
	email, _ := normalized["email"].(string)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return apperr.Dependency(err)
	}

	token, expiry, err := s.factory.CreateConfirmationToken()
	if err != nil {
		return apperr.Dependency(err)
	}
	if err := s.users.SetPasswordResetToken(ctx, user.ID, token, expiry, s.factory.Now()); err != nil {
		return apperr.Dependency(err)
	}
	// A failed send must look like an unknown email to the caller.
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, token); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("password reset email failed")
	}
	return nil
}

func (s *UserService) ResetPassword(ctx context.Context, body map[string]any) error {
	normalized, err := validate(body, validation.PasswordResetFields, validation.Options{})
	if err != nil {
		return err
	}
	var in struct {
		Token     string `json:"token"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
	}
	if err := validation.Decode(normalized, &in); err != nil {
		return apperr.Dependency(err)
	}
	if in.Password != in.Password2 {
		return apperr.Validation("Passwords do not match")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return apperr.Dependency(err)
	}
	user, err := s.users.ConsumePasswordResetToken(ctx, in.Token, s.factory.Now(), hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return apperr.InvalidToken()
		}
		return apperr.Dependency(err)
	}

	if err := s.mailer.SendPasswordResetSuccessEmail(ctx, user.Email); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID.Hex()).Msg("password reset notice failed")
	}
	s.log.Info().Str("user_id", user.ID.Hex()).Msg("password reset")
	return nil
}

// RecordSession updates the daily streak. Sessions on the same UTC day keep
// it, the next day extends it, and a longer gap starts over at one.
func (s *UserService) RecordSession(ctx context.Context, id primitive.ObjectID, body map[string]any) (models.User, error) {
	normalized, err := validate(body, validation.SessionFields, validation.Options{})
	if err != nil {
		return models.User{}, err
	}
	at := s.factory.Now()
	if value, ok := normalized["at"].(time.Time); ok {
		at = value.UTC()
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, userNotFound(err)
	}

	streak, ok := nextStreak(user.DailyStreak, user.LastSession, at)
	if !ok {
		return user.Sanitized(), nil
	}
	updated, err := s.users.RecordSession(ctx, id, streak, at)
	if err != nil {
		return models.User{}, userNotFound(err)
	}
	return updated.Sanitized(), nil
}

// nextStreak reports false when at falls before the last recorded day.
func nextStreak(current int, last *time.Time, at time.Time) (int, bool) {
	if last == nil || current < 1 {
		return 1, true
	}
	lastDay := last.UTC().Truncate(24 * time.Hour)
	day := at.UTC().Truncate(24 * time.Hour)
	switch days := int(day.Sub(lastDay) / (24 * time.Hour)); {
	case days < 0:
		return current, false
	case days == 0:
		return current, true
	case days == 1:
		return current + 1, true
	default:
		return 1, true
	}
}

func (s *UserService) FavoriteWorkouts(ctx context.Context, id primitive.ObjectID) ([]models.Workout, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	workouts, err := s.catalog.Workouts.MapIDs(ctx, user.FavoriteWorkouts)
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return workouts, nil
}

func (s *UserService) TrainingPlans(ctx context.Context, id primitive.ObjectID) ([]models.TrainingPlan, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userNotFound(err)
	}
	plans, err := s.catalog.Plans.MapIDs(ctx, user.TrainingPlans)
	if err != nil {
		return nil, apperr.Dependency(err)
	}
	return plans, nil
}
