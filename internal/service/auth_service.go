package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"postura/api/internal/apperr"
	"postura/api/internal/facebook"
	"postura/api/internal/models"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/validation"
)

type AuthService struct {
	users        UserStore
	tokens       TokenStore
	factory      *security.TokenFactory
	verifier     facebook.Verifier
	plans        PlanResolver
	defaultPlans []string
	log          zerolog.Logger
}

func NewAuthService(
	users UserStore,
	tokens TokenStore,
	factory *security.TokenFactory,
	verifier facebook.Verifier,
	plans PlanResolver,
	defaultPlans []string,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		factory:      factory,
		verifier:     verifier,
		plans:        plans,
		defaultPlans: defaultPlans,
		log:          log,
	}
}

type LoginResult struct {
	Email       string `json:"email"`
	AccessToken string `json:"accessToken"`
}

// Login checks an email and password. Unknown email and wrong password fail
// with the same error.
func (s *AuthService) Login(ctx context.Context, body map[string]any) (LoginResult, error) {
	normalized, err := validate(body, validation.LoginFields, validation.Options{})
	if err != nil {
		return LoginResult{}, err
	}
	creds, err := decodeCredentials(normalized)
	if err != nil {
		return LoginResult{}, apperr.Dependency(err)
	}

	user, err := s.users.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, apperr.Authorization()
		}
		return LoginResult{}, apperr.Dependency(err)
	}

	ok, err := security.VerifyPassword(creds.Password, user.Password)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("stored password hash unreadable")
	}
	if !ok {
		return LoginResult{}, apperr.Authorization()
	}

	token, err := issueAccessToken(ctx, s.factory, s.tokens, user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Email: user.Email, AccessToken: token}, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.tokens.DeleteByToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return apperr.Authorization()
		}
		return apperr.Dependency(err)
	}
	return nil
}

type FacebookResult struct {
	User        models.User `json:"user"`
	AccessToken string      `json:"accessToken"`
	IsNew       bool        `json:"isNew"`
}

// FacebookLogin signs in with a Facebook access token. A user matched by
// Facebook id signs in directly; a password user matched by email gets the
// Facebook id attached; otherwise a confirmed Facebook user is created.
func (s *AuthService) FacebookLogin(ctx context.Context, body map[string]any) (FacebookResult, error) {
	normalized, err := validate(body, validation.FacebookFields, validation.Options{})
	if err != nil {
		return FacebookResult{}, err
	}
	var in struct {
		AccessToken string `json:"accessToken"`
		ID          string `json:"id"`
	}
	if err := validation.Decode(normalized, &in); err != nil {
		return FacebookResult{}, apperr.Dependency(err)
	}

	profile, err := s.verifier.VerifyToken(ctx, in.AccessToken, in.ID)
	if err != nil {
		s.log.Info().Err(err).Str("facebook_id", in.ID).Msg("facebook token rejected")
		return FacebookResult{}, apperr.Authorization()
	}

	user, isNew, err := s.resolveFacebookUser(ctx, profile)
	if err != nil {
		return FacebookResult{}, err
	}

	token, err := issueAccessToken(ctx, s.factory, s.tokens, user)
	if err != nil {
		return FacebookResult{}, err
	}
	return FacebookResult{User: user.Sanitized(), AccessToken: token, IsNew: isNew}, nil
}

func (s *AuthService) resolveFacebookUser(ctx context.Context, profile facebook.Profile) (models.User, bool, error) {
	user, err := s.users.FindByFacebookID(ctx, profile.ID)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, false, apperr.Dependency(err)
	}

	if profile.Email != "" {
		user, err := s.users.FindByEmail(ctx, profile.Email)
		switch {
		case err == nil:
			return s.linkFacebook(ctx, user, profile.ID)
		case !errors.Is(err, repository.ErrUserNotFound):
			return models.User{}, false, apperr.Dependency(err)
		}
	}

	return s.createFacebookUser(ctx, profile)
}

func (s *AuthService) linkFacebook(ctx context.Context, user models.User, facebookID string) (models.User, bool, error) {
	if user.FacebookID != "" {
		return models.User{}, false, apperr.Conflict("Email is already linked to another Facebook account")
	}
	linked, err := s.users.LinkFacebook(ctx, user.ID, facebookID, s.factory.Now())
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) || errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, false, apperr.Conflict("Facebook account is already linked")
		}
		return models.User{}, false, apperr.Dependency(err)
	}
	s.log.Info().Str("user_id", linked.ID.Hex()).Msg("facebook account linked")
	return linked, false, nil
}

func (s *AuthService) createFacebookUser(ctx context.Context, profile facebook.Profile) (models.User, bool, error) {
	user := models.NewUser(s.factory.Now())
	user.AuthMethod = models.AuthMethodFacebook
	user.FacebookID = profile.ID
	user.Email = profile.Email
	user.FirstName = profile.FirstName
	user.LastName = profile.LastName
	user.IsConfirmed = true
	user.TrainingPlans = defaultPlanIDs(ctx, s.plans, s.defaultPlans, s.log)

	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, false, apperr.Conflict("Account already exists")
		}
		return models.User{}, false, apperr.Dependency(err)
	}
	s.log.Info().Str("user_id", user.ID.Hex()).Msg("facebook user created")
	return user, true, nil
}
