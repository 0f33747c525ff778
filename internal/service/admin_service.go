package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"postura/api/internal/apperr"
	"postura/api/internal/models"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/validation"
)

var internalUserFields = validation.Fields{
	"email":    validation.Email().Required(),
	"password": validation.Password().Required(),
}

// AdminService authenticates operators. Each operator holds one token at a
// time; logging in again replaces it.
type AdminService struct {
	admins  InternalUserStore
	factory *security.TokenFactory
	log     zerolog.Logger
}

func NewAdminService(admins InternalUserStore, factory *security.TokenFactory, log zerolog.Logger) *AdminService {
	return &AdminService{admins: admins, factory: factory, log: log}
}

func (s *AdminService) Login(ctx context.Context, body map[string]any) (LoginResult, error) {
	normalized, err := validate(body, validation.LoginFields, validation.Options{})
	if err != nil {
		return LoginResult{}, err
	}
	creds, err := decodeCredentials(normalized)
	if err != nil {
		return LoginResult{}, apperr.Dependency(err)
	}

	admin, err := s.admins.FindByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return LoginResult{}, apperr.Authorization()
		}
		return LoginResult{}, apperr.Dependency(err)
	}
	ok, err := security.VerifyPassword(creds.Password, admin.Password)
	if err != nil {
		s.log.Warn().Err(err).Str("admin_id", admin.ID.Hex()).Msg("stored password hash unreadable")
	}
	if !ok {
		return LoginResult{}, apperr.Authorization()
	}

	token, err := s.factory.CreateAccessToken(admin.ID.Hex())
	if err != nil {
		return LoginResult{}, apperr.Dependency(err)
	}
	if err := s.admins.SetAccessToken(ctx, admin.ID, token); err != nil {
		return LoginResult{}, apperr.Dependency(err)
	}
	s.log.Info().Str("admin_id", admin.ID.Hex()).Msg("admin logged in")
	return LoginResult{Email: admin.Email, AccessToken: token}, nil
}

// Logout empties the token slot holding token.
func (s *AdminService) Logout(ctx context.Context, token string) error {
	if err := s.admins.ClearAccessToken(ctx, token); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return apperr.Authorization()
		}
		return apperr.Dependency(err)
	}
	return nil
}

func (s *AdminService) CreateInternalUser(ctx context.Context, email, password string) (models.InternalUser, error) {
	normalized, err := validate(map[string]any{"email": email, "password": password}, internalUserFields, validation.Options{})
	if err != nil {
		return models.InternalUser{}, err
	}
	creds, err := decodeCredentials(normalized)
	if err != nil {
		return models.InternalUser{}, apperr.Dependency(err)
	}

	hash, err := security.HashPassword(creds.Password)
	if err != nil {
		return models.InternalUser{}, apperr.Dependency(err)
	}
	admin := models.InternalUser{
		Email:     creds.Email,
		Password:  hash,
		CreatedAt: s.factory.Now(),
	}
	if err := s.admins.Create(ctx, &admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.InternalUser{}, apperr.Conflict("Internal user already exists")
		}
		return models.InternalUser{}, apperr.Dependency(err)
	}
	return admin, nil
}
