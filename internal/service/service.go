// Package service implements the account lifecycle protocols. Each exported
// method validates its input, checks preconditions, writes once, and then
// performs side effects. Errors leaving this package are apperr values.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/apperr"
	"postura/api/internal/models"
	"postura/api/internal/repository"
	"postura/api/internal/security"
	"postura/api/internal/validation"
)

// userNotFound maps a missing user to NotFound and anything else to a
// dependency failure.
func userNotFound(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperr.NotFound("User not found")
	}
	return apperr.Dependency(err)
}

func validate(body map[string]any, fields validation.Fields, opts validation.Options) (map[string]any, error) {
	if body == nil {
		body = map[string]any{}
	}
	return validation.ValidateMap(body, fields, opts)
}

// issueAccessToken derives a token for userID and stores the association.
func issueAccessToken(ctx context.Context, factory *security.TokenFactory, tokens TokenStore, user models.User) (string, error) {
	token, err := factory.CreateAccessToken(user.ID.Hex())
	if err != nil {
		return "", apperr.Dependency(err)
	}
	record := models.AccessToken{
		UserID:    user.ID,
		Token:     token,
		CreatedAt: factory.Now(),
	}
	if err := tokens.Create(ctx, record); err != nil {
		return "", apperr.Dependency(fmt.Errorf("store access token: %w", err))
	}
	return token, nil
}

// PlanResolver resolves the configured default training plans.
type PlanResolver interface {
	PlanIDsByName(ctx context.Context, names []string) ([]primitive.ObjectID, error)
}

// defaultPlanIDs never fails the caller: a catalog outage leaves the new
// account without default plans.
func defaultPlanIDs(ctx context.Context, plans PlanResolver, names []string, log zerolog.Logger) []primitive.ObjectID {
	if plans == nil || len(names) == 0 {
		return []primitive.ObjectID{}
	}
	ids, err := plans.PlanIDsByName(ctx, names)
	if err != nil {
		log.Warn().Err(err).Strs("plans", names).Msg("default training plans unavailable")
		return []primitive.ObjectID{}
	}
	return ids
}
