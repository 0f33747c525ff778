// Package repository persists documents in MongoDB.
package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrTokenNotFound = errors.New("token not found")
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("duplicate key")
)

const (
	usersCollection         = "users"
	accessTokensCollection  = "accessTokens"
	internalUsersCollection = "internalUsers"
	workoutsCollection      = "workouts"
	trainingPlansCollection = "trainingPlans"
	firmwareCollection      = "firmware"
	ticketsCollection       = "supportTickets"
)

// emailCollation compares emails case-insensitively. Queries must pass the
// same collation as the index for the index to be used.
var emailCollation = &options.Collation{Locale: "en", Strength: 2}

func translate(err, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
