package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"postura/api/internal/models"
)

type TokenRepository struct {
	coll *mongo.Collection
}

func NewTokenRepository(db *mongo.Database) *TokenRepository {
	return &TokenRepository{coll: db.Collection(accessTokensCollection)}
}

func (r *TokenRepository) Create(ctx context.Context, token models.AccessToken) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, token)
	return translate(err, ErrTokenNotFound)
}

func (r *TokenRepository) FindByToken(ctx context.Context, token string) (models.AccessToken, error) {
	var found models.AccessToken
	if err := r.coll.FindOne(ctx, bson.M{"token": token}).Decode(&found); err != nil {
		return models.AccessToken{}, translate(err, ErrTokenNotFound)
	}
	return found, nil
}

func (r *TokenRepository) DeleteByToken(ctx context.Context, token string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrTokenNotFound
	}
	return nil
}
