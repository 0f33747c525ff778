package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postura/api/internal/models"
)

type InternalUserRepository struct {
	coll *mongo.Collection
}

func NewInternalUserRepository(db *mongo.Database) *InternalUserRepository {
	return &InternalUserRepository{coll: db.Collection(internalUsersCollection)}
}

func (r *InternalUserRepository) Create(ctx context.Context, user *models.InternalUser) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, user)
	return translate(err, ErrUserNotFound)
}

func (r *InternalUserRepository) FindByEmail(ctx context.Context, email string) (models.InternalUser, error) {
	var user models.InternalUser
	err := r.coll.FindOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(emailCollation)).Decode(&user)
	if err != nil {
		return models.InternalUser{}, translate(err, ErrUserNotFound)
	}
	return user, nil
}

func (r *InternalUserRepository) FindByAccessToken(ctx context.Context, token string) (models.InternalUser, error) {
	var user models.InternalUser
	if err := r.coll.FindOne(ctx, bson.M{"accessToken": token}).Decode(&user); err != nil {
		return models.InternalUser{}, translate(err, ErrTokenNotFound)
	}
	return user, nil
}

// SetAccessToken replaces the single token slot, invalidating any previous
// admin session.
func (r *InternalUserRepository) SetAccessToken(ctx context.Context, id primitive.ObjectID, token string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{"accessToken": token}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *InternalUserRepository) ClearAccessToken(ctx context.Context, token string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"accessToken": token}, bson.M{"$unset": unsetDoc("accessToken")})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrTokenNotFound
	}
	return nil
}
