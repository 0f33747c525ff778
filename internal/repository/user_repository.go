package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"postura/api/internal/models"
)

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, user)
	return translate(err, ErrUserNotFound)
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email}, options.FindOne().SetCollation(emailCollation))
}

func (r *UserRepository) FindByFacebookID(ctx context.Context, facebookID string) (models.User, error) {
	return r.findOne(ctx, bson.M{"facebookId": facebookID}, nil)
}

// EmailTakenByOther reports whether a user other than id owns email.
func (r *UserRepository) EmailTakenByOther(ctx context.Context, email string, id primitive.ObjectID) (bool, error) {
	count, err := r.coll.CountDocuments(ctx,
		bson.M{"email": email, "_id": bson.M{"$ne": id}},
		options.Count().SetCollation(emailCollation).SetLimit(1),
	)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) Update(ctx context.Context, id primitive.ObjectID, patch models.UserPatch, now time.Time) (models.User, error) {
	set, unset := patch.SetFields(now)
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unsetDoc(unset...)
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update, ErrUserNotFound)
}

func (r *UserRepository) SetConfirmationToken(ctx context.Context, id primitive.ObjectID, token string, expiry, now time.Time) (models.User, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"emailConfirmationToken":       token,
		"emailConfirmationTokenExpiry": expiry,
		"updatedAt":                    now,
	}}, ErrUserNotFound)
}

// liveTokenFilter matches field == token while <field>Expiry has not passed.
// The expiry instant itself still counts as valid.
func liveTokenFilter(field, token string, now time.Time) bson.M {
	return bson.M{
		field:            token,
		field + "Expiry": bson.M{"$gte": now},
	}
}

// ConfirmEmail consumes an unexpired confirmation token in one write. A
// second call with the same token finds nothing.
func (r *UserRepository) ConfirmEmail(ctx context.Context, token string, now time.Time) (models.User, error) {
	filter := liveTokenFilter("emailConfirmationToken", token, now)
	update := bson.M{
		"$set":   bson.M{"isConfirmed": true, "updatedAt": now},
		"$unset": unsetDoc("emailConfirmationToken", "emailConfirmationTokenExpiry"),
	}
	return r.findOneAndUpdate(ctx, filter, update, ErrTokenNotFound)
}

func (r *UserRepository) SetPasswordResetToken(ctx context.Context, id primitive.ObjectID, token string, expiry, now time.Time) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"passwordResetToken":       token,
		"passwordResetTokenExpiry": expiry,
		"updatedAt":                now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ConsumePasswordResetToken stores the new hash and clears the reset token
// in the same write that matched it.
func (r *UserRepository) ConsumePasswordResetToken(ctx context.Context, token string, now time.Time, hash []byte) (models.User, error) {
	filter := liveTokenFilter("passwordResetToken", token, now)
	update := bson.M{
		"$set":   bson.M{"password": hash, "updatedAt": now},
		"$unset": unsetDoc("passwordResetToken", "passwordResetTokenExpiry"),
	}
	return r.findOneAndUpdate(ctx, filter, update, ErrTokenNotFound)
}

// LinkFacebook attaches facebookID to a user that has none yet. Facebook
// has verified the shared address, so the account becomes confirmed.
func (r *UserRepository) LinkFacebook(ctx context.Context, id primitive.ObjectID, facebookID string, now time.Time) (models.User, error) {
	filter := bson.M{"_id": id, "facebookId": bson.M{"$exists": false}}
	update := bson.M{
		"$set":   bson.M{"facebookId": facebookID, "isConfirmed": true, "updatedAt": now},
		"$unset": unsetDoc("emailConfirmationToken", "emailConfirmationTokenExpiry"),
	}
	return r.findOneAndUpdate(ctx, filter, update, ErrUserNotFound)
}

func (r *UserRepository) RecordSession(ctx context.Context, id primitive.ObjectID, streak int, at time.Time) (models.User, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"dailyStreak": streak,
		"lastSession": at,
		"updatedAt":   at,
	}}, ErrUserNotFound)
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (models.User, error) {
	var user models.User
	var err error
	if opts != nil {
		err = r.coll.FindOne(ctx, filter, opts).Decode(&user)
	} else {
		err = r.coll.FindOne(ctx, filter).Decode(&user)
	}
	if err != nil {
		return models.User{}, translate(err, ErrUserNotFound)
	}
	return user, nil
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, notFound error) (models.User, error) {
	var user models.User
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		return models.User{}, translate(err, notFound)
	}
	return user, nil
}

func unsetDoc(fields ...string) bson.M {
	doc := make(bson.M, len(fields))
	for _, field := range fields {
		doc[field] = ""
	}
	return doc
}
