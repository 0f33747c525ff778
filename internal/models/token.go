package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccessToken associates a bearer token with a user. Tokens do not expire;
// they live until logout deletes them.
type AccessToken struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Token     string             `bson:"token" json:"token"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// InternalUser is an operator account with a single token slot.
type InternalUser struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email       string             `bson:"email" json:"email"`
	Password    []byte             `bson:"password" json:"-"`
	AccessToken string             `bson:"accessToken,omitempty" json:"-"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
