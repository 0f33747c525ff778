package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuthMethod string

const (
	AuthMethodEmail    AuthMethod = "EMAIL"
	AuthMethodFacebook AuthMethod = "FACEBOOK"
)

type Gender string

const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderOther       Gender = "OTHER"
	GenderUnspecified Gender = "UNSPECIFIED"
)

type HeightUnit string

const (
	HeightUnitInches      HeightUnit = "IN"
	HeightUnitCentimeters HeightUnit = "CM"
)

type WeightUnit string

const (
	WeightUnitPounds    WeightUnit = "LB"
	WeightUnitKilograms WeightUnit = "KG"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Password   []byte             `bson:"password,omitempty" json:"-"`
	FacebookID string             `bson:"facebookId,omitempty" json:"facebookId,omitempty"`
	AuthMethod AuthMethod         `bson:"authMethod" json:"authMethod"`

	IsConfirmed                  bool       `bson:"isConfirmed" json:"isConfirmed"`
	EmailConfirmationToken       string     `bson:"emailConfirmationToken,omitempty" json:"-"`
	EmailConfirmationTokenExpiry *time.Time `bson:"emailConfirmationTokenExpiry,omitempty" json:"-"`
	PasswordResetToken           string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetTokenExpiry     *time.Time `bson:"passwordResetTokenExpiry,omitempty" json:"-"`

	FirstName            string               `bson:"firstName" json:"firstName"`
	LastName             string               `bson:"lastName" json:"lastName"`
	Gender               Gender               `bson:"gender" json:"gender"`
	Height               *float64             `bson:"height,omitempty" json:"height,omitempty"`
	HeightUnitPreference HeightUnit           `bson:"heightUnitPreference" json:"heightUnitPreference"`
	Weight               *float64             `bson:"weight,omitempty" json:"weight,omitempty"`
	WeightUnitPreference WeightUnit           `bson:"weightUnitPreference" json:"weightUnitPreference"`
	Birthdate            *time.Time           `bson:"birthdate,omitempty" json:"birthdate,omitempty"`
	HasOnboarded         bool                 `bson:"hasOnboarded" json:"hasOnboarded"`
	HasTakenSurvey       bool                 `bson:"hasTakenSurvey" json:"hasTakenSurvey"`
	FavoriteWorkouts     []primitive.ObjectID `bson:"favoriteWorkouts" json:"favoriteWorkouts"`
	TrainingPlans        []primitive.ObjectID `bson:"trainingPlans" json:"trainingPlans"`
	DailyStreak          int                  `bson:"dailyStreak" json:"dailyStreak"`
	LastSession          *time.Time           `bson:"lastSession,omitempty" json:"lastSession,omitempty"`

	Settings Settings `bson:"settings" json:"settings"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Sanitized returns a copy without credentials or pending tokens.
func (u User) Sanitized() User {
	u.Password = nil
	u.EmailConfirmationToken = ""
	u.EmailConfirmationTokenExpiry = nil
	u.PasswordResetToken = ""
	u.PasswordResetTokenExpiry = nil
	return u
}

func (u User) HasPassword() bool {
	return len(u.Password) > 0
}

// NewUser returns a user with the default profile and settings.
func NewUser(now time.Time) User {
	return User{
		AuthMethod:           AuthMethodEmail,
		Gender:               GenderUnspecified,
		HeightUnitPreference: HeightUnitInches,
		WeightUnitPreference: WeightUnitPounds,
		FavoriteWorkouts:     []primitive.ObjectID{},
		TrainingPlans:        []primitive.ObjectID{},
		Settings:             MergeSettingsWithDefaults(Settings{}),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}
