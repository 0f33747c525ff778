package service

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"postura/api/internal/models"
	"postura/api/internal/validation"
)

type credentialsInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type profileInput struct {
	FirstName            *string              `json:"firstName"`
	LastName             *string              `json:"lastName"`
	Gender               *string              `json:"gender"`
	Height               *float64             `json:"height"`
	HeightUnitPreference *string              `json:"heightUnitPreference"`
	Weight               *float64             `json:"weight"`
	WeightUnitPreference *string              `json:"weightUnitPreference"`
	Birthdate            *time.Time           `json:"birthdate"`
	HasOnboarded         *bool                `json:"hasOnboarded"`
	HasTakenSurvey       *bool                `json:"hasTakenSurvey"`
	FavoriteWorkouts     []primitive.ObjectID `json:"favoriteWorkouts"`
	Settings             *models.Settings     `json:"settings"`
}

// decodeProfile turns the profile part of a validated user body into a
// patch. An explicit null birthdate clears the stored one.
func decodeProfile(normalized map[string]any) (models.UserPatch, error) {
	var in profileInput
	if err := validation.Decode(normalized, &in); err != nil {
		return models.UserPatch{}, err
	}

	patch := models.UserPatch{
		FirstName:        in.FirstName,
		LastName:         in.LastName,
		Height:           in.Height,
		Weight:           in.Weight,
		Birthdate:        in.Birthdate,
		HasOnboarded:     in.HasOnboarded,
		HasTakenSurvey:   in.HasTakenSurvey,
		FavoriteWorkouts: in.FavoriteWorkouts,
		Settings:         in.Settings,
	}
	if in.Gender != nil {
		gender := models.Gender(*in.Gender)
		patch.Gender = &gender
	}
	if in.HeightUnitPreference != nil {
		unit := models.HeightUnit(*in.HeightUnitPreference)
		patch.HeightUnitPreference = &unit
	}
	if in.WeightUnitPreference != nil {
		unit := models.WeightUnit(*in.WeightUnitPreference)
		patch.WeightUnitPreference = &unit
	}
	if value, ok := normalized["birthdate"]; ok && value == nil {
		patch.ClearBirthdate = true
		patch.Birthdate = nil
	}
	return patch, nil
}

func decodeCredentials(normalized map[string]any) (credentialsInput, error) {
	var in credentialsInput
	err := validation.Decode(normalized, &in)
	return in, err
}
