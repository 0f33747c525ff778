package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserPatch lists the fields an update writes. Nil fields are left alone.
// Settings is applied field by field on top of the stored settings.
type UserPatch struct {
	Email                        *string
	Password                     []byte
	IsConfirmed                  *bool
	EmailConfirmationToken       *string
	EmailConfirmationTokenExpiry *time.Time

	FirstName            *string
	LastName             *string
	Gender               *Gender
	Height               *float64
	HeightUnitPreference *HeightUnit
	Weight               *float64
	WeightUnitPreference *WeightUnit
	Birthdate            *time.Time
	ClearBirthdate       bool
	HasOnboarded         *bool
	HasTakenSurvey       *bool
	FavoriteWorkouts     []primitive.ObjectID
	Settings             *Settings
}

func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.Password == nil && p.IsConfirmed == nil &&
		p.EmailConfirmationToken == nil && p.EmailConfirmationTokenExpiry == nil &&
		p.FirstName == nil && p.LastName == nil && p.Gender == nil &&
		p.Height == nil && p.HeightUnitPreference == nil &&
		p.Weight == nil && p.WeightUnitPreference == nil &&
		p.Birthdate == nil && !p.ClearBirthdate &&
		p.HasOnboarded == nil && p.HasTakenSurvey == nil &&
		p.FavoriteWorkouts == nil && p.Settings == nil
}

// Apply writes the patch into u.
func (p UserPatch) Apply(u *User, now time.Time) {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Password != nil {
		u.Password = append([]byte(nil), p.Password...)
	}
	if p.IsConfirmed != nil {
		u.IsConfirmed = *p.IsConfirmed
	}
	if p.EmailConfirmationToken != nil {
		u.EmailConfirmationToken = *p.EmailConfirmationToken
	}
	if p.EmailConfirmationTokenExpiry != nil {
		u.EmailConfirmationTokenExpiry = ptr(*p.EmailConfirmationTokenExpiry)
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Gender != nil {
		u.Gender = *p.Gender
	}
	if p.Height != nil {
		u.Height = ptr(*p.Height)
	}
	if p.HeightUnitPreference != nil {
		u.HeightUnitPreference = *p.HeightUnitPreference
	}
	if p.Weight != nil {
		u.Weight = ptr(*p.Weight)
	}
	if p.WeightUnitPreference != nil {
		u.WeightUnitPreference = *p.WeightUnitPreference
	}
	if p.ClearBirthdate {
		u.Birthdate = nil
	} else if p.Birthdate != nil {
		u.Birthdate = ptr(*p.Birthdate)
	}
	if p.HasOnboarded != nil {
		u.HasOnboarded = *p.HasOnboarded
	}
	if p.HasTakenSurvey != nil {
		u.HasTakenSurvey = *p.HasTakenSurvey
	}
	if p.FavoriteWorkouts != nil {
		u.FavoriteWorkouts = append([]primitive.ObjectID{}, p.FavoriteWorkouts...)
	}
	if p.Settings != nil {
		u.Settings = u.Settings.Overlay(*p.Settings)
	}
	u.UpdatedAt = now
}

// SetFields flattens the patch into a $set document keyed by stored field
// names, with settings as dotted paths. Unset lists fields to remove.
func (p UserPatch) SetFields(now time.Time) (set map[string]any, unset []string) {
	set = map[string]any{"updatedAt": now}
	put := func(key string, ok bool, value func() any) {
		if ok {
			set[key] = value()
		}
	}
	put("email", p.Email != nil, func() any { return *p.Email })
	put("password", p.Password != nil, func() any { return p.Password })
	put("isConfirmed", p.IsConfirmed != nil, func() any { return *p.IsConfirmed })
	put("emailConfirmationToken", p.EmailConfirmationToken != nil, func() any { return *p.EmailConfirmationToken })
	put("emailConfirmationTokenExpiry", p.EmailConfirmationTokenExpiry != nil, func() any { return *p.EmailConfirmationTokenExpiry })
	put("firstName", p.FirstName != nil, func() any { return *p.FirstName })
	put("lastName", p.LastName != nil, func() any { return *p.LastName })
	put("gender", p.Gender != nil, func() any { return *p.Gender })
	put("height", p.Height != nil, func() any { return *p.Height })
	put("heightUnitPreference", p.HeightUnitPreference != nil, func() any { return *p.HeightUnitPreference })
	put("weight", p.Weight != nil, func() any { return *p.Weight })
	put("weightUnitPreference", p.WeightUnitPreference != nil, func() any { return *p.WeightUnitPreference })
	put("birthdate", !p.ClearBirthdate && p.Birthdate != nil, func() any { return *p.Birthdate })
	put("hasOnboarded", p.HasOnboarded != nil, func() any { return *p.HasOnboarded })
	put("hasTakenSurvey", p.HasTakenSurvey != nil, func() any { return *p.HasTakenSurvey })
	put("favoriteWorkouts", p.FavoriteWorkouts != nil, func() any { return p.FavoriteWorkouts })

	if s := p.Settings; s != nil {
		put("settings.postureThreshold", s.PostureThreshold != nil, func() any { return *s.PostureThreshold })
		put("settings.backEnabled", s.BackEnabled != nil, func() any { return *s.BackEnabled })
		put("settings.vibrationPattern", s.VibrationPattern != nil, func() any { return *s.VibrationPattern })
		put("settings.vibrationStrength", s.VibrationStrength != nil, func() any { return *s.VibrationStrength })
		put("settings.slouchTimeThreshold", s.SlouchTimeThreshold != nil, func() any { return *s.SlouchTimeThreshold })
		put("settings.reminderEnabled", s.ReminderEnabled != nil, func() any { return *s.ReminderEnabled })
		put("settings.reminderTime", s.ReminderTime != nil, func() any { return *s.ReminderTime })
		put("settings.phoneNotificationsEnabled", s.PhoneNotificationsEnabled != nil, func() any { return *s.PhoneNotificationsEnabled })
	}

	if p.ClearBirthdate {
		unset = append(unset, "birthdate")
	}
	return set, unset
}
