package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 72
)

func hasClass(class func(rune) bool) func(string) bool {
	return func(s string) bool {
		for _, r := range s {
			if class(r) {
				return true
			}
		}
		return false
	}
}

// singleLine rejects values that would split a mail header.
func singleLine(s string) bool {
	return !strings.ContainsAny(s, "\r\n")
}

func Password() Rule {
	return String().
		Min(PasswordMinLength).
		Max(PasswordMaxLength).
		Check(hasClass(unicode.IsUpper), "must contain at least one uppercase letter").
		Check(hasClass(unicode.IsLower), "must contain at least one lowercase letter").
		Check(hasClass(unicode.IsDigit), "must contain at least one number")
}

var SettingsFields = Fields{
	"postureThreshold":          Number().Min(0).Max(1),
	"backEnabled":               Boolean(),
	"vibrationPattern":          Number().Integer().Min(1).Max(5),
	"vibrationStrength":         Number().Integer().Min(0).Max(100),
	"slouchTimeThreshold":       Number().Integer().Min(0).Max(3600),
	"reminderEnabled":           Boolean(),
	"reminderTime":              Number().Integer().Min(0).Max(1439),
	"phoneNotificationsEnabled": Boolean(),
}

// UserFields is the shared user document schema. Signup and update derive
// their own required/forbidden sets from it per call.
var UserFields = Fields{
	"_id":                  ObjectID(),
	"email":                Email(),
	"password":             Password(),
	"password2":            String(),
	"facebookId":           String().Trim(),
	"isConfirmed":          Boolean(),
	"firstName":            String().Trim().Max(100).AllowEmpty(),
	"lastName":             String().Trim().Max(100).AllowEmpty(),
	"gender":               String().OneOf("MALE", "FEMALE", "OTHER", "UNSPECIFIED"),
	"height":               Number().Min(0).Max(300),
	"heightUnitPreference": String().OneOf("IN", "CM"),
	"weight":               Number().Min(0).Max(1000),
	"weightUnitPreference": String().OneOf("LB", "KG"),
	"birthdate":            Date().Nullable(),
	"hasOnboarded":         Boolean(),
	"hasTakenSurvey":       Boolean(),
	"favoriteWorkouts":     Array(ObjectID()).Unique(),
	"settings":             Object(SettingsFields),
}

var (
	SignupRequired  = []string{"email", "password"}
	SignupForbidden = []string{"_id", "facebookId", "isConfirmed", "password2", "favoriteWorkouts"}
	UpdateForbidden = []string{"_id", "facebookId", "isConfirmed"}
)

var LoginFields = Fields{
	"email":    Email().Required(),
	"password": String().Required(),
}

var FacebookFields = Fields{
	"accessToken": String().Trim().Required(),
	"id":          String().Trim().Required(),
}

var PasswordResetRequestFields = Fields{
	"email": Email().Required(),
}

var PasswordResetFields = Fields{
	"token":     String().Trim().Required(),
	"password":  Password().Required(),
	"password2": String().Required(),
}

var TokenFields = Fields{
	"token": String().Trim().Required(),
}

var SupportFields = Fields{
	"subject": String().Trim().Max(200).AllowEmpty().Check(singleLine, "must be a single line"),
	"message": String().Trim().Min(1).Max(5000).Required(),
}

var SessionFields = Fields{
	"at": Date(),
}

var FirmwareFields = Fields{
	"type":         String().OneOf("APP", "BOOTLOADER").Required(),
	"version":      String().Trim().Pattern(versionPattern, "must be a version of the form major.minor.patch").Required(),
	"releaseNotes": String().Trim().Max(2000).AllowEmpty(),
}

var FirmwareQueryFields = Fields{
	"type": String().OneOf("APP", "BOOTLOADER").Required(),
}
