package models

// Settings fields are pointers so a partial update can be told apart from an
// explicit zero value.
type Settings struct {
	PostureThreshold          *float64 `bson:"postureThreshold,omitempty" json:"postureThreshold,omitempty"`
	BackEnabled               *bool    `bson:"backEnabled,omitempty" json:"backEnabled,omitempty"`
	VibrationPattern          *int     `bson:"vibrationPattern,omitempty" json:"vibrationPattern,omitempty"`
	VibrationStrength         *int     `bson:"vibrationStrength,omitempty" json:"vibrationStrength,omitempty"`
	SlouchTimeThreshold       *int     `bson:"slouchTimeThreshold,omitempty" json:"slouchTimeThreshold,omitempty"`
	ReminderEnabled           *bool    `bson:"reminderEnabled,omitempty" json:"reminderEnabled,omitempty"`
	ReminderTime              *int     `bson:"reminderTime,omitempty" json:"reminderTime,omitempty"`
	PhoneNotificationsEnabled *bool    `bson:"phoneNotificationsEnabled,omitempty" json:"phoneNotificationsEnabled,omitempty"`
}

const (
	DefaultPostureThreshold          = 0.2
	DefaultBackEnabled               = true
	DefaultVibrationPattern          = 1
	DefaultVibrationStrength         = 50
	DefaultSlouchTimeThreshold       = 5
	DefaultReminderEnabled           = false
	DefaultReminderTime              = 20 * 60
	DefaultPhoneNotificationsEnabled = true
)

func ptr[T any](v T) *T {
	return &v
}

// MergeSettingsWithDefaults fills every unset field with its default. It is
// idempotent and never aliases the pointers of s.
func MergeSettingsWithDefaults(s Settings) Settings {
	return Settings{
		PostureThreshold:          orDefault(s.PostureThreshold, DefaultPostureThreshold),
		BackEnabled:               orDefault(s.BackEnabled, DefaultBackEnabled),
		VibrationPattern:          orDefault(s.VibrationPattern, DefaultVibrationPattern),
		VibrationStrength:         orDefault(s.VibrationStrength, DefaultVibrationStrength),
		SlouchTimeThreshold:       orDefault(s.SlouchTimeThreshold, DefaultSlouchTimeThreshold),
		ReminderEnabled:           orDefault(s.ReminderEnabled, DefaultReminderEnabled),
		ReminderTime:              orDefault(s.ReminderTime, DefaultReminderTime),
		PhoneNotificationsEnabled: orDefault(s.PhoneNotificationsEnabled, DefaultPhoneNotificationsEnabled),
	}
}

// Overlay returns base with every field set in patch replaced.
func (base Settings) Overlay(patch Settings) Settings {
	out := base
	if patch.PostureThreshold != nil {
		out.PostureThreshold = ptr(*patch.PostureThreshold)
	}
	if patch.BackEnabled != nil {
		out.BackEnabled = ptr(*patch.BackEnabled)
	}
	if patch.VibrationPattern != nil {
		out.VibrationPattern = ptr(*patch.VibrationPattern)
	}
	if patch.VibrationStrength != nil {
		out.VibrationStrength = ptr(*patch.VibrationStrength)
	}
	if patch.SlouchTimeThreshold != nil {
		out.SlouchTimeThreshold = ptr(*patch.SlouchTimeThreshold)
	}
	if patch.ReminderEnabled != nil {
		out.ReminderEnabled = ptr(*patch.ReminderEnabled)
	}
	if patch.ReminderTime != nil {
		out.ReminderTime = ptr(*patch.ReminderTime)
	}
	if patch.PhoneNotificationsEnabled != nil {
		out.PhoneNotificationsEnabled = ptr(*patch.PhoneNotificationsEnabled)
	}
	return out
}

func orDefault[T any](v *T, def T) *T {
	if v != nil {
		return ptr(*v)
	}
	return ptr(def)
}
