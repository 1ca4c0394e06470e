package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Settings bounds enforced by Validate.
const (
	MinPollInterval  = 60
	MaxPollInterval  = 3600
	MaxFilters       = 100
	MaxFilterLength  = 200
	customSoundExt   = ".wav"
	defaultQuietFrom = "22:00"
	defaultQuietTo   = "08:00"
)

// Settings holds the user-editable agent configuration.
type Settings struct {
	PollInterval     int              `json:"poll_interval" yaml:"poll_interval"` // seconds
	NotificationMode NotificationMode `json:"notification_mode" yaml:"notification_mode"`
	SoundMode        SoundMode        `json:"notification_sound" yaml:"notification_sound"`
	CustomSoundPath  string           `json:"custom_sound_path" yaml:"custom_sound_path"`
	AutoStart        bool             `json:"auto_start" yaml:"auto_start"`
	Filters          []string         `json:"filters" yaml:"filters"`
	QuietHours       QuietHours       `json:"quiet_hours" yaml:"quiet_hours"`
}

// DefaultSettings returns the settings used before the user saves any.
func DefaultSettings() Settings {
	return Settings{
		PollInterval:     300,
		NotificationMode: NotificationBoth,
		SoundMode:        SoundDefault,
		AutoStart:        true,
		Filters:          []string{},
		QuietHours: QuietHours{
			Enabled: false,
			Start:   defaultQuietFrom,
			End:     defaultQuietTo,
		},
	}
}

// Interval returns the poll interval as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.PollInterval) * time.Second
}

// Delivery extracts the dispatcher preferences.
func (s Settings) Delivery() DeliveryPrefs {
	return DeliveryPrefs{
		Mode:            s.NotificationMode.Normalize(),
		Sound:           s.SoundMode,
		CustomSoundPath: s.CustomSoundPath,
	}
}

// Validate checks every rule and returns all violations joined, or nil.
func (s Settings) Validate() error {
	var errs []error

	if s.PollInterval < MinPollInterval || s.PollInterval > MaxPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval must be between %d and %d seconds, got %d", MinPollInterval, MaxPollInterval, s.PollInterval))
	}
	if !s.NotificationMode.valid() {
		errs = append(errs, fmt.Errorf("notification_mode %q is not one of toast, speech, both", s.NotificationMode))
	}
	if !s.SoundMode.valid() {
		errs = append(errs, fmt.Errorf("notification_sound %q is not one of none, default, custom", s.SoundMode))
	}
	if s.SoundMode == SoundCustom {
		switch {
		case s.CustomSoundPath == "":
			errs = append(errs, errors.New("custom_sound_path is required when notification_sound is custom"))
		case !filepath.IsAbs(s.CustomSoundPath) || !strings.EqualFold(filepath.Ext(s.CustomSoundPath), customSoundExt):
			errs = append(errs, fmt.Errorf("custom_sound_path %q must be an absolute path to a .wav file", s.CustomSoundPath))
		}
	}
	if len(s.Filters) > MaxFilters {
		errs = append(errs, fmt.Errorf("filters has %d entries, maximum is %d", len(s.Filters), MaxFilters))
	}
	for i, f := range s.Filters {
		if len(f) > MaxFilterLength {
			errs = append(errs, fmt.Errorf("filters[%d] is longer than %d characters", i, MaxFilterLength))
		}
	}
	if _, err := ParseClock(s.QuietHours.Start); err != nil {
		errs = append(errs, fmt.Errorf("quiet_hours.start: %w", err))
	}
	if _, err := ParseClock(s.QuietHours.End); err != nil {
		errs = append(errs, fmt.Errorf("quiet_hours.end: %w", err))
	}

	return errors.Join(errs...)
}

// DeliveryPrefs are the notification settings the dispatcher needs.
type DeliveryPrefs struct {
	Mode            NotificationMode
	Sound           SoundMode
	CustomSoundPath string
}

// ConnectionResult is the outcome of a credential test. It never carries an error.
type ConnectionResult struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message"`
}
