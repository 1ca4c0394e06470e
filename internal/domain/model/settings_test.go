package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings_AreValid(t *testing.T) {
	s := DefaultSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, 300, s.PollInterval)
	assert.Equal(t, NotificationBoth, s.NotificationMode)
	assert.Equal(t, SoundDefault, s.SoundMode)
	assert.Equal(t, "22:00", s.QuietHours.Start)
	assert.Equal(t, "08:00", s.QuietHours.End)
}

func TestSettings_ValidateRejectsEachRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{name: "interval too short", mutate: func(s *Settings) { s.PollInterval = 59 }, wantMsg: "poll_interval"},
		{name: "interval too long", mutate: func(s *Settings) { s.PollInterval = 3601 }, wantMsg: "poll_interval"},
		{name: "bad mode", mutate: func(s *Settings) { s.NotificationMode = "pager" }, wantMsg: "notification_mode"},
		{name: "bad sound", mutate: func(s *Settings) { s.SoundMode = "loud" }, wantMsg: "notification_sound"},
		{name: "custom without path", mutate: func(s *Settings) { s.SoundMode = SoundCustom }, wantMsg: "custom_sound_path is required"},
		{name: "custom relative path", mutate: func(s *Settings) {
			s.SoundMode = SoundCustom
			s.CustomSoundPath = "ding.wav"
		}, wantMsg: "absolute path"},
		{name: "custom wrong extension", mutate: func(s *Settings) {
			s.SoundMode = SoundCustom
			s.CustomSoundPath = "/tmp/ding.mp3"
		}, wantMsg: "absolute path"},
		{name: "too many filters", mutate: func(s *Settings) { s.Filters = make([]string, 101) }, wantMsg: "maximum is 100"},
		{name: "filter too long", mutate: func(s *Settings) { s.Filters = []string{strings.Repeat("a", 201)} }, wantMsg: "filters[0]"},
		{name: "bad quiet start", mutate: func(s *Settings) { s.QuietHours.Start = "9pm" }, wantMsg: "quiet_hours.start"},
		{name: "bad quiet end", mutate: func(s *Settings) { s.QuietHours.End = "24:00" }, wantMsg: "quiet_hours.end"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultSettings()
			tc.mutate(&s)

			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestSettings_ValidateReportsAllViolations(t *testing.T) {
	s := DefaultSettings()
	s.PollInterval = 10
	s.NotificationMode = "pager"

	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
	assert.Contains(t, err.Error(), "notification_mode")
}

func TestSettings_ValidateAcceptsCustomWav(t *testing.T) {
	s := DefaultSettings()
	s.SoundMode = SoundCustom
	s.CustomSoundPath = "/usr/share/sounds/ding.WAV"

	assert.NoError(t, s.Validate())
}

func TestNotificationMode_LegacyTTS(t *testing.T) {
	m := NotificationMode("tts")

	assert.Equal(t, NotificationSpeech, m.Normalize())
	assert.True(t, m.Speech())
	assert.False(t, m.Toast())

	s := DefaultSettings()
	s.NotificationMode = m
	assert.NoError(t, s.Validate())
	assert.Equal(t, NotificationSpeech, s.Delivery().Mode)
}

func TestPullRequest_KeyAndOwner(t *testing.T) {
	pr := PullRequest{Number: 42, RepoFullName: "acme/widgets"}

	assert.Equal(t, "acme/widgets#42", pr.Key())
	assert.Equal(t, "acme", pr.Owner())
}
