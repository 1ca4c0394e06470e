package model

// QueryCategory identifies one of the two search queries polled each cycle.
type QueryCategory string

const (
	CategoryAssigned        QueryCategory = "assigned"
	CategoryReviewRequested QueryCategory = "reviewRequested"
)

// Query returns the GitHub search query for the category and user.
func (c QueryCategory) Query(username string) string {
	switch c {
	case CategoryReviewRequested:
		return "is:pr is:open review-requested:" + username
	default:
		return "is:pr is:open assignee:" + username
	}
}

// NotificationMode selects which delivery channels are used.
type NotificationMode string

const (
	NotificationToast  NotificationMode = "toast"
	NotificationSpeech NotificationMode = "speech"
	NotificationBoth   NotificationMode = "both"

	// notificationLegacyTTS is the value older settings documents carry for speech.
	notificationLegacyTTS NotificationMode = "tts"
)

// Normalize maps legacy values onto their current name.
func (m NotificationMode) Normalize() NotificationMode {
	if m == notificationLegacyTTS {
		return NotificationSpeech
	}
	return m
}

// Toast reports whether visual alerts are enabled.
func (m NotificationMode) Toast() bool {
	m = m.Normalize()
	return m == NotificationToast || m == NotificationBoth
}

// Speech reports whether spoken alerts are enabled.
func (m NotificationMode) Speech() bool {
	m = m.Normalize()
	return m == NotificationSpeech || m == NotificationBoth
}

func (m NotificationMode) valid() bool {
	switch m.Normalize() {
	case NotificationToast, NotificationSpeech, NotificationBoth:
		return true
	}
	return false
}

// SoundMode selects the audio played alongside notifications.
type SoundMode string

const (
	SoundNone    SoundMode = "none"
	SoundDefault SoundMode = "default"
	SoundCustom  SoundMode = "custom"
)

func (m SoundMode) valid() bool {
	switch m {
	case SoundNone, SoundDefault, SoundCustom:
		return true
	}
	return false
}

// TrayState is the observable agent status pushed to the status sink.
type TrayState string

const (
	TrayNormal       TrayState = "normal"
	TrayError        TrayState = "error"
	TrayUnconfigured TrayState = "unconfigured"
	TrayQuiet        TrayState = "quiet"
)

// SuppressionReason explains why delivery is currently suppressed.
// The zero value means delivery is allowed.
type SuppressionReason string

const (
	SuppressionNone       SuppressionReason = ""
	SuppressionSnooze     SuppressionReason = "snooze"
	SuppressionQuietHours SuppressionReason = "quiet_hours"
)
