package driven

import "context"

// Toast is a single visual desktop alert.
type Toast struct {
	Title string
	Body  string
	// URL is opened when the alert is clicked. Empty disables click handling.
	URL    string
	Silent bool
}

// Toaster shows visual desktop alerts.
type Toaster interface {
	Show(ctx context.Context, toast Toast) error
}

// Speaker speaks text through the platform speech engine and returns once
// speaking has finished.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SoundPlayer plays an audio file.
type SoundPlayer interface {
	Play(ctx context.Context, path string) error
}
