package driven

import "time"

// Task is a handle to a scheduled callback. Stop is idempotent.
type Task interface {
	Stop()
}

// Scheduler runs callbacks on a fixed interval or once after a delay.
type Scheduler interface {
	Every(interval time.Duration, fn func()) Task
	After(delay time.Duration, fn func()) Task
}
