package driven

import "time"

// Cycle outcomes reported to PollMetrics.
const (
	CycleOK           = "ok"
	CycleUnchanged    = "unchanged"
	CycleUnconfigured = "unconfigured"
	CycleError        = "error"
)

// PollMetrics records poll cycle observations.
type PollMetrics interface {
	CycleCompleted(outcome string, duration time.Duration)
	NewPullRequests(count int)
	DeliverySuppressed()
	Tracked(count int)
}
