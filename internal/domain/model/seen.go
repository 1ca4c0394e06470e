package model

import "time"

// SeenEntry records when a pull request key first appeared in a filtered
// poll result. SeenAt is never updated after creation.
type SeenEntry struct {
	Key    string
	SeenAt time.Time
}
