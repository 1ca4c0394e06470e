package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QuietHours is a recurring daily local-time window during which delivery
// is suppressed. Start after End means the window wraps past midnight.
type QuietHours struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Start   string `json:"start" yaml:"start"` // "HH:MM"
	End     string `json:"end" yaml:"end"`     // "HH:MM"
}

// Contains reports whether t (in its own location) falls inside [Start, End).
// Unparseable bounds never match.
func (q QuietHours) Contains(t time.Time) bool {
	start, err := ParseClock(q.Start)
	if err != nil {
		return false
	}
	end, err := ParseClock(q.End)
	if err != nil {
		return false
	}

	now := t.Hour()*60 + t.Minute()

	if start > end {
		return now >= start || now < end
	}
	return now >= start && now < end
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}

	hours, err := strconv.Atoi(hh)
	if err != nil || len(hh) > 2 || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return hours*60 + minutes, nil
}
