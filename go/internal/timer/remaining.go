package timer

import (
	"time"

	"github.com/mcdev12/pomoroom/go/internal/models"
)

// Remaining returns the seconds left on a running countdown at now. It is
// never negative and is 0 for idle records.
func Remaining(s models.Status, now time.Time) int64 {
	if !s.Running() {
		return 0
	}
	remaining := s.EndTS() - now.Unix()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FractionRemaining is remaining/duration, 0 when the duration is 0.
func FractionRemaining(s models.Status, now time.Time) float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(Remaining(s, now)) / float64(s.Duration)
}

// PercentElapsed is 1 - remaining/duration, 0 when the duration is 0.
func PercentElapsed(s models.Status, now time.Time) float64 {
	if s.Duration <= 0 {
		return 0
	}
	return 1 - FractionRemaining(s, now)
}

// Expired reports whether a running countdown has reached zero.
func Expired(s models.Status, now time.Time) bool {
	return s.Running() && Remaining(s, now) == 0
}
