package roster

import (
	"sort"
	"time"

	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/timer"
)

// Entry is one roster row as the rendering layer consumes it.
type Entry struct {
	Status         models.Status `json:"status"`
	RemainingSec   int64         `json:"remaining_sec"`
	PercentElapsed float64       `json:"percent_elapsed"`
	EndsAt         *time.Time    `json:"ends_at,omitempty"`
	Message        string        `json:"message"`
	Color          string        `json:"color"`
}

// Sorted orders records soonest-expiring first. Running records are sorted
// ascending by remaining time, idle records go last in their original order.
func Sorted(statuses []models.Status, now time.Time) []models.Status {
	out := make([]models.Status, len(statuses))
	copy(out, statuses)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Running() != b.Running() {
			return a.Running()
		}
		if !a.Running() {
			return false
		}
		return timer.Remaining(a, now) < timer.Remaining(b, now)
	})
	return out
}

// Sorted returns the store snapshot in display order.
func (s *Store) Sorted(now time.Time) []models.Status {
	return Sorted(s.Snapshot(), now)
}

// Entries returns the display rows for the store at now.
func (s *Store) Entries(now time.Time) []Entry {
	sorted := s.Sorted(now)
	entries := make([]Entry, 0, len(sorted))
	for _, status := range sorted {
		entries = append(entries, NewEntry(status, now))
	}
	return entries
}

// NewEntry derives the display row of a single record.
func NewEntry(status models.Status, now time.Time) Entry {
	entry := Entry{
		Status:         status,
		RemainingSec:   timer.Remaining(status, now),
		PercentElapsed: timer.PercentElapsed(status, now),
		Message:        status.MessageOrPlaceholder(),
		Color:          status.ColorOrDefault(),
	}
	if status.Running() {
		endsAt := time.Unix(status.EndTS(), 0)
		entry.EndsAt = &endsAt
	}
	return entry
}
