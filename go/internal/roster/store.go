package roster

import (
	"sync"

	"github.com/mcdev12/pomoroom/go/internal/models"
)

// Store holds the latest known status of every participant in one room,
// keyed by user id. Writes always replace the whole record.
type Store struct {
	mu      sync.RWMutex
	records map[string]models.Status
	order   []string // insertion order of user ids
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		records: make(map[string]models.Status),
	}
}

// Upsert inserts the record if its user is absent, otherwise replaces it in place.
func (s *Store) Upsert(status models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[status.UserID]; !exists {
		s.order = append(s.order, status.UserID)
	}
	s.records[status.UserID] = status
}

// Remove deletes the user's record. Removing an absent user is a no-op.
func (s *Store) Remove(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[userID]; !exists {
		return
	}
	delete(s.records, userID)
	for i, id := range s.order {
		if id == userID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Reset replaces the store contents with an initial snapshot.
func (s *Store) Reset(statuses []models.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]models.Status, len(statuses))
	s.order = s.order[:0]
	for _, status := range statuses {
		if _, exists := s.records[status.UserID]; !exists {
			s.order = append(s.order, status.UserID)
		}
		s.records[status.UserID] = status
	}
}

// Get returns the record for a user.
func (s *Store) Get(userID string) (models.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.records[userID]
	return status, ok
}

// Len returns the number of participants.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Snapshot returns every record in insertion order.
func (s *Store) Snapshot() []models.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Status, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}
