package realtime

import (
	"context"

	"github.com/mcdev12/pomoroom/go/internal/models"
)

// Channel is the contract with the shared backend: one-shot reads, a
// long-lived change feed per room and fire-and-forget writes for records.
// Implementations do not retry failed writes.
type Channel interface {
	// FetchRoom returns nil, nil when the room has never been titled.
	FetchRoom(ctx context.Context, roomID string) (*models.Room, error)
	FetchParticipants(ctx context.Context, roomID string) ([]models.Status, error)
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
	UpsertParticipant(ctx context.Context, status models.Status) error
	DeleteParticipant(ctx context.Context, roomID, userID string) error
	UpsertRoom(ctx context.Context, room models.Room) error
}

// Subscription delivers the changes of one room until closed. Close
// releases the feed and may be called more than once.
type Subscription interface {
	Changes() <-chan Change
	Close() error
}

// Dispatcher receives changes decoded from an upstream feed.
type Dispatcher interface {
	Dispatch(change Change)
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(change Change)

// Dispatch calls f(change).
func (f DispatcherFunc) Dispatch(change Change) {
	f(change)
}
