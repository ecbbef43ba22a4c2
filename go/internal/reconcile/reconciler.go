package reconcile

import (
	"context"

	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Store defines what reconciliation needs from the participant store
type Store interface {
	Upsert(status models.Status)
	Remove(userID string)
}

// TitleSink receives room title changes
type TitleSink interface {
	SetTitle(title string)
}

// Apply merges one participant change into the store. Inserted and updated
// both replace the record verbatim, deleted removes the user. Nothing is
// checked against prior state, so redelivery is harmless but a reordered
// stale change shows until the next one arrives.
func Apply(store Store, change realtime.Change) {
	if change.Status == nil {
		return
	}
	switch change.Kind {
	case realtime.ChangeInserted, realtime.ChangeUpdated:
		store.Upsert(*change.Status)
	case realtime.ChangeDeleted:
		store.Remove(change.Status.UserID)
	}
}

// Reconciler applies a room's change feed to the local state.
type Reconciler struct {
	store Store
	title TitleSink
}

// NewReconciler creates a reconciler. title may be nil.
func NewReconciler(store Store, title TitleSink) *Reconciler {
	return &Reconciler{store: store, title: title}
}

// Handle applies a single change of either table.
func (r *Reconciler) Handle(change realtime.Change) {
	switch change.Table {
	case realtime.TableStatuses:
		Apply(r.store, change)
		log.Debug().
			Str("room_id", change.RoomID).
			Str("kind", string(change.Kind)).
			Str("user_id", userID(change)).
			Msg("participant change applied")
	case realtime.TableRooms:
		if r.title == nil || change.Room == nil || change.Kind == realtime.ChangeDeleted {
			return
		}
		if change.Room.Title != "" {
			r.title.SetTitle(change.Room.Title)
		}
	default:
		log.Warn().Str("table", string(change.Table)).Msg("ignoring change for unknown table")
	}
}

// Run consumes changes until ctx is done or the channel is closed.
func (r *Reconciler) Run(ctx context.Context, changes <-chan realtime.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				log.Debug().Msg("change feed closed")
				return
			}
			r.Handle(change)
		}
	}
}

func userID(change realtime.Change) string {
	if change.Status == nil {
		return ""
	}
	return change.Status.UserID
}
