package realtime

import (
	"fmt"

	"github.com/mcdev12/pomoroom/go/internal/models"
)

// Table identifies which logical table a change belongs to.
type Table string

const (
	TableRooms    Table = "rooms"
	TableStatuses Table = "statuses"
)

// ChangeKind is the row-level operation that produced a change.
type ChangeKind string

const (
	ChangeInserted ChangeKind = "inserted"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
)

// ParseChangeKind accepts both our kinds and SQL operation names.
func ParseChangeKind(s string) (ChangeKind, error) {
	switch s {
	case "inserted", "INSERT":
		return ChangeInserted, nil
	case "updated", "UPDATE":
		return ChangeUpdated, nil
	case "deleted", "DELETE":
		return ChangeDeleted, nil
	default:
		return "", fmt.Errorf("unknown change kind: %s", s)
	}
}

// Change is one row change in a room. Status changes carry the new record,
// or the old one for deletions. Room changes carry the room.
type Change struct {
	Table  Table          `json:"table"`
	Kind   ChangeKind     `json:"kind"`
	RoomID string         `json:"room_id"`
	Status *models.Status `json:"status,omitempty"`
	Room   *models.Room   `json:"room,omitempty"`
}

// StatusChange builds a change for a participant record.
func StatusChange(kind ChangeKind, status models.Status) Change {
	return Change{Table: TableStatuses, Kind: kind, RoomID: status.RoomID, Status: &status}
}

// RoomChange builds a change for a room record.
func RoomChange(kind ChangeKind, room models.Room) Change {
	return Change{Table: TableRooms, Kind: kind, RoomID: room.RoomID, Room: &room}
}

// Validate checks that the change carries the record its table needs.
func (c Change) Validate() error {
	switch c.Table {
	case TableStatuses:
		if c.Status == nil || c.Status.UserID == "" {
			return fmt.Errorf("status change without record")
		}
	case TableRooms:
		if c.Room == nil {
			return fmt.Errorf("room change without record")
		}
	default:
		return fmt.Errorf("unknown table: %s", c.Table)
	}
	switch c.Kind {
	case ChangeInserted, ChangeUpdated, ChangeDeleted:
	default:
		return fmt.Errorf("unknown change kind: %s", c.Kind)
	}
	return nil
}
