package statusdb

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
)

// notification is the payload built by pomoroom_notify_change.
type notification struct {
	Table  string          `json:"table"`
	Op     string          `json:"op"`
	RoomID string          `json:"room_id"`
	Record json.RawMessage `json:"record"`
}

// DecodeNotification converts a NOTIFY payload into a change.
func DecodeNotification(payload string) (realtime.Change, error) {
	var n notification
	if err := json.Unmarshal([]byte(payload), &n); err != nil {
		return realtime.Change{}, fmt.Errorf("failed to decode notification: %w", err)
	}

	kind, err := realtime.ParseChangeKind(n.Op)
	if err != nil {
		return realtime.Change{}, err
	}

	var change realtime.Change
	switch realtime.Table(n.Table) {
	case realtime.TableStatuses:
		var status models.Status
		if err := json.Unmarshal(n.Record, &status); err != nil {
			return realtime.Change{}, fmt.Errorf("failed to decode status record: %w", err)
		}
		change = realtime.StatusChange(kind, status)
	case realtime.TableRooms:
		var room models.Room
		if err := json.Unmarshal(n.Record, &room); err != nil {
			return realtime.Change{}, fmt.Errorf("failed to decode room record: %w", err)
		}
		change = realtime.RoomChange(kind, room)
	default:
		return realtime.Change{}, fmt.Errorf("unknown table in notification: %s", n.Table)
	}

	if change.RoomID == "" {
		change.RoomID = n.RoomID
	}
	if err := change.Validate(); err != nil {
		return realtime.Change{}, err
	}
	return change, nil
}
