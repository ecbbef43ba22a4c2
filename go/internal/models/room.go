package models

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxTitleLength bounds room titles.
const MaxTitleLength = 120

// Room holds the shared metadata of a room. Any participant may rename it.
type Room struct {
	RoomID string `json:"room_id"`
	Title  string `json:"title"`
}

// DisplayTitle returns the title, or the room id for an untitled room.
func (r *Room) DisplayTitle() string {
	if r == nil {
		return ""
	}
	if r.Title == "" {
		return r.RoomID
	}
	return r.Title
}

// Validate checks a room write.
func (r Room) Validate() error {
	if r.RoomID == "" {
		return ErrInvalidRecord
	}
	if tooLong(r.RoomID, MaxIDLength) {
		return fmt.Errorf("%w: ids are limited to %d characters", ErrInvalidRecord, MaxIDLength)
	}
	if tooLong(r.Title, MaxTitleLength) {
		return fmt.Errorf("%w: title is limited to %d characters", ErrInvalidRecord, MaxTitleLength)
	}
	return nil
}

// NewRoomID generates a short random room identifier.
func NewRoomID() string {
	return uuid.NewString()[:6]
}
