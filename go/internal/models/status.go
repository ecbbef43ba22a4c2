package models

import (
	"fmt"
	"unicode/utf8"
)

// TimerState defines the state of a participant's countdown.
type TimerState string

const (
	TimerStateIdle    TimerState = "idle"
	TimerStateRunning TimerState = "running"
)

// Valid reports whether s is one of the known timer states.
func (s TimerState) Valid() bool {
	return s == TimerStateIdle || s == TimerStateRunning
}

// Status is one participant's record within a room. UserID is the
// self-chosen nickname and doubles as the key inside the room.
type Status struct {
	RoomID   string     `json:"room_id"`
	UserID   string     `json:"user_id"`
	State    TimerState `json:"state"`
	StartTS  int64      `json:"start_ts"` // epoch seconds, 0 when idle
	Duration int64      `json:"duration"` // seconds
	Message  *string    `json:"message"`
	Color    *string    `json:"color,omitempty"`
}

// Running reports whether the record carries a live countdown.
func (s Status) Running() bool {
	return s.State == TimerStateRunning
}

// EndTS returns the epoch second at which a running timer reaches zero.
func (s Status) EndTS() int64 {
	return s.StartTS + s.Duration
}

// MessageOrPlaceholder returns the status message or the display placeholder.
func (s Status) MessageOrPlaceholder() string {
	if s.Message == nil || *s.Message == "" {
		return MessagePlaceholder
	}
	return *s.Message
}

// ColorOrDefault returns the participant color or the default roster color.
func (s Status) ColorOrDefault() string {
	if s.Color == nil || *s.Color == "" {
		return DefaultColor
	}
	return *s.Color
}

// Length limits keep a whole record inside one Postgres NOTIFY payload.
const (
	MaxIDLength      = 64
	MaxMessageLength = 280
	MaxColorLength   = 32
)

// Validate checks the fields every write must carry.
func (s Status) Validate() error {
	if s.RoomID == "" || s.UserID == "" {
		return ErrInvalidRecord
	}
	if !s.State.Valid() || s.StartTS < 0 || s.Duration < 0 {
		return ErrInvalidRecord
	}
	if tooLong(s.RoomID, MaxIDLength) || tooLong(s.UserID, MaxIDLength) {
		return fmt.Errorf("%w: ids are limited to %d characters", ErrInvalidRecord, MaxIDLength)
	}
	if s.Message != nil && tooLong(*s.Message, MaxMessageLength) {
		return fmt.Errorf("%w: message is limited to %d characters", ErrInvalidRecord, MaxMessageLength)
	}
	if s.Color != nil && tooLong(*s.Color, MaxColorLength) {
		return fmt.Errorf("%w: color is limited to %d characters", ErrInvalidRecord, MaxColorLength)
	}
	return nil
}

// TruncateMessage cuts message to MaxMessageLength characters.
func TruncateMessage(message string) string {
	if !tooLong(message, MaxMessageLength) {
		return message
	}
	return string([]rune(message)[:MaxMessageLength])
}

func tooLong(s string, limit int) bool {
	return utf8.RuneCountInString(s) > limit
}

// StringPtr returns a pointer to v.
func StringPtr(v string) *string {
	return &v
}
