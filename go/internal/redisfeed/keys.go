package redisfeed

import "fmt"

const keyPrefix = "pomoroom:room:"

// statusesKey returns the hash holding one field per participant.
func statusesKey(roomID string) string {
	return fmt.Sprintf("%s%s:statuses", keyPrefix, roomID)
}

// roomKey returns the key holding the room record.
func roomKey(roomID string) string {
	return fmt.Sprintf("%s%s:meta", keyPrefix, roomID)
}

// changesChannel returns the pub/sub channel for a room's changes.
func changesChannel(roomID string) string {
	return fmt.Sprintf("%s%s:changes", keyPrefix, roomID)
}
