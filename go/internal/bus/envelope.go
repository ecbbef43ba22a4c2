package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
)

// Envelope is the wire form of a change on the stream.
type Envelope struct {
	ChangeID  string          `json:"changeId"`
	Timestamp time.Time       `json:"timestamp"`
	Change    realtime.Change `json:"change"`
}

// NewEnvelope wraps change with a fresh id.
func NewEnvelope(change realtime.Change, now time.Time) Envelope {
	return Envelope{
		ChangeID:  uuid.NewString(),
		Timestamp: now.UTC(),
		Change:    change,
	}
}

// DecodeEnvelope parses and validates a stream message body.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal change envelope: %w", err)
	}
	if err := env.Change.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("invalid change in envelope: %w", err)
	}
	return env, nil
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_")

// Subject returns the subject a room's changes are published on. Room ids
// are user input, so characters with meaning in subjects are replaced.
func Subject(prefix, roomID string) string {
	return fmt.Sprintf("%s.%s", prefix, subjectReplacer.Replace(roomID))
}
