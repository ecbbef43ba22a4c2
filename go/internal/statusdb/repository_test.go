package statusdb

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mcdev12/pomoroom/go/internal/models"
)

// Oversized records never reach the database, where the NOTIFY trigger
// would fail the whole statement.
func TestRepositoryRejectsOversizedRecords(t *testing.T) {
	repo := NewRepository(nil)
	ctx := context.Background()

	status := models.Status{
		RoomID:  "abc123",
		UserID:  "alice",
		State:   models.TimerStateIdle,
		Message: models.StringPtr(strings.Repeat("m", 9000)),
	}
	if err := repo.UpsertParticipant(ctx, status); !errors.Is(err, models.ErrInvalidRecord) {
		t.Fatalf("UpsertParticipant() error = %v, want ErrInvalidRecord", err)
	}

	room := models.Room{RoomID: "abc123", Title: strings.Repeat("t", 9000)}
	if err := repo.UpsertRoom(ctx, room); !errors.Is(err, models.ErrInvalidRecord) {
		t.Fatalf("UpsertRoom() error = %v, want ErrInvalidRecord", err)
	}
}
