package statusdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/pomoroom/go/internal/models"
)

// Repository reads and writes room and status rows.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// FetchRoom returns nil, nil when the room has no row.
func (r *Repository) FetchRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	err := r.db.QueryRow(ctx,
		`SELECT room_id, title FROM rooms WHERE room_id = $1`,
		roomID).Scan(&room.RoomID, &room.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room: %w", err)
	}
	return &room, nil
}

func (r *Repository) FetchParticipants(ctx context.Context, roomID string) ([]models.Status, error) {
	rows, err := r.db.Query(ctx, `
		SELECT room_id, user_id, state, start_ts, duration, message, color
		FROM statuses
		WHERE room_id = $1
		ORDER BY updated_at ASC, user_id ASC
	`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	defer rows.Close()

	var list []models.Status
	for rows.Next() {
		var s models.Status
		var state string
		if err := rows.Scan(&s.RoomID, &s.UserID, &state, &s.StartTS, &s.Duration, &s.Message, &s.Color); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		s.State = models.TimerState(state)
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read participants: %w", err)
	}
	return list, nil
}

// UpsertParticipant writes the whole record keyed by (room_id, user_id).
func (r *Repository) UpsertParticipant(ctx context.Context, status models.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO statuses (room_id, user_id, state, start_ts, duration, message, color, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (room_id, user_id) DO UPDATE SET
			state      = EXCLUDED.state,
			start_ts   = EXCLUDED.start_ts,
			duration   = EXCLUDED.duration,
			message    = EXCLUDED.message,
			color      = EXCLUDED.color,
			updated_at = now()
	`, status.RoomID, status.UserID, string(status.State), status.StartTS, status.Duration, status.Message, status.Color)
	if err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}

// DeleteParticipant removes the exact (room, user) row. Deleting a missing
// row is not an error.
func (r *Repository) DeleteParticipant(ctx context.Context, roomID, userID string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM statuses WHERE room_id = $1 AND user_id = $2`,
		roomID, userID); err != nil {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	return nil
}

func (r *Repository) UpsertRoom(ctx context.Context, room models.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO rooms (room_id, title, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (room_id) DO UPDATE SET title = EXCLUDED.title, updated_at = now()
	`, room.RoomID, room.Title)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}
