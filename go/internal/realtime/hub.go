package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/pomoroom/go/internal/models"
)

// Hub is an in-process backend. Every committed write is broadcast to the
// room's subscriptions in commit order.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]models.Room
	statuses map[string]map[string]models.Status
	order    map[string][]string
	fanout   *Fanout
	mirror   Dispatcher
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:    make(map[string]models.Room),
		statuses: make(map[string]map[string]models.Status),
		order:    make(map[string][]string),
		fanout:   NewFanout(DefaultSubscriptionBuffer),
	}
}

var _ Channel = (*Hub)(nil)

// Mirror hands every committed change to d as well as to subscriptions.
// It lets a gateway serve websocket clients from an in-memory hub.
func (h *Hub) Mirror(d Dispatcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.mirror = d
}

func (h *Hub) dispatchLocked(change Change) {
	h.fanout.Dispatch(change)
	if h.mirror != nil {
		h.mirror.Dispatch(change)
	}
}

// FetchRoom returns the room metadata, nil when the room was never titled.
func (h *Hub) FetchRoom(ctx context.Context, roomID string) (*models.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return nil, nil
	}
	return &room, nil
}

// FetchParticipants returns every record of the room in insertion order.
func (h *Hub) FetchParticipants(ctx context.Context, roomID string) ([]models.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]models.Status, 0, len(h.order[roomID]))
	for _, userID := range h.order[roomID] {
		out = append(out, h.statuses[roomID][userID])
	}
	return out, nil
}

// Subscribe opens a change feed for the room.
func (h *Hub) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.fanout.Subscribe(roomID), nil
}

// UpsertParticipant stores the record and broadcasts an inserted or updated change.
func (h *Hub) UpsertParticipant(ctx context.Context, status models.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := status.Validate(); err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.statuses[status.RoomID]
	if room == nil {
		room = make(map[string]models.Status)
		h.statuses[status.RoomID] = room
	}

	kind := ChangeUpdated
	if _, exists := room[status.UserID]; !exists {
		kind = ChangeInserted
		h.order[status.RoomID] = append(h.order[status.RoomID], status.UserID)
	}
	room[status.UserID] = status

	h.dispatchLocked(StatusChange(kind, status))
	return nil
}

// DeleteParticipant removes the record and broadcasts the old record.
// Deleting an absent record is not an error and broadcasts nothing.
func (h *Hub) DeleteParticipant(ctx context.Context, roomID, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	old, exists := h.statuses[roomID][userID]
	if !exists {
		return nil
	}
	delete(h.statuses[roomID], userID)
	order := h.order[roomID]
	for i, id := range order {
		if id == userID {
			h.order[roomID] = append(order[:i], order[i+1:]...)
			break
		}
	}

	h.dispatchLocked(StatusChange(ChangeDeleted, old))
	return nil
}

// UpsertRoom stores the room title and broadcasts the change.
func (h *Hub) UpsertRoom(ctx context.Context, room models.Room) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := room.Validate(); err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	kind := ChangeUpdated
	if _, exists := h.rooms[room.RoomID]; !exists {
		kind = ChangeInserted
	}
	h.rooms[room.RoomID] = room

	h.dispatchLocked(RoomChange(kind, room))
	return nil
}

// Subscribers returns the number of open subscriptions for a room.
func (h *Hub) Subscribers(roomID string) int {
	return h.fanout.Subscribers(roomID)
}
