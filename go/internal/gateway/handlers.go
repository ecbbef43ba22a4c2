package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// RecordStore defines what the REST handlers need from storage
type RecordStore interface {
	FetchRoom(ctx context.Context, roomID string) (*models.Room, error)
	FetchParticipants(ctx context.Context, roomID string) ([]models.Status, error)
	UpsertParticipant(ctx context.Context, status models.Status) error
	DeleteParticipant(ctx context.Context, roomID, userID string) error
	UpsertRoom(ctx context.Context, room models.Room) error
}

// Handler serves the room and status REST endpoints
type Handler struct {
	store RecordStore
}

func NewHandler(store RecordStore) *Handler {
	return &Handler{store: store}
}

// ErrorResponse is the body of every non-2xx answer
type ErrorResponse struct {
	Error string `json:"error"`
}

// RoomTitleRequest is the body of PUT /api/rooms/{roomID}
type RoomTitleRequest struct {
	Title string `json:"title"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// pathParam returns a decoded route parameter. chi matches on the escaped
// path whenever the request carries one, and its params stay escaped then.
func pathParam(r *http.Request, key string) (string, error) {
	value := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return value, nil
	}
	return url.PathUnescape(value)
}

// roomParams decodes the room id and, when userKey is set, the user id.
// On failure the request has been answered.
func roomParams(w http.ResponseWriter, r *http.Request, userKey string) (string, string, bool) {
	roomID, err := pathParam(r, "roomID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return "", "", false
	}
	if userKey == "" {
		return roomID, "", true
	}
	userID, err := pathParam(r, userKey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return "", "", false
	}
	return roomID, userID, true
}

// GET /api/rooms/{roomID}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, _, ok := roomParams(w, r, "")
	if !ok {
		return
	}

	room, err := h.store.FetchRoom(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to fetch room")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch room"})
		return
	}
	if room == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: models.ErrRoomNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// PUT /api/rooms/{roomID}
func (h *Handler) PutRoom(w http.ResponseWriter, r *http.Request) {
	roomID, _, ok := roomParams(w, r, "")
	if !ok {
		return
	}

	var req RoomTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	room := models.Room{RoomID: roomID, Title: req.Title}
	if err := room.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if err := h.store.UpsertRoom(r.Context(), room); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to upsert room")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to save room"})
		return
	}

	log.Info().Str("room_id", roomID).Str("title", req.Title).Msg("room title changed")
	writeJSON(w, http.StatusOK, room)
}

// GET /api/rooms/{roomID}/statuses
func (h *Handler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	roomID, _, ok := roomParams(w, r, "")
	if !ok {
		return
	}

	list, err := h.store.FetchParticipants(r.Context(), roomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to fetch participants")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch participants"})
		return
	}
	if list == nil {
		list = []models.Status{}
	}
	writeJSON(w, http.StatusOK, list)
}

// PUT /api/rooms/{roomID}/statuses/{userID}
func (h *Handler) PutStatus(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := roomParams(w, r, "userID")
	if !ok {
		return
	}

	var status models.Status
	if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if status.RoomID == "" {
		status.RoomID = roomID
	}
	if status.UserID == "" {
		status.UserID = userID
	}
	if status.RoomID != roomID || status.UserID != userID {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "record does not match path"})
		return
	}
	if err := status.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.store.UpsertParticipant(r.Context(), status); err != nil {
		if errors.Is(err, models.ErrInvalidRecord) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		log.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("failed to upsert status")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to save status"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// DELETE /api/rooms/{roomID}/statuses/{userID}
//
// Anyone in the room may remove any participant.
func (h *Handler) DeleteStatus(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := roomParams(w, r, "userID")
	if !ok {
		return
	}

	if err := h.store.DeleteParticipant(r.Context(), roomID, userID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("failed to delete status")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to delete status"})
		return
	}

	log.Info().Str("room_id", roomID).Str("user_id", userID).Msg("participant removed")
	w.WriteHeader(http.StatusNoContent)
}
