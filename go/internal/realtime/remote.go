package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Remote is a Channel served by the gateway over HTTP and websockets.
type Remote struct {
	baseURL string
	client  *http.Client
	dialer  *websocket.Dialer
	buffer  int
}

// NewRemote creates a client for the gateway at baseURL, e.g.
// "http://localhost:8081".
func NewRemote(baseURL string) *Remote {
	return &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		buffer:  DefaultSubscriptionBuffer,
	}
}

var _ Channel = (*Remote)(nil)

func (r *Remote) roomURL(roomID string) string {
	return fmt.Sprintf("%s/api/rooms/%s", r.baseURL, url.PathEscape(roomID))
}

func (r *Remote) statusURL(roomID, userID string) string {
	return fmt.Sprintf("%s/statuses/%s", r.roomURL(roomID), url.PathEscape(userID))
}

// FetchRoom returns nil, nil when the gateway has no such room.
func (r *Remote) FetchRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	status, err := r.do(ctx, http.MethodGet, r.roomURL(roomID), nil, &room)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room: %w", err)
	}
	return &room, nil
}

func (r *Remote) FetchParticipants(ctx context.Context, roomID string) ([]models.Status, error) {
	var list []models.Status
	if _, err := r.do(ctx, http.MethodGet, r.roomURL(roomID)+"/statuses", nil, &list); err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}
	return list, nil
}

func (r *Remote) UpsertParticipant(ctx context.Context, status models.Status) error {
	if _, err := r.do(ctx, http.MethodPut, r.statusURL(status.RoomID, status.UserID), status, nil); err != nil {
		return fmt.Errorf("failed to upsert participant: %w", err)
	}
	return nil
}

func (r *Remote) DeleteParticipant(ctx context.Context, roomID, userID string) error {
	if _, err := r.do(ctx, http.MethodDelete, r.statusURL(roomID, userID), nil, nil); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return nil
}

func (r *Remote) UpsertRoom(ctx context.Context, room models.Room) error {
	body := struct {
		Title string `json:"title"`
	}{Title: room.Title}
	if _, err := r.do(ctx, http.MethodPut, r.roomURL(room.RoomID), body, nil); err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}

// do performs one request and decodes a 2xx body into out when non-nil.
func (r *Remote) do(ctx context.Context, method, target string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return resp.StatusCode, fmt.Errorf("gateway answered %d: %s", resp.StatusCode, e.Error)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Subscribe opens the room's websocket and waits for the gateway to confirm
// the subscription, so changes committed after Subscribe returns are not
// missed.
func (r *Remote) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	wsURL, err := r.websocketURL(roomID)
	if err != nil {
		return nil, err
	}

	conn, _, err := r.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial room feed: %w", err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(r.dialer.HandshakeTimeout))
	}
	var hello Frame
	if err := conn.ReadJSON(&hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read subscription confirmation: %w", err)
	}
	if hello.Type != FrameSubscribed {
		conn.Close()
		return nil, fmt.Errorf("unexpected first frame: %s", hello.Type)
	}
	conn.SetReadDeadline(time.Time{})

	sub := &remoteSubscription{
		roomID: roomID,
		conn:   conn,
		ch:     make(chan Change, r.buffer),
		done:   make(chan struct{}),
	}
	go sub.readLoop()

	log.Debug().Str("room_id", roomID).Msg("room feed connected")
	return sub, nil
}

func (r *Remote) websocketURL(roomID string) (string, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid gateway url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return fmt.Sprintf("%s/ws/rooms/%s", strings.TrimRight(u.String(), "/"), url.PathEscape(roomID)), nil
}

type remoteSubscription struct {
	roomID    string
	conn      *websocket.Conn
	ch        chan Change
	done      chan struct{}
	closeOnce sync.Once
}

func (s *remoteSubscription) Changes() <-chan Change {
	return s.ch
}

func (s *remoteSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *remoteSubscription) readLoop() {
	defer close(s.ch)

	for {
		var frame Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			select {
			case <-s.done:
			default:
				log.Error().Err(err).Str("room_id", s.roomID).Msg("room feed closed")
			}
			return
		}
		if frame.Type != FrameChange || frame.Change == nil {
			continue
		}
		if err := frame.Change.Validate(); err != nil {
			log.Warn().Err(err).Str("room_id", s.roomID).Msg("ignoring invalid change")
			continue
		}

		select {
		case s.ch <- *frame.Change:
		case <-s.done:
			return
		}
	}
}
