package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	hub := realtime.NewHub()
	svc := NewService(DefaultConfig(), hub)
	hub.Mirror(svc.Dispatcher())

	ctx, cancel := context.WithCancel(context.Background())
	go svc.Start(ctx)

	srv := httptest.NewServer(svc.Handler(5 * time.Second))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, svc
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStatusEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/rooms/abc123/statuses"

	bob := models.Status{RoomID: "abc123", UserID: "bob", State: models.TimerStateRunning, StartTS: 1700000000, Duration: 1500, Message: models.StringPtr("thesis")}
	if resp := do(t, http.MethodPut, base+"/bob", bob); resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, base, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET statuses = %d", resp.StatusCode)
	}
	var list []models.Status
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]models.Status{bob}, list); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}

	if resp := do(t, http.MethodDelete, base+"/bob", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}
	// Deleting again is harmless.
	if resp := do(t, http.MethodDelete, base+"/bob", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("second DELETE status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, base, nil)
	list = nil
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Fatalf("statuses after delete = %+v", list)
	}
}

func TestPutStatusRejectsInvalidRecords(t *testing.T) {
	srv, _ := newTestServer(t)
	base := srv.URL + "/api/rooms/abc123/statuses/"

	tests := []struct {
		name string
		path string
		body any
	}{
		{"bad state", "bob", models.Status{State: "paused"}},
		{"negative duration", "bob", models.Status{State: models.TimerStateIdle, Duration: -1}},
		{"user mismatch", "bob", models.Status{UserID: "alice", State: models.TimerStateIdle}},
		{"room mismatch", "bob", models.Status{RoomID: "other", State: models.TimerStateIdle}},
		{"not json", "bob", "{"},
		{"message too long", "bob", models.Status{State: models.TimerStateIdle, Message: models.StringPtr(strings.Repeat("m", models.MaxMessageLength+1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := do(t, http.MethodPut, base+tt.path, tt.body); resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("PUT = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestRoomEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	url := srv.URL + "/api/rooms/abc123"

	if resp := do(t, http.MethodGet, url, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET missing room = %d, want 404", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, url, RoomTitleRequest{Title: "Thesis crew"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT room = %d", resp.StatusCode)
	}

	long := RoomTitleRequest{Title: strings.Repeat("t", models.MaxTitleLength+1)}
	if resp := do(t, http.MethodPut, url, long); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("PUT long title = %d, want 400", resp.StatusCode)
	}

	resp := do(t, http.MethodGet, url, nil)
	var room models.Room
	if err := json.NewDecoder(resp.Body).Decode(&room); err != nil {
		t.Fatal(err)
	}
	if room != (models.Room{RoomID: "abc123", Title: "Thesis crew"}) {
		t.Fatalf("room = %+v", room)
	}
}

func TestEscapedPathParams(t *testing.T) {
	srv, _ := newTestServer(t)
	room := srv.URL + "/api/rooms/" + url.PathEscape("r/1")
	statuses := room + "/statuses"

	for _, user := range []string{"a/b", "50%", "alice"} {
		rec := models.Status{RoomID: "r/1", UserID: user, State: models.TimerStateIdle}
		if resp := do(t, http.MethodPut, statuses+"/"+url.PathEscape(user), rec); resp.StatusCode != http.StatusOK {
			t.Fatalf("PUT %q = %d", user, resp.StatusCode)
		}
	}

	resp := do(t, http.MethodGet, statuses, nil)
	var list []models.Status
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	var users []string
	for _, s := range list {
		if s.RoomID != "r/1" {
			t.Fatalf("room id = %q, want r/1", s.RoomID)
		}
		users = append(users, s.UserID)
	}
	if diff := cmp.Diff([]string{"a/b", "50%", "alice"}, users); diff != "" {
		t.Fatalf("users mismatch (-want +got):\n%s", diff)
	}

	if resp := do(t, http.MethodDelete, statuses+"/"+url.PathEscape("a/b"), nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, statuses, nil)
	list = nil
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	for _, s := range list {
		if s.UserID == "a/b" {
			t.Fatal("a/b still present after delete")
		}
	}

	if resp := do(t, http.MethodPut, room, RoomTitleRequest{Title: "slashes"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT room = %d", resp.StatusCode)
	}
	resp = do(t, http.MethodGet, room, nil)
	var got models.Room
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got != (models.Room{RoomID: "r/1", Title: "slashes"}) {
		t.Fatalf("room = %+v", got)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) realtime.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame realtime.Frame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func TestWebSocketReceivesRoomChanges(t *testing.T) {
	srv, svc := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/rooms/abc123?user_id=alice"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if f := readFrame(t, conn); f.Type != realtime.FrameSubscribed || f.RoomID != "abc123" {
		t.Fatalf("first frame = %+v", f)
	}
	if stats := svc.Stats(); stats.TotalConnections != 1 || stats.RoomConnections["abc123"] != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	// Another room's change must not arrive.
	other := models.Status{RoomID: "other", UserID: "carol", State: models.TimerStateIdle}
	do(t, http.MethodPut, srv.URL+"/api/rooms/other/statuses/carol", other)

	bob := models.Status{RoomID: "abc123", UserID: "bob", State: models.TimerStateIdle}
	do(t, http.MethodPut, srv.URL+"/api/rooms/abc123/statuses/bob", bob)
	do(t, http.MethodDelete, srv.URL+"/api/rooms/abc123/statuses/bob", nil)

	want := []realtime.Change{
		realtime.StatusChange(realtime.ChangeInserted, bob),
		realtime.StatusChange(realtime.ChangeDeleted, bob),
	}
	for i, w := range want {
		f := readFrame(t, conn)
		if f.Type != realtime.FrameChange || f.Change == nil {
			t.Fatalf("frame %d = %+v", i, f)
		}
		if diff := cmp.Diff(w, *f.Change); diff != "" {
			t.Fatalf("change %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestStatsAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, srv.URL+"/ws/stats", nil)
	var stats ConnectionStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalConnections != 0 || stats.ActiveRooms != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}
