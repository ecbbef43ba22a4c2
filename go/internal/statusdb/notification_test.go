package statusdb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
)

func TestDecodeNotification(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    realtime.Change
	}{
		{
			name: "status insert",
			payload: `{"table":"statuses","op":"INSERT","room_id":"abc123","record":{"room_id":"abc123","user_id":"bob",` +
				`"state":"running","start_ts":1700000000,"duration":1500,"message":"thesis","color":"#60a5fa","updated_at":"2026-01-01T00:00:00Z"}}`,
			want: realtime.StatusChange(realtime.ChangeInserted, models.Status{
				RoomID:   "abc123",
				UserID:   "bob",
				State:    models.TimerStateRunning,
				StartTS:  1700000000,
				Duration: 1500,
				Message:  models.StringPtr("thesis"),
				Color:    models.StringPtr("#60a5fa"),
			}),
		},
		{
			name:    "status delete carries old row",
			payload: `{"table":"statuses","op":"DELETE","room_id":"abc123","record":{"room_id":"abc123","user_id":"bob","state":"idle","start_ts":0,"duration":0,"message":null,"color":null}}`,
			want: realtime.StatusChange(realtime.ChangeDeleted, models.Status{
				RoomID: "abc123",
				UserID: "bob",
				State:  models.TimerStateIdle,
			}),
		},
		{
			name:    "room update",
			payload: `{"table":"rooms","op":"UPDATE","room_id":"abc123","record":{"room_id":"abc123","title":"Thesis crew"}}`,
			want:    realtime.RoomChange(realtime.ChangeUpdated, models.Room{RoomID: "abc123", Title: "Thesis crew"}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNotification(tt.payload)
			if err != nil {
				t.Fatalf("DecodeNotification() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("change mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeNotificationRejects(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{"table":"statuses","op":"TRUNCATE","room_id":"abc123","record":{}}`,
		`{"table":"outbox","op":"INSERT","room_id":"abc123","record":{}}`,
		`{"table":"statuses","op":"INSERT","room_id":"abc123","record":{"room_id":"abc123"}}`,
	} {
		if _, err := DecodeNotification(payload); err == nil {
			t.Errorf("DecodeNotification(%s) succeeded, want error", payload)
		}
	}
}
