package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
)

func TestPublishConsumeRoundTrip(t *testing.T) {
	url := os.Getenv("POMOROOM_TEST_NATS")
	if url == "" {
		t.Skip("POMOROOM_TEST_NATS not set")
	}

	cfg := DefaultJetStreamConfig()
	cfg.URL = url
	cfg.StreamName = "POMOROOM_CHANGES_TEST"
	cfg.SubjectPrefix = "pomoroom.test.changes"
	cfg.MaxReconnects = 0

	pub, err := NewPublisher(cfg)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer pub.Close()

	received := make(chan realtime.Change, 4)
	consumer, err := NewConsumer(realtime.DispatcherFunc(func(c realtime.Change) {
		received <- c
	}), cfg)
	if err != nil {
		t.Fatalf("NewConsumer() error = %v", err)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.Start(ctx)

	roomID := models.NewRoomID()
	want := []realtime.Change{
		realtime.StatusChange(realtime.ChangeInserted, models.Status{RoomID: roomID, UserID: "bob", State: models.TimerStateIdle}),
		realtime.StatusChange(realtime.ChangeDeleted, models.Status{RoomID: roomID, UserID: "bob", State: models.TimerStateIdle}),
	}
	for _, c := range want {
		pub.Dispatch(c)
	}

	for i, w := range want {
		select {
		case got := <-received:
			if diff := cmp.Diff(w, got); diff != "" {
				t.Fatalf("change %d mismatch (-want +got):\n%s", i, diff)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("change %d not received", i)
		}
	}
}
