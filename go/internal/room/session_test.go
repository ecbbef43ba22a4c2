package room

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomoroom/go/internal/clock"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/mcdev12/pomoroom/go/internal/session"
)

const epochT = int64(1_700_000_000)

type fixture struct {
	hub   *realtime.Hub
	clock *clockwork.FakeClock
	ident *session.Config
	sess  *Session
}

func newFixture(t *testing.T, nickname string, seed ...models.Status) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		hub:   realtime.NewHub(),
		clock: clockwork.NewFakeClockAt(time.Unix(epochT, 0)),
		ident: session.InMemory(nickname, "#60a5fa"),
	}
	for _, s := range seed {
		if err := f.hub.UpsertParticipant(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	f.sess = NewSession(DefaultConfig("room01"), f.hub, clock.NewSource(f.clock), f.ident)
	if err := f.sess.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { f.sess.Close() })
	return f
}

func idle(user string) models.Status {
	return models.Status{RoomID: "room01", UserID: user, State: models.TimerStateIdle}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestOpenLoadsExistingParticipants(t *testing.T) {
	f := newFixture(t, "", idle("alice"), idle("bob"), idle("carol"))

	if got := len(f.sess.Roster().Snapshot()); got != 3 {
		t.Fatalf("snapshot length = %d, want 3", got)
	}
	if n := f.hub.Subscribers("room01"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
}

func TestOpenRestoresOwnRecord(t *testing.T) {
	own := models.Status{
		RoomID:   "room01",
		UserID:   "alice",
		State:    models.TimerStateRunning,
		StartTS:  epochT - 600,
		Duration: 3000,
		Message:  models.StringPtr("chapter 3"),
	}
	f := newFixture(t, "alice", own)

	draft := f.sess.Controller().Draft()
	if !draft.Running() || draft.StartTS != own.StartTS || draft.Duration != 3000 {
		t.Fatalf("draft = %+v", draft)
	}
	if preset, _ := f.sess.Controller().Preset(); preset != models.PresetFifty {
		t.Fatalf("preset = %s, want 50", preset)
	}
}

func TestRemoteChangesReachRoster(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	bob := idle("bob")
	if err := f.hub.UpsertParticipant(ctx, bob); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		_, ok := f.sess.Roster().Get("bob")
		return ok
	})

	running := bob
	running.State = models.TimerStateRunning
	running.StartTS = epochT
	running.Duration = 1500
	if err := f.hub.UpsertParticipant(ctx, running); err != nil {
		t.Fatal(err)
	}
	if err := f.hub.DeleteParticipant(ctx, "room01", "bob"); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		_, ok := f.sess.Roster().Get("bob")
		return !ok
	})
}

func TestLocalStartIsWrittenAndEchoed(t *testing.T) {
	f := newFixture(t, "alice")

	f.sess.Controller().Start()

	if got, ok := f.sess.Roster().Get("alice"); !ok || !got.Running() {
		t.Fatalf("local echo = %+v, %v", got, ok)
	}
	eventually(t, func() bool {
		list, _ := f.hub.FetchParticipants(context.Background(), "room01")
		return len(list) == 1 && list[0].Running() && list[0].StartTS == epochT
	})
}

func TestTitleFromFeedAndWrite(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	if v := f.sess.View(f.clock.Now()); v.Title != "room01" {
		t.Fatalf("untitled view title = %q", v.Title)
	}

	if err := f.hub.UpsertRoom(ctx, models.Room{RoomID: "room01", Title: "Thesis crew"}); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return f.sess.View(f.clock.Now()).Title == "Thesis crew" })

	// An empty title from the feed keeps the current one.
	if err := f.hub.UpsertRoom(ctx, models.Room{RoomID: "room01"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := f.sess.View(f.clock.Now()).Title; got != "Thesis crew" {
		t.Fatalf("title = %q after empty update", got)
	}

	if err := f.sess.SetTitle(ctx, "Deep work"); err != nil {
		t.Fatal(err)
	}
	room, _ := f.hub.FetchRoom(ctx, "room01")
	if room == nil || room.Title != "Deep work" {
		t.Fatalf("stored room = %+v", room)
	}
}

func TestRemoveOtherAndSelf(t *testing.T) {
	f := newFixture(t, "alice", idle("alice"), idle("bob"))
	ctx := context.Background()

	if err := f.sess.Remove(ctx, "bob"); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.sess.Roster().Get("bob"); ok {
		t.Fatal("bob still in roster")
	}

	if err := f.sess.Remove(ctx, "alice"); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool {
		list, _ := f.hub.FetchParticipants(ctx, "room01")
		return len(list) == 0
	})
	if f.ident.Nickname() != "" {
		t.Fatalf("nickname = %q after leaving", f.ident.Nickname())
	}
}

func TestViewsEveryTick(t *testing.T) {
	f := newFixture(t, "alice", idle("bob"))

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.clock.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("ticker never registered: %v", err)
	}

	f.clock.Advance(time.Second)

	select {
	case v := <-f.sess.Views():
		if v.RoomID != "room01" || len(v.Entries) != 1 || !v.Now.Equal(time.Unix(epochT+1, 0)) {
			t.Fatalf("view = %+v", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no view published")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, "alice")

	if err := f.sess.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.sess.Close(); err != nil {
		t.Fatal(err)
	}
	if n := f.hub.Subscribers("room01"); n != 0 {
		t.Fatalf("subscribers after close = %d", n)
	}
}
