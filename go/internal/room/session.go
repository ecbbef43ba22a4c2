package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mcdev12/pomoroom/go/internal/clock"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/mcdev12/pomoroom/go/internal/reconcile"
	"github.com/mcdev12/pomoroom/go/internal/roster"
	"github.com/mcdev12/pomoroom/go/internal/timer"
	"github.com/rs/zerolog/log"
)

// View is what a renderer needs for one frame.
type View struct {
	RoomID  string
	Title   string
	Now     time.Time
	Entries []roster.Entry
	Self    models.Status
}

// Config holds session tuning.
type Config struct {
	RoomID       string
	FetchTimeout time.Duration
	WriteTimeout time.Duration
	Timer        timer.Config
}

// DefaultConfig returns the defaults for roomID.
func DefaultConfig(roomID string) Config {
	return Config{
		RoomID:       roomID,
		FetchTimeout: 10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Timer:        timer.DefaultConfig(roomID),
	}
}

// Session is one user's live view of a room: the reconciled roster, the
// local timer and the per-second refresh.
type Session struct {
	cfg      Config
	channel  realtime.Channel
	source   *clock.Source
	identity timer.SessionStore
	roster   *roster.Store
	ctrl     *timer.Controller

	mu    sync.RWMutex
	title string

	views chan View

	sub       realtime.Subscription
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSession prepares a session. Nothing touches the channel until Open.
func NewSession(cfg Config, channel realtime.Channel, source *clock.Source, identity timer.SessionStore) *Session {
	if cfg.Timer.RoomID == "" {
		cfg.Timer.RoomID = cfg.RoomID
	}
	store := roster.NewStore()
	return &Session{
		cfg:      cfg,
		channel:  channel,
		source:   source,
		identity: identity,
		roster:   store,
		ctrl:     timer.NewController(cfg.Timer, source.Clock(), channel, store, identity),
		views:    make(chan View, 1),
	}
}

// Open subscribes to the room, loads the current records and starts the
// background loops. Subscribing happens before fetching so no change
// committed after the fetch is missed. Fetch failures are logged and the
// session continues with what it has.
func (s *Session) Open(ctx context.Context) error {
	sub, err := s.channel.Subscribe(ctx, s.cfg.RoomID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to room: %w", err)
	}
	s.sub = sub

	s.load(ctx)

	runCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	reconciler := reconcile.NewReconciler(s.roster, titleSink{s})
	s.wg.Add(3)
	go func() {
		defer s.wg.Done()
		reconciler.Run(runCtx, sub.Changes())
	}()
	go func() {
		defer s.wg.Done()
		s.ctrl.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.tickLoop(runCtx)
	}()

	log.Info().
		Str("room_id", s.cfg.RoomID).
		Str("user_id", s.identity.Nickname()).
		Int("participants", s.roster.Len()).
		Msg("joined room")
	return nil
}

func (s *Session) load(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	room, err := s.channel.FetchRoom(fetchCtx, s.cfg.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", s.cfg.RoomID).Msg("failed to fetch room")
	} else if room != nil {
		s.applyTitle(room.Title)
	}

	statuses, err := s.channel.FetchParticipants(fetchCtx, s.cfg.RoomID)
	if err != nil {
		log.Error().Err(err).Str("room_id", s.cfg.RoomID).Msg("failed to fetch participants")
		return
	}
	s.roster.Reset(statuses)

	nickname := s.identity.Nickname()
	if nickname == "" {
		return
	}
	if own, ok := s.roster.Get(nickname); ok {
		s.ctrl.Restore(own)
	}
}

func (s *Session) tickLoop(ctx context.Context) {
	for now := range s.source.Start(ctx) {
		s.ctrl.Tick(now)
		s.publishView(s.View(now))
	}
}

// publishView replaces any view the consumer has not read yet.
func (s *Session) publishView(v View) {
	select {
	case s.views <- v:
		return
	default:
	}
	select {
	case <-s.views:
	default:
	}
	select {
	case s.views <- v:
	default:
	}
}

// Views delivers a fresh view every tick. Only the latest unread view is kept.
func (s *Session) Views() <-chan View {
	return s.views
}

// View renders the current state at now.
func (s *Session) View(now time.Time) View {
	s.mu.RLock()
	room := models.Room{RoomID: s.cfg.RoomID, Title: s.title}
	s.mu.RUnlock()

	return View{
		RoomID:  s.cfg.RoomID,
		Title:   room.DisplayTitle(),
		Now:     now,
		Entries: s.roster.Entries(now),
		Self:    s.ctrl.Draft(),
	}
}

// applyTitle keeps the last non-empty title seen.
func (s *Session) applyTitle(title string) {
	if title == "" {
		return
	}
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

type titleSink struct {
	s *Session
}

func (t titleSink) SetTitle(title string) {
	t.s.applyTitle(title)
}

// SetTitle writes a new room title for everyone.
func (s *Session) SetTitle(ctx context.Context, title string) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if err := s.channel.UpsertRoom(ctx, models.Room{RoomID: s.cfg.RoomID, Title: title}); err != nil {
		return fmt.Errorf("failed to set room title: %w", err)
	}
	s.applyTitle(title)
	return nil
}

// Remove deletes a participant's record. Removing yourself leaves the room
// and forgets the local identity.
func (s *Session) Remove(ctx context.Context, userID string) error {
	if userID == "" {
		return models.ErrNoNickname
	}
	if userID == s.ctrl.Draft().UserID {
		s.ctrl.Leave()
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	if err := s.channel.DeleteParticipant(ctx, s.cfg.RoomID, userID); err != nil {
		return fmt.Errorf("failed to remove participant: %w", err)
	}
	s.roster.Remove(userID)
	log.Info().Str("room_id", s.cfg.RoomID).Str("user_id", userID).Msg("participant removed")
	return nil
}

// Controller returns the local timer controller.
func (s *Session) Controller() *timer.Controller {
	return s.ctrl
}

// Roster returns the reconciled participant store.
func (s *Session) Roster() *roster.Store {
	return s.roster
}

// Close stops the background loops and unsubscribes. Safe to call twice.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		if s.sub != nil {
			err = s.sub.Close()
		}
		s.wg.Wait()
		log.Info().Str("room_id", s.cfg.RoomID).Msg("left room view")
	})
	return err
}
