package timer

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Writer defines what the controller needs from the remote channel
type Writer interface {
	UpsertParticipant(ctx context.Context, status models.Status) error
	DeleteParticipant(ctx context.Context, roomID, userID string) error
}

// LocalRoster receives the optimistic echo of the local record
type LocalRoster interface {
	Upsert(status models.Status)
	Remove(userID string)
}

// SessionStore is the persisted local identity
type SessionStore interface {
	Nickname() string
	Color() string
	SetNickname(nickname string) error
	SetColor(color string) error
	Clear() error
}

// Config holds controller tuning.
type Config struct {
	RoomID          string
	MessageDebounce time.Duration // quiet period before a message edit is written
	WriteTimeout    time.Duration // per remote write
	QueueSize       int
}

// DefaultConfig returns the controller defaults for a room.
func DefaultConfig(roomID string) Config {
	return Config{
		RoomID:          roomID,
		MessageDebounce: 500 * time.Millisecond,
		WriteTimeout:    10 * time.Second,
		QueueSize:       64,
	}
}

type writeKind int

const (
	writeUpsert writeKind = iota
	writeDelete
)

type write struct {
	kind   writeKind
	status models.Status
	roomID string
	userID string
}

// Controller owns the local participant's timer. Every meaningful change is
// applied to the local draft first and then queued as a full-record write;
// Run drains the queue in order without retrying failures.
type Controller struct {
	cfg     Config
	clock   clockwork.Clock
	writer  Writer
	local   LocalRoster
	session SessionStore

	mu            sync.Mutex
	draft         models.Status
	confirmed     *models.Status
	preset        models.Preset
	customMinutes int

	expiry      clockwork.Timer
	expiryGen   uint64
	debounce    clockwork.Timer
	debounceGen uint64

	writes chan write
}

// NewController creates a controller for the session's nickname in cfg.RoomID.
// local may be nil.
func NewController(cfg Config, clock clockwork.Clock, writer Writer, local LocalRoster, session SessionStore) *Controller {
	defaults := DefaultConfig(cfg.RoomID)
	if cfg.MessageDebounce <= 0 {
		cfg.MessageDebounce = defaults.MessageDebounce
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}

	preset := models.PresetTwentyFive
	return &Controller{
		cfg:     cfg,
		clock:   clock,
		writer:  writer,
		local:   local,
		session: session,
		draft: models.Status{
			RoomID:   cfg.RoomID,
			UserID:   session.Nickname(),
			State:    models.TimerStateIdle,
			Duration: preset.Seconds(models.DefaultCustomMinutes),
			Message:  models.StringPtr(""),
			Color:    models.StringPtr(session.Color()),
		},
		preset:        preset,
		customMinutes: models.DefaultCustomMinutes,
		writes:        make(chan write, cfg.QueueSize),
	}
}

// Run performs queued writes in order until ctx is done. Writes already
// queued at that point are still performed, each under the write timeout.
func (c *Controller) Run(ctx context.Context) {
	log.Debug().Str("room_id", c.cfg.RoomID).Msg("timer controller started")
	defer c.cancelTimers()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("room_id", c.cfg.RoomID).Msg("timer controller shutting down")
			c.drain()
			return
		case w := <-c.writes:
			c.perform(ctx, w)
		}
	}
}

func (c *Controller) drain() {
	for {
		select {
		case w := <-c.writes:
			c.perform(context.Background(), w)
		default:
			return
		}
	}
}

// Start begins a fresh countdown from the active preset. Starting while
// running restarts the countdown.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft.State = models.TimerStateRunning
	c.draft.StartTS = c.clock.Now().Unix()
	c.draft.Duration = c.preset.Seconds(c.customMinutes)
	c.scheduleExpiryLocked()

	log.Info().
		Str("room_id", c.cfg.RoomID).
		Str("user_id", c.draft.UserID).
		Int64("start_ts", c.draft.StartTS).
		Int64("duration", c.draft.Duration).
		Msg("timer started")

	c.publishLocked()
}

// Stop ends the countdown. The stopped record carries no start and no
// duration, so a later Start always uses the preset again.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.publishLocked()
}

// Tick checks the countdown against the clock source.
func (c *Controller) Tick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !Expired(c.draft, now) {
		return
	}
	log.Info().
		Str("room_id", c.cfg.RoomID).
		Str("user_id", c.draft.UserID).
		Msg("timer expired")
	c.stopLocked()
	c.publishLocked()
}

// SetPreset switches the countdown length. A running timer is affected
// immediately; if the new length has already elapsed the timer stops.
func (c *Controller) SetPreset(p models.Preset) error {
	if _, err := models.ParsePreset(string(p)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.preset = p
	c.applyDurationLocked(p.Seconds(c.customMinutes))
	return nil
}

// SetCustomMinutes sets the custom preset length. The duration only changes
// while the custom preset is selected.
func (c *Controller) SetCustomMinutes(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("%w: %d", models.ErrInvalidMinutes, minutes)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.customMinutes = minutes
	if c.preset != models.PresetCustom {
		return nil
	}
	c.applyDurationLocked(c.preset.Seconds(minutes))
	return nil
}

// SetMessage updates the status message. The local draft changes at once,
// the remote write waits for a quiet period so typing is not amplified.
func (c *Controller) SetMessage(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft.Message = models.StringPtr(models.TruncateMessage(message))
	if c.draft.UserID != "" && c.local != nil {
		c.local.Upsert(c.draft)
	}

	c.cancelDebounceLocked()
	c.debounceGen++
	gen := c.debounceGen
	c.debounce = c.clock.AfterFunc(c.cfg.MessageDebounce, func() {
		c.flushMessage(gen)
	})
}

// SetColor changes the display color and remembers it locally.
func (c *Controller) SetColor(color string) error {
	if color == "" {
		return fmt.Errorf("color is required")
	}
	if len(color) > models.MaxColorLength {
		return fmt.Errorf("%w: color is limited to %d characters", models.ErrInvalidRecord, models.MaxColorLength)
	}

	c.mu.Lock()
	c.draft.Color = models.StringPtr(color)
	c.publishLocked()
	c.mu.Unlock()

	if err := c.session.SetColor(color); err != nil {
		log.Warn().Err(err).Msg("failed to persist color")
	}
	return nil
}

// Rename moves the local record to a new nickname: the record is written
// under the new id, then the old id is deleted.
func (c *Controller) Rename(nickname string) error {
	if nickname == "" {
		return models.ErrNoNickname
	}
	if utf8.RuneCountInString(nickname) > models.MaxIDLength {
		return fmt.Errorf("%w: nickname is limited to %d characters", models.ErrInvalidRecord, models.MaxIDLength)
	}

	c.mu.Lock()
	old := c.draft.UserID
	c.draft.UserID = nickname
	c.publishLocked()
	if old != "" && old != nickname {
		if c.local != nil {
			c.local.Remove(old)
		}
		c.enqueueLocked(write{kind: writeDelete, roomID: c.cfg.RoomID, userID: old})
	}
	c.mu.Unlock()

	log.Info().
		Str("room_id", c.cfg.RoomID).
		Str("old_user_id", old).
		Str("user_id", nickname).
		Msg("nickname changed")

	if err := c.session.SetNickname(nickname); err != nil {
		log.Warn().Err(err).Msg("failed to persist nickname")
	}
	return nil
}

// Leave deletes the local record and forgets the persisted identity.
func (c *Controller) Leave() {
	c.mu.Lock()
	userID := c.draft.UserID
	c.cancelTimersLocked()
	c.draft.UserID = ""
	c.draft.State = models.TimerStateIdle
	c.draft.StartTS = 0
	c.confirmed = nil
	if userID != "" {
		if c.local != nil {
			c.local.Remove(userID)
		}
		c.enqueueLocked(write{kind: writeDelete, roomID: c.cfg.RoomID, userID: userID})
	}
	c.mu.Unlock()

	if err := c.session.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear session")
	}
	log.Info().Str("room_id", c.cfg.RoomID).Str("user_id", userID).Msg("left room")
}

// Restore seeds the local state from the user's record found in the room.
// A running countdown resumes and expires on time.
func (c *Controller) Restore(status models.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.draft.State = status.State
	c.draft.Duration = status.Duration
	c.draft.StartTS = 0
	if status.Running() {
		c.draft.StartTS = status.StartTS
	}
	c.draft.Message = models.StringPtr("")
	if status.Message != nil {
		c.draft.Message = models.StringPtr(*status.Message)
	}
	c.preset, c.customMinutes = models.PresetForDuration(status.Duration)

	restored := c.draft
	c.confirmed = &restored

	if !c.draft.Running() {
		return
	}
	if Expired(c.draft, c.clock.Now()) {
		c.stopLocked()
		c.publishLocked()
		return
	}
	c.scheduleExpiryLocked()
}

// Draft returns the optimistic local record.
func (c *Controller) Draft() models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Confirmed returns the last record the backend accepted, nil if none.
func (c *Controller) Confirmed() *models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirmed == nil {
		return nil
	}
	confirmed := *c.confirmed
	return &confirmed
}

// Preset returns the selected preset and the custom length in minutes.
func (c *Controller) Preset() (models.Preset, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preset, c.customMinutes
}

func (c *Controller) applyDurationLocked(duration int64) {
	c.draft.Duration = duration
	if c.draft.Running() {
		if Expired(c.draft, c.clock.Now()) {
			c.stopLocked()
		} else {
			c.scheduleExpiryLocked()
		}
	}
	c.publishLocked()
}

func (c *Controller) stopLocked() {
	c.cancelExpiryLocked()
	c.draft.State = models.TimerStateIdle
	c.draft.StartTS = 0
	c.draft.Duration = 0

	log.Info().
		Str("room_id", c.cfg.RoomID).
		Str("user_id", c.draft.UserID).
		Msg("timer stopped")
}

// publishLocked echoes the draft locally and queues it as a full-record
// write, superseding any pending message write.
func (c *Controller) publishLocked() {
	c.cancelDebounceLocked()
	if c.draft.UserID == "" {
		log.Debug().Str("room_id", c.cfg.RoomID).Msg("no nickname, skipping write")
		return
	}
	if c.local != nil {
		c.local.Upsert(c.draft)
	}
	c.enqueueLocked(write{kind: writeUpsert, status: c.draft})
}

func (c *Controller) enqueueLocked(w write) {
	select {
	case c.writes <- w:
	default:
		log.Warn().
			Str("room_id", c.cfg.RoomID).
			Msg("write queue full, dropping write")
	}
}

func (c *Controller) flushMessage(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.debounceGen || c.debounce == nil {
		return
	}
	c.debounce = nil
	if c.draft.UserID == "" {
		return
	}
	c.enqueueLocked(write{kind: writeUpsert, status: c.draft})
}

func (c *Controller) perform(ctx context.Context, w write) {
	writeCtx, cancel := context.WithTimeout(ctx, c.cfg.WriteTimeout)
	defer cancel()

	switch w.kind {
	case writeUpsert:
		if err := c.writer.UpsertParticipant(writeCtx, w.status); err != nil {
			log.Error().
				Err(err).
				Str("room_id", w.status.RoomID).
				Str("user_id", w.status.UserID).
				Msg("failed to write status")
			return
		}
		c.mu.Lock()
		confirmed := w.status
		c.confirmed = &confirmed
		c.mu.Unlock()

	case writeDelete:
		if err := c.writer.DeleteParticipant(writeCtx, w.roomID, w.userID); err != nil {
			log.Error().
				Err(err).
				Str("room_id", w.roomID).
				Str("user_id", w.userID).
				Msg("failed to delete status")
			return
		}
		c.mu.Lock()
		if c.confirmed != nil && c.confirmed.UserID == w.userID {
			c.confirmed = nil
		}
		c.mu.Unlock()
	}
}

// scheduleExpiryLocked replaces any pending expiry with one at the end of
// the current countdown.
func (c *Controller) scheduleExpiryLocked() {
	c.cancelExpiryLocked()

	end := time.Unix(c.draft.EndTS(), 0)
	c.expiryGen++
	gen := c.expiryGen
	c.expiry = c.clock.AfterFunc(end.Sub(c.clock.Now()), func() {
		c.expire(gen)
	})

	log.Debug().
		Str("room_id", c.cfg.RoomID).
		Time("deadline", end).
		Msg("scheduled expiry")
}

func (c *Controller) expire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.expiryGen || !c.draft.Running() {
		return
	}
	c.expiry = nil
	if !Expired(c.draft, c.clock.Now()) {
		c.scheduleExpiryLocked()
		return
	}

	log.Info().
		Str("room_id", c.cfg.RoomID).
		Str("user_id", c.draft.UserID).
		Msg("timer expired")
	c.stopLocked()
	c.publishLocked()
}

func (c *Controller) cancelExpiryLocked() {
	if c.expiry != nil {
		stopTimer(c.expiry)
		c.expiry = nil
	}
	c.expiryGen++
}

func (c *Controller) cancelDebounceLocked() {
	if c.debounce != nil {
		stopTimer(c.debounce)
		c.debounce = nil
	}
}

func (c *Controller) cancelTimers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelTimersLocked()
}

func (c *Controller) cancelTimersLocked() {
	c.cancelExpiryLocked()
	c.cancelDebounceLocked()
}

// stopTimer stops a timer and drains its channel if it already fired.
func stopTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
