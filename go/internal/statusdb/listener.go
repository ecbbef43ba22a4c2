package statusdb

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL          string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel        string        // Channel name to LISTEN on
	PingInterval         time.Duration // How often to check the connection
	MinReconnectInterval time.Duration
	MaxReconnectInterval time.Duration
}

func DefaultListenerConfig(dsn string) ListenerConfig {
	return ListenerConfig{
		DatabaseURL:          dsn,
		NotifyChannel:        NotifyChannel,
		PingInterval:         90 * time.Second,
		MinReconnectInterval: 10 * time.Second,
		MaxReconnectInterval: time.Minute,
	}
}

// Listener turns row change notifications into realtime changes and hands
// them to a dispatcher.
type Listener struct {
	listener   *pq.Listener
	dispatcher realtime.Dispatcher
	cfg        ListenerConfig
}

func NewListener(dispatcher realtime.Dispatcher, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnectInterval,
		cfg.MaxReconnectInterval,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return &Listener{
		listener:   l,
		dispatcher: dispatcher,
		cfg:        cfg,
	}, nil
}

// Start dispatches notifications until ctx is done.
func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Msg("listener started")

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// nil notification means the connection was re-established;
				// changes sent while it was down are gone
				log.Warn().Str("channel", l.cfg.NotifyChannel).Msg("listener reconnected, changes may have been missed")
				continue
			}
			if err := l.handleNotification(note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}

func (l *Listener) handleNotification(extra string) error {
	change, err := DecodeNotification(extra)
	if err != nil {
		return err
	}

	log.Debug().
		Str("room_id", change.RoomID).
		Str("table", string(change.Table)).
		Str("kind", string(change.Kind)).
		Msg("dispatching change")

	l.dispatcher.Dispatch(change)
	return nil
}
