package statusdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Channel is a realtime.Channel backed directly by Postgres: reads and
// writes go through the pool and the change feed comes from LISTEN/NOTIFY.
type Channel struct {
	*Repository
	pool     *pgxpool.Pool
	fanout   *realtime.Fanout
	listener *Listener
	cancel   context.CancelFunc
	done     chan struct{}
}

// Open connects, applies the schema and starts listening for changes.
func Open(ctx context.Context, cfg PoolConfig) (*Channel, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	fanout := realtime.NewFanout(realtime.DefaultSubscriptionBuffer)
	listener, err := NewListener(fanout, DefaultListenerConfig(cfg.DSN))
	if err != nil {
		pool.Close()
		return nil, err
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		Repository: NewRepository(pool),
		pool:       pool,
		fanout:     fanout,
		listener:   listener,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		if err := listener.Start(listenCtx); err != nil {
			log.Error().Err(err).Msg("listener stopped with error")
		}
	}()
	return c, nil
}

// Subscribe registers for the room's changes. The feed is shared, so
// subscribing never touches the database.
func (c *Channel) Subscribe(ctx context.Context, roomID string) (realtime.Subscription, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	return c.fanout.Subscribe(roomID), nil
}

// Close stops the listener and releases the pool.
func (c *Channel) Close() {
	c.cancel()
	<-c.done
	c.pool.Close()
}

var _ realtime.Channel = (*Channel)(nil)
