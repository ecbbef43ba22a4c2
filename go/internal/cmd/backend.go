package main

import (
	"context"
	"fmt"

	"github.com/mcdev12/pomoroom/go/internal/dbconfig"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/mcdev12/pomoroom/go/internal/redisfeed"
	"github.com/mcdev12/pomoroom/go/internal/statusdb"
	"github.com/rs/zerolog/log"
)

// openChannel connects the configured backend. The returned func releases it.
func openChannel(ctx context.Context, config Config) (realtime.Channel, func(), error) {
	switch config.Backend {
	case "gateway":
		return realtime.NewRemote(config.GatewayURL), func() {}, nil

	case "postgres":
		db := dbconfig.NewConfigFromEnv("pomoroom")
		if err := db.Validate(); err != nil {
			return nil, nil, err
		}
		ch, err := statusdb.Open(ctx, statusdb.NewPoolConfig(db))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres backend: %w", err)
		}
		return ch, ch.Close, nil

	case "redis":
		store, err := redisfeed.Open(ctx, config.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis backend: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("close redis")
			}
		}, nil

	case "memory":
		log.Warn().Msg("memory backend: the room is visible to this process only")
		return realtime.NewHub(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", config.Backend)
	}
}
