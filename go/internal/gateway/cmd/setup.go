package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mcdev12/pomoroom/go/internal/bus"
	"github.com/mcdev12/pomoroom/go/internal/dbconfig"
	"github.com/mcdev12/pomoroom/go/internal/gateway"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/mcdev12/pomoroom/go/internal/statusdb"
	"github.com/rs/zerolog/log"
)

// setupGateway wires storage and the change feed for feedKind:
//
//	postgres  records in Postgres, changes from LISTEN/NOTIFY
//	nats      records in Postgres, changes from the relay's JetStream stream
//	memory    records and changes in process, for local development
func setupGateway(ctx context.Context, config gateway.Config, feedKind string) (*gateway.Service, []gateway.Feed, func(), error) {
	if feedKind == "memory" {
		hub := realtime.NewHub()
		svc := gateway.NewService(config, hub)
		hub.Mirror(svc.Dispatcher())
		log.Warn().Msg("using in-memory store, records are lost on restart")
		return svc, nil, func() {}, nil
	}

	dbCfg := dbconfig.NewConfigFromEnv("pomoroom-gateway")
	if err := dbCfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	poolCfg := statusdb.NewPoolConfig(dbCfg)
	dsn := poolCfg.DSN

	pool, err := statusdb.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := statusdb.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	svc := gateway.NewService(config, statusdb.NewRepository(pool))

	switch feedKind {
	case "postgres":
		listener, err := statusdb.NewListener(svc.Dispatcher(), statusdb.DefaultListenerConfig(dsn))
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("failed to create change listener: %w", err)
		}
		return svc, []gateway.Feed{listener}, pool.Close, nil

	case "nats":
		jsCfg := bus.DefaultJetStreamConfig()
		if url := os.Getenv("NATS_URL"); url != "" {
			jsCfg.URL = url
		}
		consumer, err := bus.NewConsumer(svc.Dispatcher(), jsCfg)
		if err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("failed to create change consumer: %w", err)
		}
		cleanup := func() {
			consumer.Close()
			pool.Close()
		}
		return svc, []gateway.Feed{consumer}, cleanup, nil

	default:
		pool.Close()
		return nil, nil, nil, fmt.Errorf("unknown feed %q", feedKind)
	}
}
