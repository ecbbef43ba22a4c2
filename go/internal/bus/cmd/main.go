package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/pomoroom/go/internal/bus"
	"github.com/mcdev12/pomoroom/go/internal/dbconfig"
	"github.com/mcdev12/pomoroom/go/internal/statusdb"
)

// The relay forwards Postgres change notifications to the NATS stream so
// any number of gateways can serve websocket clients.
func main() {
	// load .env
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// configure zerolog console output and level
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	cfg := dbconfig.NewConfigFromEnv("pomoroom-relay")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid database config")
	}
	cfg.MaxConns = 2
	poolCfg := statusdb.NewPoolConfig(cfg)
	dsn := poolCfg.DSN

	// make sure the tables and triggers exist before listening
	setupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := statusdb.NewPool(setupCtx, poolCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	if err := statusdb.Migrate(setupCtx, pool); err != nil {
		log.Fatal().Err(err).Msg("apply schema")
	}
	pool.Close()
	cancel()

	// JetStream publisher
	jsCfg := bus.DefaultJetStreamConfig()
	if url := os.Getenv("NATS_URL"); url != "" {
		jsCfg.URL = url
	}
	publisher, err := bus.NewPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create JetStream publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("close publisher")
		}
	}()

	ltCfg := statusdb.DefaultListenerConfig(dsn)
	if iv := os.Getenv("PING_INTERVAL"); iv != "" {
		if d, err := time.ParseDuration(iv); err == nil {
			ltCfg.PingInterval = d
		}
	}

	listener, err := statusdb.NewListener(publisher, ltCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create change listener")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("starting change relay")
		errCh <- listener.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
		if err := <-errCh; err != nil {
			log.Error().Err(err).Msg("listener close")
		}
		log.Info().Msg("graceful shutdown complete")

	case err := <-errCh:
		log.Error().Err(err).Msg("listener exited unexpectedly")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
