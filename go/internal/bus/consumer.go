package bus

import (
	"context"
	"fmt"

	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Consumer reads new changes from the stream and hands them to a
// dispatcher. Each gateway instance needs every change, so the consumer is
// an ephemeral ordered consumer rather than a shared durable one.
type Consumer struct {
	dispatcher realtime.Dispatcher
	nc         *nats.Conn
	js         jetstream.JetStream
	consumer   jetstream.Consumer
	config     JetStreamConfig
}

func NewConsumer(dispatcher realtime.Dispatcher, cfg JetStreamConfig) (*Consumer, error) {
	nc, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	consumer, err := js.OrderedConsumer(context.Background(), cfg.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)},
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create ordered consumer: %w", err)
	}

	log.Info().
		Str("stream", cfg.StreamName).
		Str("subjects", cfg.SubjectPrefix+".>").
		Msg("created JetStream ordered consumer")

	return &Consumer{
		dispatcher: dispatcher,
		nc:         nc,
		js:         js,
		consumer:   consumer,
		config:     cfg,
	}, nil
}

// Start consumes until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().
		Str("stream", c.config.StreamName).
		Msg("starting change consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("change consumer shutting down")
			return nil
		case msg := <-messageCh:
			if err := c.processMessage(msg); err != nil {
				log.Error().
					Err(err).
					Str("subject", msg.Subject()).
					Msg("failed to process message")
			}
		}
	}
}

func (c *Consumer) processMessage(msg jetstream.Msg) error {
	env, err := DecodeEnvelope(msg.Data())
	if err != nil {
		return err
	}

	log.Debug().
		Str("room_id", env.Change.RoomID).
		Str("change_id", env.ChangeID).
		Str("kind", string(env.Change.Kind)).
		Msg("received change")

	c.dispatcher.Dispatch(env.Change)
	return nil
}

func (c *Consumer) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
