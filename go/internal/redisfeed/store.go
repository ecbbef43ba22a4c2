package redisfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/mcdev12/pomoroom/go/internal/models"
	"github.com/mcdev12/pomoroom/go/internal/realtime"
	"github.com/rs/zerolog/log"
)

// Store is a realtime.Channel on Redis: a hash of records per room and a
// pub/sub channel carrying the room's changes.
type Store struct {
	client *redis.Client
	buffer int
}

// Open connects to redisURL and verifies the connection.
func Open(ctx context.Context, redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", opts.Addr).Msg("connected to redis")
	return NewStore(client), nil
}

// NewStore wraps an existing client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client, buffer: realtime.DefaultSubscriptionBuffer}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) FetchRoom(ctx context.Context, roomID string) (*models.Room, error) {
	data, err := s.client.Get(ctx, roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch room: %w", err)
	}

	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("failed to decode room: %w", err)
	}
	return &room, nil
}

// FetchParticipants returns the room's records ordered by user id.
func (s *Store) FetchParticipants(ctx context.Context, roomID string) ([]models.Status, error) {
	fields, err := s.client.HGetAll(ctx, statusesKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}

	list := make([]models.Status, 0, len(fields))
	for userID, data := range fields {
		var status models.Status
		if err := json.Unmarshal([]byte(data), &status); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Str("user_id", userID).Msg("skipping undecodable record")
			continue
		}
		list = append(list, status)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UserID < list[j].UserID })
	return list, nil
}

func (s *Store) UpsertParticipant(ctx context.Context, status models.Status) error {
	if err := status.Validate(); err != nil {
		return err
	}
	roomJSON, record, err := encode(status.RoomID, status)
	if err != nil {
		return err
	}

	keys := []string{statusesKey(status.RoomID), changesChannel(status.RoomID)}
	if err := upsertStatusScript.Run(ctx, s.client, keys, roomJSON, status.UserID, record).Err(); err != nil {
		return fmt.Errorf("failed to upsert status: %w", err)
	}
	return nil
}

// DeleteParticipant removes the record. Deleting a missing record is not
// an error and publishes nothing.
func (s *Store) DeleteParticipant(ctx context.Context, roomID, userID string) error {
	roomJSON, err := json.Marshal(roomID)
	if err != nil {
		return fmt.Errorf("failed to encode room id: %w", err)
	}

	keys := []string{statusesKey(roomID), changesChannel(roomID)}
	err = deleteStatusScript.Run(ctx, s.client, keys, string(roomJSON), userID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete status: %w", err)
	}
	return nil
}

func (s *Store) UpsertRoom(ctx context.Context, room models.Room) error {
	if err := room.Validate(); err != nil {
		return err
	}
	roomJSON, record, err := encode(room.RoomID, room)
	if err != nil {
		return err
	}

	keys := []string{roomKey(room.RoomID), changesChannel(room.RoomID)}
	if err := upsertRoomScript.Run(ctx, s.client, keys, roomJSON, record).Err(); err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}

// Subscribe listens on the room's pub/sub channel. The subscription is
// confirmed before returning so no later write is missed.
func (s *Store) Subscribe(ctx context.Context, roomID string) (realtime.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, changesChannel(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	sub := &subscription{
		roomID: roomID,
		pubsub: pubsub,
		ch:     make(chan realtime.Change, s.buffer),
		done:   make(chan struct{}),
	}
	go sub.pump()

	log.Debug().Str("room_id", roomID).Msg("redis subscription started")
	return sub, nil
}

func encode(roomID string, record any) (string, string, error) {
	roomJSON, err := json.Marshal(roomID)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode room id: %w", err)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode record: %w", err)
	}
	return string(roomJSON), string(data), nil
}

type subscription struct {
	roomID    string
	pubsub    *redis.PubSub
	ch        chan realtime.Change
	done      chan struct{}
	closeOnce sync.Once
}

func (s *subscription) Changes() <-chan realtime.Change {
	return s.ch
}

func (s *subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (s *subscription) pump() {
	defer close(s.ch)

	messages := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var change realtime.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				log.Error().Err(err).Str("room_id", s.roomID).Msg("failed to decode change")
				continue
			}
			if err := change.Validate(); err != nil {
				log.Error().Err(err).Str("room_id", s.roomID).Msg("invalid change")
				continue
			}

			select {
			case s.ch <- change:
			case <-s.done:
				return
			}
		}
	}
}

var _ realtime.Channel = (*Store)(nil)
