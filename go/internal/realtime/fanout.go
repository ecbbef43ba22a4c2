package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// DefaultSubscriptionBuffer is the per-subscription change buffer.
const DefaultSubscriptionBuffer = 256

// Fanout delivers dispatched changes to every subscription of the change's
// room. A subscription whose buffer is full misses the change.
type Fanout struct {
	mu     sync.RWMutex
	rooms  map[string]map[*subscription]struct{}
	buffer int
}

// NewFanout creates a fanout with the given per-subscription buffer.
func NewFanout(buffer int) *Fanout {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	return &Fanout{
		rooms:  make(map[string]map[*subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscription for roomID.
func (f *Fanout) Subscribe(roomID string) Subscription {
	sub := &subscription{
		roomID: roomID,
		ch:     make(chan Change, f.buffer),
		fanout: f,
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rooms[roomID] == nil {
		f.rooms[roomID] = make(map[*subscription]struct{})
	}
	f.rooms[roomID][sub] = struct{}{}

	log.Debug().
		Str("room_id", roomID).
		Int("subscriptions", len(f.rooms[roomID])).
		Msg("subscription registered")
	return sub
}

// Dispatch sends change to the subscriptions of its room.
func (f *Fanout) Dispatch(change Change) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.rooms[change.RoomID] {
		select {
		case sub.ch <- change:
		default:
			log.Warn().
				Str("room_id", change.RoomID).
				Str("kind", string(change.Kind)).
				Msg("subscription buffer full, dropping change")
		}
	}
}

// Subscribers returns the number of live subscriptions for roomID.
func (f *Fanout) Subscribers(roomID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.rooms[roomID])
}

func (f *Fanout) remove(sub *subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs, exists := f.rooms[sub.roomID]
	if !exists {
		return
	}
	if _, exists := subs[sub]; !exists {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(f.rooms, sub.roomID)
	}

	log.Debug().Str("room_id", sub.roomID).Msg("subscription released")
}

type subscription struct {
	roomID    string
	ch        chan Change
	fanout    *Fanout
	closeOnce sync.Once
}

func (s *subscription) Changes() <-chan Change {
	return s.ch
}

func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.fanout.remove(s)
	})
	return nil
}
