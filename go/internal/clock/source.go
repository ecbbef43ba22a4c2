package clock

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the refresh cadence of derived countdowns.
const DefaultInterval = time.Second

// Source supplies the current wall-clock time on a fixed cadence.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Source struct {
	clock    clockwork.Clock
	interval time.Duration
}

// NewSource creates a Source ticking at DefaultInterval.
func NewSource(c clockwork.Clock) *Source {
	return &Source{clock: c, interval: DefaultInterval}
}

// WithInterval returns a copy of the source ticking at d.
func (s *Source) WithInterval(d time.Duration) *Source {
	return &Source{clock: s.clock, interval: d}
}

// Clock exposes the underlying clock for timers that must share it.
func (s *Source) Clock() clockwork.Clock {
	return s.clock
}

// Now returns the current time.
func (s *Source) Now() time.Time {
	return s.clock.Now()
}

// Start emits the current time on every tick until ctx is done, then
// stops the ticker and closes the returned channel.
func (s *Source) Start(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time, 1)
	ticker := s.clock.NewTicker(s.interval)

	go func() {
		defer close(out)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				now := s.clock.Now()
				// Latest tick wins when the consumer lags.
				select {
				case out <- now:
				default:
					select {
					case <-out:
					default:
					}
					select {
					case out <- now:
					default:
					}
				}
			}
		}
	}()

	return out
}
