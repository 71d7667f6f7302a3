// Package bus implements the runtime's two communication primitives:
// a multi-producer/multi-consumer broadcast of produced signals with
// bounded per-consumer lag, and a multi-producer/single-consumer
// lossless command queue per network authority.
package bus

import (
	"context"
	"sync"
)

// DefaultLag is the default number of buffered signals a slow
// broadcast subscriber may fall behind before the bus drops its
// oldest unread value rather than block the producer.
const DefaultLag = 64

// Signal is anything produced by a driver, service, or the director
// and published for any interested subscriber to observe.
type Signal any

// Broadcast is a multi-producer/multi-consumer fan-out of Signal
// values. Within one producer's stream, subscribers that keep up
// never see values out of order; a subscriber that falls behind drops
// the oldest buffered value to make room for the newest rather than
// stall the producer, per §4.8's bounded-lag guarantee.
type Broadcast struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
	lag  int
}

type subscriber struct {
	ch chan Signal
}

// NewBroadcast constructs a Broadcast whose subscribers buffer up to
// lag signals before dropping the oldest. lag <= 0 uses DefaultLag.
func NewBroadcast(lag int) *Broadcast {
	if lag <= 0 {
		lag = DefaultLag
	}
	return &Broadcast{subs: make(map[*subscriber]struct{}), lag: lag}
}

// Publish fans sig out to every current subscriber. It never blocks:
// a full subscriber channel has its oldest entry dropped to make room.
func (b *Broadcast) Publish(sig Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s.ch <- sig:
		default:
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- sig:
			default:
			}
		}
	}
}

// Subscribe registers a new consumer and returns its channel and an
// unsubscribe function. The channel is closed once Unsubscribe runs.
func (b *Broadcast) Subscribe() (<-chan Signal, func()) {
	s := &subscriber{ch: make(chan Signal, b.lag)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		if _, ok := b.subs[s]; ok {
			delete(b.subs, s)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return s.ch, unsubscribe
}

// Command is a multi-producer/single-consumer queue bound to one
// network authority. Delivery is FIFO and lossless: Send blocks until
// buffer space is available or ctx is cancelled.
type Command struct {
	ch chan any
}

// NewCommand constructs a Command queue with the given buffer depth.
func NewCommand(depth int) *Command {
	if depth <= 0 {
		depth = 16
	}
	return &Command{ch: make(chan any, depth)}
}

// Send enqueues cmd, blocking until space is available or ctx is done.
func (c *Command) Send(ctx context.Context, cmd any) error {
	select {
	case c.ch <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv dequeues the next command, blocking until one is available or
// ctx is done.
func (c *Command) Recv(ctx context.Context) (any, error) {
	select {
	case cmd := <-c.ch:
		return cmd, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
