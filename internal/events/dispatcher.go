package events

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBufferSize = 256

// Dispatcher queues events and fans them out to sinks on a worker goroutine,
// so publishing never blocks a caller that holds a session lock.
type Dispatcher struct {
	sinks []Sink
	ch    chan Event
}

// NewDispatcher creates a Dispatcher. bufferSize <= 0 uses the default.
func NewDispatcher(bufferSize int, sinks ...Sink) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Dispatcher{sinks: sinks, ch: make(chan Event, bufferSize)}
}

// Publish enqueues ev. When the queue is full the event is dropped.
func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.ch <- ev:
	default:
		log.Warn().Str("event", string(ev.Type)).Str("room", ev.Room).Msg("event queue full, dropping event")
	}
}

// Run delivers queued events until ctx is cancelled, then flushes what is
// already queued with a short deadline.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info().Int("sinks", len(d.sinks)).Msg("event dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.flush()
			log.Info().Msg("event dispatcher stopped")
			return
		case ev := <-d.ch:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-d.ch:
			d.deliver(ctx, ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, s := range d.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			log.Error().Err(err).Str("event", string(ev.Type)).Str("room", ev.Room).Msg("event sink failed")
		}
	}
}
