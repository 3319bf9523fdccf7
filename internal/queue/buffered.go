package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrBufferFull is returned by BufferedPublisher.Publish when the backlog is
// at capacity.  The event is dropped.
var ErrBufferFull = errors.New("pass event buffer full")

// Sink is anything that can deliver a PassEvent, normally *Publisher.
type Sink interface {
	Publish(ctx context.Context, ev PassEvent) error
}

// BufferedPublisher hands events to a background goroutine so request paths
// never wait on the broker.  Run must be started for events to flow.
type BufferedPublisher struct {
	next    Sink
	events  chan PassEvent
	timeout time.Duration
	log     *slog.Logger
}

// NewBufferedPublisher queues up to size events in front of next.  Each
// delivery is bounded by timeout.
func NewBufferedPublisher(next Sink, size int, timeout time.Duration, log *slog.Logger) *BufferedPublisher {
	if size < 1 {
		size = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &BufferedPublisher{next: next, events: make(chan PassEvent, size), timeout: timeout, log: log}
}

// Publish enqueues ev without blocking.  ctx is not used for delivery: the
// event outlives the request that produced it.
func (b *BufferedPublisher) Publish(_ context.Context, ev PassEvent) error {
	select {
	case b.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run delivers queued events until ctx is cancelled.  Delivery failures are
// logged and the event is dropped.
func (b *BufferedPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.events:
			pctx, cancel := context.WithTimeout(ctx, b.timeout)
			if err := b.next.Publish(pctx, ev); err != nil {
				b.log.Warn("pass event dropped", "kind", ev.Kind, "pass_ref", ev.PassRef, "error", err)
			}
			cancel()
		}
	}
}
