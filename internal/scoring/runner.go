package scoring

import (
	"context"
	"sync"

	"alfapte/internal/domain"
)

type sessionHandle struct {
	cancel context.CancelFunc
}

// Runner admits at most one live session per question slot. Starting a new
// session for a slot abandons the one already running there, so two
// evaluations of the same question can never interleave their output.
// Sessions on different slots are independent.
type Runner struct {
	consumer *Consumer

	mu     sync.Mutex
	active map[string]*sessionHandle
}

func NewRunner(consumer *Consumer) *Runner {
	return &Runner{
		consumer: consumer,
		active:   make(map[string]*sessionHandle),
	}
}

// Start consumes events for slot and blocks until the session reaches a
// terminal state. Any prior in-flight session on the same slot is cancelled
// first and finishes as Failed.
func (r *Runner) Start(ctx context.Context, slot string, events <-chan domain.StreamEvent) *Session {
	ctx, cancel := context.WithCancel(ctx)
	h := &sessionHandle{cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.active[slot]; ok {
		prev.cancel()
	}
	r.active[slot] = h
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.active[slot] == h {
			delete(r.active, slot)
		}
		r.mu.Unlock()
		cancel()
	}()

	return r.consumer.Consume(ctx, events)
}
