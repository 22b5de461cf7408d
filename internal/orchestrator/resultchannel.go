package orchestrator

import (
	"context"
	"sync"

	"paybridge/internal/domain/flow"
)

// ResultChannel carries exactly one outcome back to the caller that opened
// a flow. A second delivery attempt is a silent no-op, never an error:
// duplicate external-return events are expected and must not surface twice.
type ResultChannel struct {
	mu        sync.Mutex
	delivered bool
	ch        chan flow.Outcome
}

func NewResultChannel() *ResultChannel {
	return &ResultChannel{ch: make(chan flow.Outcome, 1)}
}

// Deliver publishes the outcome. It reports whether this call was the one
// that delivered.
func (c *ResultChannel) Deliver(out flow.Outcome) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delivered {
		return false
	}
	c.delivered = true
	c.ch <- out
	return true
}

// Wait blocks until the outcome is delivered or ctx is done.
func (c *ResultChannel) Wait(ctx context.Context) (flow.Outcome, error) {
	select {
	case out := <-c.ch:
		return out, nil
	case <-ctx.Done():
		return flow.Outcome{}, ctx.Err()
	}
}
