package orchestrator

import (
	"sync"
	"time"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"

	"github.com/google/uuid"
)

// Handle pairs one flow's state with the channel its outcome travels on.
// Duplicate external-return deliveries may touch the same flow from two
// goroutines at once, so state access goes through the handle's lock.
type Handle struct {
	mu     sync.Mutex
	State  *flow.State
	Result *ResultChannel
}

// Status reads the flow status under the handle's lock.
func (h *Handle) Status() flow.Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.State.Status
}

// Snapshot returns a copy of the flow state for readers outside the
// orchestrator (introspection, outcome recording).
func (h *Handle) Snapshot() flow.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return *h.State
}

func (h *Handle) transition(next flow.Status) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.State.Transition(next)
}

func (h *Handle) setResumeToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.State.ResumeToken = token
}

func (h *Handle) resumeToken() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.State.ResumeToken
}

// Gate is the single admission slot in front of the orchestrator. At most
// one flow occupies it; a submit while occupied is rejected, and release
// and the next accept are mutually exclusive.
type Gate struct {
	mu     sync.Mutex
	active *Handle
}

func NewGate() *Gate { return &Gate{} }

// Submit admits a new flow, or rejects it while another is active.
func (g *Gate) Submit(kind flow.ProviderKind) (*Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return nil, &provider.Error{
			Code:    provider.ErrAlreadyRunning,
			Message: "another authorization flow is already running",
		}
	}
	h := &Handle{
		State: &flow.State{
			ID:        uuid.NewString(),
			Kind:      kind,
			Status:    flow.StatusIdle,
			StartedAt: time.Now(),
		},
		Result: NewResultChannel(),
	}
	g.active = h
	return h, nil
}

// Adopt occupies the slot with a flow reconstructed from a persisted resume
// record, for external returns that arrive in a fresh process. StartedAt is
// left zero: a recovered flow has no meaningful start timestamp, so the
// early-cancel grace window never applies to it.
func (g *Gate) Adopt(kind flow.ProviderKind, resumeToken string) (*Handle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active != nil {
		return nil, &provider.Error{
			Code:    provider.ErrAlreadyRunning,
			Message: "another authorization flow is already running",
		}
	}
	h := &Handle{
		State: &flow.State{
			ID:          uuid.NewString(),
			Kind:        kind,
			Status:      flow.StatusAwaitingExternalReturn,
			ResumeToken: resumeToken,
		},
		Result: NewResultChannel(),
	}
	g.active = h
	return h, nil
}

// Current returns the handle occupying the slot, or nil.
func (g *Gate) Current() *Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// Release frees the slot if h still owns it.
func (g *Gate) Release(h *Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active == h {
		g.active = nil
	}
}
