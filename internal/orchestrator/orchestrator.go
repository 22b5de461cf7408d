package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"
	"paybridge/internal/store/pending"

	"github.com/rs/zerolog/log"
)

// Recorder receives terminal outcomes for audit. Recording is best effort;
// a recorder failure never affects outcome delivery.
type Recorder interface {
	RecordOutcome(ctx context.Context, st flow.State, out flow.Outcome) error
}

// Config holds orchestrator tuning.
type Config struct {
	// CancelGraceWindow suppresses a provider-reported cancellation that
	// arrives within this long of the flow's start. Some wallet SDKs emit
	// a spurious cancel before real user interaction; 0 disables the
	// suppression entirely.
	CancelGraceWindow time.Duration
}

// Orchestrator drives one authorization flow at a time through its
// provider adapter, persisting the resume record around external hand-off
// and publishing exactly one outcome per admitted flow.
type Orchestrator struct {
	gate     *Gate
	registry *provider.Registry
	store    pending.Store
	recorder Recorder
	grace    time.Duration

	// resumeMu serializes external-return consumption (see consumeReturn).
	resumeMu sync.Mutex
}

func New(registry *provider.Registry, store pending.Store, recorder Recorder, cfg Config) *Orchestrator {
	return &Orchestrator{
		gate:     NewGate(),
		registry: registry,
		store:    store,
		recorder: recorder,
		grace:    cfg.CancelGraceWindow,
	}
}

// StartFlow admits and begins one flow. The returned handle's state is
// either terminal (the outcome is already on its result channel) or
// AwaitingExternalReturn (the caller presents the external UI and later
// feeds the return through ResumeFlow).
//
// The two synchronous error paths are gate rejection (already_running) and
// adapter rejection of a malformed request before any hand-off; neither
// publishes an outcome.
func (o *Orchestrator) StartFlow(ctx context.Context, req flow.Request) (*Handle, error) {
	h, err := o.gate.Submit(req.Kind)
	if err != nil {
		return nil, err
	}

	if err := h.transition(flow.StatusBegan); err != nil {
		o.gate.Release(h)
		return nil, err
	}

	adapter, err := o.registry.Get(req.Kind)
	if err != nil {
		o.gate.Release(h)
		return nil, err
	}

	res, err := adapter.Begin(ctx, req)
	if err != nil {
		// Rejected before hand-off: nothing persisted, nothing delivered.
		o.gate.Release(h)
		return nil, err
	}

	switch {
	case res.Outcome != nil:
		// Immediate wins even if the adapter also handed back a token.
		if res.ResumeToken != "" {
			log.Warn().
				Str("flow_id", h.State.ID).
				Str("provider", string(req.Kind)).
				Msg("adapter reported both resume token and immediate outcome, discarding token")
		}
		if err := o.store.Clear(ctx); err != nil {
			log.Error().Err(err).Msg("clear stale resume record failed")
		}
		o.publish(ctx, h, *res.Outcome, false)
		return h, nil

	case res.ResumeToken != "":
		rec := flow.ResumeRecord{InProgress: true, Kind: req.Kind, ResumeToken: res.ResumeToken}
		if err := o.store.Write(ctx, rec); err != nil {
			log.Error().Err(err).Str("flow_id", h.State.ID).Msg("persist resume record failed")
			o.publish(ctx, h, flow.Failure(provider.ErrProviderError, "could not persist pending flow: "+err.Error()), true)
			return h, nil
		}
		h.setResumeToken(res.ResumeToken)
		if err := h.transition(flow.StatusAwaitingExternalReturn); err != nil {
			o.publish(ctx, h, flow.Failure(provider.ErrProviderError, err.Error()), true)
			return h, nil
		}
		log.Info().
			Str("flow_id", h.State.ID).
			Str("provider", string(req.Kind)).
			Msg("flow handed off to external UI")
		return h, nil

	default:
		o.publish(ctx, h, flow.Failure(provider.ErrProviderError, "adapter returned neither resume token nor outcome"), true)
		return h, nil
	}
}

// ResumeFlow consumes one external-return event. With no resume record
// pending it is a no-op cancellation, safe to call any number of times.
// The returned outcome is what this delivery resolved to; channel delivery
// still happens at most once per flow.
func (o *Orchestrator) ResumeFlow(ctx context.Context, handoff provider.Handoff) (flow.Outcome, error) {
	h, rec, done, err := o.consumeReturn(ctx)
	if err != nil {
		return flow.Outcome{}, err
	}
	if done != nil {
		return *done, nil
	}

	adapter, err := o.registry.Get(rec.Kind)
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		o.publish(ctx, h, out, true)
		return out, nil
	}

	res, err := adapter.Resume(ctx, handoff, rec.ResumeToken)
	if err != nil {
		out := adapterErrOutcome(err)
		o.publish(ctx, h, out, true)
		return out, nil
	}

	out := res.Outcome
	force := false
	if res.NeedsFinalize {
		if err := h.transition(flow.StatusFinalizing); err != nil {
			out = flow.Failure(provider.ErrProviderError, err.Error())
			force = true
		} else if out, err = adapter.Finalize(ctx, rec.ResumeToken); err != nil {
			out = adapterErrOutcome(err)
			force = true
		}
	}
	o.publish(ctx, h, out, force)
	return out, nil
}

// consumeReturn is the serialized front half of ResumeFlow: consuming the
// record and moving the flow into ResumingPostReturn happen as one step, so
// a concurrent duplicate delivery observes "nothing pending, flow already
// resuming" and stays a no-op instead of cancelling the flow out from under
// the winner. A non-nil done short-circuits the caller with that outcome.
func (o *Orchestrator) consumeReturn(ctx context.Context) (*Handle, *flow.ResumeRecord, *flow.Outcome, error) {
	o.resumeMu.Lock()
	defer o.resumeMu.Unlock()

	rec, err := o.store.ReadAndClear(ctx)
	if err != nil {
		// Unparseable record: the user-visible effect of a broken recovery
		// is "nothing happened", not an error after an app restart.
		log.Error().Err(err).Str("code", provider.ErrRecoveryFailed).Msg("resume record unreadable, treating as cancelled")
		out := flow.Cancelled()
		if h := o.gate.Current(); h != nil {
			o.publish(ctx, h, out, true)
		}
		return nil, nil, &out, nil
	}
	if rec == nil {
		// Nothing pending: user abandoned before hand-off was recorded, or
		// this is a duplicate delivery of a return already consumed.
		out := flow.Cancelled()
		if h := o.gate.Current(); h != nil && h.Status() == flow.StatusAwaitingExternalReturn {
			o.publish(ctx, h, out, true)
		}
		return nil, nil, &out, nil
	}

	h := o.gate.Current()
	if h == nil {
		// Fresh process: rebuild the flow from the persisted record alone.
		h, err = o.gate.Adopt(rec.Kind, rec.ResumeToken)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info().Str("provider", string(rec.Kind)).Msg("recovered pending flow from store")
	}
	h.setResumeToken(rec.ResumeToken)

	if err := h.transition(flow.StatusResumingPostReturn); err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		o.publish(ctx, h, out, true)
		return nil, nil, &out, nil
	}
	return h, rec, nil, nil
}

// adapterErrOutcome maps a resume/finalize error onto the outcome that gets
// delivered. An unreadable resume token means recovery is impossible; the
// user-visible effect of that is "nothing happened", never an error message
// after an app restart.
func adapterErrOutcome(err error) flow.Outcome {
	var perr *provider.Error
	if errors.As(err, &perr) && perr.Code == provider.ErrRecoveryFailed {
		log.Error().Err(err).Str("code", provider.ErrRecoveryFailed).Msg("resume token unreadable, treating as cancelled")
		return flow.Cancelled()
	}
	return flow.Failure(provider.ErrProviderError, err.Error())
}

// Abandon clears the pending record and cancels the active flow, if any.
// This is the caller-enforced timeout escape hatch; the orchestrator itself
// never times out a hand-off.
func (o *Orchestrator) Abandon(ctx context.Context) error {
	if err := o.store.Clear(ctx); err != nil {
		return err
	}
	if h := o.gate.Current(); h != nil {
		if snap := h.Snapshot(); !snap.Terminal() {
			o.publish(ctx, h, flow.Cancelled(), true)
		}
	}
	return nil
}

// CheckReadiness runs a provider capability probe. The probe occupies the
// single-flight slot for the duration of the call so it can never interleave
// with a real flow, but it produces no outcome and persists nothing.
func (o *Orchestrator) CheckReadiness(ctx context.Context, kind flow.ProviderKind, authorization string) (bool, error) {
	h, err := o.gate.Submit(kind)
	if err != nil {
		return false, err
	}
	defer o.gate.Release(h)

	prober, err := o.registry.Prober(kind)
	if err != nil {
		return false, err
	}
	return prober.Readiness(ctx, authorization)
}

// Current returns the handle of the active flow, or nil.
func (o *Orchestrator) Current() *Handle {
	return o.gate.Current()
}

// publish drives the terminal transition and delivers the outcome exactly
// once. A cancellation inside the grace window is suppressed unless forced:
// the flow stays alive waiting for the real result, and a re-armable
// hand-off gets its resume record written back.
func (o *Orchestrator) publish(ctx context.Context, h *Handle, out flow.Outcome, force bool) {
	if !force && o.suppressCancel(h, out) {
		log.Info().
			Str("flow_id", h.State.ID).
			Dur("since_start", out.At.Sub(h.State.StartedAt)).
			Msg("suppressed spurious early cancellation")
		if token := h.resumeToken(); token != "" {
			rec := flow.ResumeRecord{InProgress: true, Kind: h.State.Kind, ResumeToken: token}
			if err := o.store.Write(ctx, rec); err != nil {
				log.Error().Err(err).Str("flow_id", h.State.ID).Msg("re-persist resume record failed")
			}
			if h.Status() != flow.StatusAwaitingExternalReturn {
				if err := h.transition(flow.StatusAwaitingExternalReturn); err != nil {
					log.Error().Err(err).Str("flow_id", h.State.ID).Msg("re-arm transition failed")
				}
			}
		}
		return
	}

	var terminal flow.Status
	switch out.Status {
	case flow.OutcomeSuccess:
		terminal = flow.StatusCompleted
	case flow.OutcomeCancelled:
		terminal = flow.StatusCancelled
	default:
		terminal = flow.StatusFailed
	}
	if err := h.transition(terminal); err != nil {
		// Terminal transitions are always legal from non-terminal states;
		// hitting this means the flow already finished once.
		log.Warn().Err(err).Str("flow_id", h.State.ID).Msg("terminal transition refused")
	}

	if h.Result.Deliver(out) {
		log.Info().
			Str("flow_id", h.State.ID).
			Str("provider", string(h.State.Kind)).
			Str("outcome", string(out.Status)).
			Msg("flow finished")
		if o.recorder != nil {
			if err := o.recorder.RecordOutcome(ctx, h.Snapshot(), out); err != nil {
				log.Error().Err(err).Str("flow_id", h.State.ID).Msg("record flow outcome failed")
			}
		}
	}
	o.gate.Release(h)
}

func (o *Orchestrator) suppressCancel(h *Handle, out flow.Outcome) bool {
	if out.Status != flow.OutcomeCancelled || o.grace <= 0 {
		return false
	}
	if h.State.StartedAt.IsZero() {
		return false
	}
	return out.At.Sub(h.State.StartedAt) < o.grace
}
