package flow

import (
	"fmt"
	"strings"
	"time"
)

// ProviderKind identifies which authorization provider a flow runs against.
type ProviderKind string

const (
	KindCard           ProviderKind = "card"
	KindRedirectWallet ProviderKind = "redirect_wallet"
	KindThreeDSecure   ProviderKind = "three_d_secure"
	KindNativeWallet   ProviderKind = "native_wallet"
)

// Status represents the lifecycle state of a single authorization flow.
type Status string

const (
	StatusIdle                   Status = "idle"
	StatusBegan                  Status = "began"
	StatusAwaitingExternalReturn Status = "awaiting_external_return"
	StatusResumingPostReturn     Status = "resuming_post_return"
	StatusFinalizing             Status = "finalizing"
	StatusCompleted              Status = "completed"
	StatusFailed                 Status = "failed"
	StatusCancelled              Status = "cancelled"
)

// Request describes one authorization attempt. It is created once per caller
// invocation and never mutated afterwards.
type Request struct {
	Kind           ProviderKind
	Authorization  string
	Params         map[string]string
	BillingAddress map[string]string
}

// NewRequest creates a request with validation.
func NewRequest(kind ProviderKind, authorization string, params map[string]string) (Request, error) {
	if !isValidKind(kind) {
		return Request{}, fmt.Errorf("invalid provider kind: %s", kind)
	}
	if strings.TrimSpace(authorization) == "" {
		return Request{}, fmt.Errorf("authorization is required")
	}
	if params == nil {
		params = map[string]string{}
	}
	return Request{Kind: kind, Authorization: authorization, Params: params}, nil
}

// State is the mutable state of one in-flight flow. Transitions are owned
// exclusively by the orchestrator.
type State struct {
	ID          string
	Kind        ProviderKind
	Status      Status
	ResumeToken string
	StartedAt   time.Time
}

// Transition moves the state to next, enforcing the lifecycle order.
func (s *State) Transition(next Status) error {
	if !s.canTransition(next) {
		return fmt.Errorf("cannot transition flow from %s to %s", s.Status, next)
	}
	s.Status = next
	if s.Terminal() {
		s.ResumeToken = ""
	}
	return nil
}

// Terminal reports whether the flow has reached a final state.
func (s *State) Terminal() bool {
	switch s.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s *State) canTransition(next Status) bool {
	switch s.Status {
	case StatusIdle:
		return next == StatusBegan
	case StatusBegan:
		return next == StatusAwaitingExternalReturn || next == StatusCompleted ||
			next == StatusFailed || next == StatusCancelled
	case StatusAwaitingExternalReturn:
		return next == StatusResumingPostReturn || next == StatusCancelled
	case StatusResumingPostReturn:
		// AwaitingExternalReturn re-entry covers a suppressed spurious
		// cancellation: the flow goes back to waiting for the real return.
		return next == StatusFinalizing || next == StatusCompleted ||
			next == StatusFailed || next == StatusCancelled ||
			next == StatusAwaitingExternalReturn
	case StatusFinalizing:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// ResumeRecord is the durable projection of a suspended flow. At most one
// record exists at any time; it exists iff some flow is awaiting an external
// return.
type ResumeRecord struct {
	InProgress  bool         `json:"in_progress"`
	Kind        ProviderKind `json:"provider_kind"`
	ResumeToken string       `json:"resume_token"`
}

// OutcomeStatus tags the Outcome union.
type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "ok"
	OutcomeFailure   OutcomeStatus = "failed"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// Outcome is the single normalized result shape every provider's native
// result collapses into. Provider-specific types never cross this boundary.
type Outcome struct {
	Status         OutcomeStatus
	Nonce          string
	IsDefault      bool
	TypeLabel      string
	Description    string
	BillingInfo    map[string]string
	DeviceData     string
	ProviderExtras map[string]any
	ErrorCode      string
	ErrorMessage   string
	At             time.Time
}

// Success builds a success outcome. billingInfo may be nil; the wire shape
// always carries the full address map, so nil is widened to the empty one.
func Success(nonce string, isDefault bool, typeLabel, description string, billingInfo map[string]string) Outcome {
	if billingInfo == nil {
		billingInfo = EmptyBillingAddress()
	}
	return Outcome{
		Status:      OutcomeSuccess,
		Nonce:       nonce,
		IsDefault:   isDefault,
		TypeLabel:   typeLabel,
		Description: description,
		BillingInfo: billingInfo,
		At:          time.Now(),
	}
}

// Failure builds a failure outcome. message carries the provider's error
// text verbatim; code only classifies it.
func Failure(code, message string) Outcome {
	return Outcome{Status: OutcomeFailure, ErrorCode: code, ErrorMessage: message, At: time.Now()}
}

// Cancelled builds a cancellation outcome stamped at the current time. The
// timestamp is what the orchestrator compares against the flow's start when
// deciding whether to suppress a spurious early cancellation.
func Cancelled() Outcome {
	return Outcome{Status: OutcomeCancelled, At: time.Now()}
}

// EmptyBillingAddress returns the full address map with every field blank.
func EmptyBillingAddress() map[string]string {
	return map[string]string{
		"givenName":         "",
		"surname":           "",
		"phoneNumber":       "",
		"streetAddress":     "",
		"extendedAddress":   "",
		"locality":          "",
		"region":            "",
		"postalCode":        "",
		"countryCodeAlpha2": "",
	}
}

func isValidKind(kind ProviderKind) bool {
	switch kind {
	case KindCard, KindRedirectWallet, KindThreeDSecure, KindNativeWallet:
		return true
	}
	return false
}
