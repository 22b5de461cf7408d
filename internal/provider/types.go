package provider

import (
	"paybridge/internal/domain/flow"
)

// Handoff is the opaque data the hosting environment delivers when control
// returns from external UI (redirect landing query, challenge payload,
// wallet sheet result).
type Handoff map[string]string

// BeginResult is what an adapter's Begin yields: either a started hand-off
// (ResumeToken set) or an immediate outcome. If an adapter reports both,
// the immediate outcome wins and the token is discarded.
type BeginResult struct {
	ResumeToken string
	Outcome     *flow.Outcome
}

// Started reports whether the flow handed off to external UI.
func (r BeginResult) Started() bool {
	return r.Outcome == nil && r.ResumeToken != ""
}

// ResumeResult is what an adapter's Resume yields. NeedsFinalize signals the
// second round trip (challenge validated, tokenize now); Outcome is ignored
// in that case.
type ResumeResult struct {
	Outcome       flow.Outcome
	NeedsFinalize bool
}

// Error is a provider-boundary error with a stable classification code.
// Message stays human-readable; ProviderErr carries the upstream text
// verbatim when there is one.
type Error struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	ProviderErr string `json:"provider_error,omitempty"`
}

func (e *Error) Error() string {
	if e.ProviderErr != "" {
		return e.Message + ": " + e.ProviderErr
	}
	return e.Message
}

// Error codes
const (
	ErrAlreadyRunning  = "already_running"
	ErrAdapterRejected = "adapter_rejected"
	ErrProviderError   = "provider_error"
	ErrRecoveryFailed  = "recovery_failed"
	ErrProviderTimeout = "provider_timeout"
	ErrProviderDown    = "provider_down"
	ErrUnknownError    = "unknown_error"
)

// Rejected builds the synchronous pre-hand-off rejection error.
func Rejected(message string) *Error {
	return &Error{Code: ErrAdapterRejected, Message: message}
}
