package provider

import (
	"context"

	"paybridge/internal/domain/flow"
)

// Adapter wraps one provider SDK behind the uniform three-operation
// contract. Implementations must not keep session objects alive between
// calls: a resumed flow may run in a freshly started process, so everything
// Resume and Finalize need has to be reconstructible from the resume token.
type Adapter interface {
	Kind() flow.ProviderKind

	// Begin starts an authorization. A non-nil error means the request was
	// rejected before any external hand-off and is reported synchronously
	// to the caller. Provider failures past that point come back as an
	// immediate failure outcome, never as an error.
	Begin(ctx context.Context, req flow.Request) (BeginResult, error)

	// Resume continues a suspended flow with the data delivered back after
	// hand-off.
	Resume(ctx context.Context, handoff Handoff, resumeToken string) (ResumeResult, error)

	// Finalize performs the second round trip when Resume signalled
	// NeedsFinalize.
	Finalize(ctx context.Context, resumeToken string) (flow.Outcome, error)
}

// ReadinessProber is implemented by adapters that expose a capability probe
// (the native wallet "is the sheet available" check).
type ReadinessProber interface {
	Readiness(ctx context.Context, authorization string) (bool, error)
}
