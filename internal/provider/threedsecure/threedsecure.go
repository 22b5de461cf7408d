package threedsecure

import (
	"context"
	"encoding/json"
	"fmt"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"
	"paybridge/internal/provider/base"
)

// Adapter drives the 3-D Secure challenge flow. Begin performs the lookup;
// if the issuer requires no challenge the upgraded nonce comes back
// immediately, otherwise the flow suspends until the challenge UI returns.
// Resume validates the challenge and signals the tokenize round trip, which
// Finalize performs.
type Adapter struct {
	gw *base.Client
}

func New(gw *base.Client) *Adapter { return &Adapter{gw: gw} }

func (a *Adapter) Kind() flow.ProviderKind { return flow.KindThreeDSecure }

type resumeToken struct {
	Authorization string `json:"authorization"`
	LookupToken   string `json:"lookup_token"`
}

type lookupReq struct {
	Nonce              string            `json:"nonce"`
	Amount             string            `json:"amount"`
	Email              string            `json:"email,omitempty"`
	BillingAddress     map[string]string `json:"billingAddress,omitempty"`
	ChallengeRequested bool              `json:"challengeRequested"`
}

type lookupResp struct {
	ChallengeRequired bool   `json:"challengeRequired"`
	LookupToken       string `json:"lookupToken"`
	Nonce             string `json:"nonce"`
	CardType          string `json:"cardType"`
	LastTwo           string `json:"lastTwo"`
	DeviceData        string `json:"deviceData"`
	Message           string `json:"message"`
}

func (a *Adapter) Begin(ctx context.Context, req flow.Request) (provider.BeginResult, error) {
	nonce := req.Params["nonce"]
	if nonce == "" {
		return provider.BeginResult{}, provider.Rejected("nonce is required for the challenge flow")
	}
	amount := req.Params["amount"]
	if err := base.ValidateAmount(amount); err != nil {
		return provider.BeginResult{}, provider.Rejected(err.Error())
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/threeds/lookup", lookupReq{
		Nonce:              nonce,
		Amount:             amount,
		Email:              req.Params["email"],
		BillingAddress:     req.BillingAddress,
		ChallengeRequested: true,
	}, base.AuthHeader(req.Authorization))
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	var lr lookupResp
	if derr := resp.Decode(&lr); derr != nil {
		out := flow.Failure(provider.ErrProviderError, "malformed lookup response: "+derr.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	if !resp.IsSuccess() {
		out := flow.Failure(provider.ErrProviderError, base.ErrorMessage(lr.Message, resp))
		return provider.BeginResult{Outcome: &out}, nil
	}

	if !lr.ChallengeRequired {
		// No additional authentication required: the lookup already
		// upgraded the nonce.
		out := cardSuccess(lr.Nonce, lr.CardType, lr.LastTwo, lr.DeviceData)
		return provider.BeginResult{Outcome: &out}, nil
	}

	b, err := json.Marshal(resumeToken{Authorization: req.Authorization, LookupToken: lr.LookupToken})
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	return provider.BeginResult{ResumeToken: string(b)}, nil
}

type validateReq struct {
	LookupToken string `json:"lookupToken"`
	Payload     string `json:"payload"`
}

type validateResp struct {
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message"`
}

func (a *Adapter) Resume(ctx context.Context, handoff provider.Handoff, token string) (provider.ResumeResult, error) {
	rt, err := decodeToken(token)
	if err != nil {
		return provider.ResumeResult{}, err
	}

	if handoff["status"] == "cancelled" {
		return provider.ResumeResult{Outcome: flow.Cancelled()}, nil
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/threeds/challenge/validate", validateReq{
		LookupToken: rt.LookupToken,
		Payload:     handoff["payload"],
	}, base.AuthHeader(rt.Authorization))
	if err != nil {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, err.Error())}, nil
	}
	var vr validateResp
	if derr := resp.Decode(&vr); derr != nil {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, "malformed validate response: "+derr.Error())}, nil
	}
	if !resp.IsSuccess() || !vr.Authenticated {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, base.ErrorMessage(vr.Message, resp))}, nil
	}

	// Challenge passed; the authenticated card still has to be tokenized.
	return provider.ResumeResult{NeedsFinalize: true}, nil
}

type finalizeReq struct {
	LookupToken string `json:"lookupToken"`
}

func (a *Adapter) Finalize(ctx context.Context, token string) (flow.Outcome, error) {
	rt, err := decodeToken(token)
	if err != nil {
		return flow.Outcome{}, err
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/threeds/tokenize", finalizeReq{LookupToken: rt.LookupToken},
		base.AuthHeader(rt.Authorization))
	if err != nil {
		return flow.Failure(provider.ErrProviderError, err.Error()), nil
	}
	var lr lookupResp
	if derr := resp.Decode(&lr); derr != nil {
		return flow.Failure(provider.ErrProviderError, "malformed tokenize response: "+derr.Error()), nil
	}
	if !resp.IsSuccess() {
		return flow.Failure(provider.ErrProviderError, base.ErrorMessage(lr.Message, resp)), nil
	}
	return cardSuccess(lr.Nonce, lr.CardType, lr.LastTwo, lr.DeviceData), nil
}

func cardSuccess(nonce, cardType, lastTwo, deviceData string) flow.Outcome {
	out := flow.Success(nonce, false, cardType, fmt.Sprintf("ending in ••%s", lastTwo), nil)
	out.DeviceData = deviceData
	return out
}

func decodeToken(token string) (resumeToken, error) {
	var rt resumeToken
	if err := json.Unmarshal([]byte(token), &rt); err != nil {
		return resumeToken{}, &provider.Error{
			Code:        provider.ErrRecoveryFailed,
			Message:     "resume token is not readable",
			ProviderErr: err.Error(),
		}
	}
	return rt, nil
}
