package nativewallet

import (
	"context"
	"encoding/json"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"
	"paybridge/internal/provider/base"
)

// Adapter drives the native wallet sheet flow and exposes the readiness
// probe. The sheet is presented by the caller after Begin returns; the
// sheet result comes back through Resume. This provider is the one known
// to emit a spurious cancellation right after launch, which the
// orchestrator's grace window absorbs.
type Adapter struct {
	gw *base.Client
}

func New(gw *base.Client) *Adapter { return &Adapter{gw: gw} }

func (a *Adapter) Kind() flow.ProviderKind { return flow.KindNativeWallet }

type readyResp struct {
	Ready   bool   `json:"ready"`
	Message string `json:"message"`
}

// Readiness reports whether the wallet sheet can be presented at all. A
// pure capability probe: no tokenization, no hand-off.
func (a *Adapter) Readiness(ctx context.Context, authorization string) (bool, error) {
	resp, err := a.gw.Get(ctx, "/v1/wallet-sheet/ready", base.AuthHeader(authorization))
	if err != nil {
		return false, err
	}
	var rr readyResp
	if derr := resp.Decode(&rr); derr != nil {
		return false, derr
	}
	if !resp.IsSuccess() {
		return false, &provider.Error{
			Code:    provider.ErrProviderError,
			Message: base.ErrorMessage(rr.Message, resp),
		}
	}
	return rr.Ready, nil
}

type resumeToken struct {
	Authorization string `json:"authorization"`
	SessionToken  string `json:"session_token"`
}

type sessionReq struct {
	TotalPrice             string `json:"totalPrice"`
	CurrencyCode           string `json:"currencyCode"`
	BillingAddressRequired bool   `json:"billingAddressRequired"`
	PhoneNumberRequired    bool   `json:"phoneNumberRequired"`
}

type sessionResp struct {
	SessionToken string `json:"sessionToken"`
	Message      string `json:"message"`
}

func (a *Adapter) Begin(ctx context.Context, req flow.Request) (provider.BeginResult, error) {
	totalPrice := req.Params["totalPrice"]
	if err := base.ValidateAmount(totalPrice); err != nil {
		return provider.BeginResult{}, provider.Rejected(err.Error())
	}
	currency := req.Params["currencyCode"]
	if currency == "" {
		currency = "USD"
	}

	ready, err := a.Readiness(ctx, req.Authorization)
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	if !ready {
		out := flow.Failure(provider.ErrProviderError, "wallet is not ready on this device")
		return provider.BeginResult{Outcome: &out}, nil
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/wallet-sheet/sessions", sessionReq{
		TotalPrice:             totalPrice,
		CurrencyCode:           currency,
		BillingAddressRequired: true,
		PhoneNumberRequired:    true,
	}, base.AuthHeader(req.Authorization))
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	var sr sessionResp
	if derr := resp.Decode(&sr); derr != nil {
		out := flow.Failure(provider.ErrProviderError, "malformed session response: "+derr.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	if !resp.IsSuccess() {
		out := flow.Failure(provider.ErrProviderError, base.ErrorMessage(sr.Message, resp))
		return provider.BeginResult{Outcome: &out}, nil
	}

	token, err := encodeToken(resumeToken{Authorization: req.Authorization, SessionToken: sr.SessionToken})
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	return provider.BeginResult{ResumeToken: token}, nil
}

type tokenizeReq struct {
	SessionToken string `json:"sessionToken"`
	PaymentData  string `json:"paymentData"`
}

type walletCardResp struct {
	Nonce          string                  `json:"nonce"`
	Email          string                  `json:"email"`
	CardType       string                  `json:"cardType"`
	LastTwo        string                  `json:"lastTwo"`
	IsDefault      bool                    `json:"isDefault"`
	DeviceData     string                  `json:"deviceData"`
	BillingAddress *provider.PostalAddress `json:"billingAddress"`
	Message        string                  `json:"message"`
}

func (a *Adapter) Resume(ctx context.Context, handoff provider.Handoff, token string) (provider.ResumeResult, error) {
	rt, err := decodeToken(token)
	if err != nil {
		return provider.ResumeResult{}, err
	}

	if handoff["status"] == "cancelled" || handoff["paymentData"] == "" {
		return provider.ResumeResult{Outcome: flow.Cancelled()}, nil
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/wallet-sheet/tokenize", tokenizeReq{
		SessionToken: rt.SessionToken,
		PaymentData:  handoff["paymentData"],
	}, base.AuthHeader(rt.Authorization))
	if err != nil {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, err.Error())}, nil
	}
	var wc walletCardResp
	if derr := resp.Decode(&wc); derr != nil {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, "malformed tokenize response: "+derr.Error())}, nil
	}
	if !resp.IsSuccess() {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, base.ErrorMessage(wc.Message, resp))}, nil
	}

	out := flow.Success(wc.Nonce, wc.IsDefault, "NativeWallet", wc.Email, provider.BillingInfo(wc.BillingAddress))
	out.DeviceData = wc.DeviceData
	out.ProviderExtras = map[string]any{"cardType": wc.CardType, "lastTwo": wc.LastTwo}
	return provider.ResumeResult{Outcome: out}, nil
}

func (a *Adapter) Finalize(ctx context.Context, token string) (flow.Outcome, error) {
	return flow.Outcome{}, &provider.Error{
		Code:    provider.ErrProviderError,
		Message: "wallet sheet flows tokenize on resume, no finalize step",
	}
}

func encodeToken(rt resumeToken) (string, error) {
	b, err := json.Marshal(rt)
	if err != nil {
		return "", err
	}
	return string(b), nil
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
