package card

import (
	"context"
	"fmt"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"
	"paybridge/internal/provider/base"
)

// Adapter tokenizes cards against the gateway. Tokenization is a single
// synchronous round trip, so Begin always yields an immediate outcome and
// the resume path is never taken.
type Adapter struct {
	gw *base.Client
}

func New(gw *base.Client) *Adapter { return &Adapter{gw: gw} }

func (a *Adapter) Kind() flow.ProviderKind { return flow.KindCard }

type tokenizeReq struct {
	Number          string `json:"number"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	CVV             string `json:"cvv"`
	CardholderName  string `json:"cardholderName,omitempty"`
}

type tokenizeResp struct {
	Nonce      string `json:"nonce"`
	CardType   string `json:"cardType"`
	LastTwo    string `json:"lastTwo"`
	IsDefault  bool   `json:"isDefault"`
	DeviceData string `json:"deviceData"`
	Message    string `json:"message"`
}

func (a *Adapter) Begin(ctx context.Context, req flow.Request) (provider.BeginResult, error) {
	number, err := base.ValidateCardNumber(req.Params["cardNumber"])
	if err != nil {
		return provider.BeginResult{}, provider.Rejected(err.Error())
	}
	if err := base.ValidateExpiration(req.Params["expirationMonth"], req.Params["expirationYear"]); err != nil {
		return provider.BeginResult{}, provider.Rejected(err.Error())
	}
	if err := base.ValidateCVV(req.Params["cvv"]); err != nil {
		return provider.BeginResult{}, provider.Rejected(err.Error())
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/cards/tokenize", tokenizeReq{
		Number:          number,
		ExpirationMonth: req.Params["expirationMonth"],
		ExpirationYear:  req.Params["expirationYear"],
		CVV:             req.Params["cvv"],
		CardholderName:  req.Params["cardholderName"],
	}, base.AuthHeader(req.Authorization))
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}

	var body tokenizeResp
	if derr := resp.Decode(&body); derr != nil {
		out := flow.Failure(provider.ErrProviderError, "malformed tokenize response: "+derr.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	if !resp.IsSuccess() {
		out := flow.Failure(provider.ErrProviderError, base.ErrorMessage(body.Message, resp))
		return provider.BeginResult{Outcome: &out}, nil
	}

	out := flow.Success(body.Nonce, body.IsDefault, body.CardType,
		fmt.Sprintf("ending in ••%s", body.LastTwo), nil)
	out.DeviceData = body.DeviceData
	return provider.BeginResult{Outcome: &out}, nil
}

func (a *Adapter) Resume(ctx context.Context, handoff provider.Handoff, resumeToken string) (provider.ResumeResult, error) {
	return provider.ResumeResult{}, &provider.Error{
		Code:    provider.ErrProviderError,
		Message: "card tokenization never hands off, nothing to resume",
	}
}

func (a *Adapter) Finalize(ctx context.Context, resumeToken string) (flow.Outcome, error) {
	return flow.Outcome{}, &provider.Error{
		Code:    provider.ErrProviderError,
		Message: "card tokenization has no finalize step",
	}
}
