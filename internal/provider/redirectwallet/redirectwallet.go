package redirectwallet

import (
	"context"
	"encoding/json"
	"fmt"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"
	"paybridge/internal/provider/base"
)

// Adapter drives the browser-redirect wallet flow. Begin creates a payment
// authorization at the gateway and hands back the approval hand-off; Resume
// tokenizes the approval data the browser brings home. An absent amount
// selects the vault (store-for-later) sub-flow, a present one the
// immediate-charge checkout sub-flow.
type Adapter struct {
	gw *base.Client
}

func New(gw *base.Client) *Adapter { return &Adapter{gw: gw} }

func (a *Adapter) Kind() flow.ProviderKind { return flow.KindRedirectWallet }

// resumeToken is the serialized envelope a suspended flow is rebuilt from.
// It must carry everything Resume needs: the process that resumes may not
// be the one that began.
type resumeToken struct {
	Authorization string `json:"authorization"`
	PendingToken  string `json:"pending_token"`
}

type authReq struct {
	Flow                        string `json:"flow"` // "vault" or "checkout"
	ReturnURL                   string `json:"returnUrl"`
	Amount                      string `json:"amount,omitempty"`
	CurrencyCode                string `json:"currencyCode,omitempty"`
	DisplayName                 string `json:"displayName,omitempty"`
	BillingAgreementDescription string `json:"billingAgreementDescription,omitempty"`
	Intent                      string `json:"intent,omitempty"`
	UserAction                  string `json:"userAction,omitempty"`
}

type authResp struct {
	PendingToken string `json:"pendingToken"`
	ApprovalURL  string `json:"approvalUrl"`
	Message      string `json:"message"`
}

func (a *Adapter) Begin(ctx context.Context, req flow.Request) (provider.BeginResult, error) {
	returnURL := req.Params["returnUrl"]
	if returnURL == "" {
		return provider.BeginResult{}, provider.Rejected("returnUrl is required for the redirect wallet flow")
	}

	body := authReq{
		Flow:                        "vault",
		ReturnURL:                   returnURL,
		DisplayName:                 req.Params["displayName"],
		BillingAgreementDescription: req.Params["billingAgreementDescription"],
	}
	if amount := req.Params["amount"]; amount != "" {
		if err := base.ValidateAmount(amount); err != nil {
			return provider.BeginResult{}, provider.Rejected(err.Error())
		}
		body.Flow = "checkout"
		body.Amount = amount
		body.CurrencyCode = req.Params["currencyCode"]
		body.Intent = paymentIntent(req.Params["paymentIntent"])
		body.UserAction = userAction(req.Params["userAction"])
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/wallet/payment-auth", body, base.AuthHeader(req.Authorization))
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	var ar authResp
	if derr := resp.Decode(&ar); derr != nil {
		out := flow.Failure(provider.ErrProviderError, "malformed payment-auth response: "+derr.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	if !resp.IsSuccess() {
		out := flow.Failure(provider.ErrProviderError, base.ErrorMessage(ar.Message, resp))
		return provider.BeginResult{Outcome: &out}, nil
	}

	token, err := encodeToken(resumeToken{Authorization: req.Authorization, PendingToken: ar.PendingToken})
	if err != nil {
		out := flow.Failure(provider.ErrProviderError, err.Error())
		return provider.BeginResult{Outcome: &out}, nil
	}
	return provider.BeginResult{ResumeToken: token}, nil
}

type tokenizeReq struct {
	PendingToken string `json:"pendingToken"`
	PayerID      string `json:"payerId"`
	PaymentToken string `json:"paymentToken"`
}

type accountResp struct {
	Nonce          string                  `json:"nonce"`
	Email          string                  `json:"email"`
	PayerID        string                  `json:"payerId"`
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

	// The browser lands without approval data when the user backed out of
	// the wallet page.
	if handoff["state"] == "cancelled" || (handoff["payerId"] == "" && handoff["paymentToken"] == "") {
		return provider.ResumeResult{Outcome: flow.Cancelled()}, nil
	}

	resp, err := a.gw.PostJSON(ctx, "/v1/wallet/tokenize", tokenizeReq{
		PendingToken: rt.PendingToken,
		PayerID:      handoff["payerId"],
		PaymentToken: handoff["paymentToken"],
	}, base.AuthHeader(rt.Authorization))
	if err != nil {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, err.Error())}, nil
	}
	var acc accountResp
	if derr := resp.Decode(&acc); derr != nil {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, "malformed tokenize response: "+derr.Error())}, nil
	}
	if !resp.IsSuccess() {
		return provider.ResumeResult{Outcome: flow.Failure(provider.ErrProviderError, base.ErrorMessage(acc.Message, resp))}, nil
	}

	out := flow.Success(acc.Nonce, acc.IsDefault, "PayPal", acc.Email, provider.BillingInfo(acc.BillingAddress))
	out.DeviceData = acc.DeviceData
	out.ProviderExtras = map[string]any{"paypalPayerId": acc.PayerID}
	return provider.ResumeResult{Outcome: out}, nil
}

func (a *Adapter) Finalize(ctx context.Context, token string) (flow.Outcome, error) {
	return flow.Outcome{}, &provider.Error{
		Code:    provider.ErrProviderError,
		Message: "redirect wallet flows tokenize on resume, no finalize step",
	}
}

func paymentIntent(intent string) string {
	switch intent {
	case "order", "sale":
		return intent
	default:
		return "authorize"
	}
}

func userAction(action string) string {
	if action == "commit" {
		return "commit"
	}
	return "default"
}

func encodeToken(rt resumeToken) (string, error) {
	b, err := json.Marshal(rt)
	if err != nil {
		return "", fmt.Errorf("encode resume token: %w", err)
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
