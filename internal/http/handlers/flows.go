package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"paybridge/internal/domain/flow"
	"paybridge/internal/orchestrator"
)

// How long a flow start may spend on gateway round trips before the caller
// gives up. Hand-off waits are not bounded by this; only Begin is.
const startTimeout = 30 * time.Second

type cardReq struct {
	Authorization   string `json:"authorization"`
	CardNumber      string `json:"cardNumber"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	CVV             string `json:"cvv"`
	CardholderName  string `json:"cardholderName"`
}

// TokenizeCard runs the synchronous card tokenization flow.
func TokenizeCard(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in cardReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req, err := flow.NewRequest(flow.KindCard, in.Authorization, map[string]string{
			"cardNumber":      in.CardNumber,
			"expirationMonth": in.ExpirationMonth,
			"expirationYear":  in.ExpirationYear,
			"cvv":             in.CVV,
			"cardholderName":  in.CardholderName,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		startFlow(orch, w, r, req)
	}
}

type walletReq struct {
	Authorization               string  `json:"authorization"`
	ReturnURL                   string  `json:"returnUrl"`
	Amount                      *string `json:"amount"`
	CurrencyCode                string  `json:"currencyCode"`
	DisplayName                 string  `json:"displayName"`
	BillingAgreementDescription string  `json:"billingAgreementDescription"`
	PaymentIntent               string  `json:"paymentIntent"`
	UserAction                  string  `json:"userAction"`
}

// RequestWalletNonce starts the redirect wallet flow. A missing amount
// selects the vault sub-flow.
func RequestWalletNonce(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in walletReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		params := map[string]string{
			"returnUrl":                   in.ReturnURL,
			"currencyCode":                in.CurrencyCode,
			"displayName":                 in.DisplayName,
			"billingAgreementDescription": in.BillingAgreementDescription,
			"paymentIntent":               in.PaymentIntent,
			"userAction":                  in.UserAction,
		}
		if in.Amount != nil {
			params["amount"] = *in.Amount
		}
		req, err := flow.NewRequest(flow.KindRedirectWallet, in.Authorization, params)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		startFlow(orch, w, r, req)
	}
}

type challengeReq struct {
	Authorization  string            `json:"authorization"`
	Nonce          string            `json:"nonce"`
	Amount         string            `json:"amount"`
	Email          string            `json:"email"`
	BillingAddress map[string]string `json:"billingAddress"`
}

// StartChallengeFlow starts the 3-D Secure challenge flow.
func StartChallengeFlow(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in challengeReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req, err := flow.NewRequest(flow.KindThreeDSecure, in.Authorization, map[string]string{
			"nonce":  in.Nonce,
			"amount": in.Amount,
			"email":  in.Email,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.BillingAddress = in.BillingAddress
		startFlow(orch, w, r, req)
	}
}

type nativeWalletReq struct {
	Authorization string `json:"authorization"`
	TotalPrice    string `json:"totalPrice"`
	CurrencyCode  string `json:"currencyCode"`
}

// StartNativeWalletFlow starts the wallet sheet flow.
func StartNativeWalletFlow(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in nativeWalletReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req, err := flow.NewRequest(flow.KindNativeWallet, in.Authorization, map[string]string{
			"totalPrice":   in.TotalPrice,
			"currencyCode": in.CurrencyCode,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		startFlow(orch, w, r, req)
	}
}

type readinessReq struct {
	Authorization string `json:"authorization"`
}

// CheckNativeWalletReadiness probes wallet availability without starting a
// tokenizing flow.
func CheckNativeWalletReadiness(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in readinessReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if in.Authorization == "" {
			http.Error(w, "authorization is required", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), startTimeout)
		defer cancel()

		ready, err := orch.CheckReadiness(ctx, flow.KindNativeWallet, in.Authorization)
		if err != nil {
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ready": ready})
	}
}

// CurrentFlow reports the flow occupying the single-flight slot, if any.
func CurrentFlow(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := orch.Current()
		if h == nil {
			writeJSON(w, http.StatusOK, map[string]any{"active": false})
			return
		}
		st := h.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"active":       true,
			"flowId":       st.ID,
			"providerKind": string(st.Kind),
			"status":       string(st.Status),
		})
	}
}

// AbandonFlow clears the pending hand-off; the caller decided the external
// UI is never coming back.
func AbandonFlow(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := orch.Abandon(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func startFlow(orch *orchestrator.Orchestrator, w http.ResponseWriter, r *http.Request, req flow.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), startTimeout)
	defer cancel()

	h, err := orch.StartFlow(ctx, req)
	if err != nil {
		writeFlowError(w, err)
		return
	}

	st := h.Snapshot()
	if st.Terminal() {
		out, err := h.Result.Wait(ctx)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, outcomeJSON(out))
		return
	}

	// Handed off: the external UI owns the flow now, the return endpoint
	// finishes it.
	writeJSON(w, http.StatusAccepted, map[string]string{
		"flowId": st.ID,
		"status": string(st.Status),
	})
}
