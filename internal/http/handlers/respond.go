package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"
)

// outcomeResp is the wire shape of a flow outcome.
type outcomeResp struct {
	Status         string            `json:"status"`
	Nonce          string            `json:"nonce,omitempty"`
	IsDefault      bool              `json:"isDefault,omitempty"`
	TypeLabel      string            `json:"typeLabel,omitempty"`
	Description    string            `json:"description,omitempty"`
	BillingInfo    map[string]string `json:"billingInfo,omitempty"`
	DeviceData     string            `json:"deviceData,omitempty"`
	ProviderExtras map[string]any    `json:"providerExtras,omitempty"`
	ErrorMessage   string            `json:"errorMessage,omitempty"`
}

func outcomeJSON(out flow.Outcome) outcomeResp {
	switch out.Status {
	case flow.OutcomeSuccess:
		return outcomeResp{
			Status:         string(out.Status),
			Nonce:          out.Nonce,
			IsDefault:      out.IsDefault,
			TypeLabel:      out.TypeLabel,
			Description:    out.Description,
			BillingInfo:    out.BillingInfo,
			DeviceData:     out.DeviceData,
			ProviderExtras: out.ProviderExtras,
		}
	case flow.OutcomeFailure:
		return outcomeResp{Status: string(out.Status), ErrorMessage: out.ErrorMessage}
	default:
		return outcomeResp{Status: string(out.Status)}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeFlowError maps the two synchronous error paths onto their status
// codes; anything else is an upstream problem.
func writeFlowError(w http.ResponseWriter, err error) {
	var perr *provider.Error
	if errors.As(err, &perr) {
		switch perr.Code {
		case provider.ErrAlreadyRunning:
			writeJSON(w, http.StatusConflict, map[string]string{"error": perr.Code, "message": perr.Message})
			return
		case provider.ErrAdapterRejected:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": perr.Code, "message": perr.Message})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": perr.Code, "message": perr.Message})
		return
	}
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "internal", "message": err.Error()})
}
