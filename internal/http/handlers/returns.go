package handlers

import (
	"encoding/json"
	"net/http"

	"paybridge/internal/orchestrator"
	"paybridge/internal/provider"
)

// ExternalReturn is the public entry point the external UI lands on when
// control comes back (redirect return URL, challenge completion, wallet
// sheet result). Hand-off data arrives as query parameters, a JSON body,
// or both; body values win. Safe to call with nothing pending and safe to
// call twice for the same event.
func ExternalReturn(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handoff := provider.Handoff{}
		for key, vals := range r.URL.Query() {
			if len(vals) > 0 {
				handoff[key] = vals[0]
			}
		}
		if r.Body != nil {
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
				for k, v := range body {
					handoff[k] = v
				}
			}
		}

		out, err := orch.ResumeFlow(r.Context(), handoff)
		if err != nil {
			writeFlowError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outcomeJSON(out))
	}
}
