package httpx

import (
	"encoding/json"
	"net/http"

	"paybridge/internal/config"
	"paybridge/internal/http/handlers"
	middlewarex "paybridge/internal/http/middleware"
	"paybridge/internal/orchestrator"
	"paybridge/internal/store/postgres"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterDependencies holds everything the HTTP surface needs.
type RouterDependencies struct {
	Config       config.Cfg
	Orchestrator *orchestrator.Orchestrator
	History      *postgres.HistoryRepo
}

// NewRouter builds the HTTP router.
func NewRouter(deps RouterDependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	// Health check (public)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Flow API (protected by API token)
	r.Route("/api/v1/flows", func(r chi.Router) {
		r.Use(middlewarex.APITokenAuth(deps.Config))

		r.Post("/card", handlers.TokenizeCard(deps.Orchestrator))
		r.Post("/redirect-wallet", handlers.RequestWalletNonce(deps.Orchestrator))
		r.Post("/three-d-secure", handlers.StartChallengeFlow(deps.Orchestrator))
		r.Post("/native-wallet", handlers.StartNativeWalletFlow(deps.Orchestrator))
		r.Post("/native-wallet/ready", handlers.CheckNativeWalletReadiness(deps.Orchestrator))

		r.Get("/current", handlers.CurrentFlow(deps.Orchestrator))
		r.Post("/abandon", handlers.AbandonFlow(deps.Orchestrator))

		if deps.History != nil {
			r.Get("/history", handlers.ListHistory(deps.History))
		}
	})

	// External-return entry point (public: the browser redirect and the
	// challenge UI land here, no bearer token in hand)
	r.HandleFunc("/returns", handlers.ExternalReturn(deps.Orchestrator))

	return r
}
