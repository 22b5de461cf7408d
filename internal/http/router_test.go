package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paybridge/internal/config"
	httpx "paybridge/internal/http"
	"paybridge/internal/orchestrator"
	"paybridge/internal/provider"
	"paybridge/internal/provider/base"
	"paybridge/internal/provider/card"
	"paybridge/internal/provider/redirectwallet"
	"paybridge/internal/store/pending"
)

const apiToken = "test-api-token"

// newAPI wires a real router, orchestrator and adapters against a fake
// gateway, the same shape main assembles.
func newAPI(t *testing.T, gatewayURL string) http.Handler {
	t.Helper()

	registry := provider.NewRegistry()
	registry.Register(card.New(base.NewClient("card", gatewayURL, 5)))
	registry.Register(redirectwallet.New(base.NewClient("redirect_wallet", gatewayURL, 5)))

	orch := orchestrator.New(registry, pending.NewMemory(), nil, orchestrator.Config{})

	cfg := config.Cfg{}
	cfg.Sec.APIToken = apiToken

	return httpx.NewRouter(httpx.RouterDependencies{Config: cfg, Orchestrator: orch})
}

func gateway(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/cards/tokenize":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"nonce":    "fake-nonce",
				"cardType": "Visa",
				"lastTwo":  "11",
			})
		case "/v1/wallet/payment-auth":
			_ = json.NewEncoder(w).Encode(map[string]string{"pendingToken": "pending-1"})
		case "/v1/wallet/tokenize":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"nonce": "wallet-nonce",
				"email": "buyer@example.com",
			})
		default:
			t.Errorf("unexpected gateway path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func post(handler http.Handler, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestFlowAPIRequiresToken(t *testing.T) {
	api := newAPI(t, "http://gateway.invalid")

	if rec := post(api, "/api/v1/flows/card", "", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: code = %d", rec.Code)
	}
	if rec := post(api, "/api/v1/flows/card", "wrong", `{}`); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: code = %d", rec.Code)
	}
}

func TestHealthIsPublic(t *testing.T) {
	api := newAPI(t, "http://gateway.invalid")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: code = %d", rec.Code)
	}
}

func TestCardFlowSynchronousOutcome(t *testing.T) {
	gw := gateway(t)
	defer gw.Close()
	api := newAPI(t, gw.URL)

	rec := post(api, "/api/v1/flows/card", apiToken, `{
		"authorization": "sandbox-token",
		"cardNumber": "4111111111111111",
		"expirationMonth": "12",
		"expirationYear": "2030",
		"cvv": "123"
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if out["status"] != "ok" || out["nonce"] != "fake-nonce" || out["description"] != "ending in ••11" {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestCardFlowBadInputIs422(t *testing.T) {
	api := newAPI(t, "http://gateway.invalid")

	rec := post(api, "/api/v1/flows/card", apiToken, `{
		"authorization": "sandbox-token",
		"cardNumber": "not-a-card",
		"expirationMonth": "12",
		"expirationYear": "2030",
		"cvv": "123"
	}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestRedirectFlowHandOffAndReturn(t *testing.T) {
	gw := gateway(t)
	defer gw.Close()
	api := newAPI(t, gw.URL)

	rec := post(api, "/api/v1/flows/redirect-wallet", apiToken, `{
		"authorization": "sandbox-token",
		"returnUrl": "myapp://return"
	}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start: code = %d, body = %s", rec.Code, rec.Body)
	}
	var started map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &started)
	if started["status"] != "awaiting_external_return" || started["flowId"] == "" {
		t.Fatalf("unexpected start body: %v", started)
	}

	// A second start while the hand-off is pending is refused.
	rec = post(api, "/api/v1/flows/redirect-wallet", apiToken, `{
		"authorization": "sandbox-token",
		"returnUrl": "myapp://return"
	}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start: code = %d", rec.Code)
	}

	// The browser lands on the public return endpoint, no bearer token.
	req := httptest.NewRequest(http.MethodGet, "/returns?payerId=PAYER-1&paymentToken=EC-1", nil)
	ret := httptest.NewRecorder()
	api.ServeHTTP(ret, req)
	if ret.Code != http.StatusOK {
		t.Fatalf("return: code = %d, body = %s", ret.Code, ret.Body)
	}
	var out map[string]any
	_ = json.Unmarshal(ret.Body.Bytes(), &out)
	if out["status"] != "ok" || out["nonce"] != "wallet-nonce" {
		t.Fatalf("unexpected return body: %v", out)
	}

	// Duplicate landing resolves to a no-op cancellation, never an error.
	dup := httptest.NewRecorder()
	api.ServeHTTP(dup, httptest.NewRequest(http.MethodGet, "/returns?payerId=PAYER-1&paymentToken=EC-1", nil))
	if dup.Code != http.StatusOK {
		t.Fatalf("duplicate return: code = %d", dup.Code)
	}
	var dupOut map[string]any
	_ = json.Unmarshal(dup.Body.Bytes(), &dupOut)
	if dupOut["status"] != "cancelled" {
		t.Fatalf("duplicate return body: %v", dupOut)
	}
}

func TestCurrentAndAbandon(t *testing.T) {
	gw := gateway(t)
	defer gw.Close()
	api := newAPI(t, gw.URL)

	get := func(path string) map[string]any {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+apiToken)
		rec := httptest.NewRecorder()
		api.ServeHTTP(rec, req)
		var body map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		return body
	}

	if body := get("/api/v1/flows/current"); body["active"] != false {
		t.Fatalf("idle current: %v", body)
	}

	rec := post(api, "/api/v1/flows/redirect-wallet", apiToken, `{
		"authorization": "sandbox-token",
		"returnUrl": "myapp://return"
	}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start: code = %d", rec.Code)
	}

	body := get("/api/v1/flows/current")
	if body["active"] != true || body["providerKind"] != "redirect_wallet" {
		t.Fatalf("pending current: %v", body)
	}

	if rec := post(api, "/api/v1/flows/abandon", apiToken, ``); rec.Code != http.StatusOK {
		t.Fatalf("abandon: code = %d", rec.Code)
	}
	if body := get("/api/v1/flows/current"); body["active"] != false {
		t.Fatalf("current after abandon: %v", body)
	}
}
