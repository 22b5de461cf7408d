package card_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"paybridge/internal/domain/flow"
	"paybridge/internal/provider"
	"paybridge/internal/provider/base"
	"paybridge/internal/provider/card"
)

func request(t *testing.T, params map[string]string) flow.Request {
	t.Helper()
	req, err := flow.NewRequest(flow.KindCard, "sandbox-token", params)
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func validParams() map[string]string {
	return map[string]string{
		"cardNumber":      "4111 1111 1111 1111",
		"expirationMonth": "12",
		"expirationYear":  "2030",
		"cvv":             "123",
	}
}

func TestBeginTokenizesImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/cards/tokenize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sandbox-token" {
			t.Errorf("authorization = %q", got)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["number"] != "4111111111111111" {
			t.Errorf("number should be normalized, got %q", body["number"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"nonce":     "fake-nonce",
			"cardType":  "Visa",
			"lastTwo":   "11",
			"isDefault": true,
		})
	}))
	defer srv.Close()

	a := card.New(base.NewClient("card", srv.URL, 5))
	res, err := a.Begin(context.Background(), request(t, validParams()))
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if res.Started() || res.Outcome == nil {
		t.Fatal("card tokenization must complete immediately")
	}
	out := *res.Outcome
	if out.Status != flow.OutcomeSuccess || out.Nonce != "fake-nonce" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.TypeLabel != "Visa" || out.Description != "ending in ••11" || !out.IsDefault {
		t.Fatalf("unexpected card fields: %+v", out)
	}
}

func TestBeginRejectsBadInput(t *testing.T) {
	a := card.New(base.NewClient("card", "http://gateway.invalid", 5))

	cases := []struct {
		name  string
		patch func(map[string]string)
	}{
		{"short number", func(p map[string]string) { p["cardNumber"] = "4111" }},
		{"letters in number", func(p map[string]string) { p["cardNumber"] = "4111abcd11111111" }},
		{"bad month", func(p map[string]string) { p["expirationMonth"] = "13" }},
		{"bad cvv", func(p map[string]string) { p["cvv"] = "12" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			params := validParams()
			c.patch(params)
			_, err := a.Begin(context.Background(), request(t, params))
			perr, ok := err.(*provider.Error)
			if !ok || perr.Code != provider.ErrAdapterRejected {
				t.Fatalf("error = %v, want %s", err, provider.ErrAdapterRejected)
			}
		})
	}
}

func TestBeginGatewayRejectionBecomesFailureOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Credit card number is invalid"})
	}))
	defer srv.Close()

	a := card.New(base.NewClient("card", srv.URL, 5))
	res, err := a.Begin(context.Background(), request(t, validParams()))
	if err != nil {
		t.Fatalf("gateway rejection must not surface as an error: %v", err)
	}
	out := *res.Outcome
	if out.Status != flow.OutcomeFailure {
		t.Fatalf("status = %s", out.Status)
	}
	// The gateway's wording survives verbatim.
	if out.ErrorMessage != "Credit card number is invalid" {
		t.Fatalf("message = %q", out.ErrorMessage)
	}
}

func TestResumeAndFinalizeUnsupported(t *testing.T) {
	a := card.New(base.NewClient("card", "http://gateway.invalid", 5))

	if _, err := a.Resume(context.Background(), provider.Handoff{}, "tok"); err == nil {
		t.Fatal("card resume should be refused")
	}
	if _, err := a.Finalize(context.Background(), "tok"); err == nil {
		t.Fatal("card finalize should be refused")
	}
}
