package flow

import (
	"testing"
)

func TestNewRequestValidation(t *testing.T) {
	if _, err := NewRequest("sms", "auth", nil); err == nil {
		t.Fatal("unknown provider kind should be rejected")
	}
	if _, err := NewRequest(KindCard, "   ", nil); err == nil {
		t.Fatal("blank authorization should be rejected")
	}

	req, err := NewRequest(KindCard, "auth", nil)
	if err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if req.Params == nil {
		t.Fatal("params should never be nil")
	}
}

func TestTransitionOrder(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusIdle, StatusBegan, true},
		{StatusIdle, StatusCompleted, false},
		{StatusBegan, StatusAwaitingExternalReturn, true},
		{StatusBegan, StatusCompleted, true},
		{StatusBegan, StatusResumingPostReturn, false},
		{StatusAwaitingExternalReturn, StatusResumingPostReturn, true},
		{StatusAwaitingExternalReturn, StatusCancelled, true},
		{StatusAwaitingExternalReturn, StatusBegan, false},
		{StatusResumingPostReturn, StatusFinalizing, true},
		{StatusResumingPostReturn, StatusCompleted, true},
		{StatusResumingPostReturn, StatusAwaitingExternalReturn, true},
		{StatusFinalizing, StatusCompleted, true},
		{StatusFinalizing, StatusAwaitingExternalReturn, false},
		{StatusCompleted, StatusBegan, false},
		{StatusCancelled, StatusResumingPostReturn, false},
	}
	for _, c := range cases {
		s := &State{Status: c.from}
		err := s.Transition(c.to)
		if c.ok && err != nil {
			t.Errorf("%s -> %s should be allowed: %v", c.from, c.to, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s -> %s should be refused", c.from, c.to)
		}
	}
}

func TestTerminalTransitionClearsResumeToken(t *testing.T) {
	s := &State{Status: StatusResumingPostReturn, ResumeToken: "tok"}

	if err := s.Transition(StatusFinalizing); err != nil {
		t.Fatal(err)
	}
	if s.ResumeToken != "tok" {
		t.Fatal("token must survive until the flow is terminal")
	}

	if err := s.Transition(StatusCompleted); err != nil {
		t.Fatal(err)
	}
	if s.ResumeToken != "" {
		t.Fatal("token must be cleared on a terminal transition")
	}
	if !s.Terminal() {
		t.Fatal("completed flow should report terminal")
	}
}

func TestSuccessWidensNilBillingInfo(t *testing.T) {
	out := Success("nonce", false, "Visa", "ending in ••11", nil)
	if out.Status != OutcomeSuccess {
		t.Fatalf("status = %s", out.Status)
	}
	if len(out.BillingInfo) != len(EmptyBillingAddress()) {
		t.Fatalf("billing info should carry the full blank address, got %v", out.BillingInfo)
	}
	if out.At.IsZero() {
		t.Fatal("outcome must be timestamped")
	}
}

func TestFailureCarriesCodeAndMessage(t *testing.T) {
	out := Failure("provider_error", "Credit card number is invalid")
	if out.Status != OutcomeFailure {
		t.Fatalf("status = %s", out.Status)
	}
	if out.ErrorCode != "provider_error" || out.ErrorMessage != "Credit card number is invalid" {
		t.Fatalf("unexpected failure fields: %+v", out)
	}
}

func TestCancelledIsTimestamped(t *testing.T) {
	out := Cancelled()
	if out.Status != OutcomeCancelled || out.At.IsZero() {
		t.Fatalf("unexpected cancellation: %+v", out)
	}
}
