package orchestrator_test

import (
	"sync"
	"testing"

	"paybridge/internal/domain/flow"
	"paybridge/internal/orchestrator"
)

func TestGateSingleSlot(t *testing.T) {
	g := orchestrator.NewGate()

	h, err := g.Submit(flow.KindCard)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if h.State.Status != flow.StatusIdle || h.State.ID == "" {
		t.Fatalf("unexpected new handle state: %+v", h.State)
	}
	if h.State.StartedAt.IsZero() {
		t.Fatal("submitted flow must be stamped with a start time")
	}

	if _, err := g.Submit(flow.KindCard); err == nil {
		t.Fatal("second submit while occupied should be rejected")
	}

	g.Release(h)
	if _, err := g.Submit(flow.KindRedirectWallet); err != nil {
		t.Fatalf("submit after release: %v", err)
	}
}

func TestGateReleaseByStranger(t *testing.T) {
	g := orchestrator.NewGate()
	h, _ := g.Submit(flow.KindCard)

	// A stale handle from an earlier flow must not free the slot.
	g.Release(&orchestrator.Handle{})
	if g.Current() != h {
		t.Fatal("release by a non-owner must not evict the active flow")
	}
}

func TestGateAdoptHasNoStartTime(t *testing.T) {
	g := orchestrator.NewGate()

	h, err := g.Adopt(flow.KindRedirectWallet, "tok")
	if err != nil {
		t.Fatal(err)
	}
	if h.State.Status != flow.StatusAwaitingExternalReturn {
		t.Fatalf("adopted status = %s", h.State.Status)
	}
	if !h.State.StartedAt.IsZero() {
		t.Fatal("adopted flow must not carry a start time")
	}
	if h.State.ResumeToken != "tok" {
		t.Fatalf("adopted token = %q", h.State.ResumeToken)
	}

	if _, err := g.Adopt(flow.KindCard, "other"); err == nil {
		t.Fatal("adopt while occupied should be rejected")
	}
}

func TestGateRacingSubmits(t *testing.T) {
	g := orchestrator.NewGate()

	const n = 32
	var wg sync.WaitGroup
	admitted := make(chan *orchestrator.Handle, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if h, err := g.Submit(flow.KindCard); err == nil {
				admitted <- h
			}
		}()
	}
	wg.Wait()
	close(admitted)

	var winners int
	for range admitted {
		winners++
	}
	if winners != 1 {
		t.Fatalf("exactly one racing submit should win, got %d", winners)
	}
}
