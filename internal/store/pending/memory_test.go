package pending

import (
	"context"
	"testing"

	"paybridge/internal/domain/flow"
)

func TestMemoryReadAndClearIsOneShot(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rec, err := m.ReadAndClear(ctx)
	if err != nil || rec != nil {
		t.Fatalf("empty store should yield nil, nil; got %v, %v", rec, err)
	}

	want := flow.ResumeRecord{InProgress: true, Kind: flow.KindRedirectWallet, ResumeToken: "token-1"}
	if err := m.Write(ctx, want); err != nil {
		t.Fatal(err)
	}

	rec, err = m.ReadAndClear(ctx)
	if err != nil || rec == nil {
		t.Fatalf("ReadAndClear: %v, %v", rec, err)
	}
	if *rec != want {
		t.Fatalf("got %+v, want %+v", *rec, want)
	}

	// The read consumed the record.
	if rec, _ := m.ReadAndClear(ctx); rec != nil {
		t.Fatal("second read should find nothing")
	}
}

func TestMemoryWriteReplaces(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Write(ctx, flow.ResumeRecord{InProgress: true, Kind: flow.KindCard, ResumeToken: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Write(ctx, flow.ResumeRecord{InProgress: true, Kind: flow.KindNativeWallet, ResumeToken: "new"}); err != nil {
		t.Fatal(err)
	}

	rec, _ := m.ReadAndClear(ctx)
	if rec == nil || rec.ResumeToken != "new" {
		t.Fatalf("latest write should win, got %+v", rec)
	}
}

func TestMemoryClear(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Write(ctx, flow.ResumeRecord{InProgress: true, Kind: flow.KindCard, ResumeToken: "t"}); err != nil {
		t.Fatal(err)
	}
	if err := m.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if rec, _ := m.ReadAndClear(ctx); rec != nil {
		t.Fatal("clear should drop the record")
	}
}
