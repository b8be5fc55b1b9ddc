package memory

import (
	"context"
	"testing"
	"time"
)

func TestKVStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(0)

	if _, ok, err := store.Get(ctx, "vidya:quiz:2026-10-19"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "vidya:quiz:2026-10-19", []byte(`{"subject":"Maths"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := store.Get(ctx, "vidya:quiz:2026-10-19")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if string(got) != `{"subject":"Maths"}` {
		t.Fatalf("unexpected value %s", got)
	}

	// Returned slices must not alias stored data.
	got[0] = 'X'
	again, _, _ := store.Get(ctx, "vidya:quiz:2026-10-19")
	if again[0] != '{' {
		t.Fatalf("stored value mutated through returned slice")
	}
}

func TestKVStoreSetBatch(t *testing.T) {
	ctx := context.Background()
	store := NewKVStore(0)

	err := store.SetBatch(ctx, map[string][]byte{
		"a": []byte("1"),
		"b": []byte("2"),
	})
	if err != nil {
		t.Fatalf("set batch: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", store.Len())
	}
}

func TestKVStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	store := NewKVStoreWithClock(time.Hour, func() time.Time { return now })

	if err := store.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(59 * time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); !ok {
		t.Fatalf("expected entry before ttl")
	}
	now = now.Add(time.Minute)
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected entry expired")
	}
}

func TestKVStoreHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewKVStore(0).Set(ctx, "k", []byte("v")); err == nil {
		t.Fatalf("expected context error")
	}
}
