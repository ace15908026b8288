package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestGateBoundsConcurrency(t *testing.T) {
	gate := NewGate(2)
	ctx := context.Background()

	if err := gate.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := gate.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if gate.TryAcquire() {
		t.Fatal("third acquire should not succeed while gate is full")
	}
	if gate.InUse() != 2 {
		t.Errorf("InUse = %d, want 2", gate.InUse())
	}

	gate.Release()
	if !gate.TryAcquire() {
		t.Fatal("acquire should succeed after release")
	}
}

func TestGateAcquireHonorsContext(t *testing.T) {
	gate := NewGate(1)
	if err := gate.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := gate.Acquire(ctx); err == nil {
		t.Fatal("expected context error while gate is full")
	}
}

func TestGateZeroSlotsFallsBackToOne(t *testing.T) {
	gate := NewGate(0)
	if !gate.TryAcquire() {
		t.Fatal("gate should have at least one slot")
	}
	if gate.TryAcquire() {
		t.Fatal("gate should have exactly one slot")
	}
}

func TestGateReleaseWithoutAcquire(t *testing.T) {
	gate := NewGate(1)
	gate.Release()
	if gate.InUse() != 0 {
		t.Errorf("InUse = %d after spurious release", gate.InUse())
	}
}
