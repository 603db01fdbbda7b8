package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInFlightOff(t *testing.T) {
	f := NewInFlight(InFlightOff)
	r1, err := f.Acquire(context.Background(), KindProfile, "u")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	r2, err := f.Acquire(context.Background(), KindProfile, "u")
	if err != nil {
		t.Fatalf("Expected concurrent acquire to succeed with mode off, got %v", err)
	}
	r1()
	r2()
}

func TestInFlightReject(t *testing.T) {
	f := NewInFlight(InFlightReject)
	release, err := f.Acquire(context.Background(), KindProfile, "u")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !f.Running(KindProfile, "u") {
		t.Error("Expected generation to be marked running")
	}

	if _, err := f.Acquire(context.Background(), KindProfile, "u"); !errors.Is(err, ErrInFlight) {
		t.Errorf("Expected ErrInFlight, got %v", err)
	}
	other, err := f.Acquire(context.Background(), KindConnections, "u")
	if err != nil {
		t.Errorf("Expected a different kind to be independent, got %v", err)
	} else {
		other()
	}

	release()
	release() // idempotent
	if f.Running(KindProfile, "u") {
		t.Error("Expected slot to be free after release")
	}
	again, err := f.Acquire(context.Background(), KindProfile, "u")
	if err != nil {
		t.Fatalf("Expected acquire after release to succeed, got %v", err)
	}
	again()
}

func TestInFlightQueue(t *testing.T) {
	f := NewInFlight(InFlightQueue)
	release, err := f.Acquire(context.Background(), KindProfile, "u")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := f.Acquire(context.Background(), KindProfile, "u")
		if err != nil {
			t.Errorf("Queued acquire: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("Expected queued acquire to wait")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("Expected queued acquire to proceed after release")
	}
}

func TestInFlightQueueContextCancel(t *testing.T) {
	f := NewInFlight(InFlightQueue)
	release, err := f.Acquire(context.Background(), KindProfile, "u")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := f.Acquire(ctx, KindProfile, "u"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestParseInFlightMode(t *testing.T) {
	for in, want := range map[string]InFlightMode{"": InFlightOff, "off": InFlightOff, "queue": InFlightQueue, "reject": InFlightReject} {
		got, err := ParseInFlightMode(in)
		if err != nil || got != want {
			t.Errorf("ParseInFlightMode(%q): expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseInFlightMode("serial"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
