package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func TestLimiterAllow(t *testing.T) {
	tests := []struct {
		name     string
		windows  []Window
		calls    int
		wantPass int
		wantName string
	}{
		{
			name:     "hourly window",
			windows:  []Window{Hourly, Daily},
			calls:    12,
			wantPass: 10,
			wantName: "hour",
		},
		{
			name:     "tighter daily window",
			windows:  []Window{Hourly, {Name: "day", Max: 3, Period: 24 * time.Hour}},
			calls:    5,
			wantPass: 3,
			wantName: "day",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.windows...)
			passed := 0
			var last error
			for i := 0; i < tt.calls; i++ {
				if err := l.Allow("10.0.0.1"); err != nil {
					last = err
					continue
				}
				passed++
			}
			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}

			var lerr *Error
			if !errors.As(last, &lerr) || lerr.Window.Name != tt.wantName {
				t.Fatalf("Expected refusal from %s window, got %v", tt.wantName, last)
			}
			if !errors.Is(last, ErrLimited) {
				t.Error("Expected error to match ErrLimited")
			}
			if lerr.RetryAfter <= 0 {
				t.Error("Expected positive RetryAfter")
			}
		})
	}
}

func TestRefusalConsumesNothing(t *testing.T) {
	// the daily window refuses the 3rd call; the hourly budget must be intact
	l := New(Window{Name: "hour", Max: 3, Period: time.Hour}, Window{Name: "day", Max: 2, Period: 24 * time.Hour})
	for i := 0; i < 2; i++ {
		if err := l.Allow("k"); err != nil {
			t.Fatalf("call %d refused: %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		l.Allow("k")
	}

	hourly := l.windows[0].getLimiter("k")
	if tokens := hourly.Tokens(); tokens < 0.99 {
		t.Errorf("Expected refused calls not to drain the hourly bucket, tokens=%.2f", tokens)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(Window{Name: "hour", Max: 1, Period: time.Hour})
	if err := l.Allow("a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow("a"); err == nil {
		t.Error("Expected second call for a to be limited")
	}
	if err := l.Allow("b"); err != nil {
		t.Errorf("Expected b to be unaffected, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	l := New(Window{Name: "second", Max: 1, Period: 10 * time.Millisecond})
	l.Allow("a")
	l.windows[0].getLimiter("b") // untouched, full

	if removed := l.windows[0].sweep(); removed != 1 {
		t.Errorf("Expected only the full bucket to be swept, removed %d", removed)
	}

	time.Sleep(20 * time.Millisecond)
	if removed := l.windows[0].sweep(); removed != 1 {
		t.Errorf("Expected refilled bucket to be swept, removed %d", removed)
	}
}
