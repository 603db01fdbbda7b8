package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// InFlightMode controls what happens when a second generation for the same
// (kind, id) starts while one is running
type InFlightMode string

const (
	InFlightOff    InFlightMode = "off"    // no coordination, last write wins
	InFlightQueue  InFlightMode = "queue"  // wait for the running call
	InFlightReject InFlightMode = "reject" // fail with ErrInFlight
)

var ErrInFlight = errors.New("generation already in progress")

// ParseInFlightMode resolves a configured mode name; empty means off
func ParseInFlightMode(s string) (InFlightMode, error) {
	switch InFlightMode(s) {
	case "", InFlightOff:
		return InFlightOff, nil
	case InFlightQueue, InFlightReject:
		return InFlightMode(s), nil
	default:
		return "", fmt.Errorf("unsupported in-flight mode: %q (supported: off, queue, reject)", s)
	}
}

type flightKey struct {
	kind Kind
	id   string
}

type flight struct {
	slot  chan struct{} // holds a token while a call runs
	users int
}

// InFlight tracks running generations per (kind, id)
type InFlight struct {
	mode    InFlightMode
	flights map[flightKey]*flight
	mu      sync.Mutex
}

func NewInFlight(mode InFlightMode) *InFlight {
	return &InFlight{
		mode:    mode,
		flights: make(map[flightKey]*flight),
	}
}

func (f *InFlight) Mode() InFlightMode {
	return f.mode
}

// Acquire marks (kind, id) as in progress. The returned release must be
// called once the generation finished.
func (f *InFlight) Acquire(ctx context.Context, kind Kind, id string) (func(), error) {
	if f == nil || f.mode == InFlightOff {
		return func() {}, nil
	}

	key := flightKey{kind: kind, id: id}
	f.mu.Lock()
	fl, exists := f.flights[key]
	if !exists {
		fl = &flight{slot: make(chan struct{}, 1)}
		f.flights[key] = fl
	}
	fl.users++
	f.mu.Unlock()

	if f.mode == InFlightReject {
		select {
		case fl.slot <- struct{}{}:
		default:
			f.leave(key, fl)
			return nil, fmt.Errorf("%s for %s: %w", kind, id, ErrInFlight)
		}
	} else {
		select {
		case fl.slot <- struct{}{}:
		case <-ctx.Done():
			f.leave(key, fl)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-fl.slot
			f.leave(key, fl)
		})
	}, nil
}

// Running reports whether a generation for (kind, id) holds the slot
func (f *InFlight) Running(kind Kind, id string) bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fl, ok := f.flights[flightKey{kind: kind, id: id}]
	return ok && len(fl.slot) > 0
}

func (f *InFlight) leave(key flightKey, fl *flight) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fl.users--
	if fl.users == 0 {
		delete(f.flights, key)
	}
}
