package redis

import (
	"errors"
	"testing"
	"time"
)

var errProbe = errors.New("probe failed")

func TestBreakerTripsAfterMaxFailures(t *testing.T) {
	b := NewBreaker(3, time.Hour)

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errProbe }); !errors.Is(err, errProbe) {
			t.Fatalf("call %d: got %v, want errProbe", i, err)
		}
	}
	if got := b.State(); got != BreakerOpen {
		t.Fatalf("state after trips = %v, want open", got)
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("open breaker executed call, err = %v", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(3, time.Hour)

	b.Execute(func() error { return errProbe })
	b.Execute(func() error { return errProbe })
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("success call errored: %v", err)
	}
	// Two more failures should not trip a breaker whose count was reset.
	b.Execute(func() error { return errProbe })
	b.Execute(func() error { return errProbe })
	if got := b.State(); got != BreakerClosed {
		t.Fatalf("state = %v, want closed", got)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)

	var transitions []BreakerState
	b.OnStateChange = func(from, to BreakerState) { transitions = append(transitions, to) }

	b.Execute(func() error { return errProbe })
	if b.State() != BreakerOpen {
		t.Fatal("breaker did not open")
	}

	time.Sleep(20 * time.Millisecond)

	// Probe succeeds: breaker closes.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe call errored: %v", err)
	}
	if b.State() != BreakerClosed {
		t.Fatalf("state after successful probe = %v, want closed", b.State())
	}

	want := []BreakerState{BreakerOpen, BreakerHalfOpen, BreakerClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transition %d = %v, want %v", i, transitions[i], want[i])
		}
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, 10*time.Millisecond)

	b.Execute(func() error { return errProbe })
	time.Sleep(20 * time.Millisecond)

	if err := b.Execute(func() error { return errProbe }); !errors.Is(err, errProbe) {
		t.Fatalf("probe err = %v, want errProbe", err)
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state after failed probe = %v, want open", b.State())
	}
}
