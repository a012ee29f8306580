// RelayChat - Real-time Chat Presence and Message Delivery
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/relaychat

package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/relaychat/internal/metrics"
)

func TestBreaker_TripsAndRejects(t *testing.T) {
	b := New(Settings{
		Name:         "test-trip",
		MaxRequests:  1,
		Timeout:      time.Hour,
		MinRequests:  3,
		FailureRatio: 0.5,
	})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		if err := b.Run(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}

	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	called := false
	err := b.Run(func() error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen", err)
	}
	if called {
		t.Error("open breaker must not run the call")
	}

	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-trip")); got != 2 {
		t.Errorf("state gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("test-trip", "rejected")); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	b := New(Settings{
		Name:         "test-recover",
		MaxRequests:  1,
		Timeout:      20 * time.Millisecond,
		MinRequests:  1,
		FailureRatio: 0.5,
	})

	_ = b.Run(func() error { return errors.New("down") })
	if b.State() != "open" {
		t.Fatalf("state = %s, want open", b.State())
	}

	time.Sleep(40 * time.Millisecond)
	if err := b.Run(func() error { return nil }); err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if b.State() != "closed" {
		t.Errorf("state = %s, want closed", b.State())
	}
}

func TestCast(t *testing.T) {
	b := New(DefaultSettings("test-cast"))

	type payload struct{ N int }
	got, err := Cast[payload](b.Execute(func() (interface{}, error) {
		return &payload{N: 7}, nil
	}))
	if err != nil || got.N != 7 {
		t.Fatalf("Cast = %+v, %v", got, err)
	}

	if _, err := Cast[payload](b.Execute(func() (interface{}, error) {
		return "wrong", nil
	})); err == nil {
		t.Error("expected type mismatch error")
	}
}
