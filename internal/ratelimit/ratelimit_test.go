package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 1, Burst: 3},
	})

	for i := 0; i < 3; i++ {
		if !l.Allow("/v1/extgcd") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if l.Allow("/v1/extgcd") {
		t.Fatal("request beyond burst should be rejected")
	}
}

func TestAllowUnconfiguredRoute(t *testing.T) {
	l := New(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 1, Burst: 1},
	})

	for i := 0; i < 100; i++ {
		if !l.Allow("/healthz") {
			t.Fatal("unconfigured route should never be limited")
		}
	}
}

func TestAllowDisabledByZeroRate(t *testing.T) {
	l := New(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 0, Burst: 10},
	})

	for i := 0; i < 100; i++ {
		if !l.Allow("/v1/extgcd") {
			t.Fatal("zero rate should mean unlimited")
		}
	}
}

func TestRefill(t *testing.T) {
	l := New(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 100, Burst: 1},
	})

	if !l.Allow("/v1/extgcd") {
		t.Fatal("first request should be allowed")
	}
	if l.Allow("/v1/extgcd") {
		t.Fatal("bucket should be empty")
	}

	// 100 rps refills a token within 10ms; give it a generous margin.
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("/v1/extgcd") {
		t.Fatal("bucket should have refilled")
	}
}

func TestConfigurePreservesFill(t *testing.T) {
	l := New(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 0.001, Burst: 2},
	})

	// Drain the bucket fully.
	l.Allow("/v1/extgcd")
	l.Allow("/v1/extgcd")
	if l.Allow("/v1/extgcd") {
		t.Fatal("bucket should be drained")
	}

	// Same capacity, new rate: the empty bucket must stay empty rather
	// than handing out a fresh burst on reload.
	l.Configure(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 0.001, Burst: 2},
	})
	if l.Allow("/v1/extgcd") {
		t.Fatal("reload must not refill a drained bucket")
	}

	// Raising the capacity grants the difference.
	l.Configure(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 0.001, Burst: 3},
	})
	if !l.Allow("/v1/extgcd") {
		t.Fatal("capacity increase should grant a token")
	}
	if l.Allow("/v1/extgcd") {
		t.Fatal("only the capacity difference should be granted")
	}
}

func TestConfigureRemovesRoute(t *testing.T) {
	l := New(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 0.001, Burst: 1},
	})
	l.Allow("/v1/extgcd")
	if l.Allow("/v1/extgcd") {
		t.Fatal("bucket should be drained")
	}

	l.Configure(map[string]Config{})
	if !l.Allow("/v1/extgcd") {
		t.Fatal("route without config should be unlimited after reload")
	}
}

func TestAllowContextCancelled(t *testing.T) {
	l := New(map[string]Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if l.AllowContext(ctx, "/v1/extgcd") {
		t.Fatal("cancelled context should be rejected")
	}
	if !l.AllowContext(context.Background(), "/v1/extgcd") {
		t.Fatal("live context on unlimited route should be allowed")
	}
}

func TestStats(t *testing.T) {
	l := New(map[string]Config{
		"/v1/extgcd": {RequestsPerSecond: 5, Burst: 10},
	})
	l.Allow("/v1/extgcd")

	stats := l.Stats()
	s, ok := stats["/v1/extgcd"]
	if !ok {
		t.Fatal("expected stats for configured route")
	}
	if s.Limit != 5 {
		t.Errorf("expected limit 5, got %v", s.Limit)
	}
	if s.Burst != 10 {
		t.Errorf("expected burst 10, got %d", s.Burst)
	}
	if s.Available > 10 || s.Available < 8 {
		t.Errorf("expected roughly 9 tokens available, got %v", s.Available)
	}
}
