package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterWindow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 2})
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i, want := range []bool{true, true} {
		if got := rl.Allow("10.0.0.1"); got != want {
			t.Fatalf("request %d: Allow = %v, want %v", i+1, got, want)
		}
	}

	now = now.Add(20 * time.Second)
	ok, wait := rl.Reserve("10.0.0.1")
	if ok || wait != 40*time.Second {
		t.Fatalf("Reserve = %v, %v; want false, 40s", ok, wait)
	}
	if !rl.Allow("10.0.0.2") {
		t.Error("other clients have their own budget")
	}

	now = now.Add(40 * time.Second)
	if !rl.Allow("10.0.0.1") {
		t.Error("window should have reset")
	}

	m := rl.GetMetrics()
	if m.Rejected != 1 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	defer rl.Stop()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(3 * time.Minute)
	rl.Allow("b")
	rl.cleanupStaleEntries()

	if n := rl.ActiveClients(); n != 1 {
		t.Errorf("ActiveClients = %d, want 1", n)
	}
	rl.Stop()
}
