package chaos

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"jobpool/internal/events"
	"jobpool/internal/worker"
)

func newPool(t *testing.T, size int, panics *atomic.Int32) *worker.Pool {
	t.Helper()

	pool, err := worker.NewWithConfig(worker.Config{
		Size: size,
		Name: "target",
		PanicHandler: func(int, any) {
			if panics != nil {
				panics.Add(1)
			}
		},
	})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Shutdown)
	return pool
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Interval != 5*time.Second {
		t.Errorf("expected interval 5s, got %v", config.Interval)
	}
	if config.JobsPerAttack != 1 {
		t.Errorf("expected 1 job per attack, got %d", config.JobsPerAttack)
	}
	if len(config.AttackTypes) != 3 {
		t.Errorf("expected 3 attack types, got %d", len(config.AttackTypes))
	}
}

func TestAttackTypeString(t *testing.T) {
	tests := []struct {
		attack   AttackType
		expected string
	}{
		{AttackPanic, "panic"},
		{AttackStall, "stall"},
		{AttackBurst, "burst"},
		{AttackType(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.attack.String(); got != tt.expected {
			t.Errorf("AttackType(%d).String() = %s, want %s", tt.attack, got, tt.expected)
		}
		if tt.expected == "unknown" {
			continue
		}
		if parsed, ok := ParseAttackType(tt.expected); !ok || parsed != tt.attack {
			t.Errorf("ParseAttackType(%q) = %v, %v", tt.expected, parsed, ok)
		}
	}

	if _, ok := ParseAttackType("kill"); ok {
		t.Error("expected unknown attack name to be rejected")
	}
}

func TestNewMonkey(t *testing.T) {
	monkey := New(newPool(t, 1, nil), DefaultConfig())

	if monkey == nil {
		t.Fatal("expected non-nil monkey")
	}
	if monkey.IsRunning() {
		t.Error("expected monkey to not be running initially")
	}
}

func TestMonkeyStartStop(t *testing.T) {
	config := DefaultConfig()
	config.Interval = 10 * time.Millisecond
	config.AttackTypes = []AttackType{AttackBurst}
	config.BurstSize = 5

	pool := newPool(t, 2, nil)
	monkey := New(pool, config)
	monkey.Start(context.Background())

	if !monkey.IsRunning() {
		t.Error("expected monkey to be running")
	}

	// Second start is a no-op
	monkey.Start(context.Background())

	time.Sleep(60 * time.Millisecond)
	monkey.Stop()

	if monkey.IsRunning() {
		t.Error("expected monkey to be stopped")
	}
	if monkey.AttackCount() == 0 {
		t.Error("expected some attacks")
	}

	// Stop twice is a no-op
	monkey.Stop()
}

func TestMonkeyAttackPanic(t *testing.T) {
	var panics atomic.Int32
	pool := newPool(t, 2, &panics)

	config := DefaultConfig()
	config.AttackTypes = []AttackType{AttackPanic}
	config.JobsPerAttack = 3

	monkey := New(pool, config)
	monkey.Attack()

	// Capacity must survive the injected panics
	var ran atomic.Int32
	for range 10 {
		if err := pool.Execute(func() { ran.Add(1) }); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
	}
	pool.Shutdown()

	if panics.Load() != 3 {
		t.Errorf("expected 3 recovered panics, got %d", panics.Load())
	}
	if ran.Load() != 10 {
		t.Errorf("expected 10 jobs after panics, got %d", ran.Load())
	}
	if pool.Metrics().Failed() != 3 {
		t.Errorf("expected 3 failed jobs, got %d", pool.Metrics().Failed())
	}

	stats := monkey.Stats()
	if stats.ByType["panic"] != 1 || stats.InjectedJobs != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestMonkeyAttackStall(t *testing.T) {
	pool := newPool(t, 1, nil)

	config := DefaultConfig()
	config.AttackTypes = []AttackType{AttackStall}
	config.StallDuration = 50 * time.Millisecond

	monkey := New(pool, config)

	start := time.Now()
	monkey.Attack()
	pool.Shutdown()

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("expected stall to hold the worker for 50ms, shutdown took %v", elapsed)
	}
	if pool.Metrics().Completed() != 1 {
		t.Errorf("expected 1 completed job, got %d", pool.Metrics().Completed())
	}
}

func TestMonkeyAttackBurst(t *testing.T) {
	pool := newPool(t, 2, nil)

	config := DefaultConfig()
	config.AttackTypes = []AttackType{AttackBurst}
	config.BurstSize = 50

	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Subscribe()

	monkey := New(pool, config)
	monkey.SetEventBus(bus)
	monkey.Attack()
	pool.Shutdown()

	if pool.Metrics().Completed() != 50 {
		t.Errorf("expected 50 completed jobs, got %d", pool.Metrics().Completed())
	}

	select {
	case event := <-ch:
		if event.Type != events.EventChaosInjected || event.Data.Count != 50 {
			t.Errorf("unexpected event: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for chaos event")
	}
}

func TestMonkeyClosedTarget(t *testing.T) {
	pool := newPool(t, 1, nil)
	pool.Shutdown()

	config := DefaultConfig()
	config.AttackTypes = []AttackType{AttackBurst}
	config.BurstSize = 10

	monkey := New(pool, config)
	monkey.Attack()

	if monkey.AttackCount() != 0 {
		t.Errorf("expected no counted attacks against a closed pool, got %d", monkey.AttackCount())
	}
	if stats := monkey.Stats(); stats.RejectedJobs != 1 {
		t.Errorf("expected 1 rejected job before abort, got %d", stats.RejectedJobs)
	}
	if !monkey.LastAttack().IsZero() {
		t.Error("expected no last attack time")
	}
}

func TestMonkeySetConfig(t *testing.T) {
	monkey := New(newPool(t, 1, nil), DefaultConfig())

	newConfig := Config{
		Interval:    time.Second,
		AttackTypes: []AttackType{AttackStall},
	}
	monkey.SetConfig(newConfig)

	monkey.mu.RLock()
	defer monkey.mu.RUnlock()
	if monkey.config.Interval != time.Second {
		t.Errorf("expected interval 1s, got %v", monkey.config.Interval)
	}
	if len(monkey.config.AttackTypes) != 1 {
		t.Errorf("expected 1 attack type, got %d", len(monkey.config.AttackTypes))
	}
}
