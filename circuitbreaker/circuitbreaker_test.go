package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"songwriter-go/services/notifier"
)

// fakeClock lets tests step past cooldowns without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := New(Config{Name: "test", Threshold: threshold, Cooldown: cooldown, HalfOpenTimeout: time.Second})
	cb.now = clock.now
	return cb, clock
}

func TestNew(t *testing.T) {
	cb := New(Config{
		Name:      "test",
		Threshold: 3,
		Cooldown:  10 * time.Second,
	})

	if cb.name != "test" {
		t.Errorf("Expected name 'test', got %q", cb.name)
	}
	if cb.threshold != 3 {
		t.Errorf("Expected threshold 3, got %d", cb.threshold)
	}
	if cb.cooldown != 10*time.Second {
		t.Errorf("Expected cooldown 10s, got %v", cb.cooldown)
	}
	if cb.state != StateClosed {
		t.Errorf("Expected initial state CLOSED, got %s", cb.state)
	}
}

func TestNew_Defaults(t *testing.T) {
	cb := New(Config{})

	if cb.threshold != 3 {
		t.Errorf("Expected default threshold 3, got %d", cb.threshold)
	}
	if cb.cooldown != 30*time.Second {
		t.Errorf("Expected default cooldown 30s, got %v", cb.cooldown)
	}
	if cb.name != "storage" {
		t.Errorf("Expected default name 'storage', got %q", cb.name)
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	for i := 1; i < 3; i++ {
		cb.RecordFailure()
		if cb.State() != StateClosed {
			t.Fatalf("Expected CLOSED after %d failures, got %s", i, cb.State())
		}
	}

	cb.RecordFailure()
	if cb.State() != StateOpen {
		t.Errorf("Expected OPEN after 3 failures, got %s", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected Allow() to return false in OPEN state")
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	if cb.Failures() != 0 {
		t.Errorf("Expected 0 failures after success, got %d", cb.Failures())
	}
}

func TestCircuitBreaker_HalfOpenCycle(t *testing.T) {
	tests := []struct {
		name     string
		trialErr bool
		expected State
	}{
		{"Trial write succeeds", false, StateClosed},
		{"Trial write fails", true, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(2, 30*time.Second)
			cb.RecordFailure()
			cb.RecordFailure()

			clock.advance(31 * time.Second)
			if !cb.Allow() {
				t.Fatal("Expected the first call after cooldown to be allowed")
			}
			if cb.State() != StateHalfOpen {
				t.Fatalf("Expected HALF-OPEN, got %s", cb.State())
			}
			if cb.Allow() {
				t.Error("Expected a second concurrent trial to be blocked")
			}

			if tt.trialErr {
				cb.RecordFailure()
			} else {
				cb.RecordSuccess()
			}
			if cb.State() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, cb.State())
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenTimeout(t *testing.T) {
	cb, clock := newTestBreaker(1, 10*time.Second)
	cb.RecordFailure()

	clock.advance(11 * time.Second)
	cb.Allow()

	clock.advance(2 * time.Second)
	if cb.Allow() {
		t.Error("Expected Allow() to fail once the trial timed out")
	}
	if cb.State() != StateOpen {
		t.Errorf("Expected OPEN after half-open timeout, got %s", cb.State())
	}
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	failing := errors.New("disk full")
	calls := 0
	write := func() error {
		calls++
		return failing
	}

	for i := 0; i < 2; i++ {
		if err := cb.Execute(write); !errors.Is(err, failing) {
			t.Fatalf("Expected write error, got %v", err)
		}
	}

	if err := cb.Execute(write); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected the open breaker to skip the write, got %d calls", calls)
	}
}

func TestCircuitBreaker_PublishesEvents(t *testing.T) {
	bus := notifier.NewEventBus(time.Second)
	got := make(chan notifier.EventType, 2)
	bus.SubscribeAll(func(e *notifier.Event) { got <- e.Type })

	cb := New(Config{Name: "storage", Threshold: 1, Cooldown: time.Second, Bus: bus})
	clock := &fakeClock{t: time.Now()}
	cb.now = clock.now

	cb.RecordFailure()
	clock.advance(2 * time.Second)
	cb.Allow()
	cb.RecordSuccess()

	seen := map[notifier.EventType]bool{}
	for i := 0; i < 2; i++ {
		select {
		case typ := <-got:
			seen[typ] = true
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for breaker events")
		}
	}
	if !seen[notifier.EventStorageGuardOpen] || !seen[notifier.EventStorageGuardRecovered] {
		t.Errorf("Expected open and recovered events, got %v", seen)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	cb.RecordFailure()
	cb.Reset()

	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Errorf("Expected CLOSED with 0 failures, got %s/%d", cb.State(), cb.Failures())
	}
	if !cb.Allow() {
		t.Error("Expected Allow() to return true after reset")
	}
}

func TestCircuitBreaker_TimeUntilRetry(t *testing.T) {
	cb, clock := newTestBreaker(1, 10*time.Second)

	if cb.TimeUntilRetry() != 0 {
		t.Errorf("Expected 0 in CLOSED state, got %v", cb.TimeUntilRetry())
	}

	cb.RecordFailure()
	clock.advance(4 * time.Second)
	if got := cb.TimeUntilRetry(); got != 6*time.Second {
		t.Errorf("Expected 6s until retry, got %v", got)
	}

	clock.advance(10 * time.Second)
	if cb.TimeUntilRetry() != 0 {
		t.Errorf("Expected 0 after cooldown, got %v", cb.TimeUntilRetry())
	}
}

func TestCircuitBreaker_Snapshot(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	cb.RecordFailure()

	snap := cb.Snapshot()
	if snap.State != "CLOSED" || snap.Failures != 1 || snap.Threshold != 3 {
		t.Errorf("Unexpected snapshot: %+v", snap)
	}
	if snap.LastFailure.IsZero() {
		t.Error("Expected last failure time")
	}
}

func TestCircuitBreaker_StateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateClosed, "CLOSED"},
		{StateOpen, "OPEN"},
		{StateHalfOpen, "HALF-OPEN"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if tt.state.String() != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, tt.state.String())
		}
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := New(Config{Threshold: 100, Cooldown: time.Minute})

	done := make(chan bool)
	for i := 0; i < 50; i++ {
		go func() {
			for j := 0; j < 10; j++ {
				cb.Allow()
				cb.RecordFailure()
				cb.RecordSuccess()
				cb.Failures()
				cb.State()
			}
			done <- true
		}()
	}

	for i := 0; i < 50; i++ {
		<-done
	}

	state := cb.State()
	if state != StateClosed && state != StateOpen && state != StateHalfOpen {
		t.Errorf("Invalid state after concurrent access: %v", state)
	}
}
