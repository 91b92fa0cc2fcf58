package resilience

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var errTest = errors.New("test error")

// fakeClock pins the breaker's clock and returns a function that advances it.
func fakeClock(cb *CircuitBreaker) func(time.Duration) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb.now = func() time.Time { return now }
	return func(d time.Duration) { now = now.Add(d) }
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test"})
	if cb.maxFailures != 5 || cb.resetTimeout != 30*time.Second || cb.halfOpenMax != 1 {
		t.Errorf("defaults = (%d, %v, %d), want (5, 30s, 1)", cb.maxFailures, cb.resetTimeout, cb.halfOpenMax)
	}
	if cb.State() != StateClosed {
		t.Errorf("initial state = %v, want closed", cb.State())
	}
}

// TestCircuitBreaker_Transitions drives the breaker through scripted calls.
// A step is "ok" or "fail" for a call that succeeds or fails, or "wait <d>"
// to advance the clock.
func TestCircuitBreaker_Transitions(t *testing.T) {
	type step struct {
		do       string
		rejected bool
		want     State
	}
	tests := []struct {
		name        string
		halfOpenMax int
		steps       []step
	}{
		{
			name: "consecutive failures open",
			steps: []step{
				{do: "fail", want: StateClosed},
				{do: "fail", want: StateClosed},
				{do: "fail", want: StateOpen},
				{do: "ok", rejected: true, want: StateOpen},
			},
		},
		{
			name: "success resets the count",
			steps: []step{
				{do: "fail", want: StateClosed},
				{do: "fail", want: StateClosed},
				{do: "ok", want: StateClosed},
				{do: "fail", want: StateClosed},
				{do: "fail", want: StateClosed},
			},
		},
		{
			name: "stays open until the reset timeout",
			steps: []step{
				{do: "fail"}, {do: "fail"}, {do: "fail", want: StateOpen},
				{do: "wait 59s", want: StateOpen},
				{do: "ok", rejected: true, want: StateOpen},
				{do: "wait 1s", want: StateHalfOpen},
			},
		},
		{
			name: "successful probe closes",
			steps: []step{
				{do: "fail"}, {do: "fail"}, {do: "fail", want: StateOpen},
				{do: "wait 1m", want: StateHalfOpen},
				{do: "ok", want: StateClosed},
				{do: "fail", want: StateClosed},
			},
		},
		{
			name: "failed probe reopens",
			steps: []step{
				{do: "fail"}, {do: "fail"}, {do: "fail", want: StateOpen},
				{do: "wait 1m", want: StateHalfOpen},
				{do: "fail", want: StateOpen},
				{do: "ok", rejected: true, want: StateOpen},
			},
		},
		{
			name:        "every probe must succeed",
			halfOpenMax: 2,
			steps: []step{
				{do: "fail"}, {do: "fail"}, {do: "fail", want: StateOpen},
				{do: "wait 1m", want: StateHalfOpen},
				{do: "ok", want: StateHalfOpen},
				{do: "ok", want: StateClosed},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCircuitBreaker(CircuitBreakerConfig{
				Name:         "test",
				MaxFailures:  3,
				ResetTimeout: time.Minute,
				HalfOpenMax:  tt.halfOpenMax,
			})
			advance := fakeClock(cb)

			for i, s := range tt.steps {
				if d, ok := strings.CutPrefix(s.do, "wait "); ok {
					dur, err := time.ParseDuration(d)
					if err != nil {
						t.Fatalf("step %d: %v", i, err)
					}
					advance(dur)
				} else {
					called := false
					err := cb.Execute(func() error {
						called = true
						if s.do == "fail" {
							return errTest
						}
						return nil
					})
					if s.rejected {
						if !errors.Is(err, ErrCircuitOpen) || called {
							t.Fatalf("step %d (%s): err = %v, called = %v, want rejection", i, s.do, err, called)
						}
					} else if !called {
						t.Fatalf("step %d (%s): call rejected: %v", i, s.do, err)
					}
				}
				if got := cb.State(); got != s.want {
					t.Fatalf("step %d (%s): state = %v, want %v", i, s.do, got, s.want)
				}
			}
		})
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 1, ResetTimeout: time.Hour})
	_ = cb.Execute(func() error { return errTest })
	if cb.State() != StateOpen {
		t.Fatalf("state = %v, want open", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Fatalf("after Reset: state = %v, failures = %d", cb.State(), cb.Failures())
	}
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("Execute after Reset: %v", err)
	}
}

func TestCircuitBreaker_HalfOpenLimitsProbes(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: 1, ResetTimeout: time.Minute})
	advance := fakeClock(cb)
	_ = cb.Execute(func() error { return errTest })
	advance(time.Minute)

	var inner error
	err := cb.Execute(func() error {
		// A second caller arrives while the only probe is in flight.
		inner = cb.Execute(func() error { return nil })
		return nil
	})
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if !errors.Is(inner, ErrCircuitOpen) {
		t.Errorf("concurrent probe err = %v, want ErrCircuitOpen", inner)
	}
	if cb.State() != StateClosed {
		t.Errorf("state = %v, want closed after the probe succeeded", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "tts",
		MaxFailures:  2,
		ResetTimeout: time.Minute,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	advance := fakeClock(cb)

	_ = cb.Execute(func() error { return errTest })
	_ = cb.Execute(func() error { return errTest })
	advance(time.Minute)
	_ = cb.Execute(func() error { return nil })

	want := "tts:closed->open tts:open->half-open tts:half-open->closed"
	if got := strings.Join(transitions, " "); got != want {
		t.Errorf("transitions = %q, want %q", got, want)
	}
}

func TestState_String(t *testing.T) {
	for state, want := range map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(99):     "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
