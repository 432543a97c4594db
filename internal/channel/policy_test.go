package channel

import (
	"testing"
	"time"
)

func TestDecide_BackoffTable(t *testing.T) {
	// delay(n) = min(3000ms * 1.5^n, 30000ms), exactly.
	want := []time.Duration{
		3000 * time.Millisecond,
		4500 * time.Millisecond,
		6750 * time.Millisecond,
		10125 * time.Millisecond,
		15187500 * time.Microsecond,
		22781250 * time.Microsecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
	}

	for attempt, delay := range want {
		d := Decide(1012, attempt)
		if !d.Retry {
			t.Errorf("Decide(1012, %d).Retry = false, want true", attempt)
		}
		if d.Delay != delay {
			t.Errorf("Decide(1012, %d).Delay = %v, want %v", attempt, d.Delay, delay)
		}
	}
}

func TestDecide_BudgetExhausted(t *testing.T) {
	for _, code := range []int{1000, 1006, 1012} {
		d := Decide(code, MaxReconnectAttempts)
		if d.Retry {
			t.Errorf("Decide(%d, %d).Retry = true, want false", code, MaxReconnectAttempts)
		}
		if d.Delay != 0 {
			t.Errorf("Decide(%d, %d).Delay = %v, want 0", code, MaxReconnectAttempts, d.Delay)
		}
	}
}

func TestDecide_CloseCodeClassification(t *testing.T) {
	tests := []struct {
		code  int
		retry bool
	}{
		{1000, true},  // normal closure
		{1001, true},  // going away
		{1006, true},  // abnormal closure
		{1011, true},  // internal server error
		{1012, true},  // service restart
		{1013, true},  // try again later
		{1015, true},  // TLS handshake failure
		{1002, false}, // protocol error
		{1003, false}, // unsupported data
		{1008, false}, // policy violation
		{1009, false}, // message too big
		{4000, false}, // application-defined
	}

	for _, tt := range tests {
		d := Decide(tt.code, 0)
		if d.Retry != tt.retry {
			t.Errorf("Decide(%d, 0).Retry = %v, want %v", tt.code, d.Retry, tt.retry)
		}
	}
}

func TestDecide_AbnormalClosureAlwaysEligible(t *testing.T) {
	// 1006 stays eligible at any attempt under the budget, as its own rule
	// rather than by set membership.
	for attempt := 0; attempt < MaxReconnectAttempts; attempt++ {
		if d := Decide(1006, attempt); !d.Retry {
			t.Errorf("Decide(1006, %d).Retry = false, want true", attempt)
		}
	}
}
