package poll

import (
	"context"
	"testing"
	"time"
)

func TestPolicyInterval(t *testing.T) {
	p := ImagePolicy()

	tests := []struct {
		name    string
		elapsed time.Duration
		want    time.Duration
	}{
		{"start of job", 0, 3 * time.Second},
		{"just under first threshold", 29 * time.Second, 3 * time.Second},
		{"at first threshold", 30 * time.Second, 5 * time.Second},
		{"middle tier", 90 * time.Second, 5 * time.Second},
		{"at second threshold", 2 * time.Minute, 10 * time.Second},
		{"long running", time.Hour, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Interval(tt.elapsed); got != tt.want {
				t.Errorf("Interval(%v) = %v, want %v", tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestVideoPolicyInterval(t *testing.T) {
	p := VideoPolicy()
	if got := p.Interval(0); got != 10*time.Second {
		t.Errorf("Interval(0) = %v, want 10s", got)
	}
	if got := p.Interval(2 * time.Minute); got != 15*time.Second {
		t.Errorf("Interval(2m) = %v, want 15s", got)
	}
	if got := p.Interval(10 * time.Minute); got != 30*time.Second {
		t.Errorf("Interval(10m) = %v, want 30s", got)
	}
}

func TestBudgets(t *testing.T) {
	if got := ImagePolicy().Budget; got != 10*time.Minute {
		t.Errorf("image budget = %v, want 10m", got)
	}
	if got := VideoPolicy().Budget; got != 15*time.Minute {
		t.Errorf("video budget = %v, want 15m", got)
	}
}

func TestWaitRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Wait(ctx, time.Minute)
	if err == nil {
		t.Fatal("Wait() with cancelled context returned nil")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait() took %v after cancellation", elapsed)
	}
}

func TestWaitCompletes(t *testing.T) {
	if err := Wait(context.Background(), time.Millisecond); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
}
