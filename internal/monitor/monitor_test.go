package monitor

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedCPU(percent float64) func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
	return func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
		return []float64{percent}, nil
	}
}

func fixedRAM(percent float64) func(ctx context.Context) (float64, error) {
	return func(ctx context.Context) (float64, error) {
		return percent, nil
	}
}

// TestStatsIdleSystem checks a quiet host is not flagged busy.
func TestStatsIdleSystem(t *testing.T) {
	m := NewSystemMonitorForTests(fixedCPU(12.5), fixedRAM(40))

	stats, err := m.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.CPUPercent != 12.5 || stats.RAMPercent != 40 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Busy {
		t.Fatal("idle system should not be busy")
	}
}

// TestStatsBusyThresholds checks each threshold flips the busy flag.
func TestStatsBusyThresholds(t *testing.T) {
	tests := []struct {
		name string
		cpu  float64
		ram  float64
		busy bool
	}{
		{"cpu over", 85, 10, true},
		{"ram over", 10, 95, true},
		{"both at limit", 80, 90, false},
		{"both over", 99, 99, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSystemMonitorForTests(fixedCPU(tt.cpu), fixedRAM(tt.ram))
			stats, err := m.Stats(context.Background())
			if err != nil {
				t.Fatalf("Stats() error = %v", err)
			}
			if stats.Busy != tt.busy {
				t.Fatalf("busy = %v, want %v", stats.Busy, tt.busy)
			}
		})
	}
}

// TestStatsSamplerErrors checks sampler failures propagate.
func TestStatsSamplerErrors(t *testing.T) {
	m := NewSystemMonitorForTests(
		fixedCPU(10),
		func(ctx context.Context) (float64, error) { return 0, errors.New("no meminfo") },
	)
	if _, err := m.Stats(context.Background()); err == nil {
		t.Fatal("expected memory sampler error")
	}

	m = NewSystemMonitorForTests(
		func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error) {
			return nil, errors.New("no cpu stats")
		},
		fixedRAM(10),
	)
	if _, err := m.Stats(context.Background()); err == nil {
		t.Fatal("expected cpu sampler error")
	}
}
