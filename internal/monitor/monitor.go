package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"mp3-to-mp4/internal/domain"
)

// busyCPUPercent and busyRAMPercent are the thresholds above which the UI
// warns before starting another batch of conversions.
const (
	busyCPUPercent = 80.0
	busyRAMPercent = 90.0
)

// SystemMonitor samples host CPU and memory load.
type SystemMonitor struct {
	cpuPercent func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	ramPercent func(ctx context.Context) (float64, error)
}

// NewSystemMonitor builds a monitor backed by gopsutil.
func NewSystemMonitor() *SystemMonitor {
	return &SystemMonitor{
		cpuPercent: cpu.PercentWithContext,
		ramPercent: func(ctx context.Context) (float64, error) {
			v, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return v.UsedPercent, nil
		},
	}
}

// Stats gathers a point-in-time load snapshot. CPU usage is averaged over
// a short interval for a stable reading.
func (m *SystemMonitor) Stats(ctx context.Context) (domain.SystemStats, error) {
	stats := domain.SystemStats{}

	ram, err := m.ramPercent(ctx)
	if err != nil {
		return stats, fmt.Errorf("read memory stats: %w", err)
	}
	stats.RAMPercent = ram

	cpuPct, err := m.cpuPercent(ctx, 500*time.Millisecond, false)
	if err != nil {
		return stats, fmt.Errorf("read cpu stats: %w", err)
	}
	if len(cpuPct) > 0 {
		stats.CPUPercent = cpuPct[0]
	}

	stats.Busy = stats.CPUPercent > busyCPUPercent || stats.RAMPercent > busyRAMPercent
	return stats, nil
}

// NewSystemMonitorForTests builds a monitor with injectable samplers.
func NewSystemMonitorForTests(
	cpuPercent func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error),
	ramPercent func(ctx context.Context) (float64, error),
) *SystemMonitor {
	return &SystemMonitor{cpuPercent: cpuPercent, ramPercent: ramPercent}
}
