package orchestrator

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"
)

// ResourceThresholds are the soft/hard limits the monitor samples
// against every interval (§5 Resource self-management).
type ResourceThresholds struct {
	SoftRSSPercent  float64
	HardRSSPercent  float64
	SoftCPUPercent  float64
	HardCPUPercent  float64
	DiskPath        string
	SoftDiskPercent float64
	HardDiskPercent float64
	SampleInterval  time.Duration
	HardBreachLimit int // consecutive hard breaches before demotion
}

// DefaultResourceThresholds mirrors the soft/hard split named in §5.
func DefaultResourceThresholds() ResourceThresholds {
	return ResourceThresholds{
		SoftRSSPercent:  80,
		HardRSSPercent:  95,
		SoftCPUPercent:  85,
		HardCPUPercent:  98,
		DiskPath:        "/",
		SoftDiskPercent: 85,
		HardDiskPercent: 95,
		SampleInterval:  60 * time.Second,
		HardBreachLimit: 3,
	}
}

// ResourceSample is one reading of the process/host resource state.
type ResourceSample struct {
	CPUPercent    float64
	RSSPercent    float64
	DiskPercent   float64
	ThreadCount   int32
	SoftBreach    bool
	HardBreach    bool
	BreachReasons []string
}

// ResourceMonitor samples CPU, host memory use (the host-wide used
// percentage, reported as RSSPercent), thread count, and disk usage on
// an interval and classifies the reading against soft/hard thresholds.
type ResourceMonitor struct {
	logger *zap.Logger
	cfg    ResourceThresholds
	proc   *process.Process

	consecutiveHardBreaches int
}

// NewResourceMonitor builds a monitor for the current process.
func NewResourceMonitor(logger *zap.Logger, cfg ResourceThresholds) *ResourceMonitor {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("resource monitor: could not attach to self process", zap.Error(err))
	}
	return &ResourceMonitor{logger: logger.Named("resource-monitor"), cfg: cfg, proc: proc}
}

// Sample takes one reading. CPU/memory/disk failures are logged and
// treated as zero rather than aborting the cycle.
func (m *ResourceMonitor) Sample(ctx context.Context) ResourceSample {
	var sample ResourceSample

	if cpuPct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPct) > 0 {
		sample.CPUPercent = cpuPct[0]
	} else if err != nil {
		m.logger.Debug("cpu sample failed", zap.Error(err))
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		sample.RSSPercent = vm.UsedPercent
	} else {
		m.logger.Debug("memory sample failed", zap.Error(err))
	}

	if du, err := disk.UsageWithContext(ctx, m.cfg.DiskPath); err == nil {
		sample.DiskPercent = du.UsedPercent
	} else {
		m.logger.Debug("disk sample failed", zap.Error(err))
	}

	if m.proc != nil {
		if threads, err := m.proc.NumThreadsWithContext(ctx); err == nil {
			sample.ThreadCount = threads
		}
	}

	if sample.RSSPercent >= m.cfg.HardRSSPercent {
		sample.HardBreach = true
		sample.BreachReasons = append(sample.BreachReasons, "rss")
	} else if sample.RSSPercent >= m.cfg.SoftRSSPercent {
		sample.SoftBreach = true
		sample.BreachReasons = append(sample.BreachReasons, "rss")
	}
	if sample.CPUPercent >= m.cfg.HardCPUPercent {
		sample.HardBreach = true
		sample.BreachReasons = append(sample.BreachReasons, "cpu")
	} else if sample.CPUPercent >= m.cfg.SoftCPUPercent {
		sample.SoftBreach = true
		sample.BreachReasons = append(sample.BreachReasons, "cpu")
	}
	if sample.DiskPercent >= m.cfg.HardDiskPercent {
		sample.HardBreach = true
		sample.BreachReasons = append(sample.BreachReasons, "disk")
	} else if sample.DiskPercent >= m.cfg.SoftDiskPercent {
		sample.SoftBreach = true
		sample.BreachReasons = append(sample.BreachReasons, "disk")
	}

	if sample.HardBreach {
		m.consecutiveHardBreaches++
	} else {
		m.consecutiveHardBreaches = 0
	}

	return sample
}

// SustainedHardBreach reports whether hard thresholds have been
// breached for enough consecutive samples to demote the orchestra.
func (m *ResourceMonitor) SustainedHardBreach() bool {
	return m.consecutiveHardBreaches >= m.cfg.HardBreachLimit
}
