package services

import (
	"context"
	"fmt"
	"time"

	"halmon/internal/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

const GB = 1024 * 1024 * 1024

// Sampler reads the current utilization of the host.
// Sample may block for the CPU measurement window and must honour ctx.
type Sampler interface {
	Sample(ctx context.Context) (models.Sample, error)
}

// HostSampler reads CPU, memory and disk usage through gopsutil
type HostSampler struct {
	CPUWindow time.Duration
	DiskPath  string
}

// NewHostSampler creates a sampler measuring CPU over window and disk usage of diskPath
func NewHostSampler(window time.Duration, diskPath string) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSampler{CPUWindow: window, DiskPath: diskPath}
}

// Sample takes one reading of each resource. Readings that fail are left nil
// and reported together in a *models.SampleError.
func (s *HostSampler) Sample(ctx context.Context) (models.Sample, error) {
	sample := models.Sample{Timestamp: time.Now()}
	failed := map[models.ResourceType]error{}

	if c, err := GetCPUUsage(ctx, s.CPUWindow); err != nil {
		failed[models.ResourceCPU] = err
	} else {
		sample.CPU = c
	}

	if m, err := GetMemoryUsage(ctx); err != nil {
		failed[models.ResourceMemory] = err
	} else {
		sample.Memory = m
	}

	if d, err := GetDiskUsage(ctx, s.DiskPath); err != nil {
		failed[models.ResourceDisk] = err
	} else {
		sample.Disk = d
	}

	if len(failed) > 0 {
		return sample, &models.SampleError{Failed: failed}
	}
	return sample, nil
}

// GetCPUUsage returns CPU usage averaged over window
func GetCPUUsage(ctx context.Context, window time.Duration) (*models.CPUStatus, error) {
	percentage, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		return nil, err
	}
	if len(percentage) == 0 {
		return nil, fmt.Errorf("no cpu reading returned")
	}

	coreCount, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		coreCount = 0
	}

	return &models.CPUStatus{
		UsagePercent: percentage[0],
		CoreCount:    coreCount,
	}, nil
}

// GetMemoryUsage returns memory usage information
func GetMemoryUsage(ctx context.Context) (*models.MemoryStatus, error) {
	virtualMemory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return &models.MemoryStatus{
		TotalGB:      float64(virtualMemory.Total) / GB,
		UsedGB:       float64(virtualMemory.Used) / GB,
		AvailableGB:  float64(virtualMemory.Available) / GB,
		UsagePercent: virtualMemory.UsedPercent,
	}, nil
}

// GetDiskUsage returns disk usage for a specific path
func GetDiskUsage(ctx context.Context, path string) (*models.DiskStatus, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("disk %s: %w", path, err)
	}

	return &models.DiskStatus{
		Path:         path,
		TotalGB:      float64(usage.Total) / GB,
		UsedGB:       float64(usage.Used) / GB,
		FreeGB:       float64(usage.Free) / GB,
		UsagePercent: usage.UsedPercent,
		Filesystem:   usage.Fstype,
	}, nil
}

// GetHostInfo returns static host details for display headers
func GetHostInfo(ctx context.Context) (*models.HostInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &models.HostInfo{
		Hostname: info.Hostname,
		OS:       info.OS,
		Platform: info.Platform,
		Uptime:   info.Uptime,
	}, nil
}
