package models

import "time"

// Sample is one point-in-time reading of the host.
// A nil status means the reading is absent, never zero.
type Sample struct {
	Timestamp time.Time     `json:"timestamp"`
	CPU       *CPUStatus    `json:"cpu"`
	Memory    *MemoryStatus `json:"memory"`
	Disk      *DiskStatus   `json:"disk"`
}

// Percent returns the usage percentage for rt and whether it is present
func (s Sample) Percent(rt ResourceType) (float64, bool) {
	switch rt {
	case ResourceCPU:
		if s.CPU != nil {
			return s.CPU.UsagePercent, true
		}
	case ResourceMemory:
		if s.Memory != nil {
			return s.Memory.UsagePercent, true
		}
	case ResourceDisk:
		if s.Disk != nil {
			return s.Disk.UsagePercent, true
		}
	}
	return 0, false
}

// Empty reports whether no reading is present (monitoring inactive or total failure)
func (s Sample) Empty() bool {
	return s.CPU == nil && s.Memory == nil && s.Disk == nil
}
