package models

// CPUStatus is one CPU reading averaged over every core
type CPUStatus struct {
	UsagePercent float64 `json:"usage_percent"`
	CoreCount    int     `json:"core_count"`
}

// MemoryStatus is one virtual memory reading
type MemoryStatus struct {
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	AvailableGB  float64 `json:"available_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

// DiskStatus is one reading of the volume mounted at Path
type DiskStatus struct {
	Path         string  `json:"path"`
	Filesystem   string  `json:"filesystem,omitempty"`
	TotalGB      float64 `json:"total_gb"`
	UsedGB       float64 `json:"used_gb"`
	FreeGB       float64 `json:"free_gb"`
	UsagePercent float64 `json:"usage_percent"`
}

// HostInfo is static information about the monitored machine
type HostInfo struct {
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Platform string `json:"platform"`
	Uptime   uint64 `json:"uptime_seconds"`
}
