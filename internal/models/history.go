package models

import "time"

// MetricSnapshot represents a single point in time for a metric
type MetricSnapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// HistorySnapshot holds the buffered percentages per resource, oldest first
type HistorySnapshot struct {
	CPU    []MetricSnapshot `json:"cpu"`
	Memory []MetricSnapshot `json:"memory"`
	Disk   []MetricSnapshot `json:"disk"`
}

// Series returns the points recorded for rt
func (h HistorySnapshot) Series(rt ResourceType) []MetricSnapshot {
	switch rt {
	case ResourceCPU:
		return h.CPU
	case ResourceMemory:
		return h.Memory
	case ResourceDisk:
		return h.Disk
	}
	return nil
}

// Values returns only the values of the series for rt
func (h HistorySnapshot) Values(rt ResourceType) []float64 {
	series := h.Series(rt)
	out := make([]float64, len(series))
	for i, p := range series {
		out[i] = p.Value
	}
	return out
}
