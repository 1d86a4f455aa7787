package services

import (
	"sync"

	"halmon/internal/models"
)

// MaxHistory is the default number of points kept per metric
const MaxHistory = 1000

// ring is a fixed-capacity FIFO of metric points
type ring struct {
	buf   []models.MetricSnapshot
	start int
	size  int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]models.MetricSnapshot, capacity)}
}

func (r *ring) push(p models.MetricSnapshot) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = p
		r.size++
		return
	}
	r.buf[r.start] = p
	r.start = (r.start + 1) % len(r.buf)
}

// last copies the newest n points, oldest first. n <= 0 means all.
func (r *ring) last(n int) []models.MetricSnapshot {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]models.MetricSnapshot, n)
	skip := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+skip+i)%len(r.buf)]
	}
	return out
}

// HistoryBuffer keeps the most recent percentages per resource.
// One writer (the sampling loop) and any number of readers.
type HistoryBuffer struct {
	mu       sync.RWMutex
	capacity int
	series   map[models.ResourceType]*ring
}

// NewHistoryBuffer creates a buffer holding up to capacity points per resource
func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = MaxHistory
	}
	hb := &HistoryBuffer{capacity: capacity}
	hb.series = hb.emptySeries()
	return hb
}

func (hb *HistoryBuffer) emptySeries() map[models.ResourceType]*ring {
	m := make(map[models.ResourceType]*ring, len(models.ResourceTypes))
	for _, rt := range models.ResourceTypes {
		m[rt] = newRing(hb.capacity)
	}
	return m
}

// Capacity returns the per-resource limit
func (hb *HistoryBuffer) Capacity() int {
	return hb.capacity
}

// Push appends one value for rt, evicting the oldest point at capacity
func (hb *HistoryBuffer) Push(rt models.ResourceType, p models.MetricSnapshot) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if r, ok := hb.series[rt]; ok {
		r.push(p)
	}
}

// Record pushes every reading present in the sample; absent readings are skipped
func (hb *HistoryBuffer) Record(s models.Sample) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	for _, rt := range models.ResourceTypes {
		if v, ok := s.Percent(rt); ok {
			hb.series[rt].push(models.MetricSnapshot{Timestamp: s.Timestamp, Value: v})
		}
	}
}

// Len returns the number of points held for rt
func (hb *HistoryBuffer) Len(rt models.ResourceType) int {
	hb.mu.RLock()
	defer hb.mu.RUnlock()
	if r, ok := hb.series[rt]; ok {
		return r.size
	}
	return 0
}

// Snapshot returns a consistent copy of the newest n points per resource (all when n <= 0)
func (hb *HistoryBuffer) Snapshot(n int) models.HistorySnapshot {
	hb.mu.RLock()
	defer hb.mu.RUnlock()
	return models.HistorySnapshot{
		CPU:    hb.series[models.ResourceCPU].last(n),
		Memory: hb.series[models.ResourceMemory].last(n),
		Disk:   hb.series[models.ResourceDisk].last(n),
	}
}

// Reset drops all points
func (hb *HistoryBuffer) Reset() {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	hb.series = hb.emptySeries()
}
