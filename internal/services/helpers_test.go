package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"halmon/internal/models"
)

type recordedEvent struct {
	name string
	data map[string]interface{}
}

type recordingEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingEvents) LogEvent(event string, data map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, data})
}

func (r *recordingEvents) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.name
	}
	return out
}

func (r *recordingEvents) count(name string) int {
	n := 0
	for _, got := range r.names() {
		if got == name {
			n++
		}
	}
	return n
}

type notification struct {
	subject string
	body    string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(ctx context.Context, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, notification{subject, body})
	return r.err
}

func (r *recordingNotifier) all() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// scriptedSampler returns fixed percentages; a negative value marks the reading absent
type scriptedSampler struct {
	mu    sync.Mutex
	cpu   float64
	mem   float64
	disk  float64
	delay time.Duration
	calls int
}

func newScriptedSampler(cpu, mem, disk float64) *scriptedSampler {
	return &scriptedSampler{cpu: cpu, mem: mem, disk: disk}
}

func (s *scriptedSampler) set(cpu, mem, disk float64) {
	s.mu.Lock()
	s.cpu, s.mem, s.disk = cpu, mem, disk
	s.mu.Unlock()
}

func (s *scriptedSampler) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptedSampler) Sample(ctx context.Context) (models.Sample, error) {
	s.mu.Lock()
	s.calls++
	cpu, mem, disk, delay := s.cpu, s.mem, s.disk, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return models.Sample{}, ctx.Err()
		}
	}

	sample := models.Sample{Timestamp: time.Now()}
	failed := map[models.ResourceType]error{}
	if cpu >= 0 {
		sample.CPU = &models.CPUStatus{UsagePercent: cpu, CoreCount: 4}
	} else {
		failed[models.ResourceCPU] = errors.New("cpu unavailable")
	}
	if mem >= 0 {
		sample.Memory = &models.MemoryStatus{UsagePercent: mem}
	} else {
		failed[models.ResourceMemory] = errors.New("memory unavailable")
	}
	if disk >= 0 {
		sample.Disk = &models.DiskStatus{UsagePercent: disk}
	} else {
		failed[models.ResourceDisk] = errors.New("disk unavailable")
	}
	if len(failed) > 0 {
		return sample, &models.SampleError{Failed: failed}
	}
	return sample, nil
}

func sampleOf(cpu, mem, disk float64) models.Sample {
	s, _ := newScriptedSampler(cpu, mem, disk).Sample(context.Background())
	return s
}
