package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"halmon/internal/logger"
	"halmon/internal/metrics"
	"halmon/internal/models"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type monitorFixture struct {
	monitor  *Monitor
	sampler  *scriptedSampler
	store    *AlarmStore
	notifier *recordingNotifier
	events   *recordingEvents
}

func newMonitorFixture(t *testing.T, opts MonitorOptions) *monitorFixture {
	t.Helper()
	f := &monitorFixture{
		sampler:  newScriptedSampler(10, 20, 30),
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
	}
	f.store = NewAlarmStore(NewMemoryBackend(), f.events)
	if opts.SampleInterval == 0 {
		opts.SampleInterval = 10 * time.Millisecond
	}
	if opts.EvaluateInterval == 0 {
		opts.EvaluateInterval = 10 * time.Millisecond
	}
	f.monitor = NewMonitor(MonitorDeps{
		Sampler:  f.sampler,
		Store:    f.store,
		History:  NewHistoryBuffer(100),
		Notifier: f.notifier,
		Events:   f.events,
		Metrics:  metrics.New(),
	}, opts)
	t.Cleanup(f.monitor.Stop)
	return f
}

func TestMonitorLifecycle(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{})
	m := f.monitor

	assert.False(t, m.Active())
	_, ok := m.LiveData()
	assert.False(t, ok)

	m.Start()
	m.Start()
	assert.True(t, m.Active())
	assert.Equal(t, 1, f.events.count(logger.EventMonitoringStarted))

	require.Eventually(t, func() bool {
		_, ok := m.LiveData()
		return ok
	}, waitFor, tick)
	live, _ := m.LiveData()
	v, ok := live.Percent(models.ResourceCPU)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	m.Stop()
	m.Stop()
	assert.False(t, m.Active())
	assert.Equal(t, 1, f.events.count(logger.EventMonitoringStopped))

	_, ok = m.LiveData()
	assert.False(t, ok)
	assert.Empty(t, m.History(0).CPU)
	sample, triggered := m.AlarmData()
	assert.True(t, sample.Empty())
	assert.Empty(t, triggered)
}

func TestMonitorStopRightAfterStart(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{})

	for i := 0; i < 20; i++ {
		f.monitor.Start()
		f.monitor.Stop()

		calls := f.sampler.Calls()
		time.Sleep(3 * f.monitor.opts.SampleInterval)
		assert.Equal(t, calls, f.sampler.Calls(), "sampler ran after Stop returned")
	}
}

func TestMonitorStopWaitsForSlowSample(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{SampleTimeout: time.Second})
	f.sampler.delay = 50 * time.Millisecond

	f.monitor.Start()
	time.Sleep(10 * time.Millisecond)
	f.monitor.Stop()

	calls := f.sampler.Calls()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, calls, f.sampler.Calls())
	_, ok := f.monitor.LiveData()
	assert.False(t, ok)
}

func TestMonitorNotifiesOncePerAlarm(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{})
	_, err := f.store.Add("cpu", 70)
	require.NoError(t, err)
	_, err = f.store.Add("cpu", 90)
	require.NoError(t, err)
	f.sampler.set(95, 20, 30)

	f.monitor.Start()
	require.Eventually(t, func() bool { return len(f.notifier.all()) == 1 }, waitFor, tick)

	// several more evaluation cycles with the same reading
	time.Sleep(100 * time.Millisecond)
	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "CPU usage alarm", sent[0].subject)
	assert.Contains(t, sent[0].body, "CPU USAGE EXCEEDS 90%")
	assert.Equal(t, 1, f.events.count(logger.EventAlarmTriggered))

	alerts := f.monitor.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, 90, alerts[0].Alarm.Threshold)

	// the bulk path still reports both alarms
	_, triggered := f.monitor.AlarmData()
	assert.Len(t, triggered, 2)

	// a restart clears the retained window
	f.monitor.Stop()
	assert.Len(t, f.notifier.all(), 1)
	f.monitor.Start()
	require.Eventually(t, func() bool { return len(f.notifier.all()) == 2 }, waitFor, tick)
}

func TestMonitorEvaluatesOnItsOwnCadence(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{EvaluateInterval: time.Hour})
	_, err := f.store.Add("memory", 50)
	require.NoError(t, err)

	f.monitor.Start()
	require.Eventually(t, func() bool { return f.sampler.Calls() >= 2 }, waitFor, tick)

	// the first evaluation ran with memory at 20%, the next one is an hour away
	f.sampler.set(10, 90, 30)
	require.Eventually(t, func() bool {
		live, ok := f.monitor.LiveData()
		v, _ := live.Percent(models.ResourceMemory)
		return ok && v == 90
	}, waitFor, tick)
	assert.Empty(t, f.notifier.all())
	assert.Empty(t, f.monitor.Alerts())
}

func TestMonitorPartialSampleFailure(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{})
	_, err := f.store.Add("disk", 1)
	require.NoError(t, err)
	f.sampler.set(40, 50, -1)

	f.monitor.Start()
	require.Eventually(t, func() bool { return f.events.count(logger.EventSampleFailed) >= 2 }, waitFor, tick)
	assert.True(t, f.monitor.Active(), "a failed cycle does not stop monitoring")

	history := f.monitor.History(0)
	assert.NotEmpty(t, history.CPU)
	assert.Empty(t, history.Disk)

	live, ok := f.monitor.LiveData()
	require.True(t, ok)
	_, present := live.Percent(models.ResourceDisk)
	assert.False(t, present)
	assert.Empty(t, f.notifier.all())
}

func TestMonitorSampleTimeoutIsAFailedCycle(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{SampleTimeout: 20 * time.Millisecond})
	_, err := f.store.Add("cpu", 1)
	require.NoError(t, err)
	f.sampler.delay = time.Second

	f.monitor.Start()
	require.Eventually(t, func() bool { return f.events.count(logger.EventSampleFailed) >= 2 }, waitFor, tick)

	live, ok := f.monitor.LiveData()
	require.True(t, ok)
	assert.True(t, live.Empty())
	assert.Empty(t, f.notifier.all())

	stopped := make(chan struct{})
	go func() {
		f.monitor.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("Stop did not return")
	}
}

func TestMonitorNotifierFailureIsContained(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{})
	f.notifier.err = errors.New("smtp down")
	_, err := f.store.Add("cpu", 5)
	require.NoError(t, err)

	f.monitor.Start()
	require.Eventually(t, func() bool { return f.events.count(logger.EventNotificationFailed) == 1 }, waitFor, tick)

	calls := f.sampler.Calls()
	require.Eventually(t, func() bool { return f.sampler.Calls() > calls+2 }, waitFor, tick)
	assert.True(t, f.monitor.Active())
}

func TestMonitorSnapshot(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{})
	snap := f.monitor.Snapshot(10)
	assert.False(t, snap.Active)
	assert.Nil(t, snap.Latest)

	f.monitor.Start()
	require.Eventually(t, func() bool {
		return len(f.monitor.Snapshot(10).History.CPU) >= 3
	}, waitFor, tick)

	snap = f.monitor.Snapshot(2)
	assert.True(t, snap.Active)
	require.NotNil(t, snap.Latest)
	assert.Len(t, snap.History.CPU, 2)
	assert.False(t, snap.Since.IsZero())
}

func TestMonitorShutdownLogsProgramEnd(t *testing.T) {
	f := newMonitorFixture(t, MonitorOptions{})
	f.monitor.Start()
	f.monitor.Shutdown()
	assert.False(t, f.monitor.Active())
	names := f.events.names()
	require.NotEmpty(t, names)
	assert.Equal(t, logger.EventProgramEnded, names[len(names)-1])
}

type blockingSampler struct{ release chan struct{} }

func (b blockingSampler) Sample(ctx context.Context) (models.Sample, error) {
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return models.Sample{}, ctx.Err()
}

func TestMonitorStopWhileSampleInFlight(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	events := &recordingEvents{}
	m := NewMonitor(MonitorDeps{Sampler: blockingSampler{release}, Events: events}, MonitorOptions{
		SampleInterval: 10 * time.Millisecond,
		SampleTimeout:  time.Minute,
	})

	m.Start()
	time.Sleep(20 * time.Millisecond)
	m.Stop()

	assert.False(t, m.Active())
	assert.Zero(t, events.count(logger.EventSampleFailed), "cancelled samples are not failures")
}

// stubbornSampler ignores ctx and holds every call for hold
type stubbornSampler struct {
	hold time.Duration

	mu       sync.Mutex
	current  int
	max      int
	started  int
	finished int
}

func (s *stubbornSampler) Sample(ctx context.Context) (models.Sample, error) {
	s.mu.Lock()
	s.started++
	s.current++
	if s.current > s.max {
		s.max = s.current
	}
	s.mu.Unlock()

	time.Sleep(s.hold)

	s.mu.Lock()
	s.current--
	s.finished++
	s.mu.Unlock()
	return models.Sample{Timestamp: time.Now()}, nil
}

func (s *stubbornSampler) counts() (current, max, started, finished int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.max, s.started, s.finished
}

func TestMonitorSamplerIgnoringContextNeverOverlaps(t *testing.T) {
	sampler := &stubbornSampler{hold: 150 * time.Millisecond}
	events := &recordingEvents{}
	m := NewMonitor(MonitorDeps{Sampler: sampler, Events: events}, MonitorOptions{
		SampleInterval: 10 * time.Millisecond,
		SampleTimeout:  30 * time.Millisecond,
	})

	m.Start()
	require.Eventually(t, func() bool { return events.count(logger.EventSampleFailed) >= 3 }, waitFor, tick)
	m.Stop()

	current, max, started, finished := sampler.counts()
	assert.Equal(t, 1, max, "sampler calls overlapped")
	assert.Zero(t, current, "sampler still running after Stop returned")
	assert.Equal(t, started, finished)

	time.Sleep(200 * time.Millisecond)
	_, _, startedLater, _ := sampler.counts()
	assert.Equal(t, started, startedLater, "sampler called after Stop returned")
}

// stuckNotifier blocks every call for hold regardless of ctx
type stuckNotifier struct {
	hold time.Duration

	mu    sync.Mutex
	calls int
}

func (s *stuckNotifier) Name() string { return "stuck" }

func (s *stuckNotifier) Notify(ctx context.Context, subject, body string) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	time.Sleep(s.hold)
	return nil
}

func (s *stuckNotifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestMonitorStopBoundsNotificationDrain(t *testing.T) {
	notifier := &stuckNotifier{hold: time.Second}
	events := &recordingEvents{}
	store := NewAlarmStore(NewMemoryBackend(), events)
	_, err := store.Add("cpu", 5)
	require.NoError(t, err)
	_, err = store.Add("memory", 5)
	require.NoError(t, err)

	m := NewMonitor(MonitorDeps{
		Sampler:  newScriptedSampler(10, 20, 30),
		Store:    store,
		Notifier: notifier,
		Events:   events,
	}, MonitorOptions{
		SampleInterval:   10 * time.Millisecond,
		EvaluateInterval: 10 * time.Millisecond,
		NotifyTimeout:    time.Minute,
		DrainTimeout:     50 * time.Millisecond,
	})

	m.Start()
	require.Eventually(t, func() bool {
		return notifier.Calls() == 1 && events.count(logger.EventAlarmTriggered) == 2
	}, waitFor, tick)

	start := time.Now()
	m.Stop()
	assert.Less(t, time.Since(start), 500*time.Millisecond, "Stop waited on the whole queue")

	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, 1, notifier.Calls(), "queued notification delivered after the drain deadline")
}
