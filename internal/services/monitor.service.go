package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"halmon/internal/logger"
	"halmon/internal/metrics"
	"halmon/internal/models"
)

const notifyQueueSize = 32

var errSamplerBusy = errors.New("previous sample still running")

// MonitorOptions sets the loop cadences and bounds
type MonitorOptions struct {
	SampleInterval   time.Duration
	EvaluateInterval time.Duration
	SampleTimeout    time.Duration
	NotifyTimeout    time.Duration
	DrainTimeout     time.Duration
	AlertWindow      int
}

func (o *MonitorOptions) withDefaults() {
	if o.SampleInterval <= 0 {
		o.SampleInterval = time.Second
	}
	if o.EvaluateInterval <= 0 {
		o.EvaluateInterval = 5 * time.Second
	}
	if o.SampleTimeout <= 0 {
		o.SampleTimeout = 5 * time.Second
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 15 * time.Second
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = 10 * time.Second
	}
	if o.AlertWindow <= 0 {
		o.AlertWindow = DefaultAlertWindow
	}
}

// MonitorSnapshot is everything an interface needs for one refresh
type MonitorSnapshot struct {
	Active  bool                   `json:"active"`
	Since   time.Time              `json:"since,omitempty"`
	Latest  *models.Sample         `json:"latest,omitempty"`
	History models.HistorySnapshot `json:"history"`
	Alerts  []AlertEntry           `json:"alerts"`
}

// Monitor owns the background sampling loop and is the only authority on
// whether monitoring is active. All methods are safe for concurrent use.
type Monitor struct {
	sampler  Sampler
	store    *AlarmStore
	history  *HistoryBuffer
	feed     *AlertFeed
	notifier Notifier
	events   logger.EventLogger
	metrics  *metrics.Metrics
	opts     MonitorOptions

	// lifecycle serializes Start and Stop
	lifecycle sync.Mutex

	mu        sync.RWMutex
	running   bool
	since     time.Time
	latest    models.Sample
	hasLatest bool

	// holds one token while a sampler call runs, even one abandoned on timeout
	inflight chan struct{}

	cancel         context.CancelFunc
	loopDone       chan struct{}
	queue          chan models.TriggeredAlarm
	dispatchCancel context.CancelFunc
	dispatchDone   chan struct{}
}

// MonitorDeps are the collaborators of a Monitor. Nil notifier, events and
// metrics are allowed.
type MonitorDeps struct {
	Sampler  Sampler
	Store    *AlarmStore
	History  *HistoryBuffer
	Notifier Notifier
	Events   logger.EventLogger
	Metrics  *metrics.Metrics
}

func NewMonitor(deps MonitorDeps, opts MonitorOptions) *Monitor {
	opts.withDefaults()
	if deps.Events == nil {
		deps.Events = logger.NopEventLogger{}
	}
	if deps.History == nil {
		deps.History = NewHistoryBuffer(MaxHistory)
	}
	if deps.Store == nil {
		deps.Store = NewAlarmStore(nil, deps.Events)
	}
	return &Monitor{
		sampler:  deps.Sampler,
		store:    deps.Store,
		history:  deps.History,
		feed:     NewAlertFeed(opts.AlertWindow),
		notifier: deps.Notifier,
		events:   deps.Events,
		metrics:  deps.Metrics,
		opts:     opts,
		inflight: make(chan struct{}, 1),
	}
}

// Store returns the alarm store the monitor evaluates against
func (m *Monitor) Store() *AlarmStore {
	return m.store
}

// Start launches the sampling loop. Calling Start while running is a no-op.
func (m *Monitor) Start() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.Active() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.loopDone = make(chan struct{})
	m.queue = make(chan models.TriggeredAlarm, notifyQueueSize)
	dctx, dcancel := context.WithCancel(context.Background())
	m.dispatchCancel = dcancel
	m.dispatchDone = make(chan struct{})
	m.feed.Reset()

	m.mu.Lock()
	m.running = true
	m.since = time.Now()
	m.hasLatest = false
	m.latest = models.Sample{}
	m.mu.Unlock()

	m.metrics.SetActive(true)
	m.events.LogEvent(logger.EventMonitoringStarted, map[string]interface{}{
		"sample_interval":   m.opts.SampleInterval.String(),
		"evaluate_interval": m.opts.EvaluateInterval.String(),
	})
	logger.Infof("[MONITOR] monitoring started")

	go m.dispatch(dctx, m.queue, m.dispatchDone)
	go m.loop(ctx, m.queue, m.loopDone)
}

// Stop ends the loop and waits for it and for any sampler call still
// running. Queued notifications get DrainTimeout in total; the rest are
// dropped. After Stop returns no sampler call is running and no alarm fires.
// Calling Stop while stopped is a no-op.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if !m.Active() {
		return
	}

	m.cancel()
	<-m.loopDone
	m.inflight <- struct{}{}
	<-m.inflight

	close(m.queue)
	select {
	case <-m.dispatchDone:
	case <-time.After(m.opts.DrainTimeout):
		logger.Warnf("[MONITOR] notifications still pending after %s, dropping the rest", m.opts.DrainTimeout)
	}
	m.dispatchCancel()

	m.mu.Lock()
	m.running = false
	m.since = time.Time{}
	m.hasLatest = false
	m.latest = models.Sample{}
	m.mu.Unlock()

	m.metrics.SetActive(false)
	m.events.LogEvent(logger.EventMonitoringStopped, nil)
	logger.Infof("[MONITOR] monitoring stopped")
}

// Shutdown stops monitoring and records the end of the program
func (m *Monitor) Shutdown() {
	m.Stop()
	m.events.LogEvent(logger.EventProgramEnded, nil)
}

// Active reports whether the loop is running
func (m *Monitor) Active() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LiveData returns the most recent sample. ok is false while stopped or
// before the first sample completes.
func (m *Monitor) LiveData() (models.Sample, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.running || !m.hasLatest {
		return models.Sample{}, false
	}
	return m.latest, true
}

// AlarmData evaluates every alarm against the latest sample (bulk path).
// It never calls the sampler.
func (m *Monitor) AlarmData() (models.Sample, []models.TriggeredAlarm) {
	sample, ok := m.LiveData()
	if !ok {
		return models.Sample{}, nil
	}
	return sample, EvaluateAll(m.store.List(), sample)
}

// History returns the newest n points per metric, empty while stopped
func (m *Monitor) History(n int) models.HistorySnapshot {
	if !m.Active() {
		return models.HistorySnapshot{}
	}
	return m.history.Snapshot(n)
}

// Alerts returns the retained warnings of the push path, newest first
func (m *Monitor) Alerts() []AlertEntry {
	return m.feed.Entries()
}

// Snapshot gathers state, latest sample, history and alerts for one refresh
func (m *Monitor) Snapshot(historyPoints int) MonitorSnapshot {
	m.mu.RLock()
	snap := MonitorSnapshot{Active: m.running, Since: m.since}
	if m.running && m.hasLatest {
		latest := m.latest
		snap.Latest = &latest
	}
	m.mu.RUnlock()

	if snap.Active {
		snap.History = m.history.Snapshot(historyPoints)
	}
	snap.Alerts = m.feed.Entries()
	return snap
}

func (m *Monitor) loop(ctx context.Context, queue chan<- models.TriggeredAlarm, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.opts.SampleInterval)
	defer ticker.Stop()

	var lastEval time.Time
	for {
		m.cycle(ctx, queue, &lastEval)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle runs sample, history update and evaluation in order
func (m *Monitor) cycle(ctx context.Context, queue chan<- models.TriggeredAlarm, lastEval *time.Time) {
	start := time.Now()
	sample, err := m.sample(ctx)
	if ctx.Err() != nil {
		return
	}

	var failed []models.ResourceType
	if err != nil {
		failed = failedResources(err)
		logger.Warnf("[MONITOR] %v", err)
		m.events.LogEvent(logger.EventSampleFailed, map[string]interface{}{"error": err.Error()})
	}
	m.metrics.ObserveSample(sample, time.Since(start), failed)

	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}
	m.history.Record(sample)

	m.mu.Lock()
	m.latest = sample
	m.hasLatest = true
	m.mu.Unlock()

	if !lastEval.IsZero() && time.Since(*lastEval) < m.opts.EvaluateInterval {
		return
	}
	*lastEval = time.Now()

	alarms := m.store.List()
	m.metrics.SetAlarmCount(len(alarms))
	for _, t := range EvaluateHighest(alarms, sample) {
		if !m.feed.Offer(t) {
			continue
		}
		m.metrics.AlarmTriggered(t.Alarm.Type)
		m.events.LogEvent(logger.EventAlarmTriggered, map[string]interface{}{
			"type":      t.Alarm.Type.String(),
			"threshold": t.Alarm.Threshold,
			"value":     t.Value,
		})
		select {
		case queue <- t:
		default:
			logger.Warnf("[MONITOR] notification queue full, dropping %s", t.Alarm)
		}
	}
}

type sampleResult struct {
	sample models.Sample
	err    error
}

// sample calls the sampler bounded by SampleTimeout. A timeout is a failure
// of every reading for this cycle. The timed out call keeps the inflight
// token until it really returns, and cycles started meanwhile fail without
// calling the sampler again.
func (m *Monitor) sample(ctx context.Context) (models.Sample, error) {
	select {
	case m.inflight <- struct{}{}:
	default:
		return models.Sample{Timestamp: time.Now()}, failAll(errSamplerBusy)
	}

	sctx, cancel := context.WithTimeout(ctx, m.opts.SampleTimeout)
	res := make(chan sampleResult, 1)
	go func() {
		defer cancel()
		s, err := m.sampler.Sample(sctx)
		<-m.inflight
		res <- sampleResult{s, err}
	}()

	select {
	case r := <-res:
		return r.sample, r.err
	case <-sctx.Done():
		if ctx.Err() != nil {
			// stopping; Stop waits for the inflight token
			return models.Sample{}, ctx.Err()
		}
		return models.Sample{Timestamp: time.Now()}, failAll(sctx.Err())
	}
}

func failAll(err error) *models.SampleError {
	failed := make(map[models.ResourceType]error, len(models.ResourceTypes))
	for _, rt := range models.ResourceTypes {
		failed[rt] = err
	}
	return &models.SampleError{Failed: failed}
}

func failedResources(err error) []models.ResourceType {
	var se *models.SampleError
	if !errors.As(err, &se) {
		return models.ResourceTypes
	}
	out := make([]models.ResourceType, 0, len(se.Failed))
	for _, rt := range models.ResourceTypes {
		if _, ok := se.Failed[rt]; ok {
			out = append(out, rt)
		}
	}
	return out
}

// dispatch delivers queued alarms until the queue is closed. Once ctx is
// cancelled the remaining alarms are dropped.
func (m *Monitor) dispatch(ctx context.Context, queue <-chan models.TriggeredAlarm, done chan<- struct{}) {
	defer close(done)
	dropped := 0
	for t := range queue {
		if ctx.Err() != nil {
			dropped++
			continue
		}
		m.deliver(ctx, t)
	}
	if dropped > 0 {
		logger.Warnf("[MONITOR] dropped %d pending notifications", dropped)
	}
}

func (m *Monitor) deliver(parent context.Context, t models.TriggeredAlarm) {
	if m.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("[MONITOR] notifier panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(parent, m.opts.NotifyTimeout)
	defer cancel()
	if err := m.notifier.Notify(ctx, t.Subject(), t.Message()); err != nil {
		logger.Errorf("[MONITOR] notification failed: %v", err)
		m.events.LogEvent(logger.EventNotificationFailed, map[string]interface{}{
			"type":      t.Alarm.Type.String(),
			"threshold": t.Alarm.Threshold,
			"error":     err.Error(),
		})
		for _, name := range failedNotifiers(err) {
			m.metrics.NotifyFailed(name)
		}
	}
}

func failedNotifiers(err error) []string {
	var names []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			names = append(names, failedNotifiers(e)...)
		}
		return names
	}
	var ne *models.NotificationError
	if errors.As(err, &ne) {
		return []string{ne.Notifier}
	}
	return []string{"unknown"}
}
