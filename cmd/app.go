package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"halmon/internal/config"
	"halmon/internal/logger"
	"halmon/internal/metrics"
	"halmon/internal/services"
)

// App wires the long-running services from configuration
type App struct {
	cfg     *config.Config
	events  *logger.EventLog
	backend services.Backend
	store   *services.AlarmStore
	watcher *services.AlarmFileWatcher
	monitor *services.Monitor
	hub     *services.AlertHub
	metrics *metrics.Metrics
}

// newApp builds the store, notifiers and monitor. withHub adds the
// websocket hub used by the HTTP API.
func newApp(cfg *config.Config, withHub bool) (*App, error) {
	a := &App{cfg: cfg}

	events, err := logger.NewEventLog(&cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	a.events = events
	a.events.LogEvent(logger.EventProgramStarted, map[string]interface{}{"pid": os.Getpid()})

	if err := a.openStore(); err != nil {
		a.events.Close()
		return nil, err
	}

	notifiers := services.MultiNotifier{services.LogNotifier{}}
	if cfg.Notify.Email.Enabled {
		notifiers = append(notifiers, services.NewEmailNotifier(cfg.Notify.Email))
	}
	if withHub {
		a.hub = services.NewAlertHub()
		notifiers = append(notifiers, a.hub)
	}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New()
	}

	a.monitor = services.NewMonitor(services.MonitorDeps{
		Sampler:  services.NewHostSampler(cfg.Monitor.CPUWindow, cfg.Monitor.DiskPath),
		Store:    a.store,
		History:  services.NewHistoryBuffer(cfg.Monitor.HistorySize),
		Notifier: notifiers,
		Events:   a.events,
		Metrics:  a.metrics,
	}, services.MonitorOptions{
		SampleInterval:   cfg.Monitor.SampleInterval,
		EvaluateInterval: cfg.Monitor.EvaluateInterval,
		SampleTimeout:    cfg.Monitor.SampleTimeout,
		NotifyTimeout:    cfg.Notify.Email.Timeout + 5*time.Second,
		AlertWindow:      cfg.Alerts.Window,
	})
	return a, nil
}

// openStore loads alarms; an unreadable store is reported and replaced by an empty one
func (a *App) openStore() error {
	backend, err := services.NewBackend(a.cfg.Store)
	if err != nil {
		return err
	}
	a.backend = backend
	a.store = services.NewAlarmStore(backend, a.events)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Load(ctx); err != nil {
		logger.Warnf("[ALARMS] %v", err)
	}
	logger.Infof("[ALARMS] loaded %d alarms from %s", a.store.Len(), backend.Name())

	if a.cfg.Store.Watch && (a.cfg.Store.Backend == "file" || a.cfg.Store.Backend == "") {
		w, err := services.NewAlarmFileWatcher(a.cfg.Store.Path, a.store)
		if err != nil {
			logger.Warnf("[ALARMS] hot reload disabled: %v", err)
		} else {
			w.Start()
			a.watcher = w
		}
	}
	return nil
}

// Close stops monitoring and releases every resource
func (a *App) Close() {
	a.monitor.Shutdown()
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			logger.Warnf("[ALARMS] watcher close: %v", err)
		}
	}
	if a.hub != nil {
		a.hub.Stop()
	}
	if rb, ok := a.backend.(*services.RedisBackend); ok {
		_ = rb.Close()
	}
	_ = a.events.Close()
}
