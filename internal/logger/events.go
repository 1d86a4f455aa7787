package logger

import (
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"halmon/internal/config"
)

// Event names written to the event log
const (
	EventProgramStarted      = "Program_Started"
	EventProgramEnded        = "Program_Ended"
	EventMonitoringStarted   = "Monitoring_Started"
	EventMonitoringStopped   = "Monitoring_Stopped"
	EventAlarmCreated        = "Alarm_Created"
	EventAlarmRemoved        = "Alarm_Removed"
	EventAlarmTriggered      = "Alarm_Triggered"
	EventAlarmsReloaded      = "Alarms_Reloaded"
	EventAlarmsPersistFailed = "Alarms_Persist_Failed"
	EventSampleFailed        = "Sample_Failed"
	EventNotificationFailed  = "Notification_Failed"
)

// EventLogger records lifecycle events. Implementations must not block or fail the caller.
type EventLogger interface {
	LogEvent(event string, data map[string]interface{})
}

// EventLog writes one JSON line per event to a rotated file
type EventLog struct {
	mu     sync.Mutex
	logger *logrus.Logger
	out    io.Writer
}

// NewEventLog opens the event log described by cfg
func NewEventLog(cfg *config.EventsConfig) (*EventLog, error) {
	w, err := rotatingWriter(cfg.FilePath, cfg.MaxSize, cfg.MaxBackups, cfg.MaxAge, cfg.Compress)
	if err != nil {
		return nil, err
	}
	return NewEventLogWriter(w), nil
}

// NewEventLogWriter writes events to w
func NewEventLogWriter(w io.Writer) *EventLog {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "event",
		},
		DisableHTMLEscape: true,
	})
	return &EventLog{logger: l, out: w}
}

// LogEvent writes the event; any failure is reported to the diagnostic logger only
func (e *EventLog) LogEvent(event string, data map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			Warnf("[EVENTS] dropped %s: %v", event, r)
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger.WithFields(logrus.Fields(data)).Info(event)
}

// Close releases the underlying file
func (e *EventLog) Close() error {
	if c, ok := e.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NopEventLogger discards all events
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(string, map[string]interface{}) {}
