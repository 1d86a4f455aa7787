package services

import (
	"fmt"
	"sync"
	"time"

	"halmon/internal/models"
)

// DefaultAlertWindow is how many distinct warnings are retained
const DefaultAlertWindow = 8

// AlertEntry is one retained warning
type AlertEntry struct {
	Alarm    models.Alarm `json:"alarm"`
	Value    float64      `json:"value"`
	FiredAt  time.Time    `json:"fired_at"`
	LastSeen time.Time    `json:"last_seen"`
}

// Message formats the entry the way it is shown to the user
func (e AlertEntry) Message() string {
	return fmt.Sprintf("[%s] WARNING! %s USAGE EXCEEDS %d%%",
		e.FiredAt.Format("15:04:05"), e.Alarm.Type, e.Alarm.Threshold)
}

// AlertFeed keeps the most recent distinct warnings, newest first.
// A (type, threshold) pair already in the window is not repeated.
type AlertFeed struct {
	mu      sync.Mutex
	window  int
	entries []AlertEntry
}

func NewAlertFeed(window int) *AlertFeed {
	if window <= 0 {
		window = DefaultAlertWindow
	}
	return &AlertFeed{window: window}
}

// Offer records a triggered alarm. It returns true when the alarm is new to
// the window and should be notified; a repeat only refreshes LastSeen.
func (f *AlertFeed) Offer(t models.TriggeredAlarm) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := t.Alarm.Key()
	for i := range f.entries {
		if f.entries[i].Alarm.Key() == key {
			f.entries[i].LastSeen = t.FiredAt
			f.entries[i].Value = t.Value
			return false
		}
	}

	entry := AlertEntry{Alarm: t.Alarm, Value: t.Value, FiredAt: t.FiredAt, LastSeen: t.FiredAt}
	f.entries = append([]AlertEntry{entry}, f.entries...)
	if len(f.entries) > f.window {
		f.entries = f.entries[:f.window]
	}
	return true
}

// Entries returns a copy of the retained warnings, newest first
func (f *AlertFeed) Entries() []AlertEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AlertEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Reset clears the window
func (f *AlertFeed) Reset() {
	f.mu.Lock()
	f.entries = nil
	f.mu.Unlock()
}
