package models

import (
	"fmt"
	"time"
)

const (
	MinThreshold = 1
	MaxThreshold = 100
)

// Alarm is a user-defined threshold on one resource
type Alarm struct {
	Type      ResourceType `json:"type"`
	Threshold int          `json:"threshold"`
	Active    bool         `json:"active"`
}

// AlarmKey identifies an alarm for de-duplication
type AlarmKey struct {
	Type      ResourceType
	Threshold int
}

func (a Alarm) Key() AlarmKey {
	return AlarmKey{Type: a.Type, Threshold: a.Threshold}
}

func (a Alarm) String() string {
	return fmt.Sprintf("%s Usage > %d%%", a.Type.Label(), a.Threshold)
}

// Less orders alarms by resource type, then threshold
func (a Alarm) Less(b Alarm) bool {
	if a.Type != b.Type {
		return a.Type.Order() < b.Type.Order()
	}
	return a.Threshold < b.Threshold
}

// ValidThreshold reports whether t is within [MinThreshold, MaxThreshold]
func ValidThreshold(t int) bool {
	return t >= MinThreshold && t <= MaxThreshold
}

// TriggeredAlarm is produced when a sample meets or exceeds an alarm threshold
type TriggeredAlarm struct {
	Alarm   Alarm     `json:"alarm"`
	Value   float64   `json:"value"`
	Sample  Sample    `json:"-"`
	FiredAt time.Time `json:"fired_at"`
}

// Subject is the notification subject line
func (t TriggeredAlarm) Subject() string {
	return fmt.Sprintf("%s usage alarm", t.Alarm.Type)
}

// Message is the warning text shown to the user and used as notification body
func (t TriggeredAlarm) Message() string {
	return fmt.Sprintf("WARNING! %s USAGE EXCEEDS %d%% (current %.1f%%)",
		t.Alarm.Type, t.Alarm.Threshold, t.Value)
}
