package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"halmon/internal/logger"
	"halmon/internal/models"
)

const persistTimeout = 5 * time.Second

// AlarmStore is the in-memory set of alarm definitions, mirrored to a Backend.
// Alarms are kept in canonical (type, threshold) order, so the position an alarm
// has in List is also its id for Remove.
type AlarmStore struct {
	mu      sync.RWMutex
	alarms  []models.Alarm
	version uint64

	// serializes backend writes; savedVersion guards against stale overwrites
	persistMu    sync.Mutex
	savedVersion uint64

	backend Backend
	events  logger.EventLogger
}

// NewAlarmStore creates an empty store. Call Load to read persisted alarms.
func NewAlarmStore(backend Backend, events logger.EventLogger) *AlarmStore {
	if events == nil {
		events = logger.NopEventLogger{}
	}
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &AlarmStore{backend: backend, events: events}
}

// Load replaces the in-memory alarms with the persisted ones. A missing record
// yields an empty store; an unreadable one also yields an empty store and the
// cause is returned as a *models.PersistenceError so the caller can report it.
func (s *AlarmStore) Load(ctx context.Context) error {
	alarms, err := s.backend.Load(ctx)
	if err != nil {
		s.replace(nil)
		logger.Warnf("[ALARMS] could not load alarms from %s, starting empty: %v", s.backend.Name(), err)
		return &models.PersistenceError{Op: "load", Err: err}
	}
	s.replace(normalize(alarms))
	return nil
}

// Reload re-reads the backend after an external change. Unlike Load, a failed
// read keeps the current alarms.
func (s *AlarmStore) Reload(ctx context.Context) error {
	alarms, err := s.backend.Load(ctx)
	if err != nil {
		return &models.PersistenceError{Op: "reload", Err: err}
	}
	alarms = normalize(alarms)

	s.mu.Lock()
	changed := !equalAlarms(s.alarms, alarms)
	if changed {
		s.alarms = alarms
		s.version++
	}
	s.mu.Unlock()

	if changed {
		s.events.LogEvent(logger.EventAlarmsReloaded, map[string]interface{}{"count": len(alarms)})
	}
	return nil
}

func (s *AlarmStore) replace(alarms []models.Alarm) {
	s.mu.Lock()
	s.alarms = alarms
	s.version++
	s.mu.Unlock()
}

// Add validates and stores a new active alarm, returning its position.
// Adding an existing (type, threshold) pair returns the existing position.
func (s *AlarmStore) Add(resource string, threshold int) (int, error) {
	idx, _, err := s.Create(resource, threshold)
	return idx, err
}

// Create is Add that also reports whether a new alarm was inserted
func (s *AlarmStore) Create(resource string, threshold int) (int, bool, error) {
	rt, err := models.ParseResourceType(resource)
	if err != nil {
		return -1, false, err
	}
	return s.insert(rt, threshold)
}

// AddAlarm is Add for an already parsed resource type
func (s *AlarmStore) AddAlarm(rt models.ResourceType, threshold int) (int, error) {
	idx, _, err := s.insert(rt, threshold)
	return idx, err
}

func (s *AlarmStore) insert(rt models.ResourceType, threshold int) (int, bool, error) {
	if !models.ValidThreshold(threshold) {
		return -1, false, fmt.Errorf("%w: got %d", models.ErrInvalidThreshold, threshold)
	}
	if !rt.Valid() {
		return -1, false, fmt.Errorf("%w: %q", models.ErrUnknownResource, rt)
	}

	alarm := models.Alarm{Type: rt, Threshold: threshold, Active: true}

	s.mu.Lock()
	idx := sort.Search(len(s.alarms), func(i int) bool { return !s.alarms[i].Less(alarm) })
	if idx < len(s.alarms) && s.alarms[idx].Key() == alarm.Key() {
		s.mu.Unlock()
		return idx, false, nil
	}
	s.alarms = append(s.alarms, models.Alarm{})
	copy(s.alarms[idx+1:], s.alarms[idx:])
	s.alarms[idx] = alarm
	s.version++
	s.mu.Unlock()

	s.events.LogEvent(logger.EventAlarmCreated, map[string]interface{}{
		"type":      rt.String(),
		"threshold": threshold,
	})
	s.persistLogged()
	return idx, true, nil
}

// Remove deletes the alarm at position idx. An out-of-range idx is not an
// error: nothing changes and false is returned.
func (s *AlarmStore) Remove(idx int) bool {
	_, ok := s.RemoveAt(idx)
	return ok
}

// RemoveAt is Remove that also returns the alarm that was deleted
func (s *AlarmStore) RemoveAt(idx int) (models.Alarm, bool) {
	s.mu.Lock()
	if idx < 0 || idx >= len(s.alarms) {
		s.mu.Unlock()
		return models.Alarm{}, false
	}
	removed := s.alarms[idx]
	s.alarms = append(s.alarms[:idx:idx], s.alarms[idx+1:]...)
	s.version++
	s.mu.Unlock()

	s.events.LogEvent(logger.EventAlarmRemoved, map[string]interface{}{
		"type":      removed.Type.String(),
		"threshold": removed.Threshold,
	})
	s.persistLogged()
	return removed, true
}

// List returns a copy of the alarms sorted by (type, threshold)
func (s *AlarmStore) List() []models.Alarm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Alarm, len(s.alarms))
	copy(out, s.alarms)
	return out
}

// Len returns the number of alarms
func (s *AlarmStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alarms)
}

// Persist writes the current alarms to the backend
func (s *AlarmStore) Persist(ctx context.Context) error {
	s.mu.RLock()
	alarms := make([]models.Alarm, len(s.alarms))
	copy(alarms, s.alarms)
	version := s.version
	s.mu.RUnlock()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if version < s.savedVersion {
		return nil
	}
	if err := s.backend.Save(ctx, alarms); err != nil {
		return &models.PersistenceError{Op: "save", Err: err}
	}
	s.savedVersion = version
	return nil
}

// persistLogged persists after a mutation. Failures are logged and the
// in-memory state stays authoritative.
func (s *AlarmStore) persistLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.Persist(ctx); err != nil {
		logger.Errorf("[ALARMS] %v", err)
		s.events.LogEvent(logger.EventAlarmsPersistFailed, map[string]interface{}{"error": err.Error()})
	}
}

// normalize drops invalid records, removes duplicates and sorts canonically
func normalize(in []models.Alarm) []models.Alarm {
	out := make([]models.Alarm, 0, len(in))
	seen := make(map[models.AlarmKey]bool, len(in))
	for _, a := range in {
		if !a.Type.Valid() || !models.ValidThreshold(a.Threshold) {
			logger.Warnf("[ALARMS] skipping invalid stored alarm %s/%d", a.Type, a.Threshold)
			continue
		}
		if seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func equalAlarms(a, b []models.Alarm) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IsUserError reports whether err is caused by bad input rather than a system failure
func IsUserError(err error) bool {
	return errors.Is(err, models.ErrInvalidThreshold) || errors.Is(err, models.ErrUnknownResource)
}
