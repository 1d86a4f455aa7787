package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidThreshold is returned when a threshold is outside [1,100]
	ErrInvalidThreshold = errors.New("invalid threshold: must be between 1 and 100")

	// ErrUnknownResource is returned for resource names other than cpu, memory or disk
	ErrUnknownResource = errors.New("unknown resource type")
)

// SampleError reports which readings of a sample could not be taken.
// The readings that did succeed are still present on the returned Sample.
type SampleError struct {
	Failed map[ResourceType]error
}

func (e *SampleError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, rt := range ResourceTypes {
		if err, ok := e.Failed[rt]; ok {
			parts = append(parts, fmt.Sprintf("%s: %v", rt, err))
		}
	}
	return "sample failed (" + strings.Join(parts, "; ") + ")"
}

func (e *SampleError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, rt := range ResourceTypes {
		if err, ok := e.Failed[rt]; ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// PersistenceError wraps a failed write or read of the alarm store
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("alarm store %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError wraps a failed delivery through one notifier
type NotificationError struct {
	Notifier string
	Err      error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notifier %s: %v", e.Notifier, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
