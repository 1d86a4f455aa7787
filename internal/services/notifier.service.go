package services

import (
	"context"
	"errors"

	"halmon/internal/logger"
	"halmon/internal/models"
)

// Notifier delivers one alarm message to the user
type Notifier interface {
	Name() string
	Notify(ctx context.Context, subject, body string) error
}

// MultiNotifier fans out to every notifier and joins their failures
type MultiNotifier []Notifier

func (m MultiNotifier) Name() string { return "multi" }

func (m MultiNotifier) Notify(ctx context.Context, subject, body string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, subject, body); err != nil {
			var ne *models.NotificationError
			if !errors.As(err, &ne) {
				err = &models.NotificationError{Notifier: n.Name(), Err: err}
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes the warning to the diagnostic log
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(ctx context.Context, subject, body string) error {
	logger.Warnf("[ALARM] %s: %s", subject, body)
	return nil
}
