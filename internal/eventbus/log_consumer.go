package eventbus

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/matthewbaird/entityui/internal/event"
	"github.com/matthewbaird/entityui/internal/logging"
)

// LogConsumer logs all events for observability. Error toasts log at warn.
type LogConsumer struct {
	log logrus.FieldLogger
}

func NewLogConsumer(log logrus.FieldLogger) *LogConsumer {
	return &LogConsumer{log: logging.OrDiscard(log).WithField("component", "events")}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.Event) error {
	l := c.log.WithFields(logrus.Fields{
		"event":   evt.Type,
		"entity":  evt.Entity,
		"session": evt.Session,
		"level":   evt.Level,
	})
	if evt.Level == event.LevelError {
		l.Warn(evt.Summary)
		return nil
	}
	l.Info(evt.Summary)
	return nil
}
