package dispatch

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogDispatcher writes events to the structured log only. Used in
// development and as the fallback when no brokers are configured.
type LogDispatcher struct {
	logger *logrus.Logger
}

func NewLogDispatcher(logger *logrus.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Emit(_ context.Context, eventType string, payload any) {
	event := newEnvelope(eventType, payload)

	d.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"payload":    event.Payload,
	}).Info("domain event")
}
