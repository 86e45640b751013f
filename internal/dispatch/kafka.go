package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// maxPublishAttempts bounds delivery retries before an event is routed to
// the DLQ topic for manual inspection and replay.
const maxPublishAttempts = 3

// messageWriter is the slice of *kafka.Writer the dispatcher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes event envelopes to a Kafka topic. Publishing
// happens off the caller's goroutine; failed events land on a DLQ topic so a
// broker outage never blocks or fails a state transition. Close waits for
// in-flight publishes before closing the writers.
type KafkaDispatcher struct {
	writer  messageWriter
	dlq     messageWriter
	logger  *logrus.Logger
	backoff time.Duration
	wg      sync.WaitGroup
}

func NewKafkaDispatcher(brokers []string, topic, dlqTopic string, logger *logrus.Logger) *KafkaDispatcher {
	return &KafkaDispatcher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		dlq: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        dlqTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		logger:  logger,
		backoff: 500 * time.Millisecond,
	}
}

func (d *KafkaDispatcher) Emit(_ context.Context, eventType string, payload any) {
	event := newEnvelope(eventType, payload)

	body, err := json.Marshal(event)
	if err != nil {
		d.logger.WithError(err).WithField("event_type", eventType).Error("failed to marshal event")
		return
	}

	// Detach from the request context: the triggering transition is already
	// committed and must not wait on the broker.
	d.wg.Add(1)
	go d.publish(event.ID, eventType, body)
}

func (d *KafkaDispatcher) publish(eventID, eventType string, body []byte) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(eventID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}

	var lastErr error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		lastErr = d.writer.WriteMessages(ctx, msg)
		if lastErr == nil {
			return
		}

		d.logger.WithError(lastErr).WithFields(logrus.Fields{
			"event_id":   eventID,
			"event_type": eventType,
			"attempt":    attempt,
		}).Warn("event publish failed")

		time.Sleep(time.Duration(attempt) * d.backoff)
	}

	if err := d.dlq.WriteMessages(ctx, msg); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"event_id":   eventID,
			"event_type": eventType,
		}).Error("event lost: DLQ write failed")
		return
	}

	d.logger.WithFields(logrus.Fields{
		"event_id":   eventID,
		"event_type": eventType,
	}).WithError(lastErr).Error("event routed to DLQ")
}

// Close drains in-flight publishes, then closes both writers.
func (d *KafkaDispatcher) Close() error {
	d.wg.Wait()

	if err := d.writer.Close(); err != nil {
		return err
	}
	return d.dlq.Close()
}
