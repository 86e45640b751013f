package types

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Bearer-token auth. When the issuer URL is empty the server runs in
	// development mode and trusts the X-Party-ID header instead.
	AuthIssuerURL string `envconfig:"AUTH_ISSUER_URL"`

	// Event transport. With no brokers configured events are logged only.
	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS"`
	KafkaEventTopic string   `envconfig:"KAFKA_EVENT_TOPIC" default:"handoff-events"`
	KafkaDLQTopic   string   `envconfig:"KAFKA_DLQ_TOPIC" default:"handoff-events-dlq"`

	// Reminder sweep (24h/2h pickup reminders). Read-only; emits events.
	ReminderEnabled  bool `envconfig:"REMINDER_ENABLED" default:"true"`
	ReminderSweepSec uint `envconfig:"REMINDER_SWEEP_SEC" default:"300"`
}
