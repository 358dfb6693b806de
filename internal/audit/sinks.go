package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cruce/internal/platform/kafka/producer"
	audit "cruce/pkg/platform/audit"
)

// kafkaEvent is the wire form of an audit event on the Kafka topic.
type kafkaEvent struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	RequestID   string    `json:"request_id"`
	SubjectHash string    `json:"subject_hash,omitempty"`
	Decision    string    `json:"decision,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ClientIP    string    `json:"client_ip,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
	Device      string    `json:"device,omitempty"`
}

// KafkaSink forwards audit events to a Kafka topic, keyed by request ID so
// one submission's events land in order on one partition.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
}

// NewKafkaSink wraps a connected producer.
func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Write(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(kafkaEvent{
		ID:          event.ID,
		Category:    string(event.Category),
		Timestamp:   event.Timestamp,
		Action:      event.Action,
		RequestID:   event.RequestID,
		SubjectHash: event.SubjectHash,
		Decision:    event.Decision,
		Reason:      event.Reason,
		ClientIP:    event.ClientIP,
		UserAgent:   event.UserAgent,
		Device:      event.Device,
	})
	if err != nil {
		return err
	}
	return s.producer.Produce(ctx, s.topic, []byte(event.RequestID), payload)
}

// LogSink mirrors audit events into the structured log, which keeps the
// trail visible in environments without Kafka.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds a sink over the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(ctx context.Context, event audit.Event) error {
	s.logger.InfoContext(ctx, "audit event",
		slog.String("event_id", event.ID),
		slog.String("category", string(event.Category)),
		slog.String("action", event.Action),
		slog.String("request_id", event.RequestID),
		slog.String("decision", event.Decision),
		slog.String("reason", event.Reason),
	)
	return nil
}
