// Package producer wraps a franz-go client for publishing audit events.
package producer

import (
	"context"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	dErrors "cruce/pkg/domain-errors"
)

// Config holds the Kafka connection settings.
type Config struct {
	Brokers  []string
	ClientID string
}

// Producer publishes records synchronously. Callers that need buffering put
// it behind the audit publisher, which already owns an async queue.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// New builds a producer for the configured brokers. The connection itself is
// established lazily on the first produce.
func New(cfg Config, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "kafka producer requires at least one broker")
	}
	if logger == nil {
		logger = slog.Default()
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "cruce"
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(clientID),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "connect kafka")
	}

	logger.Info("kafka producer ready",
		slog.Int("brokers", len(cfg.Brokers)),
		slog.String("client_id", clientID),
	)
	return &Producer{client: client, logger: logger}, nil
}

// Produce sends a single record and waits for the broker acknowledgement.
func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   key,
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "produce record")
	}
	return nil
}

// Close flushes buffered records and releases the connection.
func (p *Producer) Close() {
	p.client.Close()
}
