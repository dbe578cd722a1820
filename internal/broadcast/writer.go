// Package broadcast publishes risk records as floodUpdate events.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

// EventName identifies a flood-update broadcast to consumers.
const EventName = "floodUpdate"

// Writer publishes risk records to the broadcast Kafka topic. Delivery is
// fire-and-forget from the pipeline's perspective: the publisher returns the
// error for logging and metrics, nothing downstream of a failed publish is
// retried.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured broadcast topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one record and writes it to the broadcast topic.
func (w *Writer) Publish(ctx context.Context, rec domain.RiskRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a risk record into a Kafka message keyed by
// record id.
func serializeToMessage(rec domain.RiskRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(rec.ID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event", Value: []byte(EventName)},
			{Key: "risk_level", Value: []byte(rec.RiskLevel)},
			{Key: "observed_at", Value: []byte(rec.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
