//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-risk-service/internal/broadcast"
	"github.com/couchcryptid/flood-risk-service/internal/config"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
)

const testTopic = "test-flood-updates"

// TestBroadcastRoundTrip verifies that a published risk record arrives on
// the broadcast topic with the floodUpdate event headers intact.
func TestBroadcastRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}

	writer := broadcast.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	ts := time.Date(2026, time.February, 3, 14, 0, 0, 0, time.UTC)
	rec := domain.RiskRecord{
		ID:           21,
		Timestamp:    ts,
		Location:     domain.Coordinates{Lat: -6.2088, Lng: 106.8456},
		Rainfall:     45,
		WaterLevel:   4.2,
		SoilMoisture: 0.7,
		DataSource: domain.Provenance{
			Rainfall:     "open-meteo",
			WaterLevel:   "river-gauge",
			SoilMoisture: domain.FallbackSource,
		},
		Prediction: 78,
		RiskLevel:  domain.RiskHigh,
	}
	require.NoError(t, writer.Publish(ctx, rec))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from broadcast topic")

	assert.Equal(t, []byte("21"), msg.Key)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, broadcast.EventName, headers["event"])
	assert.Equal(t, domain.RiskHigh, headers["risk_level"])
	observedAt, err := time.Parse(time.RFC3339, headers["observed_at"])
	require.NoError(t, err, "observed_at should be valid RFC3339")
	assert.True(t, observedAt.Equal(ts))

	var got domain.RiskRecord
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, int64(21), got.ID)
	assert.Equal(t, 78, got.Prediction)
	assert.Equal(t, domain.RiskHigh, got.RiskLevel)
	assert.Equal(t, domain.FallbackSource, got.DataSource.SoilMoisture)
	assert.False(t, got.SentAlert)
}
