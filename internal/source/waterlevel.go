package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

const riverGaugeProvider = "river-gauge"

// riverGaugeResponse is the gauge service's level reading. WaterLevel is a
// pointer so an empty body is not mistaken for a dry river.
type riverGaugeResponse struct {
	Station    string   `json:"station"`
	WaterLevel *float64 `json:"water_level"`
	Unit       string   `json:"unit"`
}

// NewWaterLevel builds the river water-level client: gauge height in metres
// from the configured gauge endpoint, fallback 2.1.
func NewWaterLevel(gaugeURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) Client {
	httpClient := &http.Client{Timeout: timeout}

	return &client{
		signal:   "water_level",
		provider: riverGaugeProvider,
		fallback: domain.FallbackWaterLevel,
		logger:   logger,
		metrics:  metrics,
		fetch: func(ctx context.Context) (float64, error) {
			var resp riverGaugeResponse
			if err := getJSON(ctx, httpClient, gaugeURL, &resp); err != nil {
				return 0, err
			}
			if resp.WaterLevel == nil {
				return 0, fmt.Errorf("response missing water_level")
			}
			return *resp.WaterLevel, nil
		},
	}
}
