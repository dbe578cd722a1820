package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// openMeteoHourlyResponse is the subset of the Open-Meteo forecast response
// used for topsoil moisture. The hourly series covers the current day; the
// last sample is the freshest.
type openMeteoHourlyResponse struct {
	Hourly struct {
		SoilMoisture []float64 `json:"soil_moisture_0_to_1cm"`
	} `json:"hourly"`
}

// NewSoilMoisture builds the soil-moisture client: Open-Meteo volumetric
// topsoil moisture (fraction in [0,1]) for the monitored location,
// fallback 0.5.
func NewSoilMoisture(baseURL string, loc domain.Coordinates, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) Client {
	httpClient := &http.Client{Timeout: timeout}

	return &client{
		signal:   "soil_moisture",
		provider: openMeteoProvider,
		fallback: domain.FallbackSoilMoisture,
		logger:   logger,
		metrics:  metrics,
		fetch: func(ctx context.Context) (float64, error) {
			params := url.Values{
				"latitude":      {fmt.Sprintf("%.4f", loc.Lat)},
				"longitude":     {fmt.Sprintf("%.4f", loc.Lng)},
				"hourly":        {"soil_moisture_0_to_1cm"},
				"forecast_days": {"1"},
			}

			var resp openMeteoHourlyResponse
			if err := getJSON(ctx, httpClient, baseURL+"?"+params.Encode(), &resp); err != nil {
				return 0, err
			}
			samples := resp.Hourly.SoilMoisture
			if len(samples) == 0 {
				return 0, fmt.Errorf("response missing hourly.soil_moisture_0_to_1cm")
			}
			return samples[len(samples)-1], nil
		},
	}
}
