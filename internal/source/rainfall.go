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

const openMeteoProvider = "open-meteo"

// openMeteoCurrentResponse is the subset of the Open-Meteo forecast response
// used for current precipitation. The field is a pointer so a response that
// omits it is distinguishable from a measured zero.
type openMeteoCurrentResponse struct {
	Current struct {
		Precipitation *float64 `json:"precipitation"`
	} `json:"current"`
}

// NewRainfall builds the rainfall client: Open-Meteo current precipitation
// in mm for the monitored location, fallback 0.
func NewRainfall(baseURL string, loc domain.Coordinates, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) Client {
	httpClient := &http.Client{Timeout: timeout}

	return &client{
		signal:   "rainfall",
		provider: openMeteoProvider,
		fallback: domain.FallbackRainfall,
		logger:   logger,
		metrics:  metrics,
		fetch: func(ctx context.Context) (float64, error) {
			params := url.Values{
				"latitude":  {fmt.Sprintf("%.4f", loc.Lat)},
				"longitude": {fmt.Sprintf("%.4f", loc.Lng)},
				"current":   {"precipitation"},
			}

			var resp openMeteoCurrentResponse
			if err := getJSON(ctx, httpClient, baseURL+"?"+params.Encode(), &resp); err != nil {
				return 0, err
			}
			if resp.Current.Precipitation == nil {
				return 0, fmt.Errorf("response missing current.precipitation")
			}
			return *resp.Current.Precipitation, nil
		},
	}
}
