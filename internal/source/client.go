// Package source acquires the three environmental signals from their
// external providers. Every client degrades to its fixed fallback constant
// on any failure: a dead provider weakens the signal, it never aborts a
// cycle, so Fetch deliberately has no error return.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
)

// Client fetches one signal. Fetch never fails; failures surface only
// through the Reading's fallback provenance.
type Client interface {
	Signal() string
	Fetch(ctx context.Context) domain.Reading
}

// fetchFunc performs one provider request and extracts the numeric value.
type fetchFunc func(ctx context.Context) (float64, error)

// client wraps a provider-specific fetch with the shared fallback, logging,
// and metrics behavior.
type client struct {
	signal   string
	provider string
	fallback float64
	fetch    fetchFunc
	logger   *slog.Logger
	metrics  *observability.Metrics
}

func (c *client) Signal() string { return c.signal }

func (c *client) Fetch(ctx context.Context) domain.Reading {
	start := time.Now()
	value, err := c.fetch(ctx)
	c.metrics.SourceFetchSeconds.WithLabelValues(c.signal).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Warn("signal fetch failed, using fallback",
			"signal", c.signal, "provider", c.provider, "fallback", c.fallback, "error", err)
		c.metrics.SourceFetches.WithLabelValues(c.signal, "fallback").Inc()
		return domain.Reading{Value: c.fallback, Source: domain.FallbackSource}
	}

	c.metrics.SourceFetches.WithLabelValues(c.signal, "ok").Inc()
	return domain.Reading{Value: value, Source: c.provider}
}

// getJSON issues one GET and decodes the 2xx body into v.
func getJSON(ctx context.Context, httpClient *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("provider error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
