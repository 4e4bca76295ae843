// Package generator calls the external metrics generator, which computes a
// metric for one config and date and acknowledges the request.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const generatePath = "/api/metrics/generate"

type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryConfig
}

type Client struct {
	http  *resty.Client
	retry RetryConfig
}

type generateRequest struct {
	MetricsConfigID int64 `json:"metrics_config_id"`
	Date            int64 `json:"date"`
}

type generateResponse struct {
	Ack bool `json:"ack"`
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:  httpClient,
		retry: cfg.Retry,
	}
}

// GenerateMetric asks the generator to compute the metric of a config on a
// date. It returns true only when the generator answered 2xx with ack=true.
// Transport failures and non-2xx answers are retried; the last error is
// returned once retries are exhausted.
func (c *Client) GenerateMetric(ctx context.Context, configID, date int64) (bool, error) {
	var ack bool

	err := withRetry(ctx, c.retry, "generate metric", func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(generateRequest{MetricsConfigID: configID, Date: date}).
			Post(generatePath)
		if err != nil {
			if ctx.Err() != nil {
				return permanent(fmt.Errorf("failed to call generator: %w", ctx.Err()))
			}
			return fmt.Errorf("failed to call generator: %w", err)
		}

		if !resp.IsSuccess() {
			return fmt.Errorf("generator returned status %d", resp.StatusCode())
		}

		var out generateResponse
		if err := json.Unmarshal(resp.Body(), &out); err != nil {
			slog.Warn("unreadable generator response", "config_id", configID, "error", err)
			ack = false
			return nil
		}
		ack = out.Ack
		return nil
	})
	if err != nil {
		return false, err
	}

	slog.Debug("generator answered", "config_id", configID, "date", date, "ack", ack)
	return ack, nil
}
