// Package prometheus evaluates metric config queries against a Prometheus
// server for previews and health reporting.
package prometheus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

type Client struct {
	api     v1.API
	timeout time.Duration
}

type Config struct {
	URL      string
	Username string
	Password string
	Timeout  time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	apiCfg := api.Config{
		Address: cfg.URL,
	}

	if cfg.Username != "" && cfg.Password != "" {
		apiCfg.RoundTripper = &basicAuthTransport{
			username: cfg.Username,
			password: cfg.Password,
		}
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	return &Client{
		api:     v1.NewAPI(client),
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, err := c.api.Runtimeinfo(ctx)
	if err != nil {
		return fmt.Errorf("prometheus health check failed: %w", err)
	}
	return nil
}

// QueryScalar runs an instant query at the given time and reduces the result
// to one number. Vectors are summed; an empty result yields nil.
func (c *Client) QueryScalar(ctx context.Context, expr string, at time.Time) (*float64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	result, warnings, err := c.api.Query(ctx, expr, at)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", expr, err)
	}
	for _, w := range warnings {
		slog.Warn("prometheus query warning", "query", expr, "warning", w)
	}

	return reduce(result), nil
}

func reduce(v model.Value) *float64 {
	switch r := v.(type) {
	case *model.Scalar:
		return finite(float64(r.Value))
	case model.Vector:
		if len(r) == 0 {
			return nil
		}
		var total float64
		for _, s := range r {
			total += float64(s.Value)
		}
		return finite(total)
	default:
		return nil
	}
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}
