// Package grafana looks up the dashboards that belong to a service.
package grafana

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/grafana/grafana-openapi-client-go/client"
	"github.com/grafana/grafana-openapi-client-go/client/search"

	"github.com/illenko/opspages/internal/models"
)

const searchLimit = 100

type Client struct {
	api     *client.GrafanaHTTPAPI
	baseURL string
	timeout time.Duration
}

type Config struct {
	URL      string
	APIToken string
	Username string
	Password string
	Timeout  time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid grafana URL: %w", err)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid grafana URL: missing host in %q", cfg.URL)
	}

	scheme := parsedURL.Scheme
	if scheme == "" {
		scheme = "http"
	}

	transportCfg := client.DefaultTransportConfig().
		WithHost(parsedURL.Host).
		WithSchemes([]string{scheme})

	if cfg.APIToken != "" {
		transportCfg.APIKey = cfg.APIToken
	} else if cfg.Username != "" && cfg.Password != "" {
		transportCfg.BasicAuth = url.UserPassword(cfg.Username, cfg.Password)
	}

	api := client.NewHTTPClientWithConfig(nil, transportCfg)

	return &Client{
		api:     api,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		timeout: cfg.Timeout,
	}, nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	params := search.NewSearchParams().WithContext(ctx).WithLimit(ptr(int64(1)))
	if c.timeout > 0 {
		params = params.WithTimeout(c.timeout)
	}
	_, err := c.api.Search.Search(params)
	if err != nil {
		return fmt.Errorf("grafana health check failed: %w", err)
	}
	return nil
}

// SearchDashboards returns dashboards whose title matches query.
func (c *Client) SearchDashboards(ctx context.Context, query string) ([]models.Dashboard, error) {
	params := search.NewSearchParams().
		WithContext(ctx).
		WithQuery(ptr(query)).
		WithType(ptr("dash-db")).
		WithLimit(ptr(int64(searchLimit)))
	if c.timeout > 0 {
		params = params.WithTimeout(c.timeout)
	}

	resp, err := c.api.Search.Search(params)
	if err != nil {
		return nil, fmt.Errorf("failed to search dashboards for %q: %w", query, err)
	}

	results := make([]models.Dashboard, 0, len(resp.GetPayload()))
	for _, hit := range resp.GetPayload() {
		results = append(results, models.Dashboard{
			UID:    hit.UID,
			Title:  hit.Title,
			URL:    c.absoluteURL(hit.URL),
			Folder: hit.FolderTitle,
			Tags:   hit.Tags,
		})
	}

	return results, nil
}

func (c *Client) absoluteURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http") {
		return path
	}
	return c.baseURL + path
}

func ptr[T any](v T) *T {
	return &v
}
