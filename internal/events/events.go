// Package events publishes domain events about pages and metrics so other
// systems can react without polling the API.
package events

import (
	"context"
	"time"
)

const (
	TypePageCreated         = "page.created"
	TypeMetricStateChanged  = "metric.state_changed"
	TypeGenerationCompleted = "metrics.generation_completed"
	schemaVersion           = 1
)

type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

type PageCreated struct {
	PageID    int64  `json:"page_id"`
	ServiceID int64  `json:"service_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Date      *int64 `json:"date,omitempty"`
}

type MetricStateChanged struct {
	MetricID int64  `json:"metric_id"`
	ConfigID int64  `json:"metrics_config_id"`
	State    string `json:"state"`
}

type GenerationCompleted struct {
	Scope      string  `json:"scope"`
	ServiceIDs []int64 `json:"service_ids,omitempty"`
	Date       int64   `json:"date"`
	Total      int     `json:"total"`
	Failed     int     `json:"failed"`
}
