package models

import (
	"strings"
	"time"
)

type PageType string

const (
	PageTypeDaily  PageType = "DAILY"
	PageTypeWeekly PageType = "WEEKLY"
)

func (t PageType) Valid() bool {
	return t == PageTypeDaily || t == PageTypeWeekly
}

type MetricState string

const (
	MetricStateResolved     MetricState = "RESOLVED"
	MetricStateUnresolved   MetricState = "UNRESOLVED"
	MetricStateNotOurIssue  MetricState = "NOT_OUR_ISSUE"
	MetricStateAcknowledged MetricState = "ACKNOWLEDGED"
)

var metricStates = []MetricState{
	MetricStateResolved,
	MetricStateUnresolved,
	MetricStateNotOurIssue,
	MetricStateAcknowledged,
}

// ParseMetricState matches s against the state names, ignoring case.
func ParseMetricState(s string) (MetricState, bool) {
	for _, st := range metricStates {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

type Aggregation string

const (
	AggregationSum     Aggregation = "SUM"
	AggregationAverage Aggregation = "AVERAGE"
)

func (a Aggregation) Valid() bool {
	return a == AggregationSum || a == AggregationAverage
}

type Service struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"service_name" json:"service_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ServiceSummary is the list shape of a service.
type ServiceSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Page struct {
	ID              int64     `db:"id" json:"id"`
	ServiceID       int64     `db:"service_id" json:"service_id"`
	Name            string    `db:"name" json:"name"`
	Type            PageType  `db:"type" json:"type"`
	ParentID        *int64    `db:"parent_id" json:"parent_id,omitempty"`
	Heading         *string   `db:"heading" json:"heading,omitempty"`
	Date            *int64    `db:"date" json:"date,omitempty"`
	OpsgenieSummary *string   `db:"opsgenie_summary" json:"opsgenie_summary,omitempty"`
	MetricSummary   *string   `db:"metric_summary" json:"metric_summary,omitempty"`
	Annotations     *string   `db:"annotations" json:"annotations,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

type PageUpdate struct {
	ParentID        *int64  `json:"parent_id"`
	Heading         *string `json:"heading"`
	OpsgenieSummary *string `json:"opsgenie_summary"`
	MetricSummary   *string `json:"metric_summary"`
	Annotations     *string `json:"annotations"`
}

func (u PageUpdate) Empty() bool {
	return u.ParentID == nil && u.Heading == nil && u.OpsgenieSummary == nil &&
		u.MetricSummary == nil && u.Annotations == nil
}

type PageFilter struct {
	ServiceID *int64
	Type      *PageType
	ParentID  *int64
	Limit     int
	Offset    int
}

type MetricsConfig struct {
	ID          int64       `db:"id" json:"id"`
	PromQLName  string      `db:"promql_name" json:"promql_name"`
	Name        string      `db:"name" json:"name"`
	Description *string     `db:"description" json:"description,omitempty"`
	ServiceID   int64       `db:"service_id" json:"service_id"`
	Aggregation Aggregation `db:"aggregation" json:"aggregation"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

type MetricsConfigUpdate struct {
	PromQLName  *string      `json:"promql_name"`
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	ServiceID   *int64       `json:"service_id"`
	Aggregation *Aggregation `json:"aggregation"`
}

func (u MetricsConfigUpdate) Empty() bool {
	return u.PromQLName == nil && u.Name == nil && u.Description == nil &&
		u.ServiceID == nil && u.Aggregation == nil
}

type Metric struct {
	ID               int64        `db:"id" json:"id"`
	MetricsConfigID  int64        `db:"metrics_config_id" json:"metrics_config_id"`
	Name             *string      `db:"name" json:"name,omitempty"`
	Date             *int64       `db:"date" json:"date,omitempty"`
	State            *MetricState `db:"state" json:"state,omitempty"`
	ImageURL         *string      `db:"image_url" json:"image_url,omitempty"`
	SummaryText      *string      `db:"summary_text" json:"summary_text,omitempty"`
	Comment          *string      `db:"comment" json:"comment,omitempty"`
	Value            *float64     `db:"value" json:"value,omitempty"`
	CriticalityScore *int         `db:"criticality_score" json:"criticalityScore,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`
}

// MetricUpdate carries the fields of a partial metric update. A nil field
// is left unchanged.
type MetricUpdate struct {
	MetricsConfigID  *int64       `json:"metrics_config_id"`
	Name             *string      `json:"name"`
	Date             *int64       `json:"date"`
	State            *MetricState `json:"state"`
	ImageURL         *string      `json:"image_url"`
	SummaryText      *string      `json:"summary_text"`
	Comment          *string      `json:"comment"`
	Value            *float64     `json:"value"`
	CriticalityScore *int         `json:"criticalityScore"`
}

func (u MetricUpdate) Empty() bool {
	return u.MetricsConfigID == nil && u.Name == nil && u.Date == nil && u.State == nil &&
		u.ImageURL == nil && u.SummaryText == nil && u.Comment == nil && u.Value == nil &&
		u.CriticalityScore == nil
}

type MetricFilter struct {
	MetricsConfigID *int64
	State           *MetricState
	DateFrom        *int64
	DateTo          *int64
	Limit           int
	Offset          int
}

type ActionItem struct {
	ID        int64     `db:"id" json:"id"`
	JiraLink  *string   `db:"jira_link" json:"jira_link,omitempty"`
	MetricID  int64     `db:"metric_id" json:"metric_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type ActionItemUpdate struct {
	JiraLink *string `json:"jira_link"`
	MetricID *int64  `json:"metric_id"`
}

type User struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type UserUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type Product struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Price       float64   `db:"price" json:"price"`
	Category    *string   `db:"category" json:"category,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

type ProductUpdate struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
}

type ListOptions struct {
	Limit  int
	Offset int
}
