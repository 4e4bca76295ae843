package models

// GenerationResult is the outcome of one generator call for one config.
type GenerationResult struct {
	ConfigID int64  `json:"config_id"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// GenerationReport aggregates a generation fan-out. Success is true only
// when every result succeeded.
type GenerationReport struct {
	Success bool               `json:"success"`
	Results []GenerationResult `json:"results"`
	Error   string             `json:"error,omitempty"`
}

type PageCreation struct {
	Page             *Page             `json:"page"`
	MetricGeneration *GenerationReport `json:"metricGeneration"`
}

type PageWithMetrics struct {
	Page    *Page    `json:"page"`
	Metrics []Metric `json:"metrics"`
}

// PageFile is a page entry inside a week bucket. Synthetic entries have no
// backing row and a tagged string id.
type PageFile struct {
	ID        string   `json:"id"`
	PageID    *int64   `json:"page_id,omitempty"`
	Name      string   `json:"name"`
	Type      PageType `json:"type"`
	Date      string   `json:"date,omitempty"`
	Synthetic bool     `json:"synthetic"`
}

type WeekBucket struct {
	ID         string     `json:"id"`
	PageID     *int64     `json:"page_id,omitempty"`
	Synthetic  bool       `json:"synthetic"`
	WeekStart  string     `json:"weekStart"`
	WeekEnd    string     `json:"weekEnd"`
	Title      string     `json:"title"`
	WeeklyFile PageFile   `json:"weeklyFile"`
	Files      []PageFile `json:"files"`
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

type Anomaly struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	CriticalityScore int         `json:"criticalityScore"`
	Description      string      `json:"description"`
	GraphImage       string      `json:"graphImage"`
	State            MetricState `json:"state"`
	Severity         Severity    `json:"severity"`
}

// PageNote is a comment or summary derived from a metric.
type PageNote struct {
	ID       string `json:"id"`
	MetricID int64  `json:"metric_id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
}

type PageDetails struct {
	Name      string     `json:"name"`
	Date      string     `json:"date"`
	Summary   string     `json:"summary"`
	Anomalies []Anomaly  `json:"anomalies"`
	Comments  []PageNote `json:"comments"`
	Summaries []PageNote `json:"summaries"`
}

type Dashboard struct {
	UID    string   `json:"uid"`
	Title  string   `json:"title"`
	URL    string   `json:"url"`
	Folder string   `json:"folder,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type ConfigPreview struct {
	ConfigID    int64       `json:"config_id"`
	Query       string      `json:"query"`
	Aggregation Aggregation `json:"aggregation"`
	Value       *float64    `json:"value"`
	EvaluatedAt int64       `json:"evaluated_at"`
}
