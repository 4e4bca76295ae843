package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/illenko/opspages/internal/models"
)

const metricColumns = `id, metrics_config_id, name, date, state, image_url, summary_text,
	comment, value, criticality_score, created_at, updated_at`

type MetricsRepository struct {
	db *DB
}

func NewMetricsRepository(db *DB) *MetricsRepository {
	return &MetricsRepository{db: db}
}

func (r *MetricsRepository) Create(ctx context.Context, m *models.Metric) (*models.Metric, error) {
	query := `
		INSERT INTO metrics (metrics_config_id, name, date, state, image_url, summary_text, comment, value, criticality_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + metricColumns
	var created models.Metric
	err := r.db.conn.GetContext(ctx, &created, query,
		m.MetricsConfigID,
		m.Name,
		m.Date,
		m.State,
		m.ImageURL,
		m.SummaryText,
		m.Comment,
		m.Value,
		m.CriticalityScore,
	)
	if err != nil {
		return nil, wrapErr("create metric", err)
	}
	return &created, nil
}

func (r *MetricsRepository) Get(ctx context.Context, id int64) (*models.Metric, error) {
	var m models.Metric
	err := r.db.conn.GetContext(ctx, &m, "SELECT "+metricColumns+" FROM metrics WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get metric", err)
	}
	return &m, nil
}

func (r *MetricsRepository) List(ctx context.Context, f models.MetricFilter) ([]models.Metric, error) {
	var w whereBuilder
	if f.MetricsConfigID != nil {
		w.add("metrics_config_id = $%d", *f.MetricsConfigID)
	}
	if f.State != nil {
		w.add("state = $%d", *f.State)
	}
	if f.DateFrom != nil {
		w.add("date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		w.add("date <= $%d", *f.DateTo)
	}
	query := "SELECT " + metricColumns + " FROM metrics" + w.clause() + " ORDER BY created_at DESC"
	query += w.paginate(f.Limit, f.Offset)

	metrics := []models.Metric{}
	if err := r.db.conn.SelectContext(ctx, &metrics, query, w.args...); err != nil {
		return nil, wrapErr("list metrics", err)
	}
	return metrics, nil
}

// ListByConfigsAndDate returns the metrics of any of the given configs
// observed exactly on date.
func (r *MetricsRepository) ListByConfigsAndDate(ctx context.Context, configIDs []int64, date int64) ([]models.Metric, error) {
	metrics := []models.Metric{}
	if len(configIDs) == 0 {
		return metrics, nil
	}

	query := "SELECT " + metricColumns + " FROM metrics WHERE metrics_config_id = ANY($1) AND date = $2 ORDER BY id"
	if err := r.db.conn.SelectContext(ctx, &metrics, query, pq.Array(configIDs), date); err != nil {
		return nil, wrapErr("list metrics by configs and date", err)
	}
	return metrics, nil
}

func (r *MetricsRepository) Update(ctx context.Context, id int64, u models.MetricUpdate) (*models.Metric, error) {
	var b updateBuilder
	if u.MetricsConfigID != nil {
		b.set("metrics_config_id", *u.MetricsConfigID)
	}
	if u.Name != nil {
		b.set("name", *u.Name)
	}
	if u.Date != nil {
		b.set("date", *u.Date)
	}
	if u.State != nil {
		b.set("state", *u.State)
	}
	if u.ImageURL != nil {
		b.set("image_url", *u.ImageURL)
	}
	if u.SummaryText != nil {
		b.set("summary_text", *u.SummaryText)
	}
	if u.Comment != nil {
		b.set("comment", *u.Comment)
	}
	if u.Value != nil {
		b.set("value", *u.Value)
	}
	if u.CriticalityScore != nil {
		b.set("criticality_score", *u.CriticalityScore)
	}
	if b.empty() {
		m, err := r.Get(ctx, id)
		if err == nil && m == nil {
			err = wrapErr("update metric", sql.ErrNoRows)
		}
		return m, err
	}

	query, args := b.build("metrics", id, metricColumns)
	var m models.Metric
	if err := r.db.conn.GetContext(ctx, &m, query, args...); err != nil {
		return nil, wrapErr("update metric", err)
	}
	return &m, nil
}

func (r *MetricsRepository) Delete(ctx context.Context, id int64) error {
	return r.db.deleteByID(ctx, "metrics", id)
}
