package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/illenko/opspages/internal/models"
)

const metricsConfigColumns = "id, promql_name, name, description, service_id, aggregation, created_at, updated_at"

type MetricsConfigFilter struct {
	ServiceID  *int64
	PromQLName *string
	Limit      int
	Offset     int
}

type MetricConfigsRepository struct {
	db *DB
}

func NewMetricConfigsRepository(db *DB) *MetricConfigsRepository {
	return &MetricConfigsRepository{db: db}
}

func (r *MetricConfigsRepository) Create(ctx context.Context, c *models.MetricsConfig) (*models.MetricsConfig, error) {
	query := `
		INSERT INTO metrics_config (promql_name, name, description, service_id, aggregation)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + metricsConfigColumns
	var created models.MetricsConfig
	err := r.db.conn.GetContext(ctx, &created, query,
		c.PromQLName,
		c.Name,
		c.Description,
		c.ServiceID,
		c.Aggregation,
	)
	if err != nil {
		return nil, wrapErr("create metrics config", err)
	}
	return &created, nil
}

func (r *MetricConfigsRepository) List(ctx context.Context, f MetricsConfigFilter) ([]models.MetricsConfig, error) {
	var w whereBuilder
	if f.ServiceID != nil {
		w.add("service_id = $%d", *f.ServiceID)
	}
	if f.PromQLName != nil {
		w.add("promql_name = $%d", *f.PromQLName)
	}
	query := "SELECT " + metricsConfigColumns + " FROM metrics_config" + w.clause() + " ORDER BY id"
	query += w.paginate(f.Limit, f.Offset)

	configs := []models.MetricsConfig{}
	if err := r.db.conn.SelectContext(ctx, &configs, query, w.args...); err != nil {
		return nil, wrapErr("list metrics configs", err)
	}
	return configs, nil
}

func (r *MetricConfigsRepository) ListByService(ctx context.Context, serviceID int64) ([]models.MetricsConfig, error) {
	return r.List(ctx, MetricsConfigFilter{ServiceID: &serviceID})
}

func (r *MetricConfigsRepository) ListByServices(ctx context.Context, serviceIDs []int64) ([]models.MetricsConfig, error) {
	configs := []models.MetricsConfig{}
	if len(serviceIDs) == 0 {
		return configs, nil
	}
	query := "SELECT " + metricsConfigColumns + " FROM metrics_config WHERE service_id = ANY($1) ORDER BY id"
	if err := r.db.conn.SelectContext(ctx, &configs, query, pq.Array(serviceIDs)); err != nil {
		return nil, wrapErr("list metrics configs by services", err)
	}
	return configs, nil
}

func (r *MetricConfigsRepository) Get(ctx context.Context, id int64) (*models.MetricsConfig, error) {
	return r.getOne(ctx, "SELECT "+metricsConfigColumns+" FROM metrics_config WHERE id = $1", id)
}

func (r *MetricConfigsRepository) GetByPromQLName(ctx context.Context, name string) (*models.MetricsConfig, error) {
	return r.getOne(ctx, "SELECT "+metricsConfigColumns+" FROM metrics_config WHERE promql_name = $1", name)
}

func (r *MetricConfigsRepository) getOne(ctx context.Context, query string, arg any) (*models.MetricsConfig, error) {
	var c models.MetricsConfig
	err := r.db.conn.GetContext(ctx, &c, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get metrics config", err)
	}
	return &c, nil
}

func (r *MetricConfigsRepository) Update(ctx context.Context, id int64, u models.MetricsConfigUpdate) (*models.MetricsConfig, error) {
	var b updateBuilder
	if u.PromQLName != nil {
		b.set("promql_name", *u.PromQLName)
	}
	if u.Name != nil {
		b.set("name", *u.Name)
	}
	if u.Description != nil {
		b.set("description", *u.Description)
	}
	if u.ServiceID != nil {
		b.set("service_id", *u.ServiceID)
	}
	if u.Aggregation != nil {
		b.set("aggregation", *u.Aggregation)
	}
	if b.empty() {
		c, err := r.Get(ctx, id)
		if err == nil && c == nil {
			err = wrapErr("update metrics config", sql.ErrNoRows)
		}
		return c, err
	}

	query, args := b.build("metrics_config", id, metricsConfigColumns)
	var c models.MetricsConfig
	if err := r.db.conn.GetContext(ctx, &c, query, args...); err != nil {
		return nil, wrapErr("update metrics config", err)
	}
	return &c, nil
}

func (r *MetricConfigsRepository) Delete(ctx context.Context, id int64) error {
	return r.db.deleteByID(ctx, "metrics_config", id)
}
