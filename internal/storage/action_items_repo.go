package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/illenko/opspages/internal/models"
)

const actionItemColumns = "id, jira_link, metric_id, created_at, updated_at"

type ActionItemsRepository struct {
	db *DB
}

func NewActionItemsRepository(db *DB) *ActionItemsRepository {
	return &ActionItemsRepository{db: db}
}

func (r *ActionItemsRepository) Create(ctx context.Context, a *models.ActionItem) (*models.ActionItem, error) {
	query := `
		INSERT INTO action_items (jira_link, metric_id)
		VALUES ($1, $2)
		RETURNING ` + actionItemColumns
	var created models.ActionItem
	if err := r.db.conn.GetContext(ctx, &created, query, a.JiraLink, a.MetricID); err != nil {
		return nil, wrapErr("create action item", err)
	}
	return &created, nil
}

func (r *ActionItemsRepository) List(ctx context.Context, metricID *int64, opts models.ListOptions) ([]models.ActionItem, error) {
	var w whereBuilder
	if metricID != nil {
		w.add("metric_id = $%d", *metricID)
	}
	query := "SELECT " + actionItemColumns + " FROM action_items" + w.clause() + " ORDER BY id"
	query += w.paginate(opts.Limit, opts.Offset)

	items := []models.ActionItem{}
	if err := r.db.conn.SelectContext(ctx, &items, query, w.args...); err != nil {
		return nil, wrapErr("list action items", err)
	}
	return items, nil
}

func (r *ActionItemsRepository) Get(ctx context.Context, id int64) (*models.ActionItem, error) {
	var a models.ActionItem
	err := r.db.conn.GetContext(ctx, &a, "SELECT "+actionItemColumns+" FROM action_items WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get action item", err)
	}
	return &a, nil
}

func (r *ActionItemsRepository) Update(ctx context.Context, id int64, u models.ActionItemUpdate) (*models.ActionItem, error) {
	var b updateBuilder
	if u.JiraLink != nil {
		b.set("jira_link", *u.JiraLink)
	}
	if u.MetricID != nil {
		b.set("metric_id", *u.MetricID)
	}
	if b.empty() {
		a, err := r.Get(ctx, id)
		if err == nil && a == nil {
			err = wrapErr("update action item", sql.ErrNoRows)
		}
		return a, err
	}

	query, args := b.build("action_items", id, actionItemColumns)
	var a models.ActionItem
	if err := r.db.conn.GetContext(ctx, &a, query, args...); err != nil {
		return nil, wrapErr("update action item", err)
	}
	return &a, nil
}

func (r *ActionItemsRepository) Delete(ctx context.Context, id int64) error {
	return r.db.deleteByID(ctx, "action_items", id)
}
