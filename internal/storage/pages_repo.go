package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/illenko/opspages/internal/models"
)

const pageColumns = `id, service_id, name, type, parent_id, heading, date,
	opsgenie_summary, metric_summary, annotations, created_at, updated_at`

type PagesRepository struct {
	db *DB
}

func NewPagesRepository(db *DB) *PagesRepository {
	return &PagesRepository{db: db}
}

func (r *PagesRepository) Create(ctx context.Context, p *models.Page) (*models.Page, error) {
	query := `
		INSERT INTO pages (service_id, name, type, parent_id, heading, date, opsgenie_summary, metric_summary, annotations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + pageColumns
	var created models.Page
	err := r.db.conn.GetContext(ctx, &created, query,
		p.ServiceID,
		p.Name,
		p.Type,
		p.ParentID,
		p.Heading,
		p.Date,
		p.OpsgenieSummary,
		p.MetricSummary,
		p.Annotations,
	)
	if err != nil {
		return nil, wrapErr("create page", err)
	}
	return &created, nil
}

func (r *PagesRepository) Get(ctx context.Context, id int64) (*models.Page, error) {
	var p models.Page
	err := r.db.conn.GetContext(ctx, &p, "SELECT "+pageColumns+" FROM pages WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get page", err)
	}
	return &p, nil
}

func (r *PagesRepository) List(ctx context.Context, f models.PageFilter) ([]models.Page, error) {
	var w whereBuilder
	if f.ServiceID != nil {
		w.add("service_id = $%d", *f.ServiceID)
	}
	if f.Type != nil {
		w.add("type = $%d", *f.Type)
	}
	if f.ParentID != nil {
		w.add("parent_id = $%d", *f.ParentID)
	}
	query := "SELECT " + pageColumns + " FROM pages" + w.clause() + " ORDER BY id DESC"
	query += w.paginate(f.Limit, f.Offset)

	pages := []models.Page{}
	if err := r.db.conn.SelectContext(ctx, &pages, query, w.args...); err != nil {
		return nil, wrapErr("list pages", err)
	}
	return pages, nil
}

// ListByService returns every page of a service, oldest date first.
func (r *PagesRepository) ListByService(ctx context.Context, serviceID int64) ([]models.Page, error) {
	query := "SELECT " + pageColumns + " FROM pages WHERE service_id = $1 ORDER BY date ASC NULLS LAST, id ASC"

	pages := []models.Page{}
	if err := r.db.conn.SelectContext(ctx, &pages, query, serviceID); err != nil {
		return nil, wrapErr("list pages by service", err)
	}
	return pages, nil
}

// Find returns the page of the given type for a service on a date, if any.
func (r *PagesRepository) Find(ctx context.Context, serviceID int64, pageType models.PageType, date int64) (*models.Page, error) {
	query := "SELECT " + pageColumns + " FROM pages WHERE service_id = $1 AND type = $2 AND date = $3 ORDER BY id LIMIT 1"

	var p models.Page
	err := r.db.conn.GetContext(ctx, &p, query, serviceID, pageType, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("find page", err)
	}
	return &p, nil
}

func (r *PagesRepository) Update(ctx context.Context, id int64, u models.PageUpdate) (*models.Page, error) {
	var b updateBuilder
	if u.ParentID != nil {
		b.set("parent_id", *u.ParentID)
	}
	if u.Heading != nil {
		b.set("heading", *u.Heading)
	}
	if u.OpsgenieSummary != nil {
		b.set("opsgenie_summary", *u.OpsgenieSummary)
	}
	if u.MetricSummary != nil {
		b.set("metric_summary", *u.MetricSummary)
	}
	if u.Annotations != nil {
		b.set("annotations", *u.Annotations)
	}
	if b.empty() {
		p, err := r.Get(ctx, id)
		if err == nil && p == nil {
			err = wrapErr("update page", sql.ErrNoRows)
		}
		return p, err
	}

	query, args := b.build("pages", id, pageColumns)
	var p models.Page
	if err := r.db.conn.GetContext(ctx, &p, query, args...); err != nil {
		return nil, wrapErr("update page", err)
	}
	return &p, nil
}

func (r *PagesRepository) Delete(ctx context.Context, id int64) error {
	return r.db.deleteByID(ctx, "pages", id)
}
