package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/illenko/opspages/internal/models"
)

const serviceColumns = "id, service_name, created_at, updated_at"

type ServicesRepository struct {
	db *DB
}

func NewServicesRepository(db *DB) *ServicesRepository {
	return &ServicesRepository{db: db}
}

func (r *ServicesRepository) Create(ctx context.Context, name string) (*models.Service, error) {
	query := `
		INSERT INTO services (service_name)
		VALUES ($1)
		RETURNING ` + serviceColumns
	var s models.Service
	if err := r.db.conn.GetContext(ctx, &s, query, name); err != nil {
		return nil, wrapErr("create service", err)
	}
	return &s, nil
}

func (r *ServicesRepository) List(ctx context.Context, opts models.ListOptions) ([]models.Service, error) {
	var w whereBuilder
	query := "SELECT " + serviceColumns + " FROM services ORDER BY id" + w.paginate(opts.Limit, opts.Offset)

	services := []models.Service{}
	if err := r.db.conn.SelectContext(ctx, &services, query, w.args...); err != nil {
		return nil, wrapErr("list services", err)
	}
	return services, nil
}

func (r *ServicesRepository) Get(ctx context.Context, id int64) (*models.Service, error) {
	return r.getOne(ctx, "SELECT "+serviceColumns+" FROM services WHERE id = $1", id)
}

func (r *ServicesRepository) GetByName(ctx context.Context, name string) (*models.Service, error) {
	return r.getOne(ctx, "SELECT "+serviceColumns+" FROM services WHERE service_name = $1", name)
}

func (r *ServicesRepository) getOne(ctx context.Context, query string, arg any) (*models.Service, error) {
	var s models.Service
	err := r.db.conn.GetContext(ctx, &s, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get service", err)
	}
	return &s, nil
}

func (r *ServicesRepository) Update(ctx context.Context, id int64, name string) (*models.Service, error) {
	var b updateBuilder
	b.set("service_name", name)
	query, args := b.build("services", id, serviceColumns)

	var s models.Service
	if err := r.db.conn.GetContext(ctx, &s, query, args...); err != nil {
		return nil, wrapErr("update service", err)
	}
	return &s, nil
}

func (r *ServicesRepository) Delete(ctx context.Context, id int64) error {
	return r.db.deleteByID(ctx, "services", id)
}
