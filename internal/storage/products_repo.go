package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/illenko/opspages/internal/models"
)

const productColumns = "id, name, description, price, category, created_at, updated_at"

type ProductsRepository struct {
	db *DB
}

func NewProductsRepository(db *DB) *ProductsRepository {
	return &ProductsRepository{db: db}
}

func (r *ProductsRepository) Create(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (name, description, price, category)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + productColumns
	var created models.Product
	if err := r.db.conn.GetContext(ctx, &created, query, p.Name, p.Description, p.Price, p.Category); err != nil {
		return nil, wrapErr("create product", err)
	}
	return &created, nil
}

func (r *ProductsRepository) List(ctx context.Context, category *string, opts models.ListOptions) ([]models.Product, error) {
	var w whereBuilder
	if category != nil {
		w.add("category = $%d", *category)
	}
	query := "SELECT " + productColumns + " FROM products" + w.clause() + " ORDER BY id"
	query += w.paginate(opts.Limit, opts.Offset)

	products := []models.Product{}
	if err := r.db.conn.SelectContext(ctx, &products, query, w.args...); err != nil {
		return nil, wrapErr("list products", err)
	}
	return products, nil
}

func (r *ProductsRepository) Get(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	err := r.db.conn.GetContext(ctx, &p, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get product", err)
	}
	return &p, nil
}

func (r *ProductsRepository) Update(ctx context.Context, id int64, u models.ProductUpdate) (*models.Product, error) {
	var b updateBuilder
	if u.Name != nil {
		b.set("name", *u.Name)
	}
	if u.Description != nil {
		b.set("description", *u.Description)
	}
	if u.Price != nil {
		b.set("price", *u.Price)
	}
	if u.Category != nil {
		b.set("category", *u.Category)
	}
	if b.empty() {
		found, err := r.Get(ctx, id)
		if err == nil && found == nil {
			err = wrapErr("update product", sql.ErrNoRows)
		}
		return found, err
	}

	query, args := b.build("products", id, productColumns)
	var updated models.Product
	if err := r.db.conn.GetContext(ctx, &updated, query, args...); err != nil {
		return nil, wrapErr("update product", err)
	}
	return &updated, nil
}

func (r *ProductsRepository) Delete(ctx context.Context, id int64) error {
	return r.db.deleteByID(ctx, "products", id)
}
