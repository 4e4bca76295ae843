package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/illenko/opspages/internal/models"
)

const userColumns = "id, name, email, created_at, updated_at"

type UsersRepository struct {
	db *DB
}

func NewUsersRepository(db *DB) *UsersRepository {
	return &UsersRepository{db: db}
}

func (r *UsersRepository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING ` + userColumns
	var created models.User
	if err := r.db.conn.GetContext(ctx, &created, query, u.Name, u.Email); err != nil {
		return nil, wrapErr("create user", err)
	}
	return &created, nil
}

func (r *UsersRepository) List(ctx context.Context, opts models.ListOptions) ([]models.User, error) {
	var w whereBuilder
	query := "SELECT " + userColumns + " FROM users ORDER BY id" + w.paginate(opts.Limit, opts.Offset)

	users := []models.User{}
	if err := r.db.conn.SelectContext(ctx, &users, query, w.args...); err != nil {
		return nil, wrapErr("list users", err)
	}
	return users, nil
}

func (r *UsersRepository) Get(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.db.conn.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return &u, nil
}

func (r *UsersRepository) Update(ctx context.Context, id int64, u models.UserUpdate) (*models.User, error) {
	var b updateBuilder
	if u.Name != nil {
		b.set("name", *u.Name)
	}
	if u.Email != nil {
		b.set("email", *u.Email)
	}
	if b.empty() {
		found, err := r.Get(ctx, id)
		if err == nil && found == nil {
			err = wrapErr("update user", sql.ErrNoRows)
		}
		return found, err
	}

	query, args := b.build("users", id, userColumns)
	var updated models.User
	if err := r.db.conn.GetContext(ctx, &updated, query, args...); err != nil {
		return nil, wrapErr("update user", err)
	}
	return &updated, nil
}

func (r *UsersRepository) Delete(ctx context.Context, id int64) error {
	return r.db.deleteByID(ctx, "users", id)
}
