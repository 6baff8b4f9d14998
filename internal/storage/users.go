package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"renovo/internal/core"
)

const userColumns = `id, email, name, preferred_language, preferred_currency, created_at, updated_at`

func scanUser(s scanner) (core.User, error) {
	var (
		u  core.User
		ts timestamps
	)
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.PreferredLanguage, &u.PreferredCurrency, &ts.created, &ts.updated); err != nil {
		return core.User{}, err
	}
	if err := ts.apply(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return core.User{}, err
	}
	return u, nil
}

func (r *SQLRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.timestamp()
	row := r.queryRow(ctx, r.db,
		`INSERT INTO users (email, name, preferred_language, preferred_currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING `+userColumns,
		u.Email, u.Name, u.PreferredLanguage, u.PreferredCurrency, now, now)
	created, err := scanUser(row)
	if err != nil {
		return core.User{}, fmt.Errorf("insert user: %w", translateError(err, "user with this email"))
	}
	return created, nil
}

func (r *SQLRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.NotFound("user", id)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.queryRow(ctx, r.db, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, &core.Error{Kind: core.KindNotFound, Message: fmt.Sprintf("user %q not found", email)}
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.query(ctx, r.db, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	row := r.queryRow(ctx, r.db,
		`UPDATE users SET preferred_language = ?, preferred_currency = ?, updated_at = ?
		 WHERE id = ? RETURNING `+userColumns,
		u.PreferredLanguage, u.PreferredCurrency, r.timestamp(), u.ID)
	updated, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.NotFound("user", u.ID)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return updated, nil
}
