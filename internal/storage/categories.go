package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"renovo/internal/core"
)

const categoryColumns = `id, project_id, name, description, budget_allocation_cents, created_at, updated_at`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c           core.Category
		description sql.NullString
		ts          timestamps
	)
	if err := s.Scan(&c.ID, &c.ProjectID, &c.Name, &description, &c.BudgetAllocation.Cents, &ts.created, &ts.updated); err != nil {
		return core.Category{}, err
	}
	c.Description = strPtr(description)
	if err := ts.apply(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (r *SQLRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	now := r.timestamp()
	row := r.queryRow(ctx, r.db,
		`INSERT INTO categories (project_id, name, description, budget_allocation_cents, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING `+categoryColumns,
		c.ProjectID, c.Name, nullString(c.Description), c.BudgetAllocation.Cents, now, now)
	created, err := scanCategory(row)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", translateError(err, "category"))
	}
	return created, nil
}

func (r *SQLRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.queryRow(ctx, r.db, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category", id)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLRepository) ListCategories(ctx context.Context, projectID *int64) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	var args []any
	if projectID != nil {
		query += ` WHERE project_id = ?`
		args = append(args, *projectID)
	}
	rows, err := r.query(ctx, r.db, query+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	row := r.queryRow(ctx, r.db,
		`UPDATE categories SET name = ?, description = ?, budget_allocation_cents = ?, updated_at = ?
		 WHERE id = ? RETURNING `+categoryColumns,
		c.Name, nullString(c.Description), c.BudgetAllocation.Cents, r.timestamp(), c.ID)
	updated, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category", c.ID)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	return updated, nil
}
