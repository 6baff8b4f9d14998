package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"renovo/internal/core"
)

const projectColumns = `id, user_id, name, description, total_budget_cents, currency, start_date, end_date, is_active, created_at, updated_at`

func scanProject(s scanner) (core.Project, error) {
	var (
		p           core.Project
		description sql.NullString
		start       string
		end         sql.NullString
		ts          timestamps
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.Name, &description, &p.TotalBudget.Cents, &p.Currency,
		&start, &end, &p.IsActive, &ts.created, &ts.updated); err != nil {
		return core.Project{}, err
	}
	var err error
	p.Description = strPtr(description)
	if p.StartDate, err = core.ParseDate(start); err != nil {
		return core.Project{}, fmt.Errorf("start_date: %w", err)
	}
	if p.EndDate, err = datePtr(end); err != nil {
		return core.Project{}, fmt.Errorf("end_date: %w", err)
	}
	if err := ts.apply(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return core.Project{}, err
	}
	return p, nil
}

func (r *SQLRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	now := r.timestamp()
	row := r.queryRow(ctx, r.db,
		`INSERT INTO projects (user_id, name, description, total_budget_cents, currency, start_date, end_date, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING `+projectColumns,
		p.UserID, p.Name, nullString(p.Description), p.TotalBudget.Cents, p.Currency,
		dateArg(p.StartDate), nullDateArg(p.EndDate), p.IsActive, now, now)
	created, err := scanProject(row)
	if err != nil {
		return core.Project{}, fmt.Errorf("insert project: %w", translateError(err, "project"))
	}
	return created, nil
}

func (r *SQLRepository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	p, err := scanProject(r.queryRow(ctx, r.db, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, core.NotFound("project", id)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %d: %w", id, err)
	}
	return p, nil
}

func (r *SQLRepository) ListProjects(ctx context.Context, userID *int64) ([]core.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = ?`
		args = append(args, *userID)
	}
	rows, err := r.query(ctx, r.db, query+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []core.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLRepository) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	row := r.queryRow(ctx, r.db,
		`UPDATE projects SET name = ?, description = ?, total_budget_cents = ?, currency = ?,
		 start_date = ?, end_date = ?, is_active = ?, updated_at = ?
		 WHERE id = ? RETURNING `+projectColumns,
		p.Name, nullString(p.Description), p.TotalBudget.Cents, p.Currency,
		dateArg(p.StartDate), nullDateArg(p.EndDate), p.IsActive, r.timestamp(), p.ID)
	updated, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, core.NotFound("project", p.ID)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("update project %d: %w", p.ID, err)
	}
	return updated, nil
}
