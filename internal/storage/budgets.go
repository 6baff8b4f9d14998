package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"renovo/internal/core"
)

const budgetColumns = `id, project_id, year, month, allocated_amount_cents, spent_amount_cents, currency, created_at, updated_at`

func scanBudget(s scanner) (core.MonthlyBudget, error) {
	var (
		b  core.MonthlyBudget
		ts timestamps
	)
	if err := s.Scan(&b.ID, &b.ProjectID, &b.Year, &b.Month, &b.AllocatedAmount.Cents,
		&b.SpentAmount.Cents, &b.Currency, &ts.created, &ts.updated); err != nil {
		return core.MonthlyBudget{}, err
	}
	if err := ts.apply(&b.CreatedAt, &b.UpdatedAt); err != nil {
		return core.MonthlyBudget{}, err
	}
	return b, nil
}

func (r *SQLRepository) CreateMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	now := r.timestamp()
	row := r.queryRow(ctx, r.db,
		`INSERT INTO monthly_budgets (project_id, year, month, allocated_amount_cents, spent_amount_cents, currency, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING `+budgetColumns,
		b.ProjectID, b.Year, b.Month, b.AllocatedAmount.Cents, b.SpentAmount.Cents, b.Currency, now, now)
	created, err := scanBudget(row)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("insert monthly budget: %w",
			translateError(err, fmt.Sprintf("monthly budget for %04d-%02d", b.Year, b.Month)))
	}
	return created, nil
}

func (r *SQLRepository) GetMonthlyBudget(ctx context.Context, id int64) (core.MonthlyBudget, error) {
	b, err := scanBudget(r.queryRow(ctx, r.db, `SELECT `+budgetColumns+` FROM monthly_budgets WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBudget{}, core.NotFound("monthly budget", id)
	}
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("get monthly budget %d: %w", id, err)
	}
	return b, nil
}

func (r *SQLRepository) FindMonthlyBudget(ctx context.Context, projectID int64, year, month int) (core.MonthlyBudget, error) {
	b, err := scanBudget(r.queryRow(ctx, r.db,
		`SELECT `+budgetColumns+` FROM monthly_budgets WHERE project_id = ? AND year = ? AND month = ?`,
		projectID, year, month))
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBudget{}, &core.Error{
			Kind:    core.KindNotFound,
			Message: fmt.Sprintf("no monthly budget for project %d in %04d-%02d", projectID, year, month),
		}
	}
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("find monthly budget: %w", err)
	}
	return b, nil
}

func (r *SQLRepository) ListMonthlyBudgets(ctx context.Context, projectID int64, year *int) ([]core.MonthlyBudget, error) {
	w := &whereBuilder{}
	w.add("project_id = ?", projectID)
	if year != nil {
		w.add("year = ?", *year)
	}
	rows, err := r.query(ctx, r.db, `SELECT `+budgetColumns+` FROM monthly_budgets`+w.String()+` ORDER BY year, month`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list monthly budgets: %w", err)
	}
	defer rows.Close()

	budgets := []core.MonthlyBudget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan monthly budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *SQLRepository) UpdateMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	row := r.queryRow(ctx, r.db,
		`UPDATE monthly_budgets SET allocated_amount_cents = ?, currency = ?, updated_at = ?
		 WHERE id = ? RETURNING `+budgetColumns,
		b.AllocatedAmount.Cents, b.Currency, r.timestamp(), b.ID)
	updated, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthlyBudget{}, core.NotFound("monthly budget", b.ID)
	}
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("update monthly budget %d: %w", b.ID, err)
	}
	return updated, nil
}

func (r *SQLRepository) SetMonthlySpent(ctx context.Context, projectID int64, year, month int, spent core.Money) error {
	_, err := r.exec(ctx, r.db,
		`UPDATE monthly_budgets SET spent_amount_cents = ?, updated_at = ?
		 WHERE project_id = ? AND year = ? AND month = ?`,
		spent.Cents, r.timestamp(), projectID, year, month)
	if err != nil {
		return fmt.Errorf("set spent amount for project %d %04d-%02d: %w", projectID, year, month, err)
	}
	return nil
}
