package services

import (
	"context"
	"fmt"

	"renovo/internal/core"
	"renovo/internal/log"
)

type BudgetService struct{ *deps }

// Create adds the budget for a project month; each month may have one.
func (s *BudgetService) Create(ctx context.Context, in core.CreateMonthlyBudgetInput) (core.MonthlyBudget, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}
	if _, err := s.store.GetProject(ctx, in.ProjectID); err != nil {
		return core.MonthlyBudget{}, err
	}
	if _, err := s.store.FindMonthlyBudget(ctx, in.ProjectID, in.Year, in.Month); err == nil {
		return core.MonthlyBudget{}, core.Conflict("project %d already has a budget for %04d-%02d", in.ProjectID, in.Year, in.Month)
	} else if !core.IsKind(err, core.KindNotFound) {
		return core.MonthlyBudget{}, fmt.Errorf("look up monthly budget: %w", err)
	}

	b := in.MonthlyBudget()
	spent, err := s.spent(ctx, in.ProjectID, in.Year, in.Month)
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	b.SpentAmount = spent

	b, err = s.store.CreateMonthlyBudget(ctx, b)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("create monthly budget: %w", err)
	}
	return b, nil
}

// List returns a project's budgets, optionally for one year.
func (s *BudgetService) List(ctx context.Context, projectID int64, year *int) ([]core.MonthlyBudget, error) {
	if projectID <= 0 {
		return nil, core.Validation("projectId", core.ErrMissingID)
	}
	if year != nil && *year < core.MinBudgetYear {
		return nil, core.Validation("year", core.ErrInvalidYear)
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	budgets, err := s.store.ListMonthlyBudgets(ctx, projectID, year)
	if err != nil {
		return nil, fmt.Errorf("list monthly budgets: %w", err)
	}
	return budgets, nil
}

func (s *BudgetService) Update(ctx context.Context, in core.UpdateMonthlyBudgetInput) (core.MonthlyBudget, error) {
	if err := in.Validate(); err != nil {
		return core.MonthlyBudget{}, err
	}
	b, err := s.store.GetMonthlyBudget(ctx, in.ID)
	if err != nil {
		return core.MonthlyBudget{}, err
	}
	in.Apply(&b)
	b, err = s.store.UpdateMonthlyBudget(ctx, b)
	if err != nil {
		return core.MonthlyBudget{}, fmt.Errorf("update monthly budget %d: %w", in.ID, err)
	}
	return b, nil
}

// RecomputeSpent stores the normalized spend of one project month. A month
// without a budget is left alone.
func (s *BudgetService) RecomputeSpent(ctx context.Context, projectID int64, year, month int) error {
	spent, err := s.spent(ctx, projectID, year, month)
	if err != nil {
		return err
	}
	if err := s.store.SetMonthlySpent(ctx, projectID, year, month, spent); err != nil {
		return fmt.Errorf("store spent amount: %w", err)
	}
	s.logger.DebugContext(ctx, "Monthly spent recomputed",
		log.FieldProjectID, projectID,
		log.FieldYear, year,
		log.FieldMonth, month,
		log.FieldAmount, spent.Cents)
	return nil
}

// ReconcileAll recomputes every stored monthly budget and returns how many it touched.
func (s *BudgetService) ReconcileAll(ctx context.Context) (int, error) {
	projects, err := s.store.ListProjects(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("list projects: %w", err)
	}
	n := 0
	for _, p := range projects {
		budgets, err := s.store.ListMonthlyBudgets(ctx, p.ID, nil)
		if err != nil {
			return n, fmt.Errorf("list budgets of project %d: %w", p.ID, err)
		}
		for _, b := range budgets {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			if err := s.RecomputeSpent(ctx, b.ProjectID, b.Year, b.Month); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *BudgetService) spent(ctx context.Context, projectID int64, year, month int) (core.Money, error) {
	from, to := core.MonthBounds(year, month)
	expenses, err := s.store.ExpensesInRange(ctx, projectID, from, to)
	if err != nil {
		return core.Money{}, fmt.Errorf("load expenses for %04d-%02d: %w", year, month, err)
	}
	var total core.Money
	for _, e := range expenses {
		total = total.Add(e.NormalizedAmount())
	}
	return total, nil
}
