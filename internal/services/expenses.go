package services

import (
	"context"
	"fmt"

	"renovo/internal/core"
	"renovo/internal/log"
)

// ExpenseService stores expenses and announces each change so monthly
// budgets can be recomputed.
type ExpenseService struct{ *deps }

func (s *ExpenseService) Create(ctx context.Context, in core.CreateExpenseInput) (core.Expense, error) {
	in.Normalize()
	if in.Currency == "" {
		in.Currency = s.projectCurrency(ctx, in.ProjectID)
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.checkRefs(ctx, in.ProjectID, in.UserID, in.CategoryID); err != nil {
		return core.Expense{}, err
	}

	e, err := s.store.CreateExpense(ctx, in.Expense())
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.events.LogExpenseChanged(ctx, log.OpCreate, e.ProjectID, e.ID, e.Amount.Cents, string(e.Currency))

	s.invalidate(e.ProjectID)
	s.publish(ctx, core.NewExpenseEvent(e, core.ExpenseCreated, s.now()))
	return e, nil
}

// List applies the filter with sorting and paging.
func (s *ExpenseService) List(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	if id <= 0 {
		return core.Expense{}, core.Validation("id", core.ErrMissingID)
	}
	return s.store.GetExpense(ctx, id)
}

// Update applies a partial change. Status moves follow the lifecycle
// pending → approved/rejected → completed; anything else is a Conflict.
func (s *ExpenseService) Update(ctx context.Context, in core.UpdateExpenseInput) (core.Expense, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	e, err := s.store.GetExpense(ctx, in.ID)
	if err != nil {
		return core.Expense{}, err
	}
	before := e.Clone()
	if err := in.Apply(&e); err != nil {
		return core.Expense{}, err
	}
	if in.CategoryID.Valid {
		if err := s.checkCategory(ctx, e.ProjectID, e.CategoryID); err != nil {
			return core.Expense{}, err
		}
	}

	e, err = s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", in.ID, err)
	}
	s.events.LogExpenseChanged(ctx, log.OpUpdate, e.ProjectID, e.ID, e.Amount.Cents, string(e.Currency))

	s.invalidate(e.ProjectID)
	s.publish(ctx, core.NewExpenseEvent(e, core.ExpenseUpdated, s.now()))
	// A date change also moves spend out of the old month.
	if before.ExpenseDate.Year() != e.ExpenseDate.Year() || before.ExpenseDate.Month() != e.ExpenseDate.Month() {
		s.publish(ctx, core.NewExpenseEvent(before, core.ExpenseUpdated, s.now()))
	}
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return core.Validation("id", core.ErrMissingID)
	}
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.events.LogExpenseChanged(ctx, log.OpDelete, e.ProjectID, e.ID, e.Amount.Cents, string(e.Currency))

	s.invalidate(e.ProjectID)
	s.publish(ctx, core.NewExpenseEvent(e, core.ExpenseDeleted, s.now()))
	return nil
}

func (s *ExpenseService) checkRefs(ctx context.Context, projectID, userID int64, categoryID *int64) error {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.checkCategory(ctx, projectID, categoryID)
}

// projectCurrency is the currency an expense inherits when it names none.
// Lookup failures fall back to USD; checkRefs reports a missing project.
func (s *ExpenseService) projectCurrency(ctx context.Context, projectID int64) core.Currency {
	if projectID <= 0 {
		return core.USD
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return core.USD
	}
	return p.Currency
}

// checkCategory requires a set category to exist inside the expense's project.
func (s *ExpenseService) checkCategory(ctx context.Context, projectID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	c, err := s.store.GetCategory(ctx, *categoryID)
	if err != nil {
		return err
	}
	if c.ProjectID != projectID {
		return core.Validation("category_id", fmt.Errorf("category %d belongs to another project", c.ID))
	}
	return nil
}
