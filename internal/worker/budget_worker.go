// Package worker consumes expense change messages and keeps monthly budgets
// and the spreadsheet mirror current.
package worker

import (
	"context"
	"fmt"

	"renovo/internal/amqp"
	"renovo/internal/core"
	"renovo/internal/log"
	"renovo/internal/sheets"
)

// BudgetRecomputer recomputes the stored spend of one project month.
type BudgetRecomputer interface {
	RecomputeSpent(ctx context.Context, projectID int64, year, month int) error
}

// ExpenseReader loads the current state of an expense.
type ExpenseReader interface {
	Get(ctx context.Context, id int64) (core.Expense, error)
}

// BudgetWorker handles ExpenseChangedMessage deliveries.
type BudgetWorker struct {
	budgets  BudgetRecomputer
	expenses ExpenseReader
	mirror   sheets.Mirror
	logger   *log.Logger
}

// NewBudgetWorker builds the handler. mirror may be nil to skip the spreadsheet.
func NewBudgetWorker(budgets BudgetRecomputer, expenses ExpenseReader, mirror sheets.Mirror, logger *log.Logger) *BudgetWorker {
	return &BudgetWorker{
		budgets:  budgets,
		expenses: expenses,
		mirror:   mirror,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Handle recomputes the message's budget month, then mirrors the expense.
// A returned error requeues the delivery.
func (w *BudgetWorker) Handle(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	logger := w.logger.With(
		log.FieldProjectID, msg.ProjectID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldYear, msg.Year,
		log.FieldMonth, msg.Month,
		"action", msg.Action)
	logger.InfoContext(ctx, "Processing expense change")

	if err := w.budgets.RecomputeSpent(ctx, msg.ProjectID, msg.Year, msg.Month); err != nil {
		return fmt.Errorf("recompute %04d-%02d of project %d: %w", msg.Year, msg.Month, msg.ProjectID, err)
	}

	if w.mirror == nil || msg.ExpenseID <= 0 {
		return nil
	}
	if err := w.mirrorExpense(ctx, msg); err != nil {
		// The budget is already current; a broken mirror must not requeue forever.
		logger.ErrorContext(ctx, "Failed to mirror expense", log.FieldOperation, log.OpMirror, log.FieldError, err)
	}
	return nil
}

func (w *BudgetWorker) mirrorExpense(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	if core.ExpenseAction(msg.Action) == core.ExpenseDeleted {
		return w.mirror.Remove(ctx, msg.ExpenseID)
	}

	e, err := w.expenses.Get(ctx, msg.ExpenseID)
	if core.IsKind(err, core.KindNotFound) {
		// Deleted after this message was published.
		return w.mirror.Remove(ctx, msg.ExpenseID)
	}
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}

	ref, err := w.mirror.Upsert(ctx, e)
	if err != nil {
		return err
	}
	w.logger.DebugContext(ctx, "Expense mirrored", log.FieldExpenseID, e.ID, "sheets_ref", ref)
	return nil
}
