package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"renovo/internal/amqp"
	"renovo/internal/core"
	"renovo/internal/log"
	"renovo/internal/sheets/memory"
)

type fakeBudgets struct {
	calls      []string
	err        error
	reconciled atomic.Int32
}

func (f *fakeBudgets) RecomputeSpent(_ context.Context, projectID int64, year, month int) error {
	f.calls = append(f.calls, core.NewDate(year, month, 1).String())
	return f.err
}

func (f *fakeBudgets) ReconcileAll(context.Context) (int, error) {
	f.reconciled.Add(1)
	return 3, nil
}

type fakeExpenses map[int64]core.Expense

func (f fakeExpenses) Get(_ context.Context, id int64) (core.Expense, error) {
	e, ok := f[id]
	if !ok {
		return core.Expense{}, core.NotFound("expense", id)
	}
	return e, nil
}

type failingMirror struct{}

func (failingMirror) Upsert(context.Context, core.Expense) (string, error) {
	return "", errors.New("quota exceeded")
}
func (failingMirror) Remove(context.Context, int64) error { return errors.New("quota exceeded") }

func message(expenseID int64, action core.ExpenseAction) *amqp.ExpenseChangedMessage {
	return &amqp.ExpenseChangedMessage{
		ProjectID: 1,
		ExpenseID: expenseID,
		Year:      2024,
		Month:     3,
		Action:    string(action),
		Timestamp: time.Now(),
	}
}

func TestBudgetWorkerHandle(t *testing.T) {
	expense := core.Expense{
		ID:           7,
		ProjectID:    1,
		Title:        "Tiles",
		Amount:       core.Money{Cents: 5000},
		Currency:     core.EUR,
		ExchangeRate: core.OneRate,
		ExpenseDate:  core.NewDate(2024, 3, 2),
		Status:       core.StatusPending,
	}

	t.Run("recomputes and mirrors", func(t *testing.T) {
		budgets := &fakeBudgets{}
		mirror := memory.New()
		w := NewBudgetWorker(budgets, fakeExpenses{7: expense}, mirror, log.Discard())

		if err := w.Handle(context.Background(), message(7, core.ExpenseCreated)); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if len(budgets.calls) != 1 || budgets.calls[0] != "2024-03-01" {
			t.Errorf("recompute calls = %v", budgets.calls)
		}
		if _, ok := mirror.Row(7); !ok {
			t.Error("expense was not mirrored")
		}

		if err := w.Handle(context.Background(), message(7, core.ExpenseDeleted)); err != nil {
			t.Fatalf("Handle delete: %v", err)
		}
		if mirror.Len() != 0 {
			t.Errorf("mirror has %d rows after delete", mirror.Len())
		}
	})

	t.Run("vanished expense is removed from the mirror", func(t *testing.T) {
		mirror := memory.New()
		mirror.Upsert(context.Background(), expense)
		w := NewBudgetWorker(&fakeBudgets{}, fakeExpenses{}, mirror, log.Discard())

		if err := w.Handle(context.Background(), message(7, core.ExpenseUpdated)); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if mirror.Len() != 0 {
			t.Error("stale row kept")
		}
	})

	t.Run("recompute failure requeues", func(t *testing.T) {
		budgets := &fakeBudgets{err: errors.New("db down")}
		w := NewBudgetWorker(budgets, fakeExpenses{}, nil, log.Discard())
		if err := w.Handle(context.Background(), message(7, core.ExpenseCreated)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("mirror failure is not fatal", func(t *testing.T) {
		w := NewBudgetWorker(&fakeBudgets{}, fakeExpenses{7: expense}, failingMirror{}, log.Discard())
		if err := w.Handle(context.Background(), message(7, core.ExpenseCreated)); err != nil {
			t.Fatalf("Handle: %v", err)
		}
	})
}

func TestReconcilerLifecycle(t *testing.T) {
	budgets := &fakeBudgets{}
	r := NewReconciler(budgets, time.Hour, log.Discard())
	ctx := context.Background()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}
	if !r.IsRunning() {
		t.Error("expected running")
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if r.IsRunning() {
		t.Error("expected stopped")
	}
	// The immediate pass runs before the loop can observe Stop.
	if budgets.reconciled.Load() != 1 {
		t.Errorf("reconciled %d times, want 1", budgets.reconciled.Load())
	}
	if err := r.Stop(stopCtx); err != nil {
		t.Errorf("Stop when stopped: %v", err)
	}
}
