package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"renovo/internal/log"
)

// BudgetReconciler recomputes every stored monthly budget.
type BudgetReconciler interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Reconciler periodically recomputes all monthly budgets, covering
// messages that were lost or arrived while the worker was down.
type Reconciler struct {
	budgets  BudgetReconciler
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReconciler(budgets BudgetReconciler, interval time.Duration, logger *log.Logger) *Reconciler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Reconciler{
		budgets:  budgets,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// Start runs one pass immediately, then one per interval.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("reconciler is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.mu.Unlock()

	go r.runLoop(ctx)

	r.logger.InfoContext(ctx, "Budget reconciler started", "interval", r.interval)
	return nil
}

// Stop signals the loop and waits for the current pass to finish.
func (r *Reconciler) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Budget reconciler stopped")
		return nil
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Budget reconciler stop timed out")
		return ctx.Err()
	}
}

func (r *Reconciler) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunOnce performs a single reconciliation pass.
func (r *Reconciler) RunOnce(ctx context.Context) {
	start := time.Now()
	n, err := r.budgets.ReconcileAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "Budget reconciliation failed",
				log.FieldOperation, log.OpRecompute,
				log.FieldCount, n,
				log.FieldError, err)
		}
		return
	}
	r.logger.InfoContext(ctx, "Budgets reconciled",
		log.FieldCount, n,
		log.FieldDuration, time.Since(start).Milliseconds())
}

func (r *Reconciler) runLoop(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.RunOnce(ctx)

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}
