// Package services implements the application operations on top of storage.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"renovo/internal/analytics"
	"renovo/internal/cache"
	"renovo/internal/core"
	"renovo/internal/log"
	"renovo/internal/storage"
)

// EventPublisher announces expense changes to whoever keeps monthly budgets current.
type EventPublisher interface {
	PublishExpenseChanged(ctx context.Context, ev core.ExpenseEvent) error
}

// Options wires the services. Only Store is required.
type Options struct {
	Store storage.Store
	// Publisher defaults to recomputing monthly budgets inline.
	Publisher   EventPublisher
	ReportCache cache.Cache[analytics.Report]
	Logger      *log.Logger
	Now         func() time.Time
}

// Services groups every operation handler.
type Services struct {
	Users      *UserService
	Projects   *ProjectService
	Categories *CategoryService
	Expenses   *ExpenseService
	Budgets    *BudgetService
	Analytics  *AnalyticsService
	Dashboard  *DashboardService
	Transfer   *TransferService
	Search     *SearchService

	store     storage.Store
	publisher EventPublisher
}

// deps is shared by all services.
type deps struct {
	store     storage.Store
	publisher EventPublisher
	reports   cache.Cache[analytics.Report]
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
}

func New(opts Options) *Services {
	d := &deps{
		store:   opts.Store,
		reports: opts.ReportCache,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if d.logger == nil {
		d.logger = log.Discard()
	}
	if d.now == nil {
		d.now = func() time.Time { return time.Now().UTC() }
	}
	d.events = log.NewStructuredLogger(d.logger.WithComponent(log.ComponentExpense))

	budgets := &BudgetService{deps: d}
	d.publisher = opts.Publisher
	if d.publisher == nil {
		d.publisher = &InlinePublisher{Budgets: budgets}
	}

	return &Services{
		Users:      &UserService{deps: d},
		Projects:   &ProjectService{deps: d},
		Categories: &CategoryService{deps: d},
		Expenses:   &ExpenseService{deps: d},
		Budgets:    budgets,
		Analytics:  &AnalyticsService{deps: d},
		Dashboard:  &DashboardService{deps: d},
		Transfer:   &TransferService{deps: d},
		Search:     &SearchService{deps: d},
		store:      opts.Store,
		publisher:  d.publisher,
	}
}

// Ping reports whether storage is reachable.
func (s *Services) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close closes storage and, when it holds a connection, the publisher.
func (s *Services) Close() error {
	var errs []error
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// publish never fails the caller: the change is already stored.
func (d *deps) publish(ctx context.Context, ev core.ExpenseEvent) {
	if err := d.publisher.PublishExpenseChanged(ctx, ev); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish expense event",
			log.FieldProjectID, ev.ProjectID,
			log.FieldExpenseID, ev.ExpenseID,
			log.FieldYear, ev.Year,
			log.FieldMonth, ev.Month,
			log.FieldError, err)
	}
}

// invalidate drops cached analytics for a project.
func (d *deps) invalidate(projectID int64) {
	if d.reports == nil {
		return
	}
	d.reports.DeletePrefix(projectKeyPrefix(projectID))
}

func projectKeyPrefix(projectID int64) string {
	return fmt.Sprintf("%d|", projectID)
}

// InlinePublisher recomputes the affected month synchronously. It is used
// when no message broker is configured.
type InlinePublisher struct {
	Budgets *BudgetService
}

func (p *InlinePublisher) PublishExpenseChanged(ctx context.Context, ev core.ExpenseEvent) error {
	return p.Budgets.RecomputeSpent(ctx, ev.ProjectID, ev.Year, ev.Month)
}

// NopPublisher drops events; monthly spent amounts then rely on reconciliation.
type NopPublisher struct{}

func (NopPublisher) PublishExpenseChanged(context.Context, core.ExpenseEvent) error { return nil }
