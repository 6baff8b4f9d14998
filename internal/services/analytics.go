package services

import (
	"context"
	"fmt"

	"renovo/internal/analytics"
	"renovo/internal/core"
	"renovo/internal/log"
)

type AnalyticsService struct{ *deps }

// Get computes the report for q. Bad windows fail before storage is touched.
func (s *AnalyticsService) Get(ctx context.Context, q core.AnalyticsQuery) (analytics.Report, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return analytics.Report{}, err
	}

	key := reportKey(q)
	if s.reports != nil {
		if r, ok := s.reports.Get(key); ok {
			return r, nil
		}
	}

	r, err := s.compute(ctx, q)
	if err != nil {
		return analytics.Report{}, err
	}
	if s.reports != nil {
		s.reports.Set(key, r)
	}
	s.logger.DebugContext(ctx, "Analytics computed",
		log.FieldProjectID, q.ProjectID,
		log.FieldCount, r.ExpenseCount)
	return r, nil
}

func (s *AnalyticsService) compute(ctx context.Context, q core.AnalyticsQuery) (analytics.Report, error) {
	p, err := s.store.GetProject(ctx, q.ProjectID)
	if err != nil {
		return analytics.Report{}, err
	}
	cats, err := s.store.ListCategories(ctx, &p.ID)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("list categories: %w", err)
	}
	expenses, err := s.store.ExpensesInRange(ctx, p.ID, q.DateFrom, q.DateTo)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("load expenses: %w", err)
	}
	return analytics.Compute(p, cats, expenses, q), nil
}

func reportKey(q core.AnalyticsQuery) string {
	return fmt.Sprintf("%s%s|%s|%s", projectKeyPrefix(q.ProjectID), q.DateFrom, q.DateTo, q.GroupBy)
}
