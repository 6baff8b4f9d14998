package services

import (
	"context"
	"fmt"

	"renovo/internal/core"
)

type CategoryService struct{ *deps }

func (s *CategoryService) Create(ctx context.Context, in core.CreateCategoryInput) (core.Category, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}
	p, err := s.store.GetProject(ctx, in.ProjectID)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.checkAllocation(ctx, p, 0, in.BudgetAllocation); err != nil {
		return core.Category{}, err
	}
	c, err := s.store.CreateCategory(ctx, in.Category())
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.invalidate(c.ProjectID)
	return c, nil
}

func (s *CategoryService) List(ctx context.Context, projectID *int64) ([]core.Category, error) {
	if projectID != nil {
		if *projectID <= 0 {
			return nil, core.Validation("projectId", core.ErrMissingID)
		}
		if _, err := s.store.GetProject(ctx, *projectID); err != nil {
			return nil, err
		}
	}
	cats, err := s.store.ListCategories(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Update(ctx context.Context, in core.UpdateCategoryInput) (core.Category, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Category{}, err
	}
	c, err := s.store.GetCategory(ctx, in.ID)
	if err != nil {
		return core.Category{}, err
	}
	in.Apply(&c)
	if in.BudgetAllocation != nil {
		p, err := s.store.GetProject(ctx, c.ProjectID)
		if err != nil {
			return core.Category{}, err
		}
		if err := s.checkAllocation(ctx, p, c.ID, c.BudgetAllocation); err != nil {
			return core.Category{}, err
		}
	}
	c, err = s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", in.ID, err)
	}
	s.invalidate(c.ProjectID)
	return c, nil
}

// checkAllocation keeps the sum of category allocations within the project budget.
func (s *CategoryService) checkAllocation(ctx context.Context, p core.Project, self int64, allocation core.Money) error {
	others, err := allocatedTotal(ctx, s.deps, p.ID, self)
	if err != nil {
		return err
	}
	if sum := others.Add(allocation); sum.Cents > p.TotalBudget.Cents {
		return core.Conflict("category allocations (%s) would exceed project budget %s", sum, p.TotalBudget)
	}
	return nil
}
