package services

import (
	"context"
	"fmt"

	"renovo/internal/core"
)

type ProjectService struct{ *deps }

func (s *ProjectService) Create(ctx context.Context, in core.CreateProjectInput) (core.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Project{}, err
	}
	if _, err := s.store.GetUser(ctx, in.UserID); err != nil {
		return core.Project{}, err
	}
	p, err := s.store.CreateProject(ctx, in.Project())
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// List returns all projects, or only those owned by userID when set.
func (s *ProjectService) List(ctx context.Context, userID *int64) ([]core.Project, error) {
	if userID != nil {
		if *userID <= 0 {
			return nil, core.Validation("userId", core.ErrMissingID)
		}
		if _, err := s.store.GetUser(ctx, *userID); err != nil {
			return nil, err
		}
	}
	projects, err := s.store.ListProjects(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, id int64) (core.Project, error) {
	if id <= 0 {
		return core.Project{}, core.Validation("id", core.ErrMissingID)
	}
	return s.store.GetProject(ctx, id)
}

// Update rejects a total budget below what categories already allocate.
func (s *ProjectService) Update(ctx context.Context, in core.UpdateProjectInput) (core.Project, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return core.Project{}, err
	}
	p, err := s.store.GetProject(ctx, in.ID)
	if err != nil {
		return core.Project{}, err
	}
	if err := in.Apply(&p); err != nil {
		return core.Project{}, err
	}
	if in.TotalBudget != nil {
		allocated, err := allocatedTotal(ctx, s.deps, p.ID, 0)
		if err != nil {
			return core.Project{}, err
		}
		if allocated.Cents > p.TotalBudget.Cents {
			return core.Project{}, core.Conflict("total_budget %s is below the %s already allocated to categories",
				p.TotalBudget, allocated)
		}
	}
	p, err = s.store.UpdateProject(ctx, p)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project %d: %w", in.ID, err)
	}
	s.invalidate(p.ID)
	return p, nil
}

// allocatedTotal sums category allocations of a project, skipping category skip.
func allocatedTotal(ctx context.Context, d *deps, projectID, skip int64) (core.Money, error) {
	cats, err := d.store.ListCategories(ctx, &projectID)
	if err != nil {
		return core.Money{}, fmt.Errorf("list categories of project %d: %w", projectID, err)
	}
	var total core.Money
	for _, c := range cats {
		if c.ID != skip {
			total = total.Add(c.BudgetAllocation)
		}
	}
	return total, nil
}
