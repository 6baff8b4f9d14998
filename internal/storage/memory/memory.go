// Package memory is a process-local Store used by tests and DATA_BACKEND=memory.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"renovo/internal/core"
	"renovo/internal/storage"
)

type Store struct {
	mu         sync.RWMutex
	nextID     int64
	users      map[int64]core.User
	projects   map[int64]core.Project
	categories map[int64]core.Category
	expenses   map[int64]core.Expense
	budgets    map[int64]core.MonthlyBudget
	now        func() time.Time
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:      map[int64]core.User{},
		projects:   map[int64]core.Project{},
		categories: map[int64]core.Category{},
		expenses:   map[int64]core.Expense{},
		budgets:    map[int64]core.MonthlyBudget{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// id hands out one sequence across tables; callers hold the write lock.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return core.User{}, core.Conflict("user with email %s already exists", u.Email)
		}
	}
	u.ID = s.id()
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.NotFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return core.User{}, &core.Error{Kind: core.KindNotFound, Message: fmt.Sprintf("user %q not found", email)}
}

func (s *Store) ListUsers(context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b core.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

func (s *Store) UpdateUser(_ context.Context, u core.User) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return core.User{}, core.NotFound("user", u.ID)
	}
	existing.PreferredLanguage = u.PreferredLanguage
	existing.PreferredCurrency = u.PreferredCurrency
	existing.UpdatedAt = s.now()
	s.users[u.ID] = existing
	return existing, nil
}

func (s *Store) CreateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[p.UserID]; !ok {
		return core.Project{}, core.NotFound("user", p.UserID)
	}
	p = p.Clone()
	p.ID = s.id()
	p.CreatedAt, p.UpdatedAt = s.now(), s.now()
	s.projects[p.ID] = p
	return p.Clone(), nil
}

func (s *Store) GetProject(_ context.Context, id int64) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return core.Project{}, core.NotFound("project", id)
	}
	return p.Clone(), nil
}

func (s *Store) ListProjects(_ context.Context, userID *int64) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := []core.Project{}
	for _, p := range s.projects {
		if userID == nil || p.UserID == *userID {
			projects = append(projects, p.Clone())
		}
	}
	slices.SortFunc(projects, func(a, b core.Project) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return projects, nil
}

func (s *Store) UpdateProject(_ context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.projects[p.ID]
	if !ok {
		return core.Project{}, core.NotFound("project", p.ID)
	}
	p = p.Clone()
	p.UserID = existing.UserID
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	s.projects[p.ID] = p
	return p.Clone(), nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[c.ProjectID]; !ok {
		return core.Category{}, core.NotFound("project", c.ProjectID)
	}
	c = c.Clone()
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	s.categories[c.ID] = c
	return c.Clone(), nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, core.NotFound("category", id)
	}
	return c.Clone(), nil
}

func (s *Store) ListCategories(_ context.Context, projectID *int64) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	categories := []core.Category{}
	for _, c := range s.categories {
		if projectID == nil || c.ProjectID == *projectID {
			categories = append(categories, c.Clone())
		}
	}
	slices.SortFunc(categories, func(a, b core.Category) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return categories, nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.categories[c.ID]
	if !ok {
		return core.Category{}, core.NotFound("category", c.ID)
	}
	c = c.Clone()
	c.ProjectID = existing.ProjectID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now()
	s.categories[c.ID] = c
	return c.Clone(), nil
}

// checkExpenseRefs mirrors the foreign keys of the SQL schema.
func (s *Store) checkExpenseRefs(e core.Expense) error {
	if _, ok := s.projects[e.ProjectID]; !ok {
		return core.NotFound("project", e.ProjectID)
	}
	if _, ok := s.users[e.UserID]; !ok {
		return core.NotFound("user", e.UserID)
	}
	if e.CategoryID != nil {
		if _, ok := s.categories[*e.CategoryID]; !ok {
			return core.NotFound("category", *e.CategoryID)
		}
	}
	return nil
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := s.CreateExpenses(ctx, []core.Expense{e})
	if err != nil {
		return core.Expense{}, err
	}
	return created[0], nil
}

func (s *Store) CreateExpenses(_ context.Context, es []core.Expense) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range es {
		if err := s.checkExpenseRefs(e); err != nil {
			return nil, fmt.Errorf("expense %d of %d: %w", i+1, len(es), err)
		}
	}
	now := s.now()
	created := make([]core.Expense, 0, len(es))
	for _, e := range es {
		e = e.Clone()
		e.ID = s.id()
		e.CreatedAt, e.UpdatedAt = now, now
		s.expenses[e.ID] = e
		created = append(created, e.Clone())
	}
	return created, nil
}

func (s *Store) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.NotFound("expense", id)
	}
	return e.Clone(), nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.expenses[e.ID]
	if !ok {
		return core.Expense{}, core.NotFound("expense", e.ID)
	}
	e = e.Clone()
	e.ProjectID = existing.ProjectID
	e.UserID = existing.UserID
	e.CreatedAt = existing.CreatedAt
	if err := s.checkExpenseRefs(e); err != nil {
		return core.Expense{}, err
	}
	e.UpdatedAt = s.now()
	s.expenses[e.ID] = e
	return e.Clone(), nil
}

func (s *Store) DeleteExpense(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.NotFound("expense", id)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	s.mu.RLock()
	matched := []core.Expense{}
	for _, e := range s.expenses {
		if f.Matches(e) {
			matched = append(matched, e.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, f.Compare)
	if f.Offset >= len(matched) {
		return []core.Expense{}, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, nil
}

func (s *Store) ExpensesInRange(_ context.Context, projectID int64, from, to core.Date) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if e.ProjectID != projectID {
			continue
		}
		if !from.IsZero() && e.ExpenseDate.Before(from) {
			continue
		}
		if !to.IsZero() && e.ExpenseDate.After(to) {
			continue
		}
		out = append(out, e.Clone())
	}
	slices.SortFunc(out, func(a, b core.Expense) int {
		if c := a.ExpenseDate.Compare(b.ExpenseDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) SearchCandidates(_ context.Context, tokens []string, projectID *int64) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if projectID != nil && e.ProjectID != *projectID {
			continue
		}
		text := strings.ToLower(e.Title + "\n" + core.Deref(e.VendorName) + "\n" + core.Deref(e.Description))
		for _, tok := range tokens {
			if strings.Contains(text, tok) {
				out = append(out, e.Clone())
				break
			}
		}
	}
	return out, nil
}

func (s *Store) CreateMonthlyBudget(_ context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[b.ProjectID]; !ok {
		return core.MonthlyBudget{}, core.NotFound("project", b.ProjectID)
	}
	for _, existing := range s.budgets {
		if existing.ProjectID == b.ProjectID && existing.Year == b.Year && existing.Month == b.Month {
			return core.MonthlyBudget{}, core.Conflict("monthly budget for %04d-%02d already exists", b.Year, b.Month)
		}
	}
	b.ID = s.id()
	b.CreatedAt, b.UpdatedAt = s.now(), s.now()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) GetMonthlyBudget(_ context.Context, id int64) (core.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.MonthlyBudget{}, core.NotFound("monthly budget", id)
	}
	return b, nil
}

func (s *Store) FindMonthlyBudget(_ context.Context, projectID int64, year, month int) (core.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.budgets {
		if b.ProjectID == projectID && b.Year == year && b.Month == month {
			return b, nil
		}
	}
	return core.MonthlyBudget{}, &core.Error{
		Kind:    core.KindNotFound,
		Message: fmt.Sprintf("no monthly budget for project %d in %04d-%02d", projectID, year, month),
	}
}

func (s *Store) ListMonthlyBudgets(_ context.Context, projectID int64, year *int) ([]core.MonthlyBudget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []core.MonthlyBudget{}
	for _, b := range s.budgets {
		if b.ProjectID == projectID && (year == nil || b.Year == *year) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b core.MonthlyBudget) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Month, b.Month)
	})
	return out, nil
}

func (s *Store) UpdateMonthlyBudget(_ context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.budgets[b.ID]
	if !ok {
		return core.MonthlyBudget{}, core.NotFound("monthly budget", b.ID)
	}
	existing.AllocatedAmount = b.AllocatedAmount
	existing.Currency = b.Currency
	existing.UpdatedAt = s.now()
	s.budgets[b.ID] = existing
	return existing, nil
}

func (s *Store) SetMonthlySpent(_ context.Context, projectID int64, year, month int, spent core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, b := range s.budgets {
		if b.ProjectID == projectID && b.Year == year && b.Month == month {
			b.SpentAmount = spent
			b.UpdatedAt = s.now()
			s.budgets[id] = b
		}
	}
	return nil
}
