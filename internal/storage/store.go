// Package storage persists the renovation domain behind the Store interface.
package storage

import (
	"context"

	"renovo/internal/core"
)

type UserStore interface {
	CreateUser(ctx context.Context, u core.User) (core.User, error)
	GetUser(ctx context.Context, id int64) (core.User, error)
	GetUserByEmail(ctx context.Context, email string) (core.User, error)
	ListUsers(ctx context.Context) ([]core.User, error)
	UpdateUser(ctx context.Context, u core.User) (core.User, error)
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p core.Project) (core.Project, error)
	GetProject(ctx context.Context, id int64) (core.Project, error)
	// ListProjects returns every project, or only the user's when userID is set.
	ListProjects(ctx context.Context, userID *int64) ([]core.Project, error)
	UpdateProject(ctx context.Context, p core.Project) (core.Project, error)
}

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	ListCategories(ctx context.Context, projectID *int64) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
}

type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	// CreateExpenses inserts all expenses or none of them.
	CreateExpenses(ctx context.Context, es []core.Expense) ([]core.Expense, error)
	GetExpense(ctx context.Context, id int64) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id int64) error
	// ListExpenses applies a normalized filter including sort and paging.
	ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error)
	// ExpensesInRange returns a project's expenses dated within [from, to];
	// a zero bound is open.
	ExpensesInRange(ctx context.Context, projectID int64, from, to core.Date) ([]core.Expense, error)
	// SearchCandidates returns expenses whose title, vendor or description
	// contains at least one token.
	SearchCandidates(ctx context.Context, tokens []string, projectID *int64) ([]core.Expense, error)
}

type BudgetStore interface {
	CreateMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error)
	GetMonthlyBudget(ctx context.Context, id int64) (core.MonthlyBudget, error)
	FindMonthlyBudget(ctx context.Context, projectID int64, year, month int) (core.MonthlyBudget, error)
	ListMonthlyBudgets(ctx context.Context, projectID int64, year *int) ([]core.MonthlyBudget, error)
	UpdateMonthlyBudget(ctx context.Context, b core.MonthlyBudget) (core.MonthlyBudget, error)
	// SetMonthlySpent stores a recomputed spent amount. Missing budgets are ignored.
	SetMonthlySpent(ctx context.Context, projectID int64, year, month int, spent core.Money) error
}

// Store is everything the services need from persistence.
type Store interface {
	UserStore
	ProjectStore
	CategoryStore
	ExpenseStore
	BudgetStore

	Ping(ctx context.Context) error
	Close() error
}
