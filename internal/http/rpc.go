package http

import (
	"context"
	"time"

	"renovo/internal/analytics"
	"renovo/internal/core"
	"renovo/internal/services"
)

type procedureKind int

const (
	query procedureKind = iota
	mutation
)

func (k procedureKind) String() string {
	if k == mutation {
		return "mutation"
	}
	return "query"
}

// procedure is one named operation of the RPC surface.
type procedure struct {
	kind procedureKind
	call func(ctx context.Context, raw []byte) (any, error)
}

func bind[In, Out any](kind procedureKind, fn func(context.Context, In) (Out, error)) procedure {
	return procedure{kind: kind, call: func(ctx context.Context, raw []byte) (any, error) {
		in, err := decodeInput[In](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}}
}

func queryOf[In, Out any](fn func(context.Context, In) (Out, error)) procedure {
	return bind(query, fn)
}

func mutationOf[In, Out any](fn func(context.Context, In) (Out, error)) procedure {
	return bind(mutation, fn)
}

// constant serves a fixed lookup list.
func constant[Out any](v func() Out) procedure {
	return queryOf(func(context.Context, struct{}) (Out, error) { return v(), nil })
}

type (
	idInput struct {
		ID int64 `json:"id"`
	}
	userScope struct {
		UserID *int64 `json:"userId"`
	}
	projectScope struct {
		ProjectID *int64 `json:"projectId"`
	}
	budgetScope struct {
		ProjectID int64 `json:"projectId"`
		Year      *int  `json:"year"`
	}
	dashboardInput struct {
		UserID int64 `json:"userId"`
	}
	healthStatus struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	deleteResult struct {
		Success bool  `json:"success"`
		ID      int64 `json:"id"`
	}
)

// procedures maps operation names onto services.
func procedures(svc *services.Services, now func() time.Time) map[string]procedure {
	return map[string]procedure{
		"healthcheck": queryOf(func(context.Context, struct{}) (healthStatus, error) {
			return healthStatus{Status: "ok", Timestamp: now().UTC()}, nil
		}),

		"createUser": mutationOf(svc.Users.Create),
		"getUsers": queryOf(func(ctx context.Context, _ struct{}) ([]core.User, error) {
			return svc.Users.List(ctx)
		}),
		"getUser": queryOf(func(ctx context.Context, in idInput) (core.User, error) {
			return svc.Users.Get(ctx, in.ID)
		}),
		"updateUser": mutationOf(svc.Users.Update),

		"createProject": mutationOf(svc.Projects.Create),
		"getProjects": queryOf(func(ctx context.Context, in userScope) ([]core.Project, error) {
			return svc.Projects.List(ctx, in.UserID)
		}),
		"getProject": queryOf(func(ctx context.Context, in idInput) (core.Project, error) {
			return svc.Projects.Get(ctx, in.ID)
		}),
		"updateProject": mutationOf(svc.Projects.Update),

		"createCategory": mutationOf(svc.Categories.Create),
		"getCategories": queryOf(func(ctx context.Context, in projectScope) ([]core.Category, error) {
			return svc.Categories.List(ctx, in.ProjectID)
		}),
		"updateCategory": mutationOf(svc.Categories.Update),

		"createExpense": mutationOf(svc.Expenses.Create),
		"getExpenses":   queryOf(svc.Expenses.List),
		"getExpense": queryOf(func(ctx context.Context, in idInput) (core.Expense, error) {
			return svc.Expenses.Get(ctx, in.ID)
		}),
		"updateExpense": mutationOf(svc.Expenses.Update),
		"deleteExpense": mutationOf(func(ctx context.Context, in idInput) (deleteResult, error) {
			if err := svc.Expenses.Delete(ctx, in.ID); err != nil {
				return deleteResult{}, err
			}
			return deleteResult{Success: true, ID: in.ID}, nil
		}),
		"searchExpenses": queryOf(svc.Search.Search),

		"createMonthlyBudget": mutationOf(svc.Budgets.Create),
		"getMonthlyBudgets": queryOf(func(ctx context.Context, in budgetScope) ([]core.MonthlyBudget, error) {
			return svc.Budgets.List(ctx, in.ProjectID, in.Year)
		}),
		"updateMonthlyBudget": mutationOf(svc.Budgets.Update),

		"getAnalytics": queryOf(func(ctx context.Context, q core.AnalyticsQuery) (analytics.Report, error) {
			return svc.Analytics.Get(ctx, q)
		}),
		"getDashboardSummary": queryOf(func(ctx context.Context, in dashboardInput) (core.DashboardSummary, error) {
			return svc.Dashboard.Summary(ctx, in.UserID)
		}),

		"exportData": mutationOf(svc.Transfer.Export),
		"importData": mutationOf(svc.Transfer.Import),

		"getExpenseTypes":    constant(core.ExpenseTypeOptions),
		"getCurrencies":      constant(core.CurrencyOptions),
		"getLanguages":       constant(core.LanguageOptions),
		"getExpenseStatuses": constant(core.StatusOptions),
	}
}
