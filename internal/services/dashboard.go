package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"renovo/internal/core"
)

const (
	// RecentExpenseLimit is how many expenses the dashboard lists.
	RecentExpenseLimit = 5
	// dashboardFanout bounds concurrent per-project loads.
	dashboardFanout = 4

	approachingMedium = 0.8
	approachingHigh   = 0.9
)

type DashboardService struct{ *deps }

type projectSnapshot struct {
	project   core.Project
	expenses  []core.Expense
	spent     core.Money
	hasBudget bool
}

// Summary aggregates every project owned by userID.
func (s *DashboardService) Summary(ctx context.Context, userID int64) (core.DashboardSummary, error) {
	if userID <= 0 {
		return core.DashboardSummary{}, core.Validation("userId", core.ErrMissingID)
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.DashboardSummary{}, err
	}
	projects, err := s.store.ListProjects(ctx, &userID)
	if err != nil {
		return core.DashboardSummary{}, fmt.Errorf("list projects: %w", err)
	}

	today := core.DateOf(s.now())
	snaps := make([]projectSnapshot, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dashboardFanout)
	for i, p := range projects {
		g.Go(func() error {
			snap, err := s.snapshot(gctx, p, today)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.DashboardSummary{}, err
	}

	return summarize(userID, snaps), nil
}

func (s *DashboardService) snapshot(ctx context.Context, p core.Project, today core.Date) (projectSnapshot, error) {
	expenses, err := s.store.ExpensesInRange(ctx, p.ID, core.Date{}, core.Date{})
	if err != nil {
		return projectSnapshot{}, fmt.Errorf("load expenses of project %d: %w", p.ID, err)
	}
	snap := projectSnapshot{project: p, expenses: expenses}
	for _, e := range expenses {
		snap.spent = snap.spent.Add(e.NormalizedAmount())
	}

	_, err = s.store.FindMonthlyBudget(ctx, p.ID, today.Year(), today.Month())
	switch {
	case err == nil:
		snap.hasBudget = true
	case !core.IsKind(err, core.KindNotFound):
		return projectSnapshot{}, fmt.Errorf("look up monthly budget of project %d: %w", p.ID, err)
	}
	return snap, nil
}

func summarize(userID int64, snaps []projectSnapshot) core.DashboardSummary {
	sum := core.DashboardSummary{
		UserID:         userID,
		TotalProjects:  len(snaps),
		RecentExpenses: []core.Expense{},
		Alerts:         []core.SpendingAlert{},
	}

	currencies := map[core.Currency]bool{}
	var all []core.Expense
	for _, snap := range snaps {
		p := snap.project
		currencies[p.Currency] = true
		if p.IsActive {
			sum.ActiveProjects++
		}
		sum.TotalExpenses += len(snap.expenses)
		sum.TotalSpent = sum.TotalSpent.Add(snap.spent)
		sum.TotalBudget = sum.TotalBudget.Add(p.TotalBudget)
		all = append(all, snap.expenses...)

		if alert, ok := utilizationAlert(p, snap.spent); ok {
			sum.Alerts = append(sum.Alerts, alert)
		}
		if p.IsActive && !snap.hasBudget {
			sum.Alerts = append(sum.Alerts, core.SpendingAlert{
				Type:        core.AlertNoBudget,
				Severity:    core.SeverityLow,
				ProjectID:   p.ID,
				ProjectName: p.Name,
				Message:     fmt.Sprintf("%s has no budget for the current month", p.Name),
				Utilization: core.Ratio(snap.spent, p.TotalBudget),
			})
		}
	}
	sum.MixedCurrencies = len(currencies) > 1
	sum.BudgetUtilization = core.Ratio(sum.TotalSpent, sum.TotalBudget)

	slices.SortFunc(all, func(a, b core.Expense) int {
		if c := b.ExpenseDate.Compare(a.ExpenseDate.Time); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	if len(all) > RecentExpenseLimit {
		all = all[:RecentExpenseLimit]
	}
	sum.RecentExpenses = append(sum.RecentExpenses, all...)
	return sum
}

func utilizationAlert(p core.Project, spent core.Money) (core.SpendingAlert, bool) {
	u := core.Ratio(spent, p.TotalBudget)
	alert := core.SpendingAlert{ProjectID: p.ID, ProjectName: p.Name, Utilization: u}
	switch {
	case p.TotalBudget.Cents <= 0:
		return alert, false
	case u >= 1:
		alert.Type, alert.Severity = core.AlertBudgetExceeded, core.SeverityHigh
		alert.Message = fmt.Sprintf("%s is over budget: %s of %s %s spent", p.Name, spent, p.TotalBudget, p.Currency)
	case u >= approachingHigh:
		alert.Type, alert.Severity = core.AlertApproachingLimit, core.SeverityHigh
		alert.Message = fmt.Sprintf("%s has used %.0f%% of its budget", p.Name, u*100)
	case u >= approachingMedium:
		alert.Type, alert.Severity = core.AlertApproachingLimit, core.SeverityMedium
		alert.Message = fmt.Sprintf("%s has used %.0f%% of its budget", p.Name, u*100)
	default:
		return alert, false
	}
	return alert, true
}
