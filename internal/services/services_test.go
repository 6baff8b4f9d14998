package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"renovo/internal/analytics"
	"renovo/internal/cache"
	"renovo/internal/core"
	"renovo/internal/storage/memory"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc     *Services
	store   *memory.Store
	user    core.User
	project core.Project
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	store := memory.New()
	o := Options{
		Store:       store,
		ReportCache: cache.NewLRUCache[analytics.Report](16, time.Minute),
		Now:         func() time.Time { return testNow },
	}
	for _, fn := range opts {
		fn(&o)
	}
	svc := New(o)
	ctx := context.Background()

	u, err := svc.Users.Create(ctx, core.CreateUserInput{Email: "Ana@Example.com", Name: "Ana"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	p, err := svc.Projects.Create(ctx, core.CreateProjectInput{
		UserID:      u.ID,
		Name:        "Kitchen remodel",
		TotalBudget: core.Money{Cents: 1_000_000},
		StartDate:   core.NewDate(2024, 1, 1),
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return &fixture{svc: svc, store: store, user: u, project: p}
}

func (f *fixture) expense(t *testing.T, title string, cents int64, cur core.Currency, rate string, date core.Date) core.Expense {
	t.Helper()
	e, err := f.svc.Expenses.Create(context.Background(), core.CreateExpenseInput{
		ProjectID:    f.project.ID,
		UserID:       f.user.ID,
		Type:         core.ExpensePurchase,
		Title:        title,
		Amount:       core.Money{Cents: cents},
		Currency:     cur,
		ExchangeRate: core.MustRate(rate),
		ExpenseDate:  date,
	})
	if err != nil {
		t.Fatalf("create expense %q: %v", title, err)
	}
	return e
}

func wantKind(t *testing.T, err error, kind core.ErrorKind) {
	t.Helper()
	if !core.IsKind(err, kind) {
		t.Fatalf("err = %v (kind %s), want kind %s", err, core.KindOf(err), kind)
	}
}

func TestUserEmailIsUnique(t *testing.T) {
	f := newFixture(t)
	if f.user.Email != "ana@example.com" {
		t.Errorf("email not normalized: %s", f.user.Email)
	}
	_, err := f.svc.Users.Create(context.Background(), core.CreateUserInput{Email: "ana@example.com", Name: "Other"})
	wantKind(t, err, core.KindConflict)
}

func TestUpdateUserPreferences(t *testing.T) {
	f := newFixture(t)
	u, err := f.svc.Users.Update(context.Background(), core.UpdateUserInput{ID: f.user.ID, PreferredCurrency: ptr(core.EUR)})
	if err != nil {
		t.Fatal(err)
	}
	if u.PreferredCurrency != core.EUR || u.PreferredLanguage != core.English {
		t.Errorf("got %+v", u)
	}
}

func TestAnalyticsNormalizesCurrencies(t *testing.T) {
	f := newFixture(t)
	f.expense(t, "Cabinets", 200000, core.USD, "1", core.NewDate(2024, 1, 1))
	f.expense(t, "Tiles", 50000, core.EUR, "1.1", core.NewDate(2024, 1, 2))

	r, err := f.svc.Analytics.Get(context.Background(), core.AnalyticsQuery{
		ProjectID: f.project.ID,
		DateFrom:  core.NewDate(2024, 1, 1),
		DateTo:    core.NewDate(2024, 3, 31),
	})
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalSpent.Cents != 255000 {
		t.Errorf("total spent = %d, want 255000", r.TotalSpent.Cents)
	}
	if r.BudgetUtilization != 0.255 {
		t.Errorf("utilization = %v, want 0.255", r.BudgetUtilization)
	}
	if len(r.MonthlyTrends) != 3 {
		t.Errorf("trend buckets = %d, want 3", len(r.MonthlyTrends))
	}
}

func TestAnalyticsRangeCheckedBeforeStorage(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Analytics.Get(context.Background(), core.AnalyticsQuery{
		ProjectID: 999,
		DateFrom:  core.NewDate(2024, 2, 1),
		DateTo:    core.NewDate(2024, 1, 1),
	})
	wantKind(t, err, core.KindInvalidRange)

	_, err = f.svc.Analytics.Get(context.Background(), core.AnalyticsQuery{
		ProjectID: 999,
		DateFrom:  core.NewDate(2024, 1, 1),
		DateTo:    core.NewDate(2024, 2, 1),
	})
	wantKind(t, err, core.KindNotFound)
}

func TestAnalyticsCacheInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	q := core.AnalyticsQuery{ProjectID: f.project.ID, DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 1, 31)}
	ctx := context.Background()

	first, err := f.svc.Analytics.Get(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if first.ExpenseCount != 0 {
		t.Fatalf("count = %d", first.ExpenseCount)
	}

	f.expense(t, "Sink", 30000, core.USD, "1", core.NewDate(2024, 1, 10))
	second, err := f.svc.Analytics.Get(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if second.ExpenseCount != 1 || second.TotalSpent.Cents != 30000 {
		t.Errorf("stale report: %+v", second)
	}
}

func TestCategoryAllocationsStayWithinBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Categories.Create(ctx, core.CreateCategoryInput{ProjectID: f.project.ID, Name: "Kitchen", BudgetAllocation: core.Money{Cents: 600_000}})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Categories.Create(ctx, core.CreateCategoryInput{ProjectID: f.project.ID, Name: "Bath", BudgetAllocation: core.Money{Cents: 500_000}})
	wantKind(t, err, core.KindConflict)

	if _, err := f.svc.Categories.Update(ctx, core.UpdateCategoryInput{ID: c.ID, BudgetAllocation: &core.Money{Cents: 1_000_000}}); err != nil {
		t.Fatalf("raising own allocation to the budget: %v", err)
	}
	_, err = f.svc.Projects.Update(ctx, core.UpdateProjectInput{ID: f.project.ID, TotalBudget: &core.Money{Cents: 500_000}})
	wantKind(t, err, core.KindConflict)
}

func TestExpenseCategoryMustBelongToProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.svc.Projects.Create(ctx, core.CreateProjectInput{UserID: f.user.ID, Name: "Garden", TotalBudget: core.Money{Cents: 1000}, StartDate: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	c, err := f.svc.Categories.Create(ctx, core.CreateCategoryInput{ProjectID: other.ID, Name: "Plants"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.Expenses.Create(ctx, core.CreateExpenseInput{
		ProjectID: f.project.ID, UserID: f.user.ID, CategoryID: &c.ID,
		Type: core.ExpenseAdvance, Title: "Deposit", Amount: core.Money{Cents: 100}, ExpenseDate: core.NewDate(2024, 1, 1),
	})
	wantKind(t, err, core.KindValidation)
}

func TestExpenseStatusLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.expense(t, "Paint", 5000, core.USD, "1", core.NewDate(2024, 2, 1))

	steps := []struct {
		to   core.ExpenseStatus
		kind core.ErrorKind
	}{
		{core.StatusCompleted, core.KindConflict},
		{core.StatusApproved, ""},
		{core.StatusCompleted, ""},
		{core.StatusPending, core.KindConflict},
	}
	for _, step := range steps {
		_, err := f.svc.Expenses.Update(ctx, core.UpdateExpenseInput{ID: e.ID, Status: ptr(step.to)})
		if step.kind == "" {
			if err != nil {
				t.Fatalf("-> %s: %v", step.to, err)
			}
			continue
		}
		wantKind(t, err, step.kind)
	}
}

func TestMonthlySpentFollowsExpenses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Budgets.Create(ctx, core.CreateMonthlyBudgetInput{ProjectID: f.project.ID, Year: 2024, Month: 1, AllocatedAmount: core.Money{Cents: 50000}}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Budgets.Create(ctx, core.CreateMonthlyBudgetInput{ProjectID: f.project.ID, Year: 2024, Month: 2, AllocatedAmount: core.Money{Cents: 50000}}); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.Budgets.Create(ctx, core.CreateMonthlyBudgetInput{ProjectID: f.project.ID, Year: 2024, Month: 1, AllocatedAmount: core.Money{Cents: 1}})
	wantKind(t, err, core.KindConflict)

	e := f.expense(t, "Grout", 10000, core.EUR, "1.1", core.NewDate(2024, 1, 20))
	spent := func(month int) int64 {
		t.Helper()
		b, err := f.store.FindMonthlyBudget(ctx, f.project.ID, 2024, month)
		if err != nil {
			t.Fatal(err)
		}
		return b.SpentAmount.Cents
	}
	if got := spent(1); got != 11000 {
		t.Fatalf("january spent = %d, want 11000", got)
	}

	if _, err := f.svc.Expenses.Update(ctx, core.UpdateExpenseInput{ID: e.ID, ExpenseDate: ptr(core.NewDate(2024, 2, 3))}); err != nil {
		t.Fatal(err)
	}
	if spent(1) != 0 || spent(2) != 11000 {
		t.Fatalf("after move: jan=%d feb=%d", spent(1), spent(2))
	}

	if err := f.svc.Expenses.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if spent(2) != 0 {
		t.Fatalf("feb spent after delete = %d", spent(2))
	}

	// Drift introduced behind the services' back is repaired by reconciliation.
	if err := f.store.SetMonthlySpent(ctx, f.project.ID, 2024, 1, core.Money{Cents: 999}); err != nil {
		t.Fatal(err)
	}
	n, err := f.svc.Budgets.ReconcileAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ReconcileAll = %d, %v", n, err)
	}
	if spent(1) != 0 {
		t.Errorf("jan spent after reconcile = %d", spent(1))
	}
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) PublishExpenseChanged(context.Context, core.ExpenseEvent) error {
	p.calls++
	return errors.New("broker unavailable")
}

func TestPublishFailureDoesNotFailTheWrite(t *testing.T) {
	pub := &failingPublisher{}
	f := newFixture(t, func(o *Options) { o.Publisher = pub })

	e := f.expense(t, "Lamp", 1999, core.USD, "1", core.NewDate(2024, 3, 1))
	if _, err := f.svc.Expenses.Get(context.Background(), e.ID); err != nil {
		t.Fatalf("expense not stored: %v", err)
	}
	if pub.calls != 1 {
		t.Errorf("publisher calls = %d", pub.calls)
	}
}

type recordingPublisher struct{ events []core.ExpenseEvent }

func (p *recordingPublisher) PublishExpenseChanged(_ context.Context, ev core.ExpenseEvent) error {
	p.events = append(p.events, ev)
	return nil
}

func TestImportAnnouncesEveryExpense(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, func(o *Options) { o.Publisher = pub })
	csv := "type,title,amount,expense_date\n" +
		"purchase,Paint,25.50,2024-03-03\n" +
		"purchase,Brushes,8,2024-03-04\n" +
		"work_service,Painter,300,2024-03-20\n"

	res, err := f.svc.Transfer.Import(context.Background(), core.ImportRequest{
		ProjectID: f.project.ID,
		Format:    core.FormatCSV,
		Data:      base64.StdEncoding.EncodeToString([]byte(csv)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.ImportedCount != 3 {
		t.Fatalf("res = %+v", res)
	}

	ids := map[int64]bool{}
	for _, ev := range pub.events {
		if ev.Action != core.ExpenseImported || ev.Year != 2024 || ev.Month != 3 {
			t.Errorf("event = %+v", ev)
		}
		ids[ev.ExpenseID] = true
	}
	if len(ids) != 3 {
		t.Errorf("announced %d distinct expenses, want 3: %+v", len(ids), pub.events)
	}
}

func TestExpenseCurrencyDefaultsToProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svc.Projects.Create(ctx, core.CreateProjectInput{UserID: f.user.ID, Name: "Cantina", TotalBudget: core.Money{Cents: 50000}, Currency: core.EUR, StartDate: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	e, err := f.svc.Expenses.Create(ctx, core.CreateExpenseInput{
		ProjectID: p.ID, UserID: f.user.ID, Type: core.ExpensePurchase, Title: "Shelves",
		Amount: core.Money{Cents: 4000}, ExpenseDate: core.NewDate(2024, 2, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Currency != core.EUR {
		t.Errorf("currency = %s, want EUR", e.Currency)
	}

	csv := "type,title,amount,expense_date\npurchase,Hooks,3,2024-02-02\n"
	res, err := f.svc.Transfer.Import(ctx, core.ImportRequest{
		ProjectID:    p.ID,
		Format:       core.FormatCSV,
		Data:         base64.StdEncoding.EncodeToString([]byte(csv)),
		ValidateOnly: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Preview) != 1 || res.Preview[0].Currency != core.EUR {
		t.Errorf("import preview = %+v", res.Preview)
	}
}

func TestMonthlyBudgetAllowsZeroAllocation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, err := f.svc.Budgets.Create(ctx, core.CreateMonthlyBudgetInput{ProjectID: f.project.ID, Year: 2024, Month: 4})
	if err != nil {
		t.Fatalf("zero allocation: %v", err)
	}
	if _, err := f.svc.Budgets.Update(ctx, core.UpdateMonthlyBudgetInput{ID: b.ID, AllocatedAmount: &core.Money{}}); err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	_, err = f.svc.Budgets.Create(ctx, core.CreateMonthlyBudgetInput{ProjectID: f.project.ID, Year: 2024, Month: 5, AllocatedAmount: core.Money{Cents: -1}})
	wantKind(t, err, core.KindValidation)
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 950000 of 1000000 spent: approaching limit, high.
	f.expense(t, "Contractor", 950000, core.USD, "1", core.NewDate(2024, 2, 1))
	for i := 0; i < 5; i++ {
		f.expense(t, "Screws", 1, core.USD, "1", core.NewDate(2024, 3, 1+i))
	}

	small, err := f.svc.Projects.Create(ctx, core.CreateProjectInput{UserID: f.user.ID, Name: "Shed", TotalBudget: core.Money{Cents: 10000}, Currency: core.EUR, StartDate: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Budgets.Create(ctx, core.CreateMonthlyBudgetInput{ProjectID: small.ID, Year: 2024, Month: 3, AllocatedAmount: core.Money{Cents: 5000}}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Expenses.Create(ctx, core.CreateExpenseInput{
		ProjectID: small.ID, UserID: f.user.ID, Type: core.ExpenseWorkService, Title: "Roof",
		Amount: core.Money{Cents: 12000}, Currency: core.EUR, ExpenseDate: core.NewDate(2024, 1, 5),
	}); err != nil {
		t.Fatal(err)
	}

	sum, err := f.svc.Dashboard.Summary(ctx, f.user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.TotalProjects != 2 || sum.ActiveProjects != 2 || sum.TotalExpenses != 7 {
		t.Errorf("counts = %d/%d/%d", sum.TotalProjects, sum.ActiveProjects, sum.TotalExpenses)
	}
	if !sum.MixedCurrencies {
		t.Error("expected mixed currencies")
	}
	if len(sum.RecentExpenses) != RecentExpenseLimit || sum.RecentExpenses[0].ExpenseDate.String() != "2024-03-05" {
		t.Errorf("recent = %+v", sum.RecentExpenses)
	}

	type key struct {
		project int64
		typ     core.AlertType
	}
	got := map[key]core.Severity{}
	for _, a := range sum.Alerts {
		got[key{a.ProjectID, a.Type}] = a.Severity
	}
	want := map[key]core.Severity{
		{f.project.ID, core.AlertApproachingLimit}: core.SeverityHigh,
		{f.project.ID, core.AlertNoBudget}:         core.SeverityLow,
		{small.ID, core.AlertBudgetExceeded}:       core.SeverityHigh,
	}
	if len(got) != len(want) {
		t.Fatalf("alerts = %+v", sum.Alerts)
	}
	for k, sev := range want {
		if got[k] != sev {
			t.Errorf("alert %+v severity = %q, want %q", k, got[k], sev)
		}
	}

	_, err = f.svc.Dashboard.Summary(ctx, 404)
	wantKind(t, err, core.KindNotFound)
}

func TestExportThenImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expense(t, "Cabinets", 200000, core.USD, "1", core.NewDate(2024, 1, 1))
	f.expense(t, "Tiles", 50000, core.EUR, "1.1", core.NewDate(2024, 1, 2))

	for _, format := range []core.ExportFormat{core.FormatCSV, core.FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			out, err := f.svc.Transfer.Export(ctx, core.ExportOptions{ProjectID: f.project.ID, Format: format})
			if err != nil {
				t.Fatal(err)
			}
			if out.Filename != "expenses_export_2024-03-15."+string(format) || out.MimeType != format.MimeType() {
				t.Errorf("result = %s %s", out.Filename, out.MimeType)
			}

			// Re-importing into the same project only finds duplicates.
			res, err := f.svc.Transfer.Import(ctx, core.ImportRequest{ProjectID: f.project.ID, Format: format, Data: out.Data})
			if err != nil {
				t.Fatal(err)
			}
			if res.Success || res.ImportedCount != 0 || len(res.Errors) != 2 {
				t.Fatalf("duplicate import = %+v", res)
			}

			target, err := f.svc.Projects.Create(ctx, core.CreateProjectInput{UserID: f.user.ID, Name: "Copy " + string(format), TotalBudget: core.Money{Cents: 100}, StartDate: core.NewDate(2024, 1, 1)})
			if err != nil {
				t.Fatal(err)
			}
			req := core.ImportRequest{ProjectID: target.ID, Format: format, Data: out.Data, ValidateOnly: true}
			preview, err := f.svc.Transfer.Import(ctx, req)
			if err != nil {
				t.Fatal(err)
			}
			if !preview.Success || len(preview.Preview) != 2 || preview.ImportedCount != 0 {
				t.Fatalf("preview = %+v", preview)
			}

			req.ValidateOnly = false
			res, err = f.svc.Transfer.Import(ctx, req)
			if err != nil {
				t.Fatal(err)
			}
			if !res.Success || res.ImportedCount != 2 {
				t.Fatalf("import = %+v", res)
			}
		})
	}
}

func TestImportIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	csv := "type,title,amount,expense_date,vendor_name\n" +
		"purchase,Paint,25.50,2024-01-03,Brico\n" +
		"purchase,paint,25.5,2024-01-03,brico\n" +
		"advance,Deposit,-3,2024-01-04,\n"

	res, err := f.svc.Transfer.Import(ctx, core.ImportRequest{
		ProjectID: f.project.ID,
		Format:    core.FormatCSV,
		Data:      base64.StdEncoding.EncodeToString([]byte(csv)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || res.ImportedCount != 0 {
		t.Fatalf("res = %+v", res)
	}
	want := []core.ImportError{
		{Row: 2, Field: "row", Message: "duplicates row 1"},
		{Row: 3, Field: "amount", Message: core.ErrNegativeAmount.Error()},
	}
	if len(res.Errors) != len(want) {
		t.Fatalf("errors = %+v", res.Errors)
	}
	for i := range want {
		if res.Errors[i] != want[i] {
			t.Errorf("error %d = %+v, want %+v", i, res.Errors[i], want[i])
		}
	}

	all, err := f.svc.Expenses.List(ctx, core.ExpenseFilter{ProjectID: &f.project.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("%d expenses stored after a failed import", len(all))
	}
}

func TestImportRejectsBadPayload(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transfer.Import(context.Background(), core.ImportRequest{ProjectID: f.project.ID, Format: core.FormatCSV, Data: "%%%"})
	wantKind(t, err, core.KindValidation)
}

func TestSearchRanksTitleFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.expense(t, "Oak flooring", 1000, core.USD, "1", core.NewDate(2024, 1, 1))
	vendor := f.expense(t, "Delivery", 1000, core.USD, "1", core.NewDate(2024, 1, 2))
	if _, err := f.svc.Expenses.Update(ctx, core.UpdateExpenseInput{ID: vendor.ID, VendorName: core.Some("Oak & Co")}); err != nil {
		t.Fatal(err)
	}
	f.expense(t, "Nails", 1000, core.USD, "1", core.NewDate(2024, 1, 3))

	got, err := f.svc.Search.Search(ctx, core.SearchQuery{SearchTerm: "oak", ProjectID: &f.project.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Title != "Oak flooring" || got[1].ID != vendor.ID {
		t.Fatalf("results = %+v", got)
	}

	_, err = f.svc.Search.Search(ctx, core.SearchQuery{SearchTerm: "  "})
	wantKind(t, err, core.KindValidation)
}
