// Package storagetest holds behaviour tests every storage.Store must pass.
package storagetest

import (
	"context"
	"testing"

	"renovo/internal/core"
	"renovo/internal/storage"
)

// Run exercises a fresh store returned by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("projects and categories", func(t *testing.T) { testProjects(t, newStore(t)) })
	t.Run("expenses", func(t *testing.T) { testExpenses(t, newStore(t)) })
	t.Run("expense filter", func(t *testing.T) { testExpenseFilter(t, newStore(t)) })
	t.Run("unicode case folding", func(t *testing.T) { testUnicodeFolding(t, newStore(t)) })
	t.Run("monthly budgets", func(t *testing.T) { testBudgets(t, newStore(t)) })
}

type fixture struct {
	user    core.User
	project core.Project
	cat     core.Category
}

func seed(t *testing.T, s storage.Store) fixture {
	t.Helper()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, core.User{Email: "ana@example.com", Name: "Ana", PreferredLanguage: core.English, PreferredCurrency: core.USD})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	p, err := s.CreateProject(ctx, core.Project{
		UserID: u.ID, Name: "Kitchen", TotalBudget: core.Money{Cents: 1000000},
		Currency: core.USD, StartDate: core.NewDate(2024, 1, 1), IsActive: true,
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	c, err := s.CreateCategory(ctx, core.Category{ProjectID: p.ID, Name: "Tiles", BudgetAllocation: core.Money{Cents: 50000}})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	return fixture{user: u, project: p, cat: c}
}

func newExpense(f fixture, title string, cents int64, date core.Date) core.Expense {
	return core.Expense{
		ProjectID:    f.project.ID,
		UserID:       f.user.ID,
		Type:         core.ExpensePurchase,
		Title:        title,
		Amount:       core.Money{Cents: cents},
		Currency:     core.USD,
		ExchangeRate: core.OneRate,
		ExpenseDate:  date,
		Status:       core.StatusPending,
		Tags:         []string{},
	}
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	if _, err := s.CreateUser(ctx, core.User{Email: f.user.Email, Name: "Dup", PreferredLanguage: core.English, PreferredCurrency: core.USD}); core.KindOf(err) != core.KindConflict {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "ana@example.com")
	if err != nil || got.ID != f.user.ID {
		t.Fatalf("get by email: %+v %v", got, err)
	}

	f.user.PreferredCurrency = core.EUR
	updated, err := s.UpdateUser(ctx, f.user)
	if err != nil || updated.PreferredCurrency != core.EUR {
		t.Fatalf("update: %+v %v", updated, err)
	}

	if _, err := s.GetUser(ctx, 9999); core.KindOf(err) != core.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("list: %v %v", users, err)
	}
}

func testProjects(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	desc := "Full remodel"
	end := core.NewDate(2024, 6, 30)
	f.project.Description = &desc
	f.project.EndDate = &end
	updated, err := s.UpdateProject(ctx, f.project)
	if err != nil {
		t.Fatalf("update project: %v", err)
	}
	if core.Deref(updated.Description) != desc || updated.EndDate == nil || *updated.EndDate != end {
		t.Fatalf("update not persisted: %+v", updated)
	}

	got, err := s.GetProject(ctx, f.project.ID)
	if err != nil || got.StartDate != core.NewDate(2024, 1, 1) || !got.IsActive {
		t.Fatalf("get project: %+v %v", got, err)
	}

	projects, err := s.ListProjects(ctx, &f.user.ID)
	if err != nil || len(projects) != 1 {
		t.Fatalf("list projects: %v %v", projects, err)
	}
	other := int64(9999)
	if projects, _ := s.ListProjects(ctx, &other); len(projects) != 0 {
		t.Fatalf("expected no projects for unknown user")
	}

	f.cat.BudgetAllocation = core.Money{Cents: 70000}
	cat, err := s.UpdateCategory(ctx, f.cat)
	if err != nil || cat.BudgetAllocation.Cents != 70000 {
		t.Fatalf("update category: %+v %v", cat, err)
	}
	cats, err := s.ListCategories(ctx, &f.project.ID)
	if err != nil || len(cats) != 1 {
		t.Fatalf("list categories: %v %v", cats, err)
	}
}

func testExpenses(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	vendor := "Tile World"
	e := newExpense(f, "Floor tiles", 12345, core.NewDate(2024, 2, 10))
	e.CategoryID = &f.cat.ID
	e.VendorName = &vendor
	e.ExchangeRate = core.MustRate("1.1")
	e.Currency = core.EUR
	e.Tags = []string{"floor", "bathroom"}

	created, err := s.CreateExpense(ctx, e)
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("id or timestamps not set: %+v", created)
	}

	got, err := s.GetExpense(ctx, created.ID)
	if err != nil {
		t.Fatalf("get expense: %v", err)
	}
	if got.ExpenseDate != e.ExpenseDate || got.Amount != e.Amount || !got.ExchangeRate.Equal(e.ExchangeRate.Decimal) {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "floor" || core.Deref(got.CategoryID) != f.cat.ID {
		t.Fatalf("tags or category lost: %+v", got)
	}

	got.Status = core.StatusApproved
	got.CategoryID = nil
	updated, err := s.UpdateExpense(ctx, got)
	if err != nil || updated.Status != core.StatusApproved || updated.CategoryID != nil {
		t.Fatalf("update expense: %+v %v", updated, err)
	}

	batch := []core.Expense{
		newExpense(f, "Grout", 500, core.NewDate(2024, 3, 1)),
		newExpense(f, "Paint", 700, core.NewDate(2024, 3, 2)),
	}
	if _, err := s.CreateExpenses(ctx, batch); err != nil {
		t.Fatalf("batch insert: %v", err)
	}

	bad := newExpense(f, "Orphan", 100, core.NewDate(2024, 3, 3))
	bad.UserID = 9999
	if _, err := s.CreateExpenses(ctx, []core.Expense{newExpense(f, "Ok", 100, core.NewDate(2024, 3, 3)), bad}); err == nil {
		t.Fatal("expected batch with missing user to fail")
	}

	inMarch, err := s.ExpensesInRange(ctx, f.project.ID, core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 31))
	if err != nil || len(inMarch) != 2 {
		t.Fatalf("expected the failed batch to leave nothing behind, got %d (%v)", len(inMarch), err)
	}
	all, _ := s.ExpensesInRange(ctx, f.project.ID, core.Date{}, core.Date{})
	if len(all) != 3 {
		t.Fatalf("open range returned %d", len(all))
	}

	hits, err := s.SearchCandidates(ctx, []string{"tile"}, &f.project.ID)
	if err != nil || len(hits) != 1 {
		t.Fatalf("search candidates: %v %v", hits, err)
	}

	if err := s.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteExpense(ctx, created.ID); core.KindOf(err) != core.KindNotFound {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func testExpenseFilter(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	depot := "Home Depot"
	a := newExpense(f, "Paint", 5000, core.NewDate(2024, 1, 5))
	a.VendorName = &depot
	a.Tags = []string{"walls"}
	b := newExpense(f, "Sink", 20000, core.NewDate(2024, 1, 6))
	b.CategoryID = &f.cat.ID
	b.Type = core.ExpenseWorkService
	c := newExpense(f, "brushes", 800, core.NewDate(2024, 1, 7))
	if _, err := s.CreateExpenses(ctx, []core.Expense{a, b, c}); err != nil {
		t.Fatal(err)
	}

	list := func(f core.ExpenseFilter) []string {
		t.Helper()
		f.Normalize()
		out, err := s.ListExpenses(ctx, f)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var titles []string
		for _, e := range out {
			titles = append(titles, e.Title)
		}
		return titles
	}
	eq := func(got []string, want ...string) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("got %v, want %v", got, want)
			}
		}
	}

	eq(list(core.ExpenseFilter{ProjectID: &f.project.ID, SortBy: core.SortByTitle, SortOrder: core.SortAsc}), "brushes", "Paint", "Sink")
	eq(list(core.ExpenseFilter{SortBy: core.SortByAmount, SortOrder: core.SortDesc}), "Sink", "Paint", "brushes")
	eq(list(core.ExpenseFilter{VendorName: "depot"}), "Paint")
	eq(list(core.ExpenseFilter{CategoryID: core.Null[int64](), SortBy: core.SortByDate, SortOrder: core.SortAsc}), "Paint", "brushes")
	eq(list(core.ExpenseFilter{CategoryID: core.Some(f.cat.ID)}), "Sink")
	eq(list(core.ExpenseFilter{Tags: []string{"walls"}}), "Paint")
	eq(list(core.ExpenseFilter{SearchTerm: "SIN"}), "Sink")
	typ := core.ExpenseWorkService
	eq(list(core.ExpenseFilter{Type: &typ}), "Sink")
	lo, hi := core.Money{Cents: 1000}, core.Money{Cents: 10000}
	eq(list(core.ExpenseFilter{AmountMin: &lo, AmountMax: &hi}), "Paint")
	from := core.NewDate(2024, 1, 6)
	eq(list(core.ExpenseFilter{DateFrom: &from, SortBy: core.SortByDate, SortOrder: core.SortAsc}), "Sink", "brushes")
	eq(list(core.ExpenseFilter{SortBy: core.SortByDate, SortOrder: core.SortAsc, Limit: 1, Offset: 1}), "Sink")
}

func testUnicodeFolding(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	vendor := "Électricité Dupont"
	e := newExpense(f, "Éclairage salon", 12000, core.NewDate(2024, 2, 1))
	e.VendorName = &vendor
	if _, err := s.CreateExpense(ctx, e); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateExpense(ctx, newExpense(f, "Eclairage cave", 3000, core.NewDate(2024, 2, 2))); err != nil {
		t.Fatal(err)
	}

	for _, flt := range []core.ExpenseFilter{
		{VendorName: "électricité"},
		{SearchTerm: "ÉCLAIRAGE"},
	} {
		flt.Normalize()
		got, err := s.ListExpenses(ctx, flt)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].Title != "Éclairage salon" {
			t.Errorf("filter %+v matched %d expenses", flt, len(got))
		}
	}

	got, err := s.SearchCandidates(ctx, []string{"éclairage"}, &f.project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("search candidates = %d, want 1", len(got))
	}
}

func testBudgets(t *testing.T, s storage.Store) {
	ctx := context.Background()
	f := seed(t, s)

	b := core.MonthlyBudget{ProjectID: f.project.ID, Year: 2024, Month: 3, AllocatedAmount: core.Money{Cents: 100000}, Currency: core.USD}
	created, err := s.CreateMonthlyBudget(ctx, b)
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	if _, err := s.CreateMonthlyBudget(ctx, b); core.KindOf(err) != core.KindConflict {
		t.Fatalf("expected conflict for duplicate month, got %v", err)
	}

	if err := s.SetMonthlySpent(ctx, f.project.ID, 2024, 3, core.Money{Cents: 4200}); err != nil {
		t.Fatal(err)
	}
	found, err := s.FindMonthlyBudget(ctx, f.project.ID, 2024, 3)
	if err != nil || found.ID != created.ID || found.SpentAmount.Cents != 4200 {
		t.Fatalf("find budget: %+v %v", found, err)
	}
	if _, err := s.FindMonthlyBudget(ctx, f.project.ID, 2024, 4); core.KindOf(err) != core.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	found.AllocatedAmount = core.Money{Cents: 150000}
	updated, err := s.UpdateMonthlyBudget(ctx, found)
	if err != nil || updated.AllocatedAmount.Cents != 150000 || updated.SpentAmount.Cents != 4200 {
		t.Fatalf("update budget: %+v %v", updated, err)
	}

	year := 2023
	if list, _ := s.ListMonthlyBudgets(ctx, f.project.ID, &year); len(list) != 0 {
		t.Fatalf("expected no 2023 budgets, got %v", list)
	}
	if list, _ := s.ListMonthlyBudgets(ctx, f.project.ID, nil); len(list) != 1 {
		t.Fatalf("expected one budget, got %v", list)
	}
}
