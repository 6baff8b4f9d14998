package analytics

import (
	"fmt"
	"testing"
	"time"

	"renovo/internal/core"
)

func ptr[T any](v T) *T { return &v }

func testProject() core.Project {
	return core.Project{
		ID:          1,
		UserID:      1,
		Name:        "Kitchen",
		TotalBudget: core.Money{Cents: 1000000},
		Currency:    core.USD,
		StartDate:   core.NewDate(2024, 1, 1),
		IsActive:    true,
	}
}

func expense(id int64, date core.Date, cents int64, rate string) core.Expense {
	return core.Expense{
		ID:           id,
		ProjectID:    1,
		UserID:       1,
		Type:         core.ExpensePurchase,
		Title:        fmt.Sprintf("expense %d", id),
		Amount:       core.Money{Cents: cents},
		Currency:     core.USD,
		ExchangeRate: core.MustRate(rate),
		ExpenseDate:  date,
		Status:       core.StatusPending,
	}
}

func TestComputeNormalizesCurrencies(t *testing.T) {
	usd := expense(1, core.NewDate(2024, 1, 10), 200000, "1")
	eur := expense(2, core.NewDate(2024, 2, 15), 50000, "1.1")
	eur.Currency = core.EUR

	q := core.AnalyticsQuery{ProjectID: 1, DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 3, 31), GroupBy: core.GroupByMonth}
	r := Compute(testProject(), nil, []core.Expense{usd, eur}, q)

	if r.TotalSpent.Cents != 255000 {
		t.Fatalf("total spent = %s, want 2550.00", r.TotalSpent)
	}
	if r.BudgetUtilization != 0.255 {
		t.Fatalf("utilization = %v, want 0.255", r.BudgetUtilization)
	}
	if r.ExpenseCount != 2 {
		t.Fatalf("count = %d", r.ExpenseCount)
	}
	if len(r.MonthlyTrends) != 3 {
		t.Fatalf("expected 3 buckets, got %d", len(r.MonthlyTrends))
	}
	want := []struct {
		period string
		cents  int64
	}{{"2024-01", 200000}, {"2024-02", 55000}, {"2024-03", 0}}
	for i, w := range want {
		got := r.MonthlyTrends[i]
		if got.Period != w.period || got.Amount.Cents != w.cents {
			t.Errorf("bucket %d = %s %d, want %s %d", i, got.Period, got.Amount.Cents, w.period, w.cents)
		}
	}
}

func TestComputeEmptyWindow(t *testing.T) {
	q := core.AnalyticsQuery{ProjectID: 1, DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 1, 3), GroupBy: core.GroupByDay}
	r := Compute(testProject(), nil, nil, q)
	if r.TotalSpent.Cents != 0 || r.BudgetUtilization != 0 || r.ExpenseCount != 0 {
		t.Fatalf("expected zero aggregates, got %+v", r)
	}
	if len(r.ExpensesByType) != 0 || len(r.ExpensesByCategory) != 0 || len(r.TopVendors) != 0 {
		t.Fatalf("expected empty breakdowns, got %+v", r)
	}
	if len(r.MonthlyTrends) != 3 {
		t.Fatalf("expected 3 zero buckets, got %d", len(r.MonthlyTrends))
	}
	for _, p := range r.MonthlyTrends {
		if p.Amount.Cents != 0 {
			t.Fatalf("bucket %s not zero", p.Period)
		}
	}
}

func TestComputeIgnoresExpensesOutsideWindow(t *testing.T) {
	in := expense(1, core.NewDate(2024, 1, 31), 100, "1")
	out := expense(2, core.NewDate(2024, 2, 1), 900, "1")
	other := expense(3, core.NewDate(2024, 1, 15), 900, "1")
	other.ProjectID = 2

	q := core.AnalyticsQuery{ProjectID: 1, DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 1, 31), GroupBy: core.GroupByMonth}
	r := Compute(testProject(), nil, []core.Expense{in, out, other}, q)
	if r.TotalSpent.Cents != 100 || r.ExpenseCount != 1 {
		t.Fatalf("got %s over %d expenses", r.TotalSpent, r.ExpenseCount)
	}
}

func TestComputeCategories(t *testing.T) {
	cats := []core.Category{
		{ID: 10, ProjectID: 1, Name: "Tiles", BudgetAllocation: core.Money{Cents: 50000}},
		{ID: 11, ProjectID: 1, Name: "Labor", BudgetAllocation: core.Money{Cents: 90000}},
	}
	a := expense(1, core.NewDate(2024, 1, 2), 3000, "1")
	a.CategoryID = ptr(int64(10))
	b := expense(2, core.NewDate(2024, 1, 3), 8000, "1")
	b.CategoryID = ptr(int64(11))
	c := expense(3, core.NewDate(2024, 1, 4), 1000, "1")
	d := expense(4, core.NewDate(2024, 1, 5), 500, "1")
	d.CategoryID = ptr(int64(99)) // unknown

	q := core.AnalyticsQuery{ProjectID: 1, DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 1, 31), GroupBy: core.GroupByCategory}
	r := Compute(testProject(), cats, []core.Expense{a, b, c, d}, q)

	if len(r.ExpensesByCategory) != 3 {
		t.Fatalf("expected 3 categories, got %+v", r.ExpensesByCategory)
	}
	names := []string{"Labor", "Tiles", UncategorizedName}
	for i, n := range names {
		if r.ExpensesByCategory[i].CategoryName != n {
			t.Fatalf("position %d = %s, want %s", i, r.ExpensesByCategory[i].CategoryName, n)
		}
	}
	un := r.ExpensesByCategory[2]
	if un.CategoryID != nil || un.Amount.Cents != 1500 || un.Count != 2 {
		t.Fatalf("uncategorized bucket = %+v", un)
	}
	if r.ExpensesByCategory[0].BudgetAllocation.Cents != 90000 {
		t.Fatalf("allocation not carried: %+v", r.ExpensesByCategory[0])
	}
	if len(r.MonthlyTrends) != 1 || r.MonthlyTrends[0].Period != "2024-01" {
		t.Fatalf("category grouping should trend by month, got %+v", r.MonthlyTrends)
	}
}

func TestComputeTypesInFixedOrder(t *testing.T) {
	a := expense(1, core.NewDate(2024, 1, 2), 100, "1")
	a.Type = core.ExpenseWorkService
	b := expense(2, core.NewDate(2024, 1, 2), 100, "1")
	b.Type = core.ExpenseAdvance

	q := core.AnalyticsQuery{ProjectID: 1, DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 1, 2), GroupBy: core.GroupByType}
	r := Compute(testProject(), nil, []core.Expense{a, b}, q)
	if len(r.ExpensesByType) != 2 || r.ExpensesByType[0].Type != core.ExpenseAdvance || r.ExpensesByType[1].Type != core.ExpenseWorkService {
		t.Fatalf("unexpected order %+v", r.ExpensesByType)
	}
}

func TestComputeTopVendors(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < 12; i++ {
		e := expense(int64(i+1), core.NewDate(2024, 1, 1+i), int64(1000+i*100), "1")
		e.VendorName = ptr(fmt.Sprintf("Vendor %02d", i))
		expenses = append(expenses, e)
	}
	// Ties on amount: earlier first expense wins.
	late := expense(20, core.NewDate(2024, 1, 20), 5000, "1")
	late.VendorName = ptr("Late")
	early := expense(21, core.NewDate(2024, 1, 19), 5000, "1")
	early.VendorName = ptr("  Early ")
	blank := expense(22, core.NewDate(2024, 1, 19), 9000, "1")
	blank.VendorName = ptr("   ")
	expenses = append(expenses, late, early, blank)

	q := core.AnalyticsQuery{ProjectID: 1, DateFrom: core.NewDate(2024, 1, 1), DateTo: core.NewDate(2024, 1, 31), GroupBy: core.GroupByMonth}
	r := Compute(testProject(), nil, expenses, q)

	if len(r.TopVendors) != TopVendorLimit {
		t.Fatalf("expected %d vendors, got %d", TopVendorLimit, len(r.TopVendors))
	}
	if r.TopVendors[0].VendorName != "Early" || r.TopVendors[1].VendorName != "Late" {
		t.Fatalf("tie order wrong: %s, %s", r.TopVendors[0].VendorName, r.TopVendors[1].VendorName)
	}
	for i := 1; i < len(r.TopVendors); i++ {
		if r.TopVendors[i].Amount.Cents > r.TopVendors[i-1].Amount.Cents {
			t.Fatalf("vendors not sorted at %d", i)
		}
	}
}

func TestBucketKey(t *testing.T) {
	cases := []struct {
		t    time.Time
		g    Granularity
		want string
	}{
		{time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Day, "2024-03-05"},
		{time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Month, "2024-03"},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Week, "2024-W01"},
		{time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), Week, "2025-W01"},
		{time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Week, "2022-W52"},
	}
	for _, tc := range cases {
		if got := BucketKey(tc.t, tc.g); got != tc.want {
			t.Errorf("BucketKey(%s, %s) = %s, want %s", tc.t.Format(time.DateOnly), tc.g, got, tc.want)
		}
	}
}

func TestBuckets(t *testing.T) {
	from := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC) // Wednesday
	to := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)  // Monday
	weeks := Buckets(from, to, Week)
	if len(weeks) != 3 {
		t.Fatalf("expected 3 weeks, got %d", len(weeks))
	}
	if !weeks[0].Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first week starts %s", weeks[0])
	}

	months := Buckets(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Month)
	if len(months) != 3 || BucketKey(months[1], Month) != "2024-02" {
		t.Fatalf("unexpected months %v", months)
	}
}
