package analytics

import (
	"cmp"
	"slices"
	"strings"

	"renovo/internal/core"
)

const (
	// TopVendorLimit caps the vendor ranking.
	TopVendorLimit = 10
	// UncategorizedName labels expenses without a (known) category.
	UncategorizedName = "Uncategorized"
)

type TypeTotal struct {
	Type   core.ExpenseType `json:"type"`
	Label  string           `json:"label"`
	Amount core.Money       `json:"amount"`
	Count  int              `json:"count"`
}

type CategoryTotal struct {
	CategoryID       *int64     `json:"category_id"`
	CategoryName     string     `json:"category_name"`
	Amount           core.Money `json:"amount"`
	Count            int        `json:"count"`
	BudgetAllocation core.Money `json:"budget_allocation"`
}

type TrendPoint struct {
	Period string     `json:"period"`
	Start  core.Date  `json:"start"`
	Amount core.Money `json:"amount"`
	Count  int        `json:"count"`
}

type VendorTotal struct {
	VendorName       string     `json:"vendor_name"`
	Amount           core.Money `json:"amount"`
	Count            int        `json:"count"`
	FirstExpenseDate core.Date  `json:"first_expense_date"`
}

// Report is the result of getAnalytics. Amounts are in the project currency.
type Report struct {
	ProjectID          int64           `json:"project_id"`
	Currency           core.Currency   `json:"currency"`
	DateFrom           core.Date       `json:"date_from"`
	DateTo             core.Date       `json:"date_to"`
	GroupBy            core.GroupBy    `json:"group_by"`
	TotalSpent         core.Money      `json:"total_spent"`
	TotalBudget        core.Money      `json:"total_budget"`
	BudgetUtilization  float64         `json:"budget_utilization"`
	ExpenseCount       int             `json:"expense_count"`
	ExpensesByType     []TypeTotal     `json:"expenses_by_type"`
	ExpensesByCategory []CategoryTotal `json:"expenses_by_category"`
	MonthlyTrends      []TrendPoint    `json:"monthly_trends"`
	TopVendors         []VendorTotal   `json:"top_vendors"`
}

// Compute builds the report for q from the given project data. It does no I/O;
// expenses outside the query window or belonging to another project are skipped.
func Compute(project core.Project, categories []core.Category, expenses []core.Expense, q core.AnalyticsQuery) Report {
	g := GranularityFor(q.GroupBy)
	report := Report{
		ProjectID:          project.ID,
		Currency:           project.Currency,
		DateFrom:           q.DateFrom,
		DateTo:             q.DateTo,
		GroupBy:            q.GroupBy,
		TotalBudget:        project.TotalBudget,
		ExpensesByType:     []TypeTotal{},
		ExpensesByCategory: []CategoryTotal{},
		MonthlyTrends:      []TrendPoint{},
		TopVendors:         []VendorTotal{},
	}

	known := make(map[int64]core.Category, len(categories))
	for _, c := range categories {
		if c.ProjectID == project.ID {
			known[c.ID] = c
		}
	}

	byType := make(map[core.ExpenseType]*TypeTotal)
	byCategory := make(map[int64]*CategoryTotal)
	var uncategorized *CategoryTotal
	byVendor := make(map[string]*VendorTotal)
	byBucket := make(map[string]*TrendPoint)

	for _, e := range expenses {
		if e.ProjectID != project.ID || e.ExpenseDate.Before(q.DateFrom) || e.ExpenseDate.After(q.DateTo) {
			continue
		}
		amount := e.NormalizedAmount()
		report.TotalSpent = report.TotalSpent.Add(amount)
		report.ExpenseCount++

		tt, ok := byType[e.Type]
		if !ok {
			tt = &TypeTotal{Type: e.Type, Label: e.Type.Label()}
			byType[e.Type] = tt
		}
		tt.Amount = tt.Amount.Add(amount)
		tt.Count++

		var ct *CategoryTotal
		if c, found := known[core.Deref(e.CategoryID)]; e.CategoryID != nil && found {
			ct = byCategory[c.ID]
			if ct == nil {
				id := c.ID
				ct = &CategoryTotal{CategoryID: &id, CategoryName: c.Name, BudgetAllocation: c.BudgetAllocation}
				byCategory[c.ID] = ct
			}
		} else {
			if uncategorized == nil {
				uncategorized = &CategoryTotal{CategoryName: UncategorizedName}
			}
			ct = uncategorized
		}
		ct.Amount = ct.Amount.Add(amount)
		ct.Count++

		if name := strings.TrimSpace(core.Deref(e.VendorName)); name != "" {
			key := strings.ToLower(name)
			vt, ok := byVendor[key]
			if !ok {
				vt = &VendorTotal{VendorName: name, FirstExpenseDate: e.ExpenseDate}
				byVendor[key] = vt
			} else if e.ExpenseDate.Before(vt.FirstExpenseDate) {
				vt.FirstExpenseDate = e.ExpenseDate
			}
			vt.Amount = vt.Amount.Add(amount)
			vt.Count++
		}

		key := BucketKey(e.ExpenseDate.Time, g)
		tp, ok := byBucket[key]
		if !ok {
			tp = &TrendPoint{Period: key}
			byBucket[key] = tp
		}
		tp.Amount = tp.Amount.Add(amount)
		tp.Count++
	}

	report.BudgetUtilization = core.Ratio(report.TotalSpent, report.TotalBudget)

	for _, t := range core.ExpenseTypes {
		if tt, ok := byType[t]; ok {
			report.ExpensesByType = append(report.ExpensesByType, *tt)
		}
	}

	for _, ct := range byCategory {
		report.ExpensesByCategory = append(report.ExpensesByCategory, *ct)
	}
	if uncategorized != nil {
		report.ExpensesByCategory = append(report.ExpensesByCategory, *uncategorized)
	}
	slices.SortFunc(report.ExpensesByCategory, func(a, b CategoryTotal) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		if c := strings.Compare(a.CategoryName, b.CategoryName); c != 0 {
			return c
		}
		return cmp.Compare(core.Deref(a.CategoryID), core.Deref(b.CategoryID))
	})

	for _, vt := range byVendor {
		report.TopVendors = append(report.TopVendors, *vt)
	}
	slices.SortFunc(report.TopVendors, func(a, b VendorTotal) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		if c := a.FirstExpenseDate.Compare(b.FirstExpenseDate.Time); c != 0 {
			return c
		}
		return strings.Compare(a.VendorName, b.VendorName)
	})
	if len(report.TopVendors) > TopVendorLimit {
		report.TopVendors = report.TopVendors[:TopVendorLimit]
	}

	// Gap-fill so every bucket in the window is present, oldest first.
	for _, start := range Buckets(q.DateFrom.Time, q.DateTo.Time, g) {
		key := BucketKey(start, g)
		point := TrendPoint{Period: key, Start: core.DateOf(start)}
		if tp, ok := byBucket[key]; ok {
			point.Amount, point.Count = tp.Amount, tp.Count
		}
		report.MonthlyTrends = append(report.MonthlyTrends, point)
	}

	return report
}
