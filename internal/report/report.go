// Package report renders analytics and dashboard summaries for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"renovo/internal/analytics"
	"renovo/internal/core"
)

var (
	colorBorder = lipgloss.Color("#575653")
	colorAccent = lipgloss.Color("#3AA99F")
	colorGreen  = lipgloss.Color("#879A39")
	colorOrange = lipgloss.Color("#DA702C")
	colorRed    = lipgloss.Color("#D14D41")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

// Table is a titled grid; every column but the first is right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Render draws t with a rounded border. Empty tables render a placeholder row.
func (t Table) Render() string {
	rows := t.Rows
	if len(rows) == 0 {
		rows = [][]string{{"(none)"}}
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(t.Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle
			default:
				return numberStyle
			}
		})

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

// Analytics writes the report for project p.
func Analytics(w io.Writer, p core.Project, r analytics.Report) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s → %s", p.Name, r.DateFrom, r.DateTo)))
	b.WriteString("\n\n")

	b.WriteString(Table{
		Headers: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Spent", amount(r.TotalSpent, r.Currency)},
			{"Budget", amount(r.TotalBudget, r.Currency)},
			{"Utilization", utilization(r.BudgetUtilization)},
			{"Expenses", strconv.Itoa(r.ExpenseCount)},
		},
	}.Render())

	types := make([][]string, 0, len(r.ExpensesByType))
	for _, t := range r.ExpensesByType {
		types = append(types, []string{t.Label, t.Amount.String(), strconv.Itoa(t.Count)})
	}
	b.WriteString(Table{Title: "By type", Headers: []string{"Type", "Amount", "Count"}, Rows: types}.Render())

	cats := make([][]string, 0, len(r.ExpensesByCategory))
	for _, c := range r.ExpensesByCategory {
		cats = append(cats, []string{c.CategoryName, c.Amount.String(), strconv.Itoa(c.Count), c.BudgetAllocation.String()})
	}
	b.WriteString(Table{Title: "By category", Headers: []string{"Category", "Amount", "Count", "Allocated"}, Rows: cats}.Render())

	trend := make([][]string, 0, len(r.MonthlyTrends))
	for _, t := range r.MonthlyTrends {
		trend = append(trend, []string{t.Period, t.Amount.String(), strconv.Itoa(t.Count)})
	}
	b.WriteString(Table{Title: "Trend (" + string(r.GroupBy) + ")", Headers: []string{"Period", "Amount", "Count"}, Rows: trend}.Render())

	vendors := make([][]string, 0, len(r.TopVendors))
	for _, v := range r.TopVendors {
		vendors = append(vendors, []string{v.VendorName, v.Amount.String(), strconv.Itoa(v.Count), v.FirstExpenseDate.String()})
	}
	b.WriteString(Table{Title: "Top vendors", Headers: []string{"Vendor", "Amount", "Count", "First"}, Rows: vendors}.Render())

	_, err := io.WriteString(w, b.String())
	return err
}

// Dashboard writes a user's cross-project summary.
func Dashboard(w io.Writer, s core.DashboardSummary) error {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Dashboard for user %d", s.UserID)))
	b.WriteString("\n\n")

	overview := [][]string{
		{"Projects", fmt.Sprintf("%d (%d active)", s.TotalProjects, s.ActiveProjects)},
		{"Expenses", strconv.Itoa(s.TotalExpenses)},
		{"Spent", s.TotalSpent.String()},
		{"Budget", s.TotalBudget.String()},
		{"Utilization", utilization(s.BudgetUtilization)},
	}
	if s.MixedCurrencies {
		overview = append(overview, []string{"Note", "totals mix currencies"})
	}
	b.WriteString(Table{Headers: []string{"Metric", "Value"}, Rows: overview}.Render())

	recent := make([][]string, 0, len(s.RecentExpenses))
	for _, e := range s.RecentExpenses {
		recent = append(recent, []string{e.Title, e.ExpenseDate.String(), amount(e.Amount, e.Currency), string(e.Status)})
	}
	b.WriteString(Table{Title: "Recent expenses", Headers: []string{"Title", "Date", "Amount", "Status"}, Rows: recent}.Render())

	if len(s.Alerts) > 0 {
		b.WriteString(headerStyle.Render("Alerts"))
		b.WriteString("\n")
		for _, a := range s.Alerts {
			b.WriteString("  ")
			b.WriteString(severityStyle(a.Severity).Render(strings.ToUpper(string(a.Severity))))
			b.WriteString(" ")
			b.WriteString(a.Message)
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func amount(m core.Money, c core.Currency) string {
	return m.String() + " " + string(c)
}

func utilization(u float64) string {
	s := fmt.Sprintf("%.1f%%", u*100)
	switch {
	case u >= 1:
		return lipgloss.NewStyle().Foreground(colorRed).Render(s)
	case u >= 0.8:
		return lipgloss.NewStyle().Foreground(colorOrange).Render(s)
	default:
		return lipgloss.NewStyle().Foreground(colorGreen).Render(s)
	}
}

func severityStyle(s core.Severity) lipgloss.Style {
	switch s {
	case core.SeverityHigh:
		return lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	case core.SeverityMedium:
		return lipgloss.NewStyle().Foreground(colorOrange)
	default:
		return lipgloss.NewStyle().Foreground(colorAccent)
	}
}
