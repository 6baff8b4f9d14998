// Package sheets mirrors expenses into a spreadsheet, one row per expense.
package sheets

import (
	"context"
	"strconv"
	"strings"

	"renovo/internal/core"
)

// Mirror keeps a spreadsheet row in step with each stored expense.
type Mirror interface {
	// Upsert writes the expense's row, replacing an existing one with the same id.
	Upsert(ctx context.Context, e core.Expense) (rowRef string, err error)
	// Remove clears the expense's row. A missing row is not an error.
	Remove(ctx context.Context, expenseID int64) error
}

// Header is the first row of the mirror sheet. Column A always holds the id.
var Header = []string{
	"ID", "Project", "Date", "Type", "Title", "Vendor", "Amount", "Currency",
	"Rate", "Normalized", "Status", "Category", "Tags",
}

// Row renders an expense in Header order.
func Row(e core.Expense) []any {
	category := ""
	if e.CategoryID != nil {
		category = strconv.FormatInt(*e.CategoryID, 10)
	}
	return []any{
		strconv.FormatInt(e.ID, 10),
		e.ProjectID,
		e.ExpenseDate.String(),
		e.Type.Label(),
		e.Title,
		core.Deref(e.VendorName),
		e.Amount.Float64(),
		string(e.Currency),
		e.ExchangeRate.String(),
		e.NormalizedAmount().Float64(),
		string(e.Status),
		category,
		strings.Join(e.Tags, ", "),
	}
}

// FindRow returns the 1-based sheet row whose first cell is id, or 0.
// ids is column A as read from the sheet, header included.
func FindRow(ids [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range ids {
		if len(row) == 0 {
			continue
		}
		if v, ok := row[0].(string); ok && strings.TrimSpace(v) == want {
			return i + 1
		}
	}
	return 0
}
