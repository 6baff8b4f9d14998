// Package transfer encodes expenses for export and parses imported rows.
package transfer

import (
	"errors"
	"strconv"
	"strings"

	"renovo/internal/core"
)

// ImportColumns are the fields read from an imported row. Unknown columns are ignored.
var ImportColumns = []string{
	"type", "title", "description", "amount", "currency", "exchange_rate",
	"vendor_name", "receipt_url", "expense_date", "payment_method", "status",
	"tags", "category_id", "user_id",
}

// ExportColumns wraps the import columns with the read-only id and created_at.
var ExportColumns = append(append([]string{"id"}, ImportColumns...), "created_at")

// TagSeparator joins tags inside a single CSV cell.
const TagSeparator = ";"

// Record is one decoded data row keyed by lowercase column name.
// Row is 1-based and counts data rows only.
type Record struct {
	Row    int
	Fields map[string]string
}

func (r Record) get(col string) string {
	return strings.TrimSpace(r.Fields[col])
}

func (r Record) optional(col string) *string {
	if v := r.get(col); v != "" {
		return &v
	}
	return nil
}

// ParseRecord turns a record into a validated expense input for project p.
// userID is used when the row does not name a user and rows without a
// currency take the project's. The input is returned even when errors are
// reported so callers can show a preview.
func ParseRecord(rec Record, p core.Project, userID int64) (core.CreateExpenseInput, []core.ImportError) {
	var errs []core.ImportError
	fail := func(field, msg string) {
		errs = append(errs, core.ImportError{Row: rec.Row, Field: field, Message: msg})
	}

	in := core.CreateExpenseInput{
		ProjectID:     p.ID,
		UserID:        userID,
		Type:          core.ExpenseType(strings.ToLower(rec.get("type"))),
		Title:         rec.get("title"),
		Description:   rec.optional("description"),
		Currency:      core.Currency(rec.get("currency")),
		VendorName:    rec.optional("vendor_name"),
		ReceiptURL:    rec.optional("receipt_url"),
		PaymentMethod: rec.optional("payment_method"),
		Status:        core.ExpenseStatus(strings.ToLower(rec.get("status"))),
	}

	if v := rec.get("amount"); v == "" {
		fail("amount", core.ErrInvalidAmount.Error())
	} else if m, err := core.ParseMoney(v); err != nil {
		fail("amount", err.Error())
	} else {
		in.Amount = m
	}

	if v := rec.get("exchange_rate"); v != "" {
		if r, err := core.ParseRate(v); err != nil {
			fail("exchange_rate", err.Error())
		} else {
			in.ExchangeRate = r
		}
	}

	if v := rec.get("expense_date"); v == "" {
		fail("expense_date", core.ErrMissingDate.Error())
	} else if d, err := core.ParseDate(v); err != nil {
		fail("expense_date", err.Error())
	} else {
		in.ExpenseDate = d
	}

	if v := rec.get("tags"); v != "" {
		in.Tags = strings.Split(v, TagSeparator)
	}

	if v := rec.get("category_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err != nil || id <= 0 {
			fail("category_id", core.ErrMissingID.Error())
		} else {
			in.CategoryID = &id
		}
	}

	if v := rec.get("user_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err != nil || id <= 0 {
			fail("user_id", core.ErrMissingID.Error())
		} else {
			in.UserID = id
		}
	}

	in.Normalize()
	if in.Currency == "" {
		in.Currency = p.Currency
	}
	if err := in.Validate(); err != nil {
		var ce *core.Error
		if errors.As(err, &ce) {
			for _, f := range ce.Fields {
				if hasField(errs, f.Field) {
					continue
				}
				fail(f.Field, f.Message)
			}
		}
	}
	return in, errs
}

func hasField(errs []core.ImportError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

// DuplicateKey identifies an expense for duplicate detection on import.
func DuplicateKey(date core.Date, amount core.Money, currency core.Currency, title string, vendor *string) string {
	return strings.Join([]string{
		date.String(),
		strconv.FormatInt(amount.Cents, 10),
		string(currency),
		strings.ToLower(strings.TrimSpace(title)),
		strings.ToLower(strings.TrimSpace(core.Deref(vendor))),
	}, "|")
}

// ExpenseKey is DuplicateKey for a stored expense.
func ExpenseKey(e core.Expense) string {
	return DuplicateKey(e.ExpenseDate, e.Amount, e.Currency, e.Title, e.VendorName)
}

func exportRow(e core.Expense) []string {
	row := make([]string, 0, len(ExportColumns))
	row = append(row,
		strconv.FormatInt(e.ID, 10),
		string(e.Type),
		e.Title,
		core.Deref(e.Description),
		e.Amount.String(),
		string(e.Currency),
		e.ExchangeRate.String(),
		core.Deref(e.VendorName),
		core.Deref(e.ReceiptURL),
		e.ExpenseDate.String(),
		core.Deref(e.PaymentMethod),
		string(e.Status),
		strings.Join(e.Tags, TagSeparator),
		"",
		strconv.FormatInt(e.UserID, 10),
		e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	)
	if e.CategoryID != nil {
		row[13] = strconv.FormatInt(*e.CategoryID, 10)
	}
	return row
}
