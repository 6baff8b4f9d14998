package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"renovo/internal/core"
)

const expenseColumns = `id, project_id, category_id, user_id, type, title, description, amount_cents, currency,
	exchange_rate, vendor_name, receipt_url, expense_date, payment_method, status, tags, created_at, updated_at`

const insertExpense = `INSERT INTO expenses (project_id, category_id, user_id, type, title, description, amount_cents,
	currency, exchange_rate, vendor_name, receipt_url, expense_date, payment_method, status, tags, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING ` + expenseColumns

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                                       core.Expense
		categoryID                              sql.NullInt64
		description, vendor, receipt, payMethod sql.NullString
		rate, date, tags                        string
		ts                                      timestamps
	)
	if err := s.Scan(&e.ID, &e.ProjectID, &categoryID, &e.UserID, &e.Type, &e.Title, &description,
		&e.Amount.Cents, &e.Currency, &rate, &vendor, &receipt, &date, &payMethod, &e.Status, &tags,
		&ts.created, &ts.updated); err != nil {
		return core.Expense{}, err
	}
	var err error
	e.CategoryID = intPtr(categoryID)
	e.Description = strPtr(description)
	e.VendorName = strPtr(vendor)
	e.ReceiptURL = strPtr(receipt)
	e.PaymentMethod = strPtr(payMethod)
	if e.ExchangeRate, err = core.ParseRate(rate); err != nil {
		return core.Expense{}, fmt.Errorf("exchange_rate %q: %w", rate, err)
	}
	if e.ExpenseDate, err = core.ParseDate(date); err != nil {
		return core.Expense{}, fmt.Errorf("expense_date %q: %w", date, err)
	}
	if e.Tags, err = decodeTags(tags); err != nil {
		return core.Expense{}, err
	}
	if err := ts.apply(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLRepository) insertExpense(ctx context.Context, q querier, e core.Expense, now string) (core.Expense, error) {
	row := r.queryRow(ctx, q, insertExpense,
		e.ProjectID, nullInt(e.CategoryID), e.UserID, e.Type, e.Title, nullString(e.Description),
		e.Amount.Cents, e.Currency, e.ExchangeRate.String(), nullString(e.VendorName),
		nullString(e.ReceiptURL), dateArg(e.ExpenseDate), nullString(e.PaymentMethod), e.Status,
		encodeTags(e.Tags), now, now)
	created, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, translateError(err, "expense")
	}
	return created, nil
}

func (r *SQLRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := r.insertExpense(ctx, r.db, e, r.timestamp())
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return created, nil
}

func (r *SQLRepository) CreateExpenses(ctx context.Context, es []core.Expense) ([]core.Expense, error) {
	created := make([]core.Expense, 0, len(es))
	now := r.timestamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for i, e := range es {
			c, err := r.insertExpense(ctx, tx, e, now)
			if err != nil {
				return fmt.Errorf("insert expense %d of %d: %w", i+1, len(es), err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *SQLRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.queryRow(ctx, r.db, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense", id)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	row := r.queryRow(ctx, r.db,
		`UPDATE expenses SET category_id = ?, type = ?, title = ?, description = ?, amount_cents = ?,
		 currency = ?, exchange_rate = ?, vendor_name = ?, receipt_url = ?, expense_date = ?,
		 payment_method = ?, status = ?, tags = ?, updated_at = ?
		 WHERE id = ? RETURNING `+expenseColumns,
		nullInt(e.CategoryID), e.Type, e.Title, nullString(e.Description), e.Amount.Cents,
		e.Currency, e.ExchangeRate.String(), nullString(e.VendorName), nullString(e.ReceiptURL),
		dateArg(e.ExpenseDate), nullString(e.PaymentMethod), e.Status, encodeTags(e.Tags),
		r.timestamp(), e.ID)
	updated, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.NotFound("expense", e.ID)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, translateError(err, "expense"))
	}
	return updated, nil
}

func (r *SQLRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, r.db, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return core.NotFound("expense", id)
	}
	return nil
}

var expenseSortColumns = map[core.SortField]string{
	core.SortByDate:      "expense_date",
	core.SortByAmount:    "amount_cents",
	core.SortByTitle:     "fold(title)",
	core.SortByCreatedAt: "created_at",
}

// whereBuilder accumulates AND-ed conditions with their arguments.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

const likeEscape = ` ESCAPE '\'`

func expenseFilterWhere(f core.ExpenseFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.ProjectID != nil {
		w.add("project_id = ?", *f.ProjectID)
	}
	if f.CategoryID.Set {
		if f.CategoryID.Valid {
			w.add("category_id = ?", f.CategoryID.Value)
		} else {
			w.add("category_id IS NULL")
		}
	}
	if f.UserID != nil {
		w.add("user_id = ?", *f.UserID)
	}
	if f.Type != nil {
		w.add("type = ?", *f.Type)
	}
	if f.Status != nil {
		w.add("status = ?", *f.Status)
	}
	if f.VendorName != "" {
		w.add("fold(COALESCE(vendor_name, '')) LIKE ?"+likeEscape, likePattern(f.VendorName))
	}
	if f.AmountMin != nil {
		w.add("amount_cents >= ?", f.AmountMin.Cents)
	}
	if f.AmountMax != nil {
		w.add("amount_cents <= ?", f.AmountMax.Cents)
	}
	if f.DateFrom != nil {
		w.add("expense_date >= ?", dateArg(*f.DateFrom))
	}
	if f.DateTo != nil {
		w.add("expense_date <= ?", dateArg(*f.DateTo))
	}
	if f.SearchTerm != "" {
		p := likePattern(f.SearchTerm)
		w.add("(fold(title) LIKE ?"+likeEscape+
			" OR fold(COALESCE(description, '')) LIKE ?"+likeEscape+
			" OR fold(COALESCE(vendor_name, '')) LIKE ?"+likeEscape+")", p, p, p)
	}
	if len(f.Tags) > 0 {
		var ors []string
		var args []any
		for _, tag := range f.Tags {
			quoted, _ := json.Marshal(tag)
			ors = append(ors, "tags LIKE ?"+likeEscape)
			args = append(args, "%"+strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(string(quoted))+"%")
		}
		w.add("("+strings.Join(ors, " OR ")+")", args...)
	}
	return w
}

func (r *SQLRepository) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	w := expenseFilterWhere(f)
	dir := "DESC"
	if f.SortOrder == core.SortAsc {
		dir = "ASC"
	}
	col, ok := expenseSortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	query := `SELECT ` + expenseColumns + ` FROM expenses` + w.String() +
		fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT ? OFFSET ?", col, dir, dir)
	args := append(w.args, f.Limit, f.Offset)

	rows, err := r.query(ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return collectExpenses(rows)
}

func (r *SQLRepository) ExpensesInRange(ctx context.Context, projectID int64, from, to core.Date) ([]core.Expense, error) {
	w := &whereBuilder{}
	w.add("project_id = ?", projectID)
	if !from.IsZero() {
		w.add("expense_date >= ?", dateArg(from))
	}
	if !to.IsZero() {
		w.add("expense_date <= ?", dateArg(to))
	}
	rows, err := r.query(ctx, r.db, `SELECT `+expenseColumns+` FROM expenses`+w.String()+` ORDER BY expense_date, id`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("expenses in range for project %d: %w", projectID, err)
	}
	return collectExpenses(rows)
}

func (r *SQLRepository) SearchCandidates(ctx context.Context, tokens []string, projectID *int64) ([]core.Expense, error) {
	if len(tokens) == 0 {
		return []core.Expense{}, nil
	}
	w := &whereBuilder{}
	if projectID != nil {
		w.add("project_id = ?", *projectID)
	}
	var ors []string
	var args []any
	for _, tok := range tokens {
		p := likePattern(tok)
		ors = append(ors,
			"fold(title) LIKE ?"+likeEscape,
			"fold(COALESCE(vendor_name, '')) LIKE ?"+likeEscape,
			"fold(COALESCE(description, '')) LIKE ?"+likeEscape)
		args = append(args, p, p, p)
	}
	w.add("("+strings.Join(ors, " OR ")+")", args...)

	rows, err := r.query(ctx, r.db, `SELECT `+expenseColumns+` FROM expenses`+w.String(), w.args...)
	if err != nil {
		return nil, fmt.Errorf("search expenses: %w", err)
	}
	return collectExpenses(rows)
}
