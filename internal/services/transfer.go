package services

import (
	"cmp"
	"context"
	"encoding/base64"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"renovo/internal/analytics"
	"renovo/internal/core"
	"renovo/internal/log"
	"renovo/internal/transfer"
)

// TransferService exports expenses to files and imports them back.
type TransferService struct{ *deps }

// Export encodes the project's expenses in the requested format.
func (s *TransferService) Export(ctx context.Context, opts core.ExportOptions) (core.ExportResult, error) {
	if err := opts.Validate(); err != nil {
		return core.ExportResult{}, err
	}
	p, err := s.store.GetProject(ctx, opts.ProjectID)
	if err != nil {
		return core.ExportResult{}, err
	}
	expenses, err := s.exportable(ctx, p.ID, opts)
	if err != nil {
		return core.ExportResult{}, err
	}

	var data []byte
	switch opts.Format {
	case core.FormatCSV:
		data, err = transfer.EncodeCSV(expenses)
	case core.FormatJSON:
		data, err = transfer.EncodeJSON(expenses)
	case core.FormatPDF:
		data, err = s.renderPDF(ctx, p, expenses, opts)
	}
	if err != nil {
		return core.ExportResult{}, fmt.Errorf("export project %d as %s: %w", p.ID, opts.Format, err)
	}

	now := s.now()
	s.logger.InfoContext(ctx, "Expenses exported",
		log.FieldProjectID, p.ID,
		log.FieldOperation, log.OpExport,
		"format", opts.Format,
		log.FieldCount, len(expenses))
	return core.ExportResult{
		Data:     base64.StdEncoding.EncodeToString(data),
		Filename: fmt.Sprintf("expenses_export_%s.%s", now.Format(core.DateLayout), opts.Format.Extension()),
		MimeType: opts.Format.MimeType(),
	}, nil
}

func (s *TransferService) exportable(ctx context.Context, projectID int64, opts core.ExportOptions) ([]core.Expense, error) {
	var from, to core.Date
	if opts.DateFrom != nil {
		from = *opts.DateFrom
	}
	if opts.DateTo != nil {
		to = *opts.DateTo
	}
	all, err := s.store.ExpensesInRange(ctx, projectID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		if len(opts.Categories) > 0 && (e.CategoryID == nil || !slices.Contains(opts.Categories, *e.CategoryID)) {
			continue
		}
		if len(opts.ExpenseTypes) > 0 && !slices.Contains(opts.ExpenseTypes, e.Type) {
			continue
		}
		if !opts.IncludeReceipts {
			e.ReceiptURL = nil
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b core.Expense) int {
		if c := a.ExpenseDate.Compare(b.ExpenseDate.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *TransferService) renderPDF(ctx context.Context, p core.Project, expenses []core.Expense, opts core.ExportOptions) ([]byte, error) {
	q := core.AnalyticsQuery{ProjectID: p.ID, GroupBy: core.GroupByMonth}
	switch {
	case opts.DateFrom != nil:
		q.DateFrom = *opts.DateFrom
	case len(expenses) > 0:
		q.DateFrom = expenses[0].ExpenseDate
	default:
		q.DateFrom = p.StartDate
	}
	switch {
	case opts.DateTo != nil:
		q.DateTo = *opts.DateTo
	case len(expenses) > 0:
		q.DateTo = expenses[len(expenses)-1].ExpenseDate
	default:
		q.DateTo = q.DateFrom
	}
	if q.DateTo.Before(q.DateFrom) {
		q.DateTo = q.DateFrom
	}

	cats, err := s.store.ListCategories(ctx, &p.ID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return transfer.RenderPDF(transfer.Document{
		Project:         p,
		Report:          analytics.Compute(p, cats, expenses, q),
		Expenses:        expenses,
		IncludeReceipts: opts.IncludeReceipts,
		GeneratedAt:     s.now(),
	})
}

// Import parses, validates and de-duplicates the payload, then inserts every
// row in one transaction. Nothing is stored when any row fails or when
// ValidateOnly is set.
func (s *TransferService) Import(ctx context.Context, req core.ImportRequest) (core.ImportResult, error) {
	if err := req.Validate(); err != nil {
		return core.ImportResult{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return core.ImportResult{}, core.Validation("data", fmt.Errorf("must be base64 encoded: %w", err))
	}

	p, err := s.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return core.ImportResult{}, err
	}
	userID := p.UserID
	if req.UserID != nil {
		userID = *req.UserID
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.ImportResult{}, err
	}

	var records []transfer.Record
	if req.Format == core.FormatCSV {
		records, err = transfer.DecodeCSV(raw)
	} else {
		records, err = transfer.DecodeJSON(raw)
	}
	if err != nil {
		return core.ImportResult{}, core.Validation("data", err)
	}

	batch := uuid.NewString()
	logger := s.logger.With("import_batch", batch, log.FieldProjectID, p.ID)

	expenses, rowErrs, err := s.parseRows(ctx, p, userID, records)
	if err != nil {
		return core.ImportResult{}, err
	}

	res := core.ImportResult{Errors: rowErrs}
	if req.ValidateOnly {
		res.Success = len(rowErrs) == 0
		res.Preview = expenses
		logger.InfoContext(ctx, "Import validated", log.FieldCount, len(expenses), "errors", len(rowErrs))
		return res, nil
	}
	if len(rowErrs) > 0 {
		logger.WarnContext(ctx, "Import rejected", "errors", len(rowErrs))
		return res, nil
	}

	created, err := s.store.CreateExpenses(ctx, expenses)
	if err != nil {
		return core.ImportResult{}, fmt.Errorf("import expenses: %w", err)
	}
	res.Success = true
	res.ImportedCount = len(created)
	logger.InfoContext(ctx, "Expenses imported", log.FieldOperation, log.OpImport, log.FieldCount, len(created))

	s.invalidate(p.ID)
	// One event per row so the worker mirrors every imported expense.
	for _, e := range created {
		s.publish(ctx, core.NewExpenseEvent(e, core.ExpenseImported, s.now()))
	}
	return res, nil
}

func (s *TransferService) parseRows(ctx context.Context, p core.Project, userID int64, records []transfer.Record) ([]core.Expense, []core.ImportError, error) {
	existing, err := s.store.ExpensesInRange(ctx, p.ID, core.Date{}, core.Date{})
	if err != nil {
		return nil, nil, fmt.Errorf("load existing expenses: %w", err)
	}
	seen := make(map[string]int, len(existing)+len(records))
	for _, e := range existing {
		seen[transfer.ExpenseKey(e)] = 0
	}

	cats, err := s.store.ListCategories(ctx, &p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	known := make(map[int64]bool, len(cats))
	for _, c := range cats {
		known[c.ID] = true
	}
	users := map[int64]bool{userID: true}

	rowErrs := []core.ImportError{}
	expenses := make([]core.Expense, 0, len(records))
	for _, rec := range records {
		in, errs := transfer.ParseRecord(rec, p, userID)
		if in.CategoryID != nil && !known[*in.CategoryID] {
			errs = append(errs, core.ImportError{Row: rec.Row, Field: "category_id",
				Message: fmt.Sprintf("category %d does not belong to project %d", *in.CategoryID, p.ID)})
		}
		if in.UserID > 0 && in.UserID != userID {
			valid, cached := users[in.UserID]
			if !cached {
				_, err := s.store.GetUser(ctx, in.UserID)
				if err != nil && !core.IsKind(err, core.KindNotFound) {
					return nil, nil, fmt.Errorf("look up user %d: %w", in.UserID, err)
				}
				valid = err == nil
				users[in.UserID] = valid
			}
			if !valid {
				errs = append(errs, core.ImportError{Row: rec.Row, Field: "user_id",
					Message: fmt.Sprintf("user %d not found", in.UserID)})
			}
		}
		if len(errs) == 0 {
			key := transfer.DuplicateKey(in.ExpenseDate, in.Amount, in.Currency, in.Title, in.VendorName)
			if row, dup := seen[key]; dup {
				msg := "duplicates an existing expense"
				if row > 0 {
					msg = fmt.Sprintf("duplicates row %d", row)
				}
				errs = append(errs, core.ImportError{Row: rec.Row, Field: "row", Message: msg})
			} else {
				seen[key] = rec.Row
			}
		}
		rowErrs = append(rowErrs, errs...)
		expenses = append(expenses, in.Expense())
	}
	return expenses, rowErrs, nil
}
