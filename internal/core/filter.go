package core

import (
	"cmp"
	"strings"
)

type (
	SortField string
	SortOrder string
)

const (
	SortByDate      SortField = "date"
	SortByAmount    SortField = "amount"
	SortByTitle     SortField = "title"
	SortByCreatedAt SortField = "created_at"

	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// ExpenseFilter is the query of getExpenses. CategoryID set to null selects
// uncategorized expenses.
type ExpenseFilter struct {
	ProjectID  *int64          `json:"project_id"`
	CategoryID Nullable[int64] `json:"category_id"`
	UserID     *int64          `json:"user_id"`
	Type       *ExpenseType    `json:"type"`
	Status     *ExpenseStatus  `json:"status"`
	VendorName string          `json:"vendor_name"`
	AmountMin  *Money          `json:"amount_min"`
	AmountMax  *Money          `json:"amount_max"`
	DateFrom   *Date           `json:"date_from"`
	DateTo     *Date           `json:"date_to"`
	SearchTerm string          `json:"search_term"`
	Tags       []string        `json:"tags"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
	SortBy     SortField       `json:"sort_by"`
	SortOrder  SortOrder       `json:"sort_order"`
}

func (f *ExpenseFilter) Normalize() {
	f.VendorName = strings.TrimSpace(f.VendorName)
	f.SearchTerm = strings.TrimSpace(f.SearchTerm)
	f.Tags = NormalizeTags(f.Tags)
	if f.Limit == 0 {
		f.Limit = DefaultPageSize
	}
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
}

func (f ExpenseFilter) Validate() error {
	var errs FieldErrors
	if f.ProjectID != nil {
		checkID(&errs, "project_id", *f.ProjectID)
	}
	if f.CategoryID.Valid {
		checkID(&errs, "category_id", f.CategoryID.Value)
	}
	if f.UserID != nil {
		checkID(&errs, "user_id", *f.UserID)
	}
	if f.Type != nil && !f.Type.Valid() {
		errs.Add("type", ErrInvalidExpenseType)
	}
	if f.Status != nil && !f.Status.Valid() {
		errs.Add("status", ErrInvalidStatus)
	}
	if f.Limit < 1 || f.Limit > MaxPageSize {
		errs.Addf("limit", "must be between 1 and %d", MaxPageSize)
	}
	if f.Offset < 0 {
		errs.Addf("offset", "must not be negative")
	}
	switch f.SortBy {
	case SortByDate, SortByAmount, SortByTitle, SortByCreatedAt:
	default:
		errs.Addf("sort_by", "must be one of date, amount, title, created_at")
	}
	if f.SortOrder != SortAsc && f.SortOrder != SortDesc {
		errs.Addf("sort_order", "must be asc or desc")
	}
	if err := errs.Err(); err != nil {
		return err
	}
	if f.AmountMin != nil && f.AmountMax != nil && f.AmountMin.Cents > f.AmountMax.Cents {
		return InvalidRange("amount_min %s is greater than amount_max %s", *f.AmountMin, *f.AmountMax)
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateFrom.After(*f.DateTo) {
		return InvalidRange("date_from %s is after date_to %s", *f.DateFrom, *f.DateTo)
	}
	return nil
}

// Matches reports whether e passes every criterion except paging. Amount
// bounds apply to the amount as recorded, not the normalized one.
func (f ExpenseFilter) Matches(e Expense) bool {
	switch {
	case f.ProjectID != nil && e.ProjectID != *f.ProjectID:
		return false
	case f.UserID != nil && e.UserID != *f.UserID:
		return false
	case f.Type != nil && e.Type != *f.Type:
		return false
	case f.Status != nil && e.Status != *f.Status:
		return false
	case f.AmountMin != nil && e.Amount.Cents < f.AmountMin.Cents:
		return false
	case f.AmountMax != nil && e.Amount.Cents > f.AmountMax.Cents:
		return false
	case f.DateFrom != nil && e.ExpenseDate.Before(*f.DateFrom):
		return false
	case f.DateTo != nil && e.ExpenseDate.After(*f.DateTo):
		return false
	}
	if f.CategoryID.Set {
		if !f.CategoryID.Valid && e.CategoryID != nil {
			return false
		}
		if f.CategoryID.Valid && (e.CategoryID == nil || *e.CategoryID != f.CategoryID.Value) {
			return false
		}
	}
	if f.VendorName != "" && !containsFold(Deref(e.VendorName), f.VendorName) {
		return false
	}
	if f.SearchTerm != "" &&
		!containsFold(e.Title, f.SearchTerm) &&
		!containsFold(Deref(e.Description), f.SearchTerm) &&
		!containsFold(Deref(e.VendorName), f.SearchTerm) {
		return false
	}
	if len(f.Tags) > 0 && !hasAnyTag(e.Tags, f.Tags) {
		return false
	}
	return true
}

// Compare orders two expenses by the filter's sort settings, falling back to id.
func (f ExpenseFilter) Compare(a, b Expense) int {
	var c int
	switch f.SortBy {
	case SortByDate:
		c = a.ExpenseDate.Compare(b.ExpenseDate.Time)
	case SortByAmount:
		c = cmp.Compare(a.Amount.Cents, b.Amount.Cents)
	case SortByTitle:
		c = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = cmp.Compare(a.ID, b.ID)
	}
	if f.SortOrder == SortDesc {
		return -c
	}
	return c
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
