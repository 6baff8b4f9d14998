package core

import (
	"errors"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	User struct {
		ID                int64     `json:"id"`
		Email             string    `json:"email"`
		Name              string    `json:"name"`
		PreferredLanguage Language  `json:"preferred_language"`
		PreferredCurrency Currency  `json:"preferred_currency"`
		CreatedAt         time.Time `json:"created_at"`
		UpdatedAt         time.Time `json:"updated_at"`
	}

	Project struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"user_id"`
		Name        string    `json:"name"`
		Description *string   `json:"description"`
		TotalBudget Money     `json:"total_budget"`
		Currency    Currency  `json:"currency"`
		StartDate   Date      `json:"start_date"`
		EndDate     *Date     `json:"end_date"`
		IsActive    bool      `json:"is_active"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	Category struct {
		ID               int64     `json:"id"`
		ProjectID        int64     `json:"project_id"`
		Name             string    `json:"name"`
		Description      *string   `json:"description"`
		BudgetAllocation Money     `json:"budget_allocation"`
		CreatedAt        time.Time `json:"created_at"`
		UpdatedAt        time.Time `json:"updated_at"`
	}

	Expense struct {
		ID            int64         `json:"id"`
		ProjectID     int64         `json:"project_id"`
		CategoryID    *int64        `json:"category_id"`
		UserID        int64         `json:"user_id"`
		Type          ExpenseType   `json:"type"`
		Title         string        `json:"title"`
		Description   *string       `json:"description"`
		Amount        Money         `json:"amount"`
		Currency      Currency      `json:"currency"`
		ExchangeRate  Rate          `json:"exchange_rate"`
		VendorName    *string       `json:"vendor_name"`
		ReceiptURL    *string       `json:"receipt_url"`
		ExpenseDate   Date          `json:"expense_date"`
		PaymentMethod *string       `json:"payment_method"`
		Status        ExpenseStatus `json:"status"`
		Tags          []string      `json:"tags"`
		CreatedAt     time.Time     `json:"created_at"`
		UpdatedAt     time.Time     `json:"updated_at"`
	}

	MonthlyBudget struct {
		ID              int64     `json:"id"`
		ProjectID       int64     `json:"project_id"`
		Year            int       `json:"year"`
		Month           int       `json:"month"`
		AllocatedAmount Money     `json:"allocated_amount"`
		SpentAmount     Money     `json:"spent_amount"`
		Currency        Currency  `json:"currency"`
		CreatedAt       time.Time `json:"created_at"`
		UpdatedAt       time.Time `json:"updated_at"`
	}
)

var (
	ErrInvalidAmount      = errors.New("must be a positive amount")
	ErrNegativeAmount     = errors.New("must not be negative")
	ErrInvalidRate        = errors.New("must be a positive decimal")
	ErrInvalidDate        = errors.New("must be a date in YYYY-MM-DD format")
	ErrMissingDate        = errors.New("is required")
	ErrMissingID          = errors.New("must be a positive id")
	ErrEmptyName          = errors.New("must not be empty")
	ErrTooLong            = errors.New("is too long")
	ErrInvalidEmail       = errors.New("must be a valid email address")
	ErrInvalidURL         = errors.New("must be an absolute http(s) URL")
	ErrInvalidCurrency    = errors.New("must be one of USD, EUR, GBP, CAD, AUD")
	ErrInvalidLanguage    = errors.New("must be one of en, es, fr, de, it")
	ErrInvalidExpenseType = errors.New("must be one of advance, purchase, work_service")
	ErrInvalidStatus      = errors.New("must be one of pending, approved, rejected, completed")
	ErrInvalidGroupBy     = errors.New("must be one of day, week, month, category, type")
	ErrInvalidYear        = errors.New("must be 2000 or later")
	ErrInvalidMonth       = errors.New("must be between 1 and 12")
)

// NormalizedAmount is the amount expressed in the project currency.
func (e Expense) NormalizedAmount() Money {
	return e.Amount.Normalize(e.ExchangeRate)
}

// Clone returns a deep copy so stores can hand out values safely.
func (e Expense) Clone() Expense {
	c := e
	c.CategoryID = clonePtr(e.CategoryID)
	c.Description = clonePtr(e.Description)
	c.VendorName = clonePtr(e.VendorName)
	c.ReceiptURL = clonePtr(e.ReceiptURL)
	c.PaymentMethod = clonePtr(e.PaymentMethod)
	c.Tags = append(make([]string, 0, len(e.Tags)), e.Tags...)
	return c
}

func (p Project) Clone() Project {
	c := p
	c.Description = clonePtr(p.Description)
	c.EndDate = clonePtr(p.EndDate)
	return c
}

func (c Category) Clone() Category {
	out := c
	out.Description = clonePtr(c.Description)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Deref returns the pointed-to value or the zero value.
func Deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}
