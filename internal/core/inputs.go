package core

import (
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength = 200
	MaxNameLength  = 200
	MinBudgetYear  = 2000
)

type CreateUserInput struct {
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	PreferredLanguage Language `json:"preferred_language"`
	PreferredCurrency Currency `json:"preferred_currency"`
}

func (in *CreateUserInput) Normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.PreferredLanguage == "" {
		in.PreferredLanguage = English
	}
	if in.PreferredCurrency == "" {
		in.PreferredCurrency = USD
	}
}

func (in CreateUserInput) Validate() error {
	var errs FieldErrors
	if !validEmail(in.Email) {
		errs.Add("email", ErrInvalidEmail)
	}
	checkName(&errs, "name", in.Name)
	if !in.PreferredLanguage.Valid() {
		errs.Add("preferred_language", ErrInvalidLanguage)
	}
	if !in.PreferredCurrency.Valid() {
		errs.Add("preferred_currency", ErrInvalidCurrency)
	}
	return errs.Err()
}

// UpdateUserInput only touches preferences; email and name are fixed at creation.
type UpdateUserInput struct {
	ID                int64     `json:"id"`
	PreferredLanguage *Language `json:"preferred_language"`
	PreferredCurrency *Currency `json:"preferred_currency"`
}

func (in UpdateUserInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "id", in.ID)
	if in.PreferredLanguage != nil && !in.PreferredLanguage.Valid() {
		errs.Add("preferred_language", ErrInvalidLanguage)
	}
	if in.PreferredCurrency != nil && !in.PreferredCurrency.Valid() {
		errs.Add("preferred_currency", ErrInvalidCurrency)
	}
	return errs.Err()
}

func (in UpdateUserInput) Apply(u *User) {
	if in.PreferredLanguage != nil {
		u.PreferredLanguage = *in.PreferredLanguage
	}
	if in.PreferredCurrency != nil {
		u.PreferredCurrency = *in.PreferredCurrency
	}
}

type CreateProjectInput struct {
	UserID      int64    `json:"user_id"`
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	TotalBudget Money    `json:"total_budget"`
	Currency    Currency `json:"currency"`
	StartDate   Date     `json:"start_date"`
	EndDate     *Date    `json:"end_date"`
}

func (in *CreateProjectInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimOptional(in.Description)
	if in.Currency == "" {
		in.Currency = USD
	}
}

func (in CreateProjectInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "user_id", in.UserID)
	checkName(&errs, "name", in.Name)
	if err := in.TotalBudget.Validate(); err != nil {
		errs.Add("total_budget", err)
	}
	if !in.Currency.Valid() {
		errs.Add("currency", ErrInvalidCurrency)
	}
	if err := in.StartDate.Validate(); err != nil {
		errs.Add("start_date", err)
	}
	if err := errs.Err(); err != nil {
		return err
	}
	return checkProjectDates(in.StartDate, in.EndDate)
}

func (in CreateProjectInput) Project() Project {
	return Project{
		UserID:      in.UserID,
		Name:        in.Name,
		Description: in.Description,
		TotalBudget: in.TotalBudget,
		Currency:    in.Currency,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		IsActive:    true,
	}
}

type UpdateProjectInput struct {
	ID          int64            `json:"id"`
	Name        *string          `json:"name"`
	Description Nullable[string] `json:"description"`
	TotalBudget *Money           `json:"total_budget"`
	Currency    *Currency        `json:"currency"`
	StartDate   *Date            `json:"start_date"`
	EndDate     Nullable[Date]   `json:"end_date"`
	IsActive    *bool            `json:"is_active"`
}

func (in *UpdateProjectInput) Normalize() {
	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description.Valid {
		in.Description.Value = strings.TrimSpace(in.Description.Value)
		if in.Description.Value == "" {
			in.Description = Null[string]()
		}
	}
}

func (in UpdateProjectInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "id", in.ID)
	if in.Name != nil {
		checkName(&errs, "name", *in.Name)
	}
	if in.TotalBudget != nil {
		if err := in.TotalBudget.Validate(); err != nil {
			errs.Add("total_budget", err)
		}
	}
	if in.Currency != nil && !in.Currency.Valid() {
		errs.Add("currency", ErrInvalidCurrency)
	}
	if in.StartDate != nil {
		if err := in.StartDate.Validate(); err != nil {
			errs.Add("start_date", err)
		}
	}
	return errs.Err()
}

// Apply merges the update into p and re-checks date ordering on the result.
func (in UpdateProjectInput) Apply(p *Project) error {
	if in.Name != nil {
		p.Name = *in.Name
	}
	in.Description.ApplyTo(&p.Description)
	if in.TotalBudget != nil {
		p.TotalBudget = *in.TotalBudget
	}
	if in.Currency != nil {
		p.Currency = *in.Currency
	}
	if in.StartDate != nil {
		p.StartDate = *in.StartDate
	}
	in.EndDate.ApplyTo(&p.EndDate)
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	return checkProjectDates(p.StartDate, p.EndDate)
}

type CreateCategoryInput struct {
	ProjectID        int64   `json:"project_id"`
	Name             string  `json:"name"`
	Description      *string `json:"description"`
	BudgetAllocation Money   `json:"budget_allocation"`
}

func (in *CreateCategoryInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = trimOptional(in.Description)
}

func (in CreateCategoryInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "project_id", in.ProjectID)
	checkName(&errs, "name", in.Name)
	if in.BudgetAllocation.Cents < 0 {
		errs.Add("budget_allocation", ErrNegativeAmount)
	}
	return errs.Err()
}

func (in CreateCategoryInput) Category() Category {
	return Category{
		ProjectID:        in.ProjectID,
		Name:             in.Name,
		Description:      in.Description,
		BudgetAllocation: in.BudgetAllocation,
	}
}

type UpdateCategoryInput struct {
	ID               int64            `json:"id"`
	Name             *string          `json:"name"`
	Description      Nullable[string] `json:"description"`
	BudgetAllocation *Money           `json:"budget_allocation"`
}

func (in *UpdateCategoryInput) Normalize() {
	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description.Valid && strings.TrimSpace(in.Description.Value) == "" {
		in.Description = Null[string]()
	}
}

func (in UpdateCategoryInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "id", in.ID)
	if in.Name != nil {
		checkName(&errs, "name", *in.Name)
	}
	if in.BudgetAllocation != nil && in.BudgetAllocation.Cents < 0 {
		errs.Add("budget_allocation", ErrNegativeAmount)
	}
	return errs.Err()
}

func (in UpdateCategoryInput) Apply(c *Category) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	in.Description.ApplyTo(&c.Description)
	if in.BudgetAllocation != nil {
		c.BudgetAllocation = *in.BudgetAllocation
	}
}

type CreateExpenseInput struct {
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
}

// Normalize leaves an empty currency for the caller to fill in from the
// expense's project.
func (in *CreateExpenseInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = trimOptional(in.Description)
	in.VendorName = trimOptional(in.VendorName)
	in.ReceiptURL = trimOptional(in.ReceiptURL)
	in.PaymentMethod = trimOptional(in.PaymentMethod)
	in.Currency = Currency(strings.ToUpper(strings.TrimSpace(string(in.Currency))))
	if in.ExchangeRate.IsZero() {
		in.ExchangeRate = OneRate
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	in.Tags = NormalizeTags(in.Tags)
}

func (in CreateExpenseInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "project_id", in.ProjectID)
	checkID(&errs, "user_id", in.UserID)
	if in.CategoryID != nil {
		checkID(&errs, "category_id", *in.CategoryID)
	}
	if !in.Type.Valid() {
		errs.Add("type", ErrInvalidExpenseType)
	}
	checkTitle(&errs, in.Title)
	if err := in.Amount.Validate(); err != nil {
		errs.Add("amount", err)
	}
	if !in.Currency.Valid() {
		errs.Add("currency", ErrInvalidCurrency)
	}
	if !in.ExchangeRate.IsPositive() {
		errs.Add("exchange_rate", ErrInvalidRate)
	}
	if in.ReceiptURL != nil && !validURL(*in.ReceiptURL) {
		errs.Add("receipt_url", ErrInvalidURL)
	}
	if err := in.ExpenseDate.Validate(); err != nil {
		errs.Add("expense_date", err)
	}
	if !in.Status.Valid() {
		errs.Add("status", ErrInvalidStatus)
	}
	return errs.Err()
}

func (in CreateExpenseInput) Expense() Expense {
	return Expense{
		ProjectID:     in.ProjectID,
		CategoryID:    in.CategoryID,
		UserID:        in.UserID,
		Type:          in.Type,
		Title:         in.Title,
		Description:   in.Description,
		Amount:        in.Amount,
		Currency:      in.Currency,
		ExchangeRate:  in.ExchangeRate,
		VendorName:    in.VendorName,
		ReceiptURL:    in.ReceiptURL,
		ExpenseDate:   in.ExpenseDate,
		PaymentMethod: in.PaymentMethod,
		Status:        in.Status,
		Tags:          in.Tags,
	}
}

type UpdateExpenseInput struct {
	ID            int64            `json:"id"`
	CategoryID    Nullable[int64]  `json:"category_id"`
	Type          *ExpenseType     `json:"type"`
	Title         *string          `json:"title"`
	Description   Nullable[string] `json:"description"`
	Amount        *Money           `json:"amount"`
	Currency      *Currency        `json:"currency"`
	ExchangeRate  *Rate            `json:"exchange_rate"`
	VendorName    Nullable[string] `json:"vendor_name"`
	ReceiptURL    Nullable[string] `json:"receipt_url"`
	ExpenseDate   *Date            `json:"expense_date"`
	PaymentMethod Nullable[string] `json:"payment_method"`
	Status        *ExpenseStatus   `json:"status"`
	Tags          []string         `json:"tags"`
}

func (in *UpdateExpenseInput) Normalize() {
	if in.Title != nil {
		*in.Title = strings.TrimSpace(*in.Title)
	}
	for _, n := range []*Nullable[string]{&in.Description, &in.VendorName, &in.ReceiptURL, &in.PaymentMethod} {
		if n.Valid {
			n.Value = strings.TrimSpace(n.Value)
			if n.Value == "" {
				*n = Null[string]()
			}
		}
	}
	if in.Tags != nil {
		in.Tags = NormalizeTags(in.Tags)
	}
}

func (in UpdateExpenseInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "id", in.ID)
	if in.CategoryID.Valid {
		checkID(&errs, "category_id", in.CategoryID.Value)
	}
	if in.Type != nil && !in.Type.Valid() {
		errs.Add("type", ErrInvalidExpenseType)
	}
	if in.Title != nil {
		checkTitle(&errs, *in.Title)
	}
	if in.Amount != nil {
		if err := in.Amount.Validate(); err != nil {
			errs.Add("amount", err)
		}
	}
	if in.Currency != nil && !in.Currency.Valid() {
		errs.Add("currency", ErrInvalidCurrency)
	}
	if in.ExchangeRate != nil && !in.ExchangeRate.IsPositive() {
		errs.Add("exchange_rate", ErrInvalidRate)
	}
	if in.ReceiptURL.Valid && !validURL(in.ReceiptURL.Value) {
		errs.Add("receipt_url", ErrInvalidURL)
	}
	if in.ExpenseDate != nil {
		if err := in.ExpenseDate.Validate(); err != nil {
			errs.Add("expense_date", err)
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		errs.Add("status", ErrInvalidStatus)
	}
	return errs.Err()
}

// Apply merges the update into e. Status transitions are checked here.
func (in UpdateExpenseInput) Apply(e *Expense) error {
	if in.Status != nil {
		if !e.Status.CanTransitionTo(*in.Status) {
			return Conflict("expense %d cannot move from %s to %s", e.ID, e.Status, *in.Status)
		}
		e.Status = *in.Status
	}
	in.CategoryID.ApplyTo(&e.CategoryID)
	if in.Type != nil {
		e.Type = *in.Type
	}
	if in.Title != nil {
		e.Title = *in.Title
	}
	in.Description.ApplyTo(&e.Description)
	if in.Amount != nil {
		e.Amount = *in.Amount
	}
	if in.Currency != nil {
		e.Currency = *in.Currency
	}
	if in.ExchangeRate != nil {
		e.ExchangeRate = *in.ExchangeRate
	}
	in.VendorName.ApplyTo(&e.VendorName)
	in.ReceiptURL.ApplyTo(&e.ReceiptURL)
	if in.ExpenseDate != nil {
		e.ExpenseDate = *in.ExpenseDate
	}
	in.PaymentMethod.ApplyTo(&e.PaymentMethod)
	if in.Tags != nil {
		e.Tags = in.Tags
	}
	return nil
}

type CreateMonthlyBudgetInput struct {
	ProjectID       int64    `json:"project_id"`
	Year            int      `json:"year"`
	Month           int      `json:"month"`
	AllocatedAmount Money    `json:"allocated_amount"`
	Currency        Currency `json:"currency"`
}

func (in *CreateMonthlyBudgetInput) Normalize() {
	if in.Currency == "" {
		in.Currency = USD
	}
}

func (in CreateMonthlyBudgetInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "project_id", in.ProjectID)
	checkPeriod(&errs, in.Year, in.Month)
	if in.AllocatedAmount.Cents < 0 {
		errs.Add("allocated_amount", ErrNegativeAmount)
	}
	if !in.Currency.Valid() {
		errs.Add("currency", ErrInvalidCurrency)
	}
	return errs.Err()
}

func (in CreateMonthlyBudgetInput) MonthlyBudget() MonthlyBudget {
	return MonthlyBudget{
		ProjectID:       in.ProjectID,
		Year:            in.Year,
		Month:           in.Month,
		AllocatedAmount: in.AllocatedAmount,
		Currency:        in.Currency,
	}
}

type UpdateMonthlyBudgetInput struct {
	ID              int64     `json:"id"`
	AllocatedAmount *Money    `json:"allocated_amount"`
	Currency        *Currency `json:"currency"`
}

func (in UpdateMonthlyBudgetInput) Validate() error {
	var errs FieldErrors
	checkID(&errs, "id", in.ID)
	if in.AllocatedAmount != nil && in.AllocatedAmount.Cents < 0 {
		errs.Add("allocated_amount", ErrNegativeAmount)
	}
	if in.Currency != nil && !in.Currency.Valid() {
		errs.Add("currency", ErrInvalidCurrency)
	}
	return errs.Err()
}

func (in UpdateMonthlyBudgetInput) Apply(b *MonthlyBudget) {
	if in.AllocatedAmount != nil {
		b.AllocatedAmount = *in.AllocatedAmount
	}
	if in.Currency != nil {
		b.Currency = *in.Currency
	}
}

// AnalyticsQuery selects the project and inclusive date window of a report.
type AnalyticsQuery struct {
	ProjectID int64   `json:"project_id"`
	DateFrom  Date    `json:"date_from"`
	DateTo    Date    `json:"date_to"`
	GroupBy   GroupBy `json:"group_by"`
}

func (q *AnalyticsQuery) Normalize() {
	if q.GroupBy == "" {
		q.GroupBy = GroupByMonth
	}
}

func (q AnalyticsQuery) Validate() error {
	var errs FieldErrors
	checkID(&errs, "project_id", q.ProjectID)
	if err := q.DateFrom.Validate(); err != nil {
		errs.Add("date_from", err)
	}
	if err := q.DateTo.Validate(); err != nil {
		errs.Add("date_to", err)
	}
	if !q.GroupBy.Valid() {
		errs.Add("group_by", ErrInvalidGroupBy)
	}
	if err := errs.Err(); err != nil {
		return err
	}
	if q.DateFrom.After(q.DateTo) {
		return InvalidRange("date_from %s is after date_to %s", q.DateFrom, q.DateTo)
	}
	return nil
}

// SearchQuery uses the camelCase keys of the original search procedure.
type SearchQuery struct {
	SearchTerm string `json:"searchTerm"`
	ProjectID  *int64 `json:"projectId"`
	Limit      int    `json:"limit"`
}

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

func (q *SearchQuery) Normalize() {
	q.SearchTerm = strings.TrimSpace(q.SearchTerm)
	if q.Limit == 0 {
		q.Limit = DefaultSearchLimit
	}
}

func (q SearchQuery) Validate() error {
	var errs FieldErrors
	if q.SearchTerm == "" {
		errs.Add("searchTerm", ErrEmptyName)
	}
	if q.ProjectID != nil {
		checkID(&errs, "projectId", *q.ProjectID)
	}
	if q.Limit < 1 || q.Limit > MaxSearchLimit {
		errs.Addf("limit", "must be between 1 and %d", MaxSearchLimit)
	}
	return errs.Err()
}

// NormalizeTags trims, drops empties and removes duplicates while keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func checkID(errs *FieldErrors, field string, id int64) {
	if id <= 0 {
		errs.Add(field, ErrMissingID)
	}
}

func checkName(errs *FieldErrors, field, name string) {
	switch {
	case name == "":
		errs.Add(field, ErrEmptyName)
	case utf8.RuneCountInString(name) > MaxNameLength:
		errs.Addf(field, "%s (max %d characters)", ErrTooLong, MaxNameLength)
	}
}

func checkTitle(errs *FieldErrors, title string) {
	switch {
	case title == "":
		errs.Add("title", ErrEmptyName)
	case utf8.RuneCountInString(title) > MaxTitleLength:
		errs.Addf("title", "%s (max %d characters)", ErrTooLong, MaxTitleLength)
	}
}

func checkPeriod(errs *FieldErrors, year, month int) {
	if year < MinBudgetYear {
		errs.Add("year", ErrInvalidYear)
	}
	if month < 1 || month > 12 {
		errs.Add("month", ErrInvalidMonth)
	}
}

func checkProjectDates(start Date, end *Date) error {
	if end != nil && end.Before(start) {
		return InvalidRange("end_date %s is before start_date %s", *end, start)
	}
	return nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func validURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
