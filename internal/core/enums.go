package core

import "slices"

type (
	Currency      string
	Language      string
	ExpenseType   string
	ExpenseStatus string
	GroupBy       string
)

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
)

const (
	English Language = "en"
	Spanish Language = "es"
	French  Language = "fr"
	German  Language = "de"
	Italian Language = "it"
)

const (
	ExpenseAdvance     ExpenseType = "advance"
	ExpensePurchase    ExpenseType = "purchase"
	ExpenseWorkService ExpenseType = "work_service"
)

const (
	StatusPending   ExpenseStatus = "pending"
	StatusApproved  ExpenseStatus = "approved"
	StatusRejected  ExpenseStatus = "rejected"
	StatusCompleted ExpenseStatus = "completed"
)

const (
	GroupByDay      GroupBy = "day"
	GroupByWeek     GroupBy = "week"
	GroupByMonth    GroupBy = "month"
	GroupByCategory GroupBy = "category"
	GroupByType     GroupBy = "type"
)

// Option is a value/label pair served by the lookup operations.
type Option struct {
	Value  string `json:"value"`
	Label  string `json:"label"`
	Symbol string `json:"symbol,omitempty"`
	Color  string `json:"color,omitempty"`
}

var (
	currencyOptions = []Option{
		{Value: string(USD), Label: "US Dollar", Symbol: "$"},
		{Value: string(EUR), Label: "Euro", Symbol: "€"},
		{Value: string(GBP), Label: "British Pound", Symbol: "£"},
		{Value: string(CAD), Label: "Canadian Dollar", Symbol: "C$"},
		{Value: string(AUD), Label: "Australian Dollar", Symbol: "A$"},
	}
	languageOptions = []Option{
		{Value: string(English), Label: "English"},
		{Value: string(Spanish), Label: "Spanish"},
		{Value: string(French), Label: "French"},
		{Value: string(German), Label: "German"},
		{Value: string(Italian), Label: "Italian"},
	}
	expenseTypeOptions = []Option{
		{Value: string(ExpenseAdvance), Label: "Advance Payment"},
		{Value: string(ExpensePurchase), Label: "Material Purchase"},
		{Value: string(ExpenseWorkService), Label: "Work Service"},
	}
	statusOptions = []Option{
		{Value: string(StatusPending), Label: "Pending", Color: "#FFA500"},
		{Value: string(StatusApproved), Label: "Approved", Color: "#4CAF50"},
		{Value: string(StatusRejected), Label: "Rejected", Color: "#F44336"},
		{Value: string(StatusCompleted), Label: "Completed", Color: "#2196F3"},
	}
)

// ExpenseTypes lists the expense types in reporting order.
var ExpenseTypes = []ExpenseType{ExpenseAdvance, ExpensePurchase, ExpenseWorkService}

func CurrencyOptions() []Option    { return slices.Clone(currencyOptions) }
func LanguageOptions() []Option    { return slices.Clone(languageOptions) }
func ExpenseTypeOptions() []Option { return slices.Clone(expenseTypeOptions) }
func StatusOptions() []Option      { return slices.Clone(statusOptions) }

func hasOption(opts []Option, v string) bool {
	return slices.ContainsFunc(opts, func(o Option) bool { return o.Value == v })
}

func (c Currency) Valid() bool      { return hasOption(currencyOptions, string(c)) }
func (l Language) Valid() bool      { return hasOption(languageOptions, string(l)) }
func (t ExpenseType) Valid() bool   { return hasOption(expenseTypeOptions, string(t)) }
func (s ExpenseStatus) Valid() bool { return hasOption(statusOptions, string(s)) }

func (g GroupBy) Valid() bool {
	switch g {
	case GroupByDay, GroupByWeek, GroupByMonth, GroupByCategory, GroupByType:
		return true
	}
	return false
}

// Label returns the human readable name of the expense type.
func (t ExpenseType) Label() string {
	for _, o := range expenseTypeOptions {
		if o.Value == string(t) {
			return o.Label
		}
	}
	return string(t)
}

var statusTransitions = map[ExpenseStatus][]ExpenseStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted, StatusRejected},
	StatusRejected: {StatusPending},
}

// CanTransitionTo reports whether an expense in status s may move to next.
// Completed is terminal; staying in the same status is always allowed.
func (s ExpenseStatus) CanTransitionTo(next ExpenseStatus) bool {
	if s == next {
		return true
	}
	return slices.Contains(statusTransitions[s], next)
}
