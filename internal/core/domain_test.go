package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	if err != nil || d != NewDate(2024, 3, 5) {
		t.Fatalf("got %v, %v", d, err)
	}
	d, err = ParseDate("2024-03-05T23:10:00Z")
	if err != nil || d != NewDate(2024, 3, 5) {
		t.Fatalf("timestamp: got %v, %v", d, err)
	}
	if _, err := ParseDate("05/03/2024"); err == nil {
		t.Fatal("expected error")
	}

	var wrapped struct {
		D Date  `json:"d"`
		E *Date `json:"e"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-01-31","e":null}`), &wrapped); err != nil {
		t.Fatal(err)
	}
	if wrapped.D.String() != "2024-01-31" || wrapped.E != nil {
		t.Fatalf("unexpected %+v", wrapped)
	}
}

func TestMonthBounds(t *testing.T) {
	first, last := MonthBounds(2024, 2)
	if first != NewDate(2024, 2, 1) || last != NewDate(2024, 2, 29) {
		t.Fatalf("got %s..%s", first, last)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to ExpenseStatus
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCompleted, false},
		{StatusApproved, StatusCompleted, true},
		{StatusApproved, StatusPending, false},
		{StatusRejected, StatusPending, true},
		{StatusRejected, StatusApproved, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCompleted, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func validExpenseInput() CreateExpenseInput {
	return CreateExpenseInput{
		ProjectID:   1,
		UserID:      1,
		Type:        ExpensePurchase,
		Title:       "Tiles",
		Amount:      Money{Cents: 12000},
		Currency:    " eur",
		ExpenseDate: NewDate(2024, 1, 10),
	}
}

func TestCreateExpenseInputDefaults(t *testing.T) {
	in := validExpenseInput()
	in.Tags = []string{" kitchen", "kitchen", ""}
	in.Normalize()
	if err := in.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if in.Currency != EUR || in.Status != StatusPending || !in.ExchangeRate.Equal(OneRate.Decimal) {
		t.Fatalf("defaults not applied: %+v", in)
	}
	if len(in.Tags) != 1 || in.Tags[0] != "kitchen" {
		t.Fatalf("tags = %v", in.Tags)
	}
}

func TestCreateExpenseInputValidate(t *testing.T) {
	long := make([]byte, MaxTitleLength+1)
	for i := range long {
		long[i] = 'a'
	}
	cases := []struct {
		name  string
		mut   func(*CreateExpenseInput)
		field string
	}{
		{"zero amount", func(in *CreateExpenseInput) { in.Amount = Money{} }, "amount"},
		{"empty title", func(in *CreateExpenseInput) { in.Title = "  " }, "title"},
		{"long title", func(in *CreateExpenseInput) { in.Title = string(long) }, "title"},
		{"bad type", func(in *CreateExpenseInput) { in.Type = "gift" }, "type"},
		{"bad currency", func(in *CreateExpenseInput) { in.Currency = "JPY" }, "currency"},
		{"no currency", func(in *CreateExpenseInput) { in.Currency = "" }, "currency"},
		{"bad status", func(in *CreateExpenseInput) { in.Status = "paid" }, "status"},
		{"bad url", func(in *CreateExpenseInput) { u := "ftp://x"; in.ReceiptURL = &u }, "receipt_url"},
		{"no date", func(in *CreateExpenseInput) { in.ExpenseDate = Date{} }, "expense_date"},
		{"no project", func(in *CreateExpenseInput) { in.ProjectID = 0 }, "project_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validExpenseInput()
			tc.mut(&in)
			in.Normalize()
			err := in.Validate()
			if KindOf(err) != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
			var e *Error
			if !asError(err, &e) || !FieldErrors(e.Fields).Has(tc.field) {
				t.Fatalf("expected field %s in %v", tc.field, err)
			}
		})
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}

func TestCreateUserInputListsEveryField(t *testing.T) {
	in := CreateUserInput{Email: "nope", PreferredLanguage: "xx"}
	in.Normalize()
	err := in.Validate()
	var e *Error
	if !asError(err, &e) {
		t.Fatalf("expected *Error, got %v", err)
	}
	for _, f := range []string{"email", "name", "preferred_language"} {
		if !FieldErrors(e.Fields).Has(f) {
			t.Errorf("missing %s in %v", f, e.Fields)
		}
	}
}

func TestProjectDateOrdering(t *testing.T) {
	end := NewDate(2024, 1, 1)
	in := CreateProjectInput{
		UserID:      1,
		Name:        "Kitchen",
		TotalBudget: Money{Cents: 100},
		StartDate:   NewDate(2024, 2, 1),
		EndDate:     &end,
	}
	in.Normalize()
	if err := in.Validate(); KindOf(err) != KindInvalidRange {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestUpdateExpenseApply(t *testing.T) {
	vendor := "Acme"
	e := Expense{ID: 3, Status: StatusCompleted, VendorName: &vendor}

	next := StatusPending
	if err := (UpdateExpenseInput{ID: 3, Status: &next}).Apply(&e); KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	var in UpdateExpenseInput
	if err := json.Unmarshal([]byte(`{"id":3,"vendor_name":null,"title":"New"}`), &in); err != nil {
		t.Fatal(err)
	}
	in.Normalize()
	if err := in.Apply(&e); err != nil {
		t.Fatal(err)
	}
	if e.VendorName != nil || e.Title != "New" {
		t.Fatalf("unexpected %+v", e)
	}
}

func TestAnalyticsQueryValidate(t *testing.T) {
	q := AnalyticsQuery{ProjectID: 1, DateFrom: NewDate(2024, 2, 1), DateTo: NewDate(2024, 1, 1)}
	q.Normalize()
	if err := q.Validate(); KindOf(err) != KindInvalidRange {
		t.Fatalf("expected invalid range, got %v", err)
	}
	q.GroupBy = "year"
	if err := q.Validate(); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExpenseFilter(t *testing.T) {
	cat := int64(4)
	vendor := "Home Depot"
	e := Expense{
		ID: 1, ProjectID: 1, CategoryID: &cat, Title: "Paint",
		Amount: Money{Cents: 5000}, VendorName: &vendor,
		ExpenseDate: NewDate(2024, 3, 1), Tags: []string{"walls"},
	}
	floor := Money{Cents: 6000}
	from := NewDate(2024, 3, 2)
	cases := []struct {
		name string
		f    ExpenseFilter
		want bool
	}{
		{"empty", ExpenseFilter{}, true},
		{"vendor fold", ExpenseFilter{VendorName: "depot"}, true},
		{"search title", ExpenseFilter{SearchTerm: "PAINT"}, true},
		{"amount min", ExpenseFilter{AmountMin: &floor}, false},
		{"date from", ExpenseFilter{DateFrom: &from}, false},
		{"uncategorized", ExpenseFilter{CategoryID: Null[int64]()}, false},
		{"category", ExpenseFilter{CategoryID: Some(int64(4))}, true},
		{"tag", ExpenseFilter{Tags: []string{"floor", "walls"}}, true},
		{"missing tag", ExpenseFilter{Tags: []string{"floor"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.f.Matches(e); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}

	f := ExpenseFilter{AmountMin: &Money{Cents: 10}, AmountMax: &Money{Cents: 5}}
	f.Normalize()
	if err := f.Validate(); KindOf(err) != KindInvalidRange {
		t.Fatalf("expected invalid range, got %v", err)
	}
	f = ExpenseFilter{Limit: 501}
	f.Normalize()
	if err := f.Validate(); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMonthlyBudgetAllocation(t *testing.T) {
	cases := []struct {
		name  string
		cents int64
		ok    bool
	}{
		{"zero", 0, true},
		{"positive", 50000, true},
		{"negative", -1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := CreateMonthlyBudgetInput{ProjectID: 1, Year: 2024, Month: 3, AllocatedAmount: Money{Cents: tc.cents}}
			in.Normalize()
			up := UpdateMonthlyBudgetInput{ID: 1, AllocatedAmount: &Money{Cents: tc.cents}}
			for _, err := range []error{in.Validate(), up.Validate()} {
				if tc.ok {
					if err != nil {
						t.Fatalf("expected ok, got %v", err)
					}
					continue
				}
				var e *Error
				if !asError(err, &e) || !FieldErrors(e.Fields).Has("allocated_amount") {
					t.Fatalf("expected allocated_amount error, got %v", err)
				}
			}
		})
	}
}
