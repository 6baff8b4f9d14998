package transfer

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"renovo/internal/analytics"
	"renovo/internal/core"
)

func ptr[T any](v T) *T { return &v }

var usdProject = core.Project{ID: 1, Currency: core.USD}

func sampleExpense() core.Expense {
	return core.Expense{
		ID:           7,
		ProjectID:    1,
		CategoryID:   ptr(int64(3)),
		UserID:       2,
		Type:         core.ExpensePurchase,
		Title:        "Tiles, bathroom",
		Amount:       core.Money{Cents: 12550},
		Currency:     core.EUR,
		ExchangeRate: core.MustRate("1.1"),
		VendorName:   ptr("Ceramica Srl"),
		ExpenseDate:  core.NewDate(2024, 3, 9),
		Status:       core.StatusApproved,
		Tags:         []string{"bath", "floor"},
		CreatedAt:    time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC),
	}
}

func TestCSVExportParsesBack(t *testing.T) {
	data, err := EncodeCSV([]core.Expense{sampleExpense()})
	if err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}
	if !strings.HasPrefix(string(data), "id,type,title,") {
		t.Fatalf("unexpected header: %q", strings.SplitN(string(data), "\n", 2)[0])
	}

	records, err := DecodeCSV(data)
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records", len(records))
	}

	in, errs := ParseRecord(records[0], usdProject, 99)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	want := sampleExpense()
	if in.Title != want.Title || in.Amount != want.Amount || in.Currency != want.Currency {
		t.Errorf("parsed %+v", in)
	}
	if !in.ExchangeRate.Equal(want.ExchangeRate.Decimal) {
		t.Errorf("rate = %s", in.ExchangeRate)
	}
	if in.UserID != 2 {
		t.Errorf("user id = %d, want the row's 2", in.UserID)
	}
	if in.CategoryID == nil || *in.CategoryID != 3 {
		t.Errorf("category = %v", in.CategoryID)
	}
	if strings.Join(in.Tags, ",") != "bath,floor" {
		t.Errorf("tags = %v", in.Tags)
	}
}

func TestJSONExportParsesBack(t *testing.T) {
	data, err := EncodeJSON([]core.Expense{sampleExpense()})
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	records, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	in, errs := ParseRecord(records[0], usdProject, 99)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if ExpenseKey(in.Expense()) != ExpenseKey(sampleExpense()) {
		t.Errorf("key mismatch: %s vs %s", ExpenseKey(in.Expense()), ExpenseKey(sampleExpense()))
	}
}

func TestDecodeJSONRejectsObject(t *testing.T) {
	if _, err := DecodeJSON([]byte(`{"title":"x"}`)); err != ErrNotArray {
		t.Fatalf("err = %v, want ErrNotArray", err)
	}
}

func TestDecodeCSVRequiresHeader(t *testing.T) {
	if _, err := DecodeCSV(nil); err != ErrMissingHeader {
		t.Fatalf("err = %v", err)
	}
}

func TestParseRecordErrors(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		want   []string
	}{
		{
			name:   "valid minimal row",
			fields: map[string]string{"type": "advance", "title": "Deposit", "amount": "100", "expense_date": "2024-01-02"},
		},
		{
			name:   "bad amount is reported once",
			fields: map[string]string{"type": "advance", "title": "Deposit", "amount": "abc", "expense_date": "2024-01-02"},
			want:   []string{"amount"},
		},
		{
			name:   "missing everything",
			fields: map[string]string{},
			want:   []string{"amount", "expense_date", "type", "title"},
		},
		{
			name:   "bad rate and date",
			fields: map[string]string{"type": "purchase", "title": "Paint", "amount": "10", "exchange_rate": "0", "expense_date": "03/01/2024"},
			want:   []string{"exchange_rate", "expense_date"},
		},
		{
			name:   "unknown status and currency",
			fields: map[string]string{"type": "purchase", "title": "Paint", "amount": "10", "expense_date": "2024-01-02", "status": "paid", "currency": "jpy"},
			want:   []string{"currency", "status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errs := ParseRecord(Record{Row: 4, Fields: tt.fields}, usdProject, 1)
			var got []string
			for _, e := range errs {
				if e.Row != 4 {
					t.Errorf("row = %d", e.Row)
				}
				got = append(got, e.Field)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("fields = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeCSVIgnoresUnknownColumns(t *testing.T) {
	data := "Title,Amount,Notes,Type,Expense_Date\nBoiler,1200.5,ignored,purchase,2024-02-01\n"
	records, err := DecodeCSV([]byte(data))
	if err != nil {
		t.Fatal(err)
	}
	in, errs := ParseRecord(records[0], core.Project{ID: 5, Currency: core.EUR}, 6)
	if len(errs) != 0 {
		t.Fatalf("errors: %+v", errs)
	}
	if in.Amount.Cents != 120050 || in.ProjectID != 5 || in.UserID != 6 {
		t.Errorf("parsed %+v", in)
	}
	if in.Status != core.StatusPending || in.Currency != core.EUR {
		t.Errorf("defaults not applied: %s %s", in.Status, in.Currency)
	}
}

func TestRenderPDF(t *testing.T) {
	report := analytics.Report{
		Currency:   core.USD,
		TotalSpent: core.Money{Cents: 255000},
		ExpensesByCategory: []analytics.CategoryTotal{
			{CategoryName: "Kitchen", Amount: core.Money{Cents: 200000}, Count: 1},
			{CategoryName: "Uncategorized", Amount: core.Money{Cents: 55000}, Count: 1},
		},
	}
	out, err := RenderPDF(Document{
		Project:         core.Project{Name: "Casa al mare"},
		Report:          report,
		Expenses:        []core.Expense{sampleExpense()},
		IncludeReceipts: true,
		GeneratedAt:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
}
