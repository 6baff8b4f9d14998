package core

type AlertType string

const (
	AlertBudgetExceeded   AlertType = "budget_exceeded"
	AlertApproachingLimit AlertType = "approaching_limit"
	AlertNoBudget         AlertType = "no_budget"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SpendingAlert flags a project that needs attention on the dashboard.
type SpendingAlert struct {
	Type        AlertType `json:"type"`
	Severity    Severity  `json:"severity"`
	ProjectID   int64     `json:"project_id"`
	ProjectName string    `json:"project_name"`
	Message     string    `json:"message"`
	Utilization float64   `json:"utilization"`
}

// DashboardSummary aggregates every project owned by a user. Totals are
// summed in each project's own currency; MixedCurrencies says whether that
// sum mixes units.
type DashboardSummary struct {
	UserID            int64           `json:"user_id"`
	TotalProjects     int             `json:"total_projects"`
	ActiveProjects    int             `json:"active_projects"`
	TotalExpenses     int             `json:"total_expenses"`
	TotalSpent        Money           `json:"total_spent"`
	TotalBudget       Money           `json:"total_budget"`
	BudgetUtilization float64         `json:"budget_utilization"`
	MixedCurrencies   bool            `json:"mixed_currencies"`
	RecentExpenses    []Expense       `json:"recent_expenses"`
	Alerts            []SpendingAlert `json:"spending_alerts"`
}

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatPDF  ExportFormat = "pdf"
)

// Extension and MimeType describe the file produced for the format.
func (f ExportFormat) Extension() string { return string(f) }

func (f ExportFormat) MimeType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

type ExportOptions struct {
	ProjectID       int64         `json:"project_id"`
	Format          ExportFormat  `json:"format"`
	DateFrom        *Date         `json:"date_from"`
	DateTo          *Date         `json:"date_to"`
	IncludeReceipts bool          `json:"include_receipts"`
	Categories      []int64       `json:"categories"`
	ExpenseTypes    []ExpenseType `json:"expense_types"`
}

func (o ExportOptions) Validate() error {
	var errs FieldErrors
	checkID(&errs, "project_id", o.ProjectID)
	switch o.Format {
	case FormatCSV, FormatJSON, FormatPDF:
	default:
		errs.Addf("format", "must be one of csv, json, pdf")
	}
	for _, id := range o.Categories {
		if id <= 0 {
			errs.Add("categories", ErrMissingID)
			break
		}
	}
	for _, t := range o.ExpenseTypes {
		if !t.Valid() {
			errs.Add("expense_types", ErrInvalidExpenseType)
			break
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}
	if o.DateFrom != nil && o.DateTo != nil && o.DateFrom.After(*o.DateTo) {
		return InvalidRange("date_from %s is after date_to %s", *o.DateFrom, *o.DateTo)
	}
	return nil
}

// ExportResult carries the exported file base64-encoded.
type ExportResult struct {
	Data     string `json:"data"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
}

type ImportRequest struct {
	ProjectID    int64        `json:"project_id"`
	Format       ExportFormat `json:"format"`
	Data         string       `json:"data"`
	ValidateOnly bool         `json:"validate_only"`
	UserID       *int64       `json:"user_id"`
}

func (r ImportRequest) Validate() error {
	var errs FieldErrors
	checkID(&errs, "project_id", r.ProjectID)
	if r.Format != FormatCSV && r.Format != FormatJSON {
		errs.Addf("format", "must be csv or json")
	}
	if r.Data == "" {
		errs.Add("data", ErrEmptyName)
	}
	if r.UserID != nil {
		checkID(&errs, "user_id", *r.UserID)
	}
	return errs.Err()
}

// ImportError points at a rejected field of a 1-based data row.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ImportResult struct {
	Success       bool          `json:"success"`
	ImportedCount int           `json:"imported_count"`
	Errors        []ImportError `json:"errors"`
	Preview       []Expense     `json:"preview,omitempty"`
}
