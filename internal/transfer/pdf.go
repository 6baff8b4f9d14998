package transfer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"renovo/internal/analytics"
	"renovo/internal/core"
)

// Document is everything the PDF export shows.
type Document struct {
	Project         core.Project
	Report          analytics.Report
	Expenses        []core.Expense
	IncludeReceipts bool
	GeneratedAt     time.Time
}

type column struct {
	title string
	width float64
	align string
}

// RenderPDF lays out a header, the analytics summary, a category chart when
// one can be drawn, and the expense table.
func RenderPDF(doc Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Project.Name+" expenses", true)
	pdf.SetCreator("renovo", true)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetMargins(12, 15, 12)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(doc.Project.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s", doc.GeneratedAt.UTC().Format("2006-01-02 15:04 MST")), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeSummary(pdf, tr, doc.Report)

	if png, err := CategoryChart(doc.Report); err == nil {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader("categories", opts, bytes.NewReader(png))
		pdf.ImageOptions("categories", 12, pdf.GetY(), 186, 0, true, opts, 0, "")
		pdf.Ln(4)
	}

	writeExpenseTable(pdf, tr, doc)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummary(pdf *fpdf.Fpdf, tr func(string) string, r analytics.Report) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	rows := [][2]string{
		{"Period", fmt.Sprintf("%s to %s", r.DateFrom, r.DateTo)},
		{"Total spent", fmt.Sprintf("%s %s", r.TotalSpent, r.Currency)},
		{"Total budget", fmt.Sprintf("%s %s", r.TotalBudget, r.Currency)},
		{"Utilization", fmt.Sprintf("%.1f%%", r.BudgetUtilization*100)},
		{"Expenses", fmt.Sprintf("%d", r.ExpenseCount)},
	}
	for _, t := range r.ExpensesByType {
		rows = append(rows, [2]string{t.Label, fmt.Sprintf("%s %s (%d)", t.Amount, r.Currency, t.Count)})
	}
	for _, row := range rows {
		pdf.CellFormat(45, 6, tr(row[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writeExpenseTable(pdf *fpdf.Fpdf, tr func(string) string, doc Document) {
	cols := []column{
		{"Date", 22, "L"},
		{"Title", 56, "L"},
		{"Type", 24, "L"},
		{"Vendor", 34, "L"},
		{"Status", 20, "L"},
		{"Amount", 30, "R"},
	}
	if doc.IncludeReceipts {
		cols[1].width -= 16
		cols[3].width -= 8
		cols = append(cols, column{"Receipt", 24, "L"})
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range cols {
			pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Expenses", "", 1, "L", false, 0, "")
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, e := range doc.Expenses {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		cells := []string{
			e.ExpenseDate.String(),
			truncate(e.Title, 34),
			e.Type.Label(),
			truncate(core.Deref(e.VendorName), 20),
			string(e.Status),
			fmt.Sprintf("%s %s", e.Amount, e.Currency),
		}
		if doc.IncludeReceipts {
			cells = append(cells, truncate(core.Deref(e.ReceiptURL), 14))
		}
		for i, c := range cols {
			link := ""
			if c.title == "Receipt" {
				link = core.Deref(e.ReceiptURL)
			}
			pdf.CellFormat(c.width, 6, tr(cells[i]), "1", 0, c.align, false, 0, link)
		}
		pdf.Ln(-1)
	}
	if len(doc.Expenses) == 0 {
		pdf.CellFormat(0, 6, "No expenses in the selected range.", "1", 1, "C", false, 0, "")
	}
}
