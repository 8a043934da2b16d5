// Package receipt renders printable bill receipts.
package receipt

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/dinepoint/pos-api/internal/money"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/jung-kurt/gofpdf"
)

// Receipts print on 80mm thermal rolls.
const (
	pageWidth  = 80.0
	pageHeight = 297.0
	margin     = 4.0
	lineHeight = 5.0
)

// Render lays the receipt out as a single-column PDF.
func Render(r *service.Receipt) ([]byte, error) {
	loc := location(r.Restaurant.Timezone)
	bill := r.Detail.Bill

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: pageWidth, Ht: pageHeight},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.AddPage()
	width := pageWidth - 2*margin

	pdf.SetFont("Courier", "B", 12)
	pdf.CellFormat(width, 7, r.Restaurant.Name, "", 1, "C", false, 0, "")

	pdf.SetFont("Courier", "", 8)
	pdf.CellFormat(width, lineHeight, bill.BillNumber, "", 1, "C", false, 0, "")
	pdf.CellFormat(width, lineHeight, bill.CreatedAt.In(loc).Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	rule(pdf, width)

	for _, it := range r.Detail.Items {
		pdf.CellFormat(width*0.6, lineHeight, fmt.Sprintf("%dx %s", it.Quantity, it.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(width*0.4, lineHeight, money.String(it.TotalPrice), "", 1, "R", false, 0, "")
		if it.Quantity > 1 {
			pdf.CellFormat(width, lineHeight, "   @ "+money.String(it.UnitPrice), "", 1, "L", false, 0, "")
		}
	}
	rule(pdf, width)

	total(pdf, width, "Subtotal", money.String(bill.Subtotal))
	if d := money.FromNumeric(bill.DiscountAmount); d.IsPositive() {
		total(pdf, width, "Discount", "-"+d.StringFixed(2))
	}
	total(pdf, width, fmt.Sprintf("Tax (%s%%)", money.FromNumeric(bill.TaxRate).String()), money.String(bill.TaxAmount))
	pdf.SetFont("Courier", "B", 10)
	total(pdf, width, "TOTAL", money.String(bill.TotalAmount))
	pdf.SetFont("Courier", "", 8)

	if len(r.Detail.Payments) > 0 {
		rule(pdf, width)
		for _, p := range r.Detail.Payments {
			total(pdf, width, string(p.Method), money.String(p.Amount))
		}
		total(pdf, width, "Paid", r.Detail.TotalPaid.StringFixed(2))
		total(pdf, width, "Balance", r.Detail.Remaining.StringFixed(2))
	}

	rule(pdf, width)
	pdf.CellFormat(width, lineHeight, string(bill.Status), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func total(pdf *gofpdf.Fpdf, width float64, label, amount string) {
	pdf.CellFormat(width*0.6, lineHeight, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(width*0.4, lineHeight, amount, "", 1, "R", false, 0, "")
}

func rule(pdf *gofpdf.Fpdf, width float64) {
	pdf.CellFormat(width, 2, "", "B", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func location(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("WARN: receipt timezone %q: %v, using UTC", name, err)
		return time.UTC
	}
	return loc
}
