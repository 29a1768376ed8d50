// Package receipt renders printable receipts for recorded transactions.
package receipt

import (
	"fmt"
	"io"

	"github.com/cafe-pos/api/internal/model"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Roll paper, 80mm wide.
const (
	pageWidth  = 80.0
	margin     = 4.0
	lineHeight = 5.0
)

// Receipt is everything printed on one slip.
type Receipt struct {
	Settings    model.Settings
	Transaction model.Transaction
	Orders      []model.Order
}

// Write renders r as a single-page PDF.
func Write(w io.Writer, r Receipt) error {
	lines := 0
	for _, o := range r.Orders {
		lines += len(o.Items) + 1
	}
	height := 90.0 + float64(lines)*lineHeight

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: pageWidth, Ht: height},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	width := pageWidth - 2*margin

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width, 7, tr(r.Settings.CafeName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	tx := r.Transaction
	pdf.CellFormat(width, lineHeight, tx.CreatedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	pdf.CellFormat(width, lineHeight, fmt.Sprintf("Table %d  #%s", tx.TableID, tx.ID.String()[:8]), "", 1, "C", false, 0, "")
	rule(pdf, width)

	for _, o := range r.Orders {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(width, lineHeight, "Order "+o.ID.String()[:8], "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		for _, it := range o.Items {
			label := fmt.Sprintf("%dx %s", it.Quantity, it.Name)
			pdf.CellFormat(width*0.65, lineHeight, tr(label), "", 0, "L", false, 0, "")
			pdf.CellFormat(width*0.35, lineHeight, money(it.LineTotal()), "", 1, "R", false, 0, "")
		}
	}
	rule(pdf, width)

	row(pdf, width, "Subtotal", money(tx.Subtotal))
	if !tx.ServiceCharge.IsZero() {
		row(pdf, width, "Service charge", money(tx.ServiceCharge))
	}
	if !tx.Tax.IsZero() {
		row(pdf, width, "Tax", money(tx.Tax))
	}
	pdf.SetFont("Helvetica", "B", 10)
	row(pdf, width, "Total "+r.Settings.Currency, money(tx.Amount))
	pdf.SetFont("Helvetica", "", 8)
	row(pdf, width, "Paid by", tx.Method)
	if tx.Override {
		row(pdf, width, "Note", "amount overridden")
	}

	if r.Settings.ReceiptFooter != "" {
		pdf.Ln(lineHeight)
		pdf.MultiCell(width, lineHeight, tr(r.Settings.ReceiptFooter), "", "C", false)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return pdf.Output(w)
}

func row(pdf *fpdf.Fpdf, width float64, label, value string) {
	pdf.CellFormat(width*0.6, lineHeight+1, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(width*0.4, lineHeight+1, value, "", 1, "R", false, 0, "")
}

func rule(pdf *fpdf.Fpdf, width float64) {
	y := pdf.GetY() + 1
	pdf.Line(margin, y, margin+width, y)
	pdf.SetY(y + 1)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
