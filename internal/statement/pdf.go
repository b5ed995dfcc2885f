package statement

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	pdfMargin    = 12.0
	pdfLineH     = 6.0
	pdfPageWidth = 210.0 - 2*pdfMargin
)

var sectionColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 12, "C"},
	{"Date", 50, "L"},
	{"Collected by", 56, "L"},
	{"Amount", 34, "R"},
	{"Penalty", 34, "R"},
}

const utf8Family = "statement"

// RenderPDF writes the statement as an A4 PDF document with the core fonts.
// Text outside Windows-1252 is shown as NamePlaceholder.
func RenderPDF(w io.Writer, s *Statement) error {
	return renderPDF(w, s, nil)
}

// pdfText picks the font family and the text encoder. With an embedded UTF-8
// font text passes through as is; with the core fonts, text the font cannot
// show is replaced by the placeholder instead of being written as dots.
func pdfText(pdf *fpdf.Fpdf, utf8Font []byte) (string, func(string) string) {
	if len(utf8Font) > 0 {
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8FontFromBytes(utf8Family, style, utf8Font)
		}
		return utf8Family, func(s string) string { return s }
	}

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return "Helvetica", func(s string) string {
		if _, err := charmap.Windows1252.NewEncoder().String(s); err != nil {
			return NamePlaceholder
		}
		return tr(s)
	}
}

func renderPDF(w io.Writer, s *Statement, utf8Font []byte) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+4)
	pdf.SetTitle(s.Title, true)
	pdf.SetCreator("mfi-statements-bfa", true)
	pdf.AliasNbPages("")

	family, tr := pdfText(pdf, utf8Font)
	money := func(v float64) string { return FormatMoney(s.Currency, v) }

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont(family, "I", 8)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Statement %s  |  Page %d/{nb}", s.ID, pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(0, 10, tr(s.Title), "", 1, "C", false, 0, "")
	pdf.SetFont(family, "", 9)
	pdf.CellFormat(0, 5, "Generated "+s.GeneratedAt.Format("02 Jan 2006 15:04"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	h := s.Header
	summary := [][2]string{
		{"Account holder", h.HolderName},
		{"Account type", h.DocumentType},
		{"Start date", h.StartDate},
		{"End date", h.EndDate},
		{"Period", h.Period},
		{"Loan amount", money(h.LoanAmount)},
		{"Total payable", money(h.TotalPayable)},
		{"Installment", money(h.InstallmentAmount)},
		{"Total due", money(h.TotalDue)},
		{"Remaining installments", h.RemainingInstallments},
		{"Collections", fmt.Sprintf("%d", h.CollectionCount)},
		{"Total collected", money(h.TotalCollected)},
		{"Total penalty", money(h.TotalPenalty)},
	}
	if h.ProjectedMaturity != nil {
		summary = append(summary, [2]string{"Projected maturity", money(*h.ProjectedMaturity)})
	}

	pdf.SetFont(family, "", 10)
	for _, kv := range summary {
		pdf.SetFont(family, "B", 10)
		pdf.CellFormat(55, pdfLineH, tr(kv[0]), "", 0, "L", false, 0, "")
		pdf.SetFont(family, "", 10)
		pdf.CellFormat(0, pdfLineH, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, sec := range s.Months {
		pdf.SetFont(family, "B", 12)
		pdf.CellFormat(0, 8, tr(sec.Month), "", 1, "L", false, 0, "")

		pdf.SetFont(family, "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range sectionColumns {
			pdf.CellFormat(c.width, pdfLineH, c.title, "1", 0, c.align, true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont(family, "", 9)
		for i, row := range sec.Rows {
			cells := []string{fmt.Sprintf("%d", i+1), row.Date, row.Agent, money(row.Amount), money(row.Penalty)}
			for j, c := range sectionColumns {
				pdf.CellFormat(c.width, pdfLineH, tr(cells[j]), "1", 0, c.align, false, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont(family, "B", 9)
		labelW := sectionColumns[0].width + sectionColumns[1].width + sectionColumns[2].width
		pdf.CellFormat(labelW, pdfLineH, "Month total", "1", 0, "R", true, 0, "")
		pdf.CellFormat(sectionColumns[3].width, pdfLineH, money(sec.Amount), "1", 0, "R", true, 0, "")
		pdf.CellFormat(sectionColumns[4].width, pdfLineH, money(sec.Penalty), "1", 1, "R", true, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(0, 8, "Yearly summary", "", 1, "L", false, 0, "")
	yearCols := []float64{40, 40, (pdfPageWidth - 80) / 2, (pdfPageWidth - 80) / 2}
	pdf.SetFont(family, "B", 9)
	for i, title := range []string{"Year", "Collections", "Amount", "Penalty"} {
		pdf.CellFormat(yearCols[i], pdfLineH, title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont(family, "", 9)
	for _, y := range s.Years {
		pdf.CellFormat(yearCols[0], pdfLineH, y.Year, "1", 0, "L", false, 0, "")
		pdf.CellFormat(yearCols[1], pdfLineH, fmt.Sprintf("%d", y.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(yearCols[2], pdfLineH, money(y.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(yearCols[3], pdfLineH, money(y.Penalty), "1", 1, "R", false, 0, "")
	}

	if pdf.Err() {
		return fmt.Errorf("render pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
