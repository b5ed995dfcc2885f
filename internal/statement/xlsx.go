package statement

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	sheetSummary     = "Summary"
	sheetCollections = "Collections"
	sheetYearly      = "Yearly"
	moneyFormat      = "#,##0.00"
)

// RenderXLSX writes the statement as a workbook with summary, collection
// and yearly sheets.
func RenderXLSX(w io.Writer, s *Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	for _, name := range []string{sheetCollections, sheetYearly} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("xlsx: new sheet %s: %w", name, err)
		}
	}

	numFmt := moneyFormat
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("xlsx: money style: %w", err)
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsx: bold style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &numFmt})
	if err != nil {
		return fmt.Errorf("xlsx: total style: %w", err)
	}

	sw := sheetWriter{f: f}

	// Summary
	h := s.Header
	sw.sheet = sheetSummary
	sw.row(boldStyle, s.Title)
	sw.row(0, "Statement ID", s.ID)
	sw.row(0, "Generated", s.GeneratedAt.Format("2006-01-02 15:04"))
	sw.row(0, "Account holder", h.HolderName)
	sw.row(0, "Account type", h.DocumentType)
	sw.row(0, "Start date", h.StartDate)
	sw.row(0, "End date", h.EndDate)
	sw.row(0, "Period", h.Period)
	sw.row(0, "Currency", s.Currency)
	sw.moneyRow(moneyStyle, "Loan amount", h.LoanAmount)
	sw.moneyRow(moneyStyle, "Total payable", h.TotalPayable)
	sw.moneyRow(moneyStyle, "Installment", h.InstallmentAmount)
	sw.moneyRow(moneyStyle, "Total due", h.TotalDue)
	sw.row(0, "Remaining installments", h.RemainingInstallments)
	sw.row(0, "Collections", h.CollectionCount)
	sw.moneyRow(moneyStyle, "Total collected", h.TotalCollected)
	sw.moneyRow(moneyStyle, "Total penalty", h.TotalPenalty)
	if h.ProjectedMaturity != nil {
		sw.moneyRow(moneyStyle, "Projected maturity", *h.ProjectedMaturity)
	}

	// Collections, one block per month in statement order
	sw.sheet, sw.next = sheetCollections, 0
	for _, sec := range s.Months {
		sw.row(boldStyle, sec.Month)
		sw.row(boldStyle, "#", "Date", "Collected by", "Amount", "Penalty")
		for i, r := range sec.Rows {
			n := sw.row(0, i+1, r.Date, r.Agent, r.Amount, r.Penalty)
			sw.style("D", "E", n, moneyStyle)
		}
		n := sw.row(boldStyle, "", "", "Month total", sec.Amount, sec.Penalty)
		sw.style("D", "E", n, totalStyle)
		sw.next++
	}

	// Yearly summary
	sw.sheet, sw.next = sheetYearly, 0
	sw.row(boldStyle, "Year", "Collections", "Amount", "Penalty")
	for _, y := range s.Years {
		n := sw.row(0, y.Year, y.Count, y.Amount, y.Penalty)
		sw.style("C", "D", n, moneyStyle)
	}

	if sw.err != nil {
		return fmt.Errorf("xlsx: %w", sw.err)
	}

	_ = f.SetColWidth(sheetSummary, "A", "B", 26)
	_ = f.SetColWidth(sheetCollections, "B", "C", 22)
	_ = f.SetColWidth(sheetCollections, "D", "E", 14)
	_ = f.SetColWidth(sheetYearly, "A", "D", 14)
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// sheetWriter appends rows to a sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	next  int
	err   error
}

func (sw *sheetWriter) row(style int, values ...any) int {
	sw.next++
	if sw.err != nil {
		return sw.next
	}
	cell, err := excelize.CoordinatesToCellName(1, sw.next)
	if err != nil {
		sw.err = err
		return sw.next
	}
	if err := sw.f.SetSheetRow(sw.sheet, cell, &values); err != nil {
		sw.err = err
		return sw.next
	}
	if style != 0 {
		last, _ := excelize.CoordinatesToCellName(len(values), sw.next)
		sw.err = sw.f.SetCellStyle(sw.sheet, cell, last, style)
	}
	return sw.next
}

func (sw *sheetWriter) moneyRow(style int, label string, v float64) {
	n := sw.row(0, label, v)
	sw.style("B", "B", n, style)
}

func (sw *sheetWriter) style(fromCol, toCol string, row, style int) {
	if sw.err != nil {
		return
	}
	sw.err = sw.f.SetCellStyle(sw.sheet, fmt.Sprintf("%s%d", fromCol, row), fmt.Sprintf("%s%d", toCol, row), style)
}
