/*
Package export renders a stored calculation result as a shareable document.

PURPOSE:
  Turns a month's allocation into the receipt the operator hands to the
  tenants - a PDF for the group chat, a CSV for spreadsheets, an XLSX
  workbook with a summary sheet and a per-tenant sheet. Works on a plain
  Statement struct so it never touches the store or the engine.

FORMATS:
  BuildStatementPDF:  one-page A4 receipt, gofpdf
  BuildStatementCSV:  flat per-tenant rows, header first
  BuildStatementXLSX: "summary" and "tenants" sheets, excelize

SEE ALSO:
  - api: assembles Statement from a stored result and serves the bytes
*/
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// Statement is a month's allocation flattened for rendering.
type Statement struct {
	PropertyName      string
	Year              int
	Month             int
	Method            string
	TotalAmount       float64
	ActiveTenantCount int
	Lines             []Line
	CalculatedAt      time.Time
}

// Line is one tenant's row on the receipt.
type Line struct {
	TenantName        string
	UsageKWh          float64
	Rent              float64
	Internet          float64
	Water             float64
	CommonElectricity float64
	IndividualUsage   float64
	Miscellaneous     float64
	Total             float64
}

// Period returns the statement's billing period as "2024-03".
func (s Statement) Period() string {
	return fmt.Sprintf("%04d-%02d", s.Year, s.Month)
}

// BuildStatementPDF renders a one-page receipt for the month.
func BuildStatementPDF(stmt Statement) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Monthly Rental Statement")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Property: %s", stmt.PropertyName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s", stmt.Period()))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Method: %s", stmt.Method))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Tenants: %d", stmt.ActiveTenantCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Calculated: %s", stmt.CalculatedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total (RM): %.2f", stmt.TotalAmount))
	pdf.Ln(8)

	// Per-tenant table
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(45, 6, "Tenant", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Usage (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Rent", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Internet", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Water", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Common Elec.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Own Usage", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Misc.", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Total (RM)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, line := range stmt.Lines {
		pdf.CellFormat(45, 6, line.TenantName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.1f", line.UsageKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", line.Rent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", line.Internet), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", line.Water), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", line.CommonElectricity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", line.IndividualUsage), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", line.Miscellaneous), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.2f", line.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var csvHeader = []string{
	"tenant", "usage_kwh", "rent", "internet", "water",
	"common_electricity", "individual_usage", "miscellaneous", "total",
}

// BuildStatementCSV renders flat per-tenant rows with a header row.
func BuildStatementCSV(stmt Statement) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, line := range stmt.Lines {
		record := []string{
			line.TenantName,
			strconv.FormatFloat(line.UsageKWh, 'f', 1, 64),
			fixed2(line.Rent),
			fixed2(line.Internet),
			fixed2(line.Water),
			fixed2(line.CommonElectricity),
			fixed2(line.IndividualUsage),
			fixed2(line.Miscellaneous),
			fixed2(line.Total),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fixed2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// BuildStatementXLSX renders a workbook with summary and tenants sheets.
func BuildStatementXLSX(stmt Statement) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	tenantsSheet := "tenants"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(tenantsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Monthly Rental Statement")
	_ = f.SetCellValue(summarySheet, "A3", "Property")
	_ = f.SetCellValue(summarySheet, "B3", stmt.PropertyName)
	_ = f.SetCellValue(summarySheet, "A4", "Period")
	_ = f.SetCellValue(summarySheet, "B4", stmt.Period())
	_ = f.SetCellValue(summarySheet, "A5", "Method")
	_ = f.SetCellValue(summarySheet, "B5", stmt.Method)
	_ = f.SetCellValue(summarySheet, "A6", "Tenants")
	_ = f.SetCellValue(summarySheet, "B6", stmt.ActiveTenantCount)
	_ = f.SetCellValue(summarySheet, "A7", "Total (RM)")
	_ = f.SetCellValue(summarySheet, "B7", stmt.TotalAmount)
	_ = f.SetCellValue(summarySheet, "A8", "Calculated")
	_ = f.SetCellValue(summarySheet, "B8", stmt.CalculatedAt.Format(time.RFC3339))

	for col, header := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(tenantsSheet, cell, header)
	}
	for i, line := range stmt.Lines {
		row := i + 2
		values := []any{
			line.TenantName, line.UsageKWh, line.Rent, line.Internet, line.Water,
			line.CommonElectricity, line.IndividualUsage, line.Miscellaneous, line.Total,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(tenantsSheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
