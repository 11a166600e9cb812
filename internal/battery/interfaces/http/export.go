package http

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"energy-dashboard/internal/battery/application"
)

func formatPayback(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

// BuildScenarioPDF renders the scenario table as a PDF report.
func BuildScenarioPDF(report application.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Battery Scenario Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Range: %s (%s - %s)", report.Filters.Range, report.From.Format(time.RFC3339), report.To.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Samples: %d at %d min", report.Samples, report.IntervalMinutes))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Battery price per kWh: %.0f", report.Options.PricePerKWh))
	pdf.Ln(5)
	rec := report.Recommendation
	pdf.Cell(0, 6, fmt.Sprintf("Recommended capacity: %d kWh, savings %.2f, payback %s years", rec.CapacityKWh, rec.SavingsKc, formatPayback(rec.PaybackYears)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "kWh", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Self-sufficiency", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Savings", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Import saved", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Throughput", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Payback", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, sc := range report.Scenarios {
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", sc.CapacityKWh), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.1f %%", sc.SelfSufficiency*100), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", sc.SavingsKc), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", sc.ImportReductionKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.3f", sc.ThroughputKWh), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, formatPayback(sc.PaybackYears), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildScenarioXLSX renders a summary sheet and a scenarios sheet.
func BuildScenarioXLSX(report application.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	scenarioSheet := "scenarios"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(scenarioSheet); err != nil {
		return nil, err
	}

	rec := report.Recommendation
	_ = f.SetCellValue(summarySheet, "A1", "Battery Scenario Report")
	_ = f.SetCellValue(summarySheet, "A3", "Range")
	_ = f.SetCellValue(summarySheet, "B3", string(report.Filters.Range))
	_ = f.SetCellValue(summarySheet, "A4", "From")
	_ = f.SetCellValue(summarySheet, "B4", report.From.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A5", "To")
	_ = f.SetCellValue(summarySheet, "B5", report.To.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A6", "Samples")
	_ = f.SetCellValue(summarySheet, "B6", report.Samples)
	_ = f.SetCellValue(summarySheet, "A7", "Interval (min)")
	_ = f.SetCellValue(summarySheet, "B7", report.IntervalMinutes)
	_ = f.SetCellValue(summarySheet, "A8", "Recommended capacity (kWh)")
	_ = f.SetCellValue(summarySheet, "B8", rec.CapacityKWh)
	_ = f.SetCellValue(summarySheet, "A9", "Savings (Kč)")
	_ = f.SetCellValue(summarySheet, "B9", rec.SavingsKc)
	_ = f.SetCellValue(summarySheet, "A10", "Payback (years)")
	if rec.PaybackYears != nil {
		_ = f.SetCellValue(summarySheet, "B10", *rec.PaybackYears)
	}

	headers := []string{"Capacity (kWh)", "Self-sufficiency", "Savings (Kč)", "Import (kWh)", "Export (kWh)", "Import reduction (kWh)", "Throughput (kWh)", "Payback (years)"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(scenarioSheet, cell, h)
	}
	for i, sc := range report.Scenarios {
		row := i + 2
		_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("A%d", row), sc.CapacityKWh)
		_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("B%d", row), sc.SelfSufficiency)
		_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("C%d", row), sc.SavingsKc)
		_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("D%d", row), sc.ImportKWh)
		_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("E%d", row), sc.ExportKWh)
		_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("F%d", row), sc.ImportReductionKWh)
		_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("G%d", row), sc.ThroughputKWh)
		if sc.PaybackYears != nil {
			_ = f.SetCellValue(scenarioSheet, fmt.Sprintf("H%d", row), *sc.PaybackYears)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
