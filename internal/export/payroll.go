// Package export builds the payroll workbook HR downloads after final
// confirmation. Each export covers one claim week and contains only
// FINAL_CONFIRMED timesheets.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// PayrollRow is one payable line in the export
type PayrollRow struct {
	TutorName  string
	TutorEmail string
	CourseCode string
	CourseName string
	Hours      decimal.Decimal
	HourlyRate decimal.Decimal
	Pay        decimal.Decimal
}

// PayrollWriter renders payroll rows into an xlsx workbook
type PayrollWriter struct {
	sheetName string
	logger    *zap.Logger
}

// NewPayrollWriter creates a payroll writer
func NewPayrollWriter(sheetName string, logger *zap.Logger) *PayrollWriter {
	if sheetName == "" {
		sheetName = "Payroll"
	}
	return &PayrollWriter{
		sheetName: sheetName,
		logger:    logger,
	}
}

var payrollHeader = []string{
	"Tutor", "Email", "Course Code", "Course Name", "Hours", "Hourly Rate", "Pay",
}

// Write renders the rows for one claim week and returns the workbook bytes
func (w *PayrollWriter) Write(weekStart time.Time, rows []PayrollRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := w.sheetName
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	w.setCell(f, "A1", fmt.Sprintf("Payroll for week starting %s", weekStart.Format("2006-01-02")))
	for i, title := range payrollHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		w.setCell(f, cell, title)
	}

	total := decimal.Zero
	for i, row := range rows {
		rowNum := i + 3
		values := []interface{}{
			row.TutorName,
			row.TutorEmail,
			row.CourseCode,
			row.CourseName,
			row.Hours.String(),
			row.HourlyRate.String(),
			row.Pay.String(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			w.setCell(f, cell, value)
		}
		total = total.Add(row.Pay)
	}

	totalRow := len(rows) + 3
	cell, _ := excelize.CoordinatesToCellName(6, totalRow)
	w.setCell(f, cell, "Total")
	cell, _ = excelize.CoordinatesToCellName(7, totalRow)
	w.setCell(f, cell, total.String())

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	w.logger.Info("Payroll export written",
		zap.String("week_start", weekStart.Format("2006-01-02")),
		zap.Int("rows", len(rows)),
		zap.String("total", total.String()))

	return buf.Bytes(), nil
}

// setCell sets a cell value, logging rather than failing on a bad write
func (w *PayrollWriter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(w.sheetName, cell, value); err != nil {
		w.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

// Filename returns the canonical export file name for a week
func Filename(weekStart time.Time) string {
	return fmt.Sprintf("payroll_%s.xlsx", weekStart.Format("2006-01-02"))
}
