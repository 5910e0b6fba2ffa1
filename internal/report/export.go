package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"Attendify/internal/model"
)

// SheetName XLSX 工作表名
const SheetName = "Attendance"

// Headers 导出列
var Headers = []string{"Date", "Employee", "Check-In", "Check-Out", "Status", "Work Hours"}

// Row 单条记录的导出列值，时间按 loc 输出 24 小时制
func Row(rec model.AttendanceRecord, loc *time.Location) []string {
	if loc == nil {
		loc = time.Local
	}
	name := rec.UserName
	if name == "" {
		name = "Unknown"
	}
	checkIn := "N/A"
	if !rec.CheckIn.IsZero() {
		checkIn = rec.CheckIn.In(loc).Format("15:04:05")
	}
	checkOut := "N/A"
	if rec.CheckOut != nil {
		checkOut = rec.CheckOut.In(loc).Format("15:04:05")
	}
	return []string{
		recordDate(rec, loc).Format(model.DateLayout),
		name,
		checkIn,
		checkOut,
		string(rec.Status),
		strconv.FormatFloat(rec.WorkHours, 'f', 2, 64),
	}
}

// WriteCSV 写出 CSV，首行为表头
func WriteCSV(w io.Writer, rep *Report, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return err
	}
	for _, rec := range rep.Records {
		if err := cw.Write(Row(rec, loc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX 写出单表 XLSX：明细在前，汇总附在明细下方
func WriteXLSX(w io.Writer, rep *Report, loc *time.Location) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	if err := setRow(f, 1, toCells(Headers)); err != nil {
		return err
	}

	row := 2
	for _, rec := range rep.Records {
		values := Row(rec, loc)
		cells := toCells(values[:5])
		cells = append(cells, rec.WorkHours)
		if err := setRow(f, row, cells); err != nil {
			return err
		}
		row++
	}

	row++
	summary := [][]interface{}{
		{"Range", string(rep.Range)},
		{"Total Hours", rep.Summary.TotalHours},
		{"Punctuality (%)", rep.Summary.Punctuality},
		{"Late Issues", rep.Summary.LateIssues},
		{"Records", rep.Summary.Records},
	}
	for _, cells := range summary {
		if err := setRow(f, row, cells); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(SheetName, "A", "F", 16); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, cells []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(SheetName, cell, &cells)
}

func toCells(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
