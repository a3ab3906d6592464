// Package export renders a tenant dashboard as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"limitguard/internal/domain"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx"; empty defaults to xlsx.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName returns the download name for a tenant/year export.
func FileName(d *domain.Dashboard, f Format) string {
	return fmt.Sprintf("limits-%s-%d.%s", d.TenantID, d.Year, f)
}

// BOM is the UTF-8 byte order mark written ahead of CSV output for Excel.
var BOM = []byte{0xEF, 0xBB, 0xBF}

var columns = []string{"Month", "Accumulated", "Forecast", "State", "Computed At"}

func row(s domain.MonthlySnapshot) []string {
	return []string{
		strconv.Itoa(s.Month),
		s.Accumulated.StringFixed(2),
		s.Forecast.StringFixed(2),
		string(s.State),
		s.ComputedAt.UTC().Format(time.RFC3339),
	}
}

// Write renders d in format f to w.
func Write(w io.Writer, d *domain.Dashboard, f Format) error {
	if f == FormatCSV {
		return WriteCSV(w, d)
	}
	return WriteXLSX(w, d)
}

// WriteCSV writes one row per monthly snapshot.
func WriteCSV(w io.Writer, d *domain.Dashboard) error {
	if _, err := w.Write(BOM); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("export.WriteCSV: %w", err)
	}
	for _, s := range d.Snapshots {
		if err := cw.Write(row(s)); err != nil {
			return fmt.Errorf("export.WriteCSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	summarySheet   = "Summary"
	snapshotsSheet = "Snapshots"
)

// WriteXLSX writes a workbook with a summary sheet and a monthly snapshot sheet.
func WriteXLSX(w io.Writer, d *domain.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	summary := [][]interface{}{
		{"Tenant", d.TenantID},
		{"Year", d.Year},
		{"Month", d.Month},
		{"State", string(d.State)},
		{"Accumulated", d.Accumulated.InexactFloat64()},
		{"Forecast", d.Forecast.InexactFloat64()},
		{"Computed At", d.ComputedAt.UTC().Format(time.RFC3339)},
	}
	for i, r := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return fmt.Errorf("export.WriteXLSX: summary: %w", err)
		}
	}

	if _, err := f.NewSheet(snapshotsSheet); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(snapshotsSheet, "A1", &header); err != nil {
		return fmt.Errorf("export.WriteXLSX: header: %w", err)
	}
	for i, s := range d.Snapshots {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{
			s.Month,
			s.Accumulated.InexactFloat64(),
			s.Forecast.InexactFloat64(),
			string(s.State),
			s.ComputedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(snapshotsSheet, cell, &values); err != nil {
			return fmt.Errorf("export.WriteXLSX: month %d: %w", s.Month, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}
