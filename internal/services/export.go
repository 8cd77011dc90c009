package services

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/attendance-hq/apiserver/types"
)

// ExportTimestampLayout is RFC 3339 in UTC with millisecond precision.
const ExportTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ExportCSVHeaders is the header row of the attendance CSV export.
var ExportCSVHeaders = []string{
	"Employee ID",
	"Employee Name",
	"Designation",
	"Action",
	"Timestamp",
	"Status",
	"Photo URL",
}

// ExportTemplate describes a report layout offered to clients.
type ExportTemplate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Fields      []string `json:"fields"`
}

// ExportTemplates returns the static report template catalog.
func ExportTemplates() []ExportTemplate {
	return []ExportTemplate{
		{
			ID:          "attendance-basic",
			Name:        "Basic Attendance Report",
			Description: "Simple attendance records with employee details",
			Fields:      []string{"Employee ID", "Employee Name", "Action", "Timestamp", "Status"},
		},
		{
			ID:          "attendance-detailed",
			Name:        "Detailed Attendance Report",
			Description: "Complete attendance records with photos and designations",
			Fields:      append([]string(nil), ExportCSVHeaders...),
		},
		{
			ID:          "employee-summary",
			Name:        "Employee Summary Report",
			Description: "Employee-wise attendance statistics and summaries",
			Fields:      []string{"Employee ID", "Employee Name", "Designation", "Total Check-ins", "Total Check-outs", "Present Days"},
		},
	}
}

// ExportFilename names the export file after the given day.
func ExportFilename(now time.Time) string {
	return "attendance-" + now.Format(types.WorkDateLayout) + ".csv"
}

// WriteAttendanceCSV writes the header row unquoted followed by one row per
// record with every field double-quoted.
func WriteAttendanceCSV(w io.Writer, records []types.Attendance) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(ExportCSVHeaders, ",") + "\n"); err != nil {
		return err
	}

	for _, record := range records {
		var employee types.Employee
		if record.Employee != nil {
			employee = *record.Employee
		} else {
			employee.ID = record.EmployeeID
		}

		fields := []string{
			employee.DisplayID(),
			employee.Name,
			employee.Designation,
			string(record.Action),
			record.Timestamp.UTC().Format(ExportTimestampLayout),
			string(employee.Status),
			record.PhotoURL,
		}
		for i, field := range fields {
			if i > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			if _, err := bw.WriteString(quoteField(field)); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func quoteField(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}
