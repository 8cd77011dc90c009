package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/attendance-hq/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAttendanceCSV(t *testing.T) {
	employee := &types.Employee{
		ID:          "8c1f6d4e-2b1a-4c8e-9f00-3d2b1a0c9e11",
		CustomID:    "EMP001",
		Name:        `Ada "The Countess" Lovelace`,
		Designation: "Engineer, Analytical",
		Status:      types.EmployeeStatusActive,
	}
	legacy := &types.Employee{
		ID:          "5d6e7f80-1111-4222-8333-444455556666",
		Name:        "Legacy",
		Designation: "Clerk",
		Status:      types.EmployeeStatusOnLeave,
	}
	checkIn := time.Date(2026, 3, 10, 9, 0, 0, 0, testZone)

	records := []types.Attendance{
		{EmployeeID: employee.ID, Action: types.ActionCheckOut, Timestamp: checkIn.Add(9 * time.Hour), Employee: employee},
		{EmployeeID: employee.ID, Action: types.ActionCheckIn, Timestamp: checkIn.Add(1500 * time.Microsecond), PhotoURL: "/api/files/a.jpg", Employee: employee},
		{EmployeeID: legacy.ID, Action: types.ActionCheckIn, Timestamp: checkIn, Employee: legacy},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAttendanceCSV(&buf, records))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Employee ID,Employee Name,Designation,Action,Timestamp,Status,Photo URL", lines[0])
	assert.Equal(t, `"EMP001","Ada ""The Countess"" Lovelace","Engineer, Analytical","CHECK_OUT","2026-03-10T13:00:00.000Z","ACTIVE",""`, lines[1])
	assert.Equal(t, `"EMP001","Ada ""The Countess"" Lovelace","Engineer, Analytical","CHECK_IN","2026-03-10T04:00:00.001Z","ACTIVE","/api/files/a.jpg"`, lines[2])
	assert.Equal(t, `"5d6e7f80-1111-4222-8333-444455556666","Legacy","Clerk","CHECK_IN","2026-03-10T04:00:00.000Z","ON_LEAVE",""`, lines[3])
}

func TestExportTemplates(t *testing.T) {
	templates := ExportTemplates()
	require.Len(t, templates, 3)
	assert.Equal(t, "attendance-detailed", templates[1].ID)
	assert.Equal(t, ExportCSVHeaders, templates[1].Fields)

	templates[1].Fields[0] = "mutated"
	assert.Equal(t, "Employee ID", ExportCSVHeaders[0])
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "attendance-2026-03-10.csv", ExportFilename(time.Date(2026, 3, 10, 23, 0, 0, 0, testZone)))
}
