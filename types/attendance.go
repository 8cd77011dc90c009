package types

import "time"

// AttendanceAction is the kind of attendance transition.
type AttendanceAction string

const (
	ActionCheckIn  AttendanceAction = "CHECK_IN"
	ActionCheckOut AttendanceAction = "CHECK_OUT"
)

// WorkDateLayout formats Attendance.WorkDate.
const WorkDateLayout = "2006-01-02"

// Attendance is an immutable check-in or check-out event.
type Attendance struct {
	ID string `json:"id" db:"id"`

	// EmployeeID is the internal identity of the employee, never the custom id.
	EmployeeID string `json:"employeeId" db:"employee_id"`

	Action AttendanceAction `json:"action" db:"action"`

	// Timestamp is assigned by the server when the event is recorded.
	Timestamp time.Time `json:"timestamp" db:"recorded_at"`

	// WorkDate is the server-local calendar day of Timestamp.
	WorkDate string `json:"workDate" db:"work_date"`

	// PhotoURL is an optional reference into the blob store.
	PhotoURL string `json:"photoUrl,omitempty" db:"photo_url"`

	// Employee is populated on reads that join the employee record.
	Employee *Employee `json:"employee,omitempty" db:"-"`
}

// AttendanceFilter narrows attendance reads. A zero value matches every event.
type AttendanceFilter struct {
	// EmployeeID restricts results to one employee (internal identity).
	EmployeeID string

	// From is an inclusive lower bound on Timestamp.
	From *time.Time

	// To is an upper bound on Timestamp; exclusive unless ToInclusive is set.
	To          *time.Time
	ToInclusive bool
}

// AttendanceStats aggregates attendance events.
type AttendanceStats struct {
	TotalRecords    int `json:"totalRecords"`
	CheckIns        int `json:"checkIns"`
	CheckOuts       int `json:"checkOuts"`
	UniqueEmployees int `json:"uniqueEmployees"`

	// PresentToday counts check-ins on the current day regardless of filters.
	PresentToday int `json:"presentToday"`
}
