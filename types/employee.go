package types

import (
	"strings"
	"time"
)

// EmployeeStatus is the employment state of an employee.
type EmployeeStatus string

const (
	EmployeeStatusActive   EmployeeStatus = "ACTIVE"
	EmployeeStatusInactive EmployeeStatus = "INACTIVE"
	EmployeeStatusOnLeave  EmployeeStatus = "ON_LEAVE"
)

// EmployeeStatuses lists every valid status in display order.
var EmployeeStatuses = []EmployeeStatus{
	EmployeeStatusActive,
	EmployeeStatusInactive,
	EmployeeStatusOnLeave,
}

// ParseEmployeeStatus upper-cases raw and checks it against the known statuses.
func ParseEmployeeStatus(raw string) (EmployeeStatus, bool) {
	status := EmployeeStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range EmployeeStatuses {
		if status == known {
			return status, true
		}
	}
	return "", false
}

// Employee is a person whose attendance is tracked.
type Employee struct {
	// ID is the store-assigned internal identity. Attendance rows reference
	// employees by this value only.
	ID string `json:"employeeId" db:"id"`

	// CustomID is the human-assigned, caller-facing code (e.g. "EMP001").
	// Legacy rows created before the field existed have none.
	CustomID string `json:"customId,omitempty" db:"custom_id"`

	Name        string         `json:"name" db:"name"`
	Designation string         `json:"designation" db:"designation"`
	Status      EmployeeStatus `json:"status" db:"status"`

	// ProfileImage is an optional reference into the blob store.
	ProfileImage string `json:"profileImage,omitempty" db:"profile_image"`

	// UserID is a weak reference to the owning user account.
	UserID string `json:"userId,omitempty" db:"user_id"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DisplayID returns the caller-facing identifier, falling back to the
// internal identity for legacy rows.
func (e Employee) DisplayID() string {
	if e.CustomID != "" {
		return e.CustomID
	}
	return e.ID
}
