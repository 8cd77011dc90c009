package services

import (
	"context"
	"errors"
	"strings"

	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/attendance-hq/apiserver/types"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// EmployeeRepository defines persistence operations for employees.
type EmployeeRepository interface {
	EmployeeLookup
	List(ctx context.Context) ([]types.Employee, error)
	ListByUser(ctx context.Context, userID string) ([]types.Employee, error)
	Create(ctx context.Context, employee types.Employee) (types.Employee, error)
	Update(ctx context.Context, employee types.Employee) (types.Employee, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// CreateEmployeeInput holds the fields of a new employee. ProfileImage is a
// blob reference or URL; local device URIs are dropped.
type CreateEmployeeInput struct {
	CustomID     string
	Name         string
	Designation  string
	Status       string
	UserID       string
	ProfileImage string
}

// UpdateEmployeeInput holds a partial update. Nil fields are left unchanged;
// an empty ProfileImage or UserID clears the field.
type UpdateEmployeeInput struct {
	Name         *string
	Designation  *string
	Status       *string
	UserID       *string
	ProfileImage *string
}

var errInvalidUserID = BadRequest("invalid user ID provided")

// EmployeeService encapsulates employee use-cases.
type EmployeeService struct {
	repo     EmployeeRepository
	resolver *EmployeeResolver
}

func NewEmployeeService(repo EmployeeRepository, resolver *EmployeeResolver) *EmployeeService {
	return &EmployeeService{repo: repo, resolver: resolver}
}

func invalidStatus() *Error {
	allowed := make([]string, 0, len(types.EmployeeStatuses))
	for _, status := range types.EmployeeStatuses {
		allowed = append(allowed, string(status))
	}
	return BadRequest("invalid status, must be one of: " + strings.Join(allowed, ", "))
}

// normalizeProfileImage drops device-local file URIs, which the server
// cannot dereference.
func normalizeProfileImage(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "file://") {
		return ""
	}
	return raw
}

func validUserID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}

func (s *EmployeeService) List(ctx context.Context) ([]types.Employee, error) {
	employees, err := s.repo.List(ctx)
	if err != nil {
		return nil, Internal("failed to list employees", err)
	}
	return employees, nil
}

// Get resolves identifier as a custom id or internal id.
func (s *EmployeeService) Get(ctx context.Context, identifier string) (types.Employee, error) {
	return s.resolver.Resolve(ctx, identifier)
}

func (s *EmployeeService) Create(ctx context.Context, input CreateEmployeeInput) (types.Employee, error) {
	employee := types.Employee{
		CustomID:     strings.TrimSpace(input.CustomID),
		Name:         displayText(input.Name),
		Designation:  displayText(input.Designation),
		Status:       types.EmployeeStatusActive,
		UserID:       strings.TrimSpace(input.UserID),
		ProfileImage: normalizeProfileImage(input.ProfileImage),
	}
	if employee.Name == "" || employee.Designation == "" || employee.CustomID == "" {
		return types.Employee{}, BadRequest("name, designation and customId are required")
	}
	if strings.TrimSpace(input.Status) != "" {
		status, ok := types.ParseEmployeeStatus(input.Status)
		if !ok {
			return types.Employee{}, invalidStatus()
		}
		employee.Status = status
	}
	if employee.UserID != "" && !validUserID(employee.UserID) {
		return types.Employee{}, errInvalidUserID
	}

	if _, err := s.repo.GetByCustomID(ctx, employee.CustomID); err == nil {
		return types.Employee{}, Conflict("employee with this custom ID already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Employee{}, Internal("failed to check custom ID", err)
	}

	created, err := s.repo.Create(ctx, employee)
	if err != nil {
		return types.Employee{}, employeeWriteError(err)
	}
	return created, nil
}

// Update applies input to the employee resolved from identifier.
func (s *EmployeeService) Update(ctx context.Context, identifier string, input UpdateEmployeeInput) (types.Employee, error) {
	employee, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return types.Employee{}, err
	}

	if input.Name != nil {
		name := displayText(*input.Name)
		if name == "" {
			return types.Employee{}, BadRequest("name must not be empty")
		}
		employee.Name = name
	}
	if input.Designation != nil {
		designation := displayText(*input.Designation)
		if designation == "" {
			return types.Employee{}, BadRequest("designation must not be empty")
		}
		employee.Designation = designation
	}
	if input.Status != nil {
		status, ok := types.ParseEmployeeStatus(*input.Status)
		if !ok {
			return types.Employee{}, invalidStatus()
		}
		employee.Status = status
	}
	if input.UserID != nil {
		userID := strings.TrimSpace(*input.UserID)
		if userID != "" && !validUserID(userID) {
			return types.Employee{}, errInvalidUserID
		}
		employee.UserID = userID
	}
	if input.ProfileImage != nil {
		employee.ProfileImage = normalizeProfileImage(*input.ProfileImage)
	}

	updated, err := s.repo.Update(ctx, employee)
	if err != nil {
		return types.Employee{}, employeeWriteError(err)
	}
	return updated, nil
}

// Delete removes the employee resolved from identifier together with its
// attendance history and returns the number of attendance events removed.
func (s *EmployeeService) Delete(ctx context.Context, identifier string) (int64, error) {
	employee, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return 0, err
	}

	removed, err := s.repo.Delete(ctx, employee.ID)
	if err != nil {
		return 0, employeeWriteError(err)
	}
	return removed, nil
}

func employeeWriteError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrEmployeeNotFound
	case errors.Is(err, store.ErrConflict):
		return Conflict("employee with this custom ID already exists")
	case errors.Is(err, store.ErrForeignKey):
		return errInvalidUserID
	default:
		return Internal("failed to write employee", err)
	}
}

// displayText trims s and composes it to Unicode NFC.
func displayText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
