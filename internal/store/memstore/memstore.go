// Package memstore is an in-memory implementation of the store repositories
// with the same error contract as the Postgres store. It backs unit tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/attendance-hq/apiserver/types"
	"github.com/google/uuid"
)

type state struct {
	mu         sync.RWMutex
	users      map[string]types.User
	employees  map[string]types.Employee
	attendance []types.Attendance
	locks      map[string]*sync.Mutex
}

// Store holds every in-memory repository over shared state.
type Store struct {
	Users      *UserRepository
	Employees  *EmployeeRepository
	Attendance *AttendanceRepository
}

func New() *Store {
	s := &state{
		users:     make(map[string]types.User),
		employees: make(map[string]types.Employee),
		locks:     make(map[string]*sync.Mutex),
	}
	return &Store{
		Users:      &UserRepository{s: s},
		Employees:  &EmployeeRepository{s: s},
		Attendance: &AttendanceRepository{s: s},
	}
}

// UserRepository is the in-memory counterpart of store.UserRepository.
type UserRepository struct {
	s *state
}

func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]types.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = strings.TrimSpace(email)
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (s *state) emailTaken(email, exceptID string) bool {
	for id, user := range s.users {
		if id != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.emailTaken(user.Email, "") {
		return types.User{}, store.ErrConflict
	}
	now := time.Now()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) UpsertByEmail(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for id, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			if user.Name != "" {
				existing.Name = user.Name
			}
			existing.Role = user.Role
			existing.PasswordHash = user.PasswordHash
			existing.UpdatedAt = now
			r.s.users[id] = existing
			return existing, nil
		}
	}

	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if r.s.emailTaken(user.Email, user.ID) {
		return types.User{}, store.ErrConflict
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	user.Employees = nil
	r.s.users[user.ID] = user
	return user, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return store.ErrNotFound
	}
	for _, employee := range r.s.employees {
		if employee.UserID == id {
			return store.ErrForeignKey
		}
	}
	delete(r.s.users, id)
	return nil
}

// EmployeeRepository is the in-memory counterpart of store.EmployeeRepository.
type EmployeeRepository struct {
	s *state
}

func (r *EmployeeRepository) sorted(match func(types.Employee) bool) []types.Employee {
	employees := make([]types.Employee, 0, len(r.s.employees))
	for _, employee := range r.s.employees {
		if match(employee) {
			employees = append(employees, employee)
		}
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].CreatedAt.After(employees[j].CreatedAt)
	})
	return employees
}

func (r *EmployeeRepository) List(ctx context.Context) ([]types.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(types.Employee) bool { return true }), nil
}

func (r *EmployeeRepository) ListByUser(ctx context.Context, userID string) ([]types.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(func(e types.Employee) bool { return e.UserID != "" && e.UserID == userID }), nil
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (types.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	employee, ok := r.s.employees[id]
	if !ok {
		return types.Employee{}, store.ErrNotFound
	}
	return employee, nil
}

func (r *EmployeeRepository) GetByCustomID(ctx context.Context, customID string) (types.Employee, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if customID == "" {
		return types.Employee{}, store.ErrNotFound
	}
	for _, employee := range r.s.employees {
		if employee.CustomID == customID {
			return employee, nil
		}
	}
	return types.Employee{}, store.ErrNotFound
}

func (s *state) checkEmployee(employee types.Employee) error {
	if employee.CustomID != "" {
		for id, existing := range s.employees {
			if id != employee.ID && existing.CustomID == employee.CustomID {
				return store.ErrConflict
			}
		}
	}
	if employee.UserID != "" {
		if _, ok := s.users[employee.UserID]; !ok {
			return store.ErrForeignKey
		}
	}
	return nil
}

func (r *EmployeeRepository) Create(ctx context.Context, employee types.Employee) (types.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.checkEmployee(employee); err != nil {
		return types.Employee{}, err
	}
	now := time.Now()
	employee.ID = uuid.NewString()
	employee.CreatedAt = now
	employee.UpdatedAt = now
	r.s.employees[employee.ID] = employee
	return employee, nil
}

// Insert stores employee as given, keeping its ID. Tests use it to model
// legacy rows that have no custom id.
func (r *EmployeeRepository) Insert(employee types.Employee) types.Employee {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if employee.ID == "" {
		employee.ID = uuid.NewString()
	}
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = time.Now()
		employee.UpdatedAt = employee.CreatedAt
	}
	r.s.employees[employee.ID] = employee
	return employee
}

func (r *EmployeeRepository) UpsertByCustomID(ctx context.Context, employee types.Employee) (types.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now()
	for id, existing := range r.s.employees {
		if existing.CustomID == employee.CustomID {
			existing.Name = employee.Name
			existing.Designation = employee.Designation
			existing.Status = employee.Status
			existing.UpdatedAt = now
			r.s.employees[id] = existing
			return existing, nil
		}
	}

	employee.ID = uuid.NewString()
	employee.CreatedAt = now
	employee.UpdatedAt = now
	r.s.employees[employee.ID] = employee
	return employee, nil
}

func (r *EmployeeRepository) Update(ctx context.Context, employee types.Employee) (types.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.employees[employee.ID]
	if !ok {
		return types.Employee{}, store.ErrNotFound
	}
	if err := r.s.checkEmployee(employee); err != nil {
		return types.Employee{}, err
	}
	employee.CreatedAt = existing.CreatedAt
	employee.UpdatedAt = time.Now()
	r.s.employees[employee.ID] = employee
	return employee, nil
}

func (r *EmployeeRepository) Delete(ctx context.Context, id string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.employees[id]; !ok {
		return 0, store.ErrNotFound
	}

	kept := r.s.attendance[:0]
	var removed int64
	for _, attendance := range r.s.attendance {
		if attendance.EmployeeID == id {
			removed++
			continue
		}
		kept = append(kept, attendance)
	}
	r.s.attendance = kept
	delete(r.s.employees, id)
	return removed, nil
}
