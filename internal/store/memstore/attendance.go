package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/attendance-hq/apiserver/types"
	"github.com/google/uuid"
)

// AttendanceRepository is the in-memory counterpart of
// store.AttendanceRepository.
type AttendanceRepository struct {
	s *state
}

func (s *state) employeeLock(employeeID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[employeeID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[employeeID] = lock
	}
	return lock
}

// InEmployeeTx serializes fn per employee. Writes made through the ledger are
// visible to later ledger reads and are committed only if fn returns nil.
func (r *AttendanceRepository) InEmployeeTx(ctx context.Context, employeeID string, fn func(ctx context.Context, ledger store.AttendanceLedger) error) error {
	lock := r.s.employeeLock(employeeID)
	lock.Lock()
	defer lock.Unlock()

	r.s.mu.RLock()
	_, ok := r.s.employees[employeeID]
	r.s.mu.RUnlock()
	if !ok {
		return store.ErrNotFound
	}

	tx := &ledgerTx{s: r.s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, pending := range tx.pending {
		if r.s.duplicate(r.s.attendance, pending) {
			return store.ErrConflict
		}
	}
	r.s.attendance = append(r.s.attendance, tx.pending...)
	return nil
}

// Append stores events directly, bypassing the transition rules. Tests use
// it to build history.
func (r *AttendanceRepository) Append(events ...types.Attendance) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, event := range events {
		if event.ID == "" {
			event.ID = uuid.NewString()
		}
		r.s.attendance = append(r.s.attendance, event)
	}
}

func (s *state) duplicate(events []types.Attendance, candidate types.Attendance) bool {
	for _, event := range events {
		if event.EmployeeID == candidate.EmployeeID && event.Action == candidate.Action && event.WorkDate == candidate.WorkDate {
			return true
		}
	}
	return false
}

type ledgerTx struct {
	s       *state
	pending []types.Attendance
}

func (t *ledgerTx) visible() []types.Attendance {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	events := make([]types.Attendance, 0, len(t.s.attendance)+len(t.pending))
	events = append(events, t.s.attendance...)
	return append(events, t.pending...)
}

func (t *ledgerTx) first(match func(types.Attendance) bool) (types.Attendance, error) {
	var found *types.Attendance
	for _, event := range t.visible() {
		if !match(event) {
			continue
		}
		if found == nil || event.Timestamp.Before(found.Timestamp) {
			e := event
			found = &e
		}
	}
	if found == nil {
		return types.Attendance{}, store.ErrNotFound
	}
	return *found, nil
}

func (t *ledgerTx) FirstInWindow(ctx context.Context, employeeID string, action types.AttendanceAction, from, to time.Time) (types.Attendance, error) {
	return t.first(func(e types.Attendance) bool {
		return e.EmployeeID == employeeID && e.Action == action && !e.Timestamp.Before(from) && e.Timestamp.Before(to)
	})
}

func (t *ledgerTx) FirstSince(ctx context.Context, employeeID string, action types.AttendanceAction, since time.Time) (types.Attendance, error) {
	return t.first(func(e types.Attendance) bool {
		return e.EmployeeID == employeeID && e.Action == action && !e.Timestamp.Before(since)
	})
}

func (t *ledgerTx) Create(ctx context.Context, attendance types.Attendance) (types.Attendance, error) {
	if t.s.duplicate(t.pending, attendance) {
		return types.Attendance{}, store.ErrConflict
	}
	attendance.ID = uuid.NewString()
	t.pending = append(t.pending, attendance)
	return attendance, nil
}

func matches(filter types.AttendanceFilter, event types.Attendance) bool {
	if filter.EmployeeID != "" && event.EmployeeID != filter.EmployeeID {
		return false
	}
	if filter.From != nil && event.Timestamp.Before(*filter.From) {
		return false
	}
	if filter.To != nil {
		if filter.ToInclusive && event.Timestamp.After(*filter.To) {
			return false
		}
		if !filter.ToInclusive && !event.Timestamp.Before(*filter.To) {
			return false
		}
	}
	return true
}

func (r *AttendanceRepository) filtered(filter types.AttendanceFilter) []types.Attendance {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	records := make([]types.Attendance, 0)
	for _, event := range r.s.attendance {
		if !matches(filter, event) {
			continue
		}
		if employee, ok := r.s.employees[event.EmployeeID]; ok {
			e := employee
			event.Employee = &e
		}
		records = append(records, event)
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID < records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records
}

func (r *AttendanceRepository) List(ctx context.Context, filter types.AttendanceFilter, offset, limit int) ([]types.Attendance, int, error) {
	records := r.filtered(filter)
	total := len(records)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit < 1 || end > total {
		end = total
	}
	return records[offset:end], total, nil
}

func (r *AttendanceRepository) ListAll(ctx context.Context, filter types.AttendanceFilter) ([]types.Attendance, error) {
	return r.filtered(filter), nil
}

func (r *AttendanceRepository) Stats(ctx context.Context, filter types.AttendanceFilter, todayStart, todayEnd time.Time) (types.AttendanceStats, error) {
	var stats types.AttendanceStats
	employees := make(map[string]struct{})
	for _, event := range r.filtered(filter) {
		stats.TotalRecords++
		switch event.Action {
		case types.ActionCheckIn:
			stats.CheckIns++
		case types.ActionCheckOut:
			stats.CheckOuts++
		}
		employees[event.EmployeeID] = struct{}{}
	}
	stats.UniqueEmployees = len(employees)

	today := types.AttendanceFilter{From: &todayStart, To: &todayEnd}
	for _, event := range r.filtered(today) {
		if event.Action == types.ActionCheckIn {
			stats.PresentToday++
		}
	}
	return stats, nil
}
