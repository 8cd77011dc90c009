package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/attendance-hq/apiserver/internal/mq"
	"github.com/attendance-hq/apiserver/internal/observability"
	"github.com/attendance-hq/apiserver/internal/store"
	"github.com/attendance-hq/apiserver/types"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100

	// EventRecorded is the type of the message published for every new
	// attendance event.
	EventRecorded = "attendance.recorded"
)

// AttendanceRepository defines persistence operations for attendance events.
type AttendanceRepository interface {
	InEmployeeTx(ctx context.Context, employeeID string, fn func(ctx context.Context, ledger store.AttendanceLedger) error) error
	List(ctx context.Context, filter types.AttendanceFilter, offset, limit int) ([]types.Attendance, int, error)
	ListAll(ctx context.Context, filter types.AttendanceFilter) ([]types.Attendance, error)
	Stats(ctx context.Context, filter types.AttendanceFilter, todayStart, todayEnd time.Time) (types.AttendanceStats, error)
}

// EventPublisher delivers attendance notifications. *mq.MQ satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// RecordedEvent is the payload published after a successful transition.
type RecordedEvent struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id"`
	EmployeeID string                 `json:"employeeId"`
	CustomID   string                 `json:"customId,omitempty"`
	Action     types.AttendanceAction `json:"action"`
	Timestamp  time.Time              `json:"timestamp"`
	WorkDate   string                 `json:"workDate"`
	PhotoURL   string                 `json:"photoUrl,omitempty"`
}

// AttendanceQuery carries the raw filter parameters of a read. Dates are
// YYYY-MM-DD or RFC 3339; EmployeeID is any identifier the resolver accepts.
type AttendanceQuery struct {
	EmployeeID string
	StartDate  string
	EndDate    string
	Page       int
	Limit      int
}

// AttendancePage is one page of attendance events.
type AttendancePage struct {
	Records []types.Attendance `json:"records"`
	Page    int                `json:"page"`
	Limit   int                `json:"limit"`
	Total   int                `json:"total"`
	Pages   int                `json:"pages"`
}

// EmployeeHistory is an attendance page scoped to one employee.
type EmployeeHistory struct {
	Employee types.Employee
	AttendancePage
}

// AttendanceOption configures an AttendanceService.
type AttendanceOption func(*AttendanceService)

// WithClock replaces time.Now as the source of event timestamps.
func WithClock(clock func() time.Time) AttendanceOption {
	return func(s *AttendanceService) {
		s.clock = clock
	}
}

// WithLocation sets the time zone that defines a working day.
func WithLocation(location *time.Location) AttendanceOption {
	return func(s *AttendanceService) {
		if location != nil {
			s.location = location
		}
	}
}

// WithEventPublisher publishes a RecordedEvent to channel after each
// successful transition.
func WithEventPublisher(publisher EventPublisher, channel string) AttendanceOption {
	return func(s *AttendanceService) {
		s.publisher = publisher
		s.channel = channel
	}
}

func WithTelemetry(telemetry *observability.Telemetry) AttendanceOption {
	return func(s *AttendanceService) {
		s.telemetry = telemetry
	}
}

func WithLogger(logger *slog.Logger) AttendanceOption {
	return func(s *AttendanceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AttendanceService encapsulates the check-in/check-out state rules and the
// attendance queries.
type AttendanceService struct {
	repo      AttendanceRepository
	resolver  *EmployeeResolver
	clock     func() time.Time
	location  *time.Location
	publisher EventPublisher
	channel   string
	telemetry *observability.Telemetry
	logger    *slog.Logger
}

func NewAttendanceService(repo AttendanceRepository, resolver *EmployeeResolver, opts ...AttendanceOption) *AttendanceService {
	s := &AttendanceService{
		repo:     repo,
		resolver: resolver,
		clock:    time.Now,
		location: time.Local,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the time zone that defines a working day.
func (s *AttendanceService) Location() *time.Location {
	return s.location
}

// CheckIn records a CHECK_IN for the employee identified by identifier. It
// fails with ErrAlreadyCheckedIn if one exists in the current local day.
func (s *AttendanceService) CheckIn(ctx context.Context, identifier, photoURL string) (types.Attendance, error) {
	return s.transition(ctx, types.ActionCheckIn, identifier, photoURL, func(ctx context.Context, ledger store.AttendanceLedger, employeeID string, dayStart, dayEnd time.Time) error {
		_, err := ledger.FirstInWindow(ctx, employeeID, types.ActionCheckIn, dayStart, dayEnd)
		switch {
		case err == nil:
			return ErrAlreadyCheckedIn
		case errors.Is(err, store.ErrNotFound):
			return nil
		default:
			return err
		}
	})
}

// CheckOut records a CHECK_OUT for the employee identified by identifier. It
// requires a CHECK_IN in the current local day and no CHECK_OUT at or after it.
func (s *AttendanceService) CheckOut(ctx context.Context, identifier, photoURL string) (types.Attendance, error) {
	return s.transition(ctx, types.ActionCheckOut, identifier, photoURL, func(ctx context.Context, ledger store.AttendanceLedger, employeeID string, dayStart, dayEnd time.Time) error {
		checkIn, err := ledger.FirstInWindow(ctx, employeeID, types.ActionCheckIn, dayStart, dayEnd)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoCheckInToday
		}
		if err != nil {
			return err
		}

		_, err = ledger.FirstSince(ctx, employeeID, types.ActionCheckOut, checkIn.Timestamp)
		switch {
		case err == nil:
			return ErrAlreadyCheckedOut
		case errors.Is(err, store.ErrNotFound):
			return nil
		default:
			return err
		}
	})
}

type transitionRule func(ctx context.Context, ledger store.AttendanceLedger, employeeID string, dayStart, dayEnd time.Time) error

func (s *AttendanceService) transition(ctx context.Context, action types.AttendanceAction, identifier, photoURL string, rule transitionRule) (types.Attendance, error) {
	ctx, span := s.telemetry.StartTransition(ctx, string(action))
	defer span.End()

	employee, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return types.Attendance{}, err
	}

	now := s.clock().In(s.location).Truncate(time.Microsecond)
	dayStart, dayEnd := DayWindow(now, s.location)

	var recorded types.Attendance
	err = s.repo.InEmployeeTx(ctx, employee.ID, func(ctx context.Context, ledger store.AttendanceLedger) error {
		if err := rule(ctx, ledger, employee.ID, dayStart, dayEnd); err != nil {
			return err
		}
		created, err := ledger.Create(ctx, types.Attendance{
			EmployeeID: employee.ID,
			Action:     action,
			Timestamp:  now,
			WorkDate:   dayStart.Format(types.WorkDateLayout),
			PhotoURL:   strings.TrimSpace(photoURL),
		})
		if err != nil {
			return err
		}
		recorded = created
		return nil
	})
	if err != nil {
		err = s.transitionError(action, err)
		if KindOf(err) == KindConflict {
			s.telemetry.RecordRejection(ctx, string(action), MessageOf(err))
		}
		return types.Attendance{}, err
	}

	recorded.Employee = &employee
	s.telemetry.RecordTransition(ctx, string(action), employee.ID)
	s.publish(ctx, recorded)
	return recorded, nil
}

// transitionError maps store failures raised inside the employee transaction.
// A unique violation means a concurrent request recorded the same action for
// the same day first.
func (s *AttendanceService) transitionError(action types.AttendanceAction, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrEmployeeNotFound
	case errors.Is(err, store.ErrConflict) && action == types.ActionCheckIn:
		return ErrAlreadyCheckedIn
	case errors.Is(err, store.ErrConflict):
		return ErrAlreadyCheckedOut
	default:
		return Internal("failed to record attendance", err)
	}
}

func (s *AttendanceService) publish(ctx context.Context, attendance types.Attendance) {
	if s.publisher == nil {
		return
	}

	event := RecordedEvent{
		Type:       EventRecorded,
		ID:         attendance.ID,
		EmployeeID: attendance.EmployeeID,
		Action:     attendance.Action,
		Timestamp:  attendance.Timestamp.UTC(),
		WorkDate:   attendance.WorkDate,
		PhotoURL:   attendance.PhotoURL,
	}
	if attendance.Employee != nil {
		event.CustomID = attendance.Employee.CustomID
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "encode attendance event", "error", err)
		return
	}
	if _, err := s.publisher.Publish(ctx, s.channel, data, map[string]string{
		mq.AttrContentType: "application/json",
		mq.AttrOrderingKey: attendance.EmployeeID,
		"event-type":       EventRecorded,
	}); err != nil {
		s.logger.WarnContext(ctx, "publish attendance event",
			"error", err,
			"channel", s.channel,
			"attendance_id", attendance.ID,
		)
	}
}

// window parses the query date bounds. List and history treat EndDate as
// exclusive; stats and export treat it as inclusive.
func (s *AttendanceService) window(query AttendanceQuery, inclusive bool) (types.AttendanceFilter, error) {
	from, err := ParseDateBound(query.StartDate, s.location)
	if err != nil {
		return types.AttendanceFilter{}, BadRequest("invalid startDate, expected YYYY-MM-DD or RFC 3339")
	}
	to, err := ParseDateBound(query.EndDate, s.location)
	if err != nil {
		return types.AttendanceFilter{}, BadRequest("invalid endDate, expected YYYY-MM-DD or RFC 3339")
	}
	return types.AttendanceFilter{From: from, To: to, ToInclusive: inclusive}, nil
}

func pageBounds(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

func (s *AttendanceService) page(ctx context.Context, filter types.AttendanceFilter, page, limit int) (AttendancePage, error) {
	page, limit = pageBounds(page, limit)
	records, total, err := s.repo.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return AttendancePage{}, Internal("failed to list attendance", err)
	}
	return AttendancePage{
		Records: records,
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   (total + limit - 1) / limit,
	}, nil
}

// List returns attendance events newest first. An employee filter that does
// not resolve yields an empty page.
func (s *AttendanceService) List(ctx context.Context, query AttendanceQuery) (AttendancePage, error) {
	filter, err := s.window(query, false)
	if err != nil {
		return AttendancePage{}, err
	}

	if strings.TrimSpace(query.EmployeeID) != "" {
		employee, err := s.resolver.Resolve(ctx, query.EmployeeID)
		if errors.Is(err, store.ErrNotFound) {
			page, limit := pageBounds(query.Page, query.Limit)
			return AttendancePage{Records: []types.Attendance{}, Page: page, Limit: limit}, nil
		}
		if err != nil {
			return AttendancePage{}, err
		}
		filter.EmployeeID = employee.ID
	}

	return s.page(ctx, filter, query.Page, query.Limit)
}

// EmployeeHistory returns the attendance of one employee, newest first.
func (s *AttendanceService) EmployeeHistory(ctx context.Context, identifier string, query AttendanceQuery) (EmployeeHistory, error) {
	employee, err := s.resolver.Resolve(ctx, identifier)
	if err != nil {
		return EmployeeHistory{}, err
	}

	filter, err := s.window(query, false)
	if err != nil {
		return EmployeeHistory{}, err
	}
	filter.EmployeeID = employee.ID

	page, err := s.page(ctx, filter, query.Page, query.Limit)
	if err != nil {
		return EmployeeHistory{}, err
	}
	return EmployeeHistory{Employee: employee, AttendancePage: page}, nil
}

// Stats aggregates events in the inclusive date range of query.
// PresentToday always covers the current local day.
func (s *AttendanceService) Stats(ctx context.Context, query AttendanceQuery) (types.AttendanceStats, error) {
	filter, err := s.window(query, true)
	if err != nil {
		return types.AttendanceStats{}, err
	}

	todayStart, todayEnd := DayWindow(s.clock(), s.location)
	stats, err := s.repo.Stats(ctx, filter, todayStart, todayEnd)
	if err != nil {
		return types.AttendanceStats{}, Internal("failed to compute attendance stats", err)
	}
	return stats, nil
}

// Export returns every event in the inclusive date range of query, newest
// first. Unlike List, an unresolved employee filter is NotFound.
func (s *AttendanceService) Export(ctx context.Context, query AttendanceQuery) ([]types.Attendance, error) {
	filter, err := s.window(query, true)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query.EmployeeID) != "" {
		employee, err := s.resolver.Resolve(ctx, query.EmployeeID)
		if err != nil {
			return nil, err
		}
		filter.EmployeeID = employee.ID
	}

	records, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, Internal("failed to export attendance", err)
	}
	return records, nil
}

// Now returns the service clock reading in the working-day time zone.
func (s *AttendanceService) Now() time.Time {
	return s.clock().In(s.location)
}
