package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const formFieldPhoto = "photoUrl"

// AttendanceHandler provides HTTP handlers for attendance events.
type AttendanceHandler struct {
	attendance *services.AttendanceService
	photos     *services.PhotoService
	render     *Renderer
}

func NewAttendanceHandler(attendance *services.AttendanceService, photos *services.PhotoService, render *Renderer) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, photos: photos, render: render}
}

// AttendanceRouter registers attendance routes. Stats require the ADMIN role.
func AttendanceRouter(r chi.Router, handler *AttendanceHandler) {
	r.Post("/check-in", handler.CheckIn)
	r.Post("/check-out", handler.CheckOut)
	r.Get("/", handler.List)
	r.With(RequireRole(types.RoleAdmin)).Get("/stats", handler.Stats)
	r.Get("/employee/{employeeID}", handler.EmployeeHistory)
}

type TransitionRequest struct {
	EmployeeID string `json:"employeeId"`
	PhotoURL   string `json:"photoUrl"`
}

type AttendanceResponse struct {
	Success    bool             `json:"success"`
	Attendance types.Attendance `json:"attendance"`
}

type AttendanceListResponse struct {
	Success    bool               `json:"success"`
	Records    []types.Attendance `json:"records"`
	Pagination Pagination         `json:"pagination"`
}

type EmployeeHistoryResponse struct {
	Success    bool               `json:"success"`
	Employee   types.Employee     `json:"employee"`
	Records    []types.Attendance `json:"records"`
	Pagination Pagination         `json:"pagination"`
}

type StatsResponse struct {
	Success bool                  `json:"success"`
	Stats   types.AttendanceStats `json:"stats"`
}

func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.attendance.CheckIn)
}

func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.attendance.CheckOut)
}

// transition reads employeeId and the optional photo from JSON or a
// multipart form. An uploaded photoUrl file takes precedence over a
// photoUrl string.
func (h *AttendanceHandler) transition(w http.ResponseWriter, r *http.Request, record func(ctx context.Context, identifier, photoURL string) (types.Attendance, error)) {
	var req TransitionRequest
	if isMultipart(r) {
		if !parseMultipart(w, r, h.photos.MaxBytes()) {
			return
		}
		req.EmployeeID, _ = formValue(r, "employeeId")
		req.PhotoURL, _ = formValue(r, formFieldPhoto)
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if strings.TrimSpace(req.EmployeeID) == "" {
		h.render.ServiceError(w, r, services.ErrEmployeeIDRequired)
		return
	}

	url, ok := saveFormFile(w, r, h.photos, h.render, formFieldPhoto)
	if !ok {
		return
	}
	if url != "" {
		req.PhotoURL = url
	}

	attendance, err := record(r.Context(), req.EmployeeID, req.PhotoURL)
	if err != nil {
		discardUpload(r, h.photos, h.render, url)
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, AttendanceResponse{Success: true, Attendance: attendance})
}

func attendanceQuery(r *http.Request) (services.AttendanceQuery, error) {
	page, limit, err := parsePagination(r)
	if err != nil {
		return services.AttendanceQuery{}, err
	}
	query := r.URL.Query()
	return services.AttendanceQuery{
		EmployeeID: strings.TrimSpace(query.Get("employeeId")),
		StartDate:  query.Get("startDate"),
		EndDate:    query.Get("endDate"),
		Page:       page,
		Limit:      limit,
	}, nil
}

func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := attendanceQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.attendance.List(r.Context(), query)
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AttendanceListResponse{
		Success:    true,
		Records:    page.Records,
		Pagination: paginationOf(page),
	})
}

func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	stats, err := h.attendance.Stats(r.Context(), services.AttendanceQuery{
		StartDate: query.Get("startDate"),
		EndDate:   query.Get("endDate"),
	})
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: stats})
}

func (h *AttendanceHandler) EmployeeHistory(w http.ResponseWriter, r *http.Request) {
	query, err := attendanceQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	history, err := h.attendance.EmployeeHistory(r.Context(), chi.URLParam(r, "employeeID"), query)
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EmployeeHistoryResponse{
		Success:    true,
		Employee:   history.Employee,
		Records:    history.Records,
		Pagination: paginationOf(history.AttendancePage),
	})
}
