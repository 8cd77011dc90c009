package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// ExportHandler serves attendance exports.
type ExportHandler struct {
	attendance *services.AttendanceService
	render     *Renderer
}

func NewExportHandler(attendance *services.AttendanceService, render *Renderer) *ExportHandler {
	return &ExportHandler{attendance: attendance, render: render}
}

// ExportRouter registers export routes. The template catalog is public; the
// CSV export requires authentication and the ADMIN role.
func ExportRouter(r chi.Router, handler *ExportHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Get("/templates", handler.Templates)
	r.With(authMiddleware, RequireRole(types.RoleAdmin)).Post("/csv", handler.CSV)
}

type ExportRequest struct {
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	EmployeeID string `json:"employeeId"`
}

type TemplatesResponse struct {
	Success   bool                      `json:"success"`
	Templates []services.ExportTemplate `json:"templates"`
}

// CSV renders every matching event as a CSV attachment.
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := h.attendance.Export(r.Context(), services.AttendanceQuery{
		EmployeeID: req.EmployeeID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteAttendanceCSV(&buf, records); err != nil {
		h.render.ServiceError(w, r, services.Internal("failed to export attendance data", err))
		return
	}

	filename := services.ExportFilename(h.attendance.Now())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *ExportHandler) Templates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TemplatesResponse{Success: true, Templates: services.ExportTemplates()})
}
