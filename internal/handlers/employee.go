package handlers

import (
	"context"
	"net/http"

	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/attendance-hq/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const formFieldProfileImage = "profileImage"

// EmployeeHandler provides HTTP handlers for employees.
type EmployeeHandler struct {
	employees *services.EmployeeService
	photos    *services.PhotoService
	render    *Renderer
}

func NewEmployeeHandler(employees *services.EmployeeService, photos *services.PhotoService, render *Renderer) *EmployeeHandler {
	return &EmployeeHandler{employees: employees, photos: photos, render: render}
}

// EmployeeRouter registers employee routes. Writes require the ADMIN role.
func EmployeeRouter(r chi.Router, handler *EmployeeHandler) {
	r.Get("/", handler.List)
	r.Get("/{employeeID}", handler.Get)
	r.Group(func(r chi.Router) {
		r.Use(RequireRole(types.RoleAdmin))
		r.Post("/", handler.Create)
		r.Put("/{employeeID}", handler.Update)
		r.Delete("/{employeeID}", handler.Delete)
	})
}

type EmployeeResponse struct {
	Success  bool           `json:"success"`
	Employee types.Employee `json:"employee"`
}

type EmployeeListResponse struct {
	Success   bool             `json:"success"`
	Employees []types.Employee `json:"employees"`
}

type DeleteEmployeeResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	DeletedAttendance int64  `json:"deletedAttendance"`
}

type CreateEmployeeRequest struct {
	CustomID     string `json:"customId"`
	Name         string `json:"name"`
	Designation  string `json:"designation"`
	Status       string `json:"status"`
	UserID       string `json:"userId"`
	ProfileImage string `json:"profileImage"`
}

type UpdateEmployeeRequest struct {
	Name         *string `json:"name"`
	Designation  *string `json:"designation"`
	Status       *string `json:"status"`
	UserID       *string `json:"userId"`
	ProfileImage *string `json:"profileImage"`
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.employees.List(r.Context())
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EmployeeListResponse{Success: true, Employees: employees})
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	employee, err := h.employees.Get(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EmployeeResponse{Success: true, Employee: employee})
}

// Create accepts JSON or a multipart form with an optional profileImage file.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	var uploaded string
	if isMultipart(r) {
		if !parseMultipart(w, r, h.photos.MaxBytes()) {
			return
		}
		req.CustomID, _ = formValue(r, "customId")
		req.Name, _ = formValue(r, "name")
		req.Designation, _ = formValue(r, "designation")
		req.Status, _ = formValue(r, "status")
		req.UserID, _ = formValue(r, "userId")
		req.ProfileImage, _ = formValue(r, formFieldProfileImage)

		url, ok := saveFormFile(w, r, h.photos, h.render, formFieldProfileImage)
		if !ok {
			return
		}
		if url != "" {
			req.ProfileImage = url
			uploaded = url
		}
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	employee, err := h.employees.Create(r.Context(), services.CreateEmployeeInput{
		CustomID:     req.CustomID,
		Name:         req.Name,
		Designation:  req.Designation,
		Status:       req.Status,
		UserID:       req.UserID,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		discardUpload(r, h.photos, h.render, uploaded)
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, EmployeeResponse{Success: true, Employee: employee})
}

// Update applies a partial update. Fields absent from the request are kept.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmployeeRequest
	var uploaded string
	if isMultipart(r) {
		if !parseMultipart(w, r, h.photos.MaxBytes()) {
			return
		}
		req.Name = optionalFormValue(r, "name")
		req.Designation = optionalFormValue(r, "designation")
		req.Status = optionalFormValue(r, "status")
		req.UserID = optionalFormValue(r, "userId")
		req.ProfileImage = optionalFormValue(r, formFieldProfileImage)

		url, ok := saveFormFile(w, r, h.photos, h.render, formFieldProfileImage)
		if !ok {
			return
		}
		if url != "" {
			req.ProfileImage = &url
			uploaded = url
		}
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	identifier := chi.URLParam(r, "employeeID")
	var previousImage string
	if req.ProfileImage != nil {
		if current, err := h.employees.Get(r.Context(), identifier); err == nil {
			previousImage = current.ProfileImage
		}
	}

	employee, err := h.employees.Update(r.Context(), identifier, services.UpdateEmployeeInput{
		Name:         req.Name,
		Designation:  req.Designation,
		Status:       req.Status,
		UserID:       req.UserID,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		discardUpload(r, h.photos, h.render, uploaded)
		h.render.ServiceError(w, r, err)
		return
	}
	if previousImage != "" && previousImage != employee.ProfileImage {
		discardUpload(r, h.photos, h.render, previousImage)
	}
	writeJSON(w, http.StatusOK, EmployeeResponse{Success: true, Employee: employee})
}

// Delete removes the employee and its attendance history.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.employees.Delete(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteEmployeeResponse{
		Success:           true,
		Message:           "employee deleted successfully",
		DeletedAttendance: removed,
	})
}

// saveFormFile stores the multipart file in field, if any, and returns its
// URL. It writes the error response itself and reports false on failure.
func saveFormFile(w http.ResponseWriter, r *http.Request, photos *services.PhotoService, render *Renderer, field string) (string, bool) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", true
	}

	file, err := r.MultipartForm.File[field][0].Open()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return "", false
	}
	defer file.Close()

	photo, err := photos.Save(r.Context(), file)
	if err != nil {
		render.ServiceError(w, r, err)
		return "", false
	}
	return photo.URL, true
}

// discardUpload removes a file stored by saveFormFile once it is no longer
// referenced. Failures are logged and not reported to the client.
func discardUpload(r *http.Request, photos *services.PhotoService, render *Renderer, url string) {
	if url == "" {
		return
	}
	if err := photos.Discard(context.WithoutCancel(r.Context()), url); err != nil {
		render.logger.WarnContext(r.Context(), "failed to discard upload", "url", url, "error", err)
	}
}
