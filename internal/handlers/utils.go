package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/attendance-hq/apiserver/internal/services"
)

const (
	defaultPage  = 1
	defaultLimit = services.DefaultPageLimit

	maxJSONBodyBytes = 1 << 20
	multipartMemory  = 8 << 20

	// multipartOverhead covers boundaries, part headers and text fields.
	multipartOverhead = 64 << 10
)

// ErrorResponse is the failure envelope. Detail is only set in development.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// MessageResponse is a success envelope without a payload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Pagination describes the position of a page in a result set.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func paginationOf(page services.AttendancePage) Pagination {
	return Pagination{Page: page.Page, Limit: page.Limit, Total: page.Total, Pages: page.Pages}
}

// Renderer writes error envelopes and logs failures that are not the
// client's fault.
type Renderer struct {
	logger *slog.Logger
	debug  bool
}

// NewRenderer returns a Renderer. With debug set, error responses include the
// underlying cause.
func NewRenderer(logger *slog.Logger, debug bool) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{logger: logger, debug: debug}
}

func statusOf(kind services.ErrorKind) int {
	switch kind {
	case services.KindBadRequest:
		return http.StatusBadRequest
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ServiceError maps err onto its HTTP status and writes the envelope.
func (rd *Renderer) ServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(services.KindOf(err))
	resp := ErrorResponse{Message: services.MessageOf(err)}

	if status >= http.StatusInternalServerError {
		rd.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	if rd.debug {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Message: message})
}

// decodeJSON decodes the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err := decoder.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid request body")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart caps the request body at fileLimit plus form overhead and
// parses it. It writes the error response itself and reports false on
// failure.
func parseMultipart(w http.ResponseWriter, r *http.Request, fileLimit int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, fileLimit+multipartOverhead)
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusBadRequest, "file size too large")
	} else {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
	}
	return false
}

// formValue returns the trimmed multipart value of key and whether the field
// was sent at all.
func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm == nil {
		return "", false
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

func optionalFormValue(r *http.Request, key string) *string {
	value, ok := formValue(r, key)
	if !ok {
		return nil
	}
	return &value
}

func parsePagination(r *http.Request) (page, limit int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, errors.New("invalid page")
		}
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("invalid limit")
		}
	}

	if limit > services.MaxPageLimit {
		limit = services.MaxPageLimit
	}
	return page, limit, nil
}
