package handlers

import (
	"io"
	"net/http"

	"github.com/attendance-hq/apiserver/internal/services"
	"github.com/go-chi/chi/v5"
)

const formFieldUpload = "photo"

// FileHandler uploads and serves stored photos.
type FileHandler struct {
	photos *services.PhotoService
	render *Renderer
}

func NewFileHandler(photos *services.PhotoService, render *Renderer) *FileHandler {
	return &FileHandler{photos: photos, render: render}
}

type UploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// Upload stores the multipart photo field and returns its public URL.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	if !parseMultipart(w, r, h.photos.MaxBytes()) {
		return
	}

	file, _, err := r.FormFile(formFieldUpload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	photo, err := h.photos.Save(r.Context(), file)
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Success:  true,
		URL:      photo.URL,
		Filename: photo.Key,
		Size:     photo.Size,
	})
}

// Serve streams the stored file named by the filename URL parameter.
func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	reader, contentType, err := h.photos.Open(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		h.render.ServiceError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
