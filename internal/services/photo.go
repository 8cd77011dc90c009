package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/attendance-hq/apiserver/internal/storage"
	"github.com/google/uuid"
)

// FilesPathPrefix is the public path under which stored photos are served.
const FilesPathPrefix = "/api/files/"

// BlobStore is the subset of storage.Storage used for photos.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Photo describes a stored upload.
type Photo struct {
	Key         string `json:"filename"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

var errInvalidFilename = BadRequest("invalid filename")

// PhotoService stores and serves uploaded images.
type PhotoService struct {
	blobs    BlobStore
	maxBytes int64
}

func NewPhotoService(blobs BlobStore, maxBytes int64) *PhotoService {
	return &PhotoService{blobs: blobs, maxBytes: maxBytes}
}

// MaxBytes is the largest accepted upload.
func (s *PhotoService) MaxBytes() int64 {
	return s.maxBytes
}

// Save validates that r holds an image no larger than the configured limit
// and stores it under a fresh key.
func (s *PhotoService) Save(ctx context.Context, r io.Reader) (Photo, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Photo{}, BadRequest("failed to read upload")
	}
	if n == 0 {
		return Photo{}, BadRequest("no file uploaded")
	}
	if n > s.maxBytes {
		return Photo{}, BadRequest("file size too large")
	}

	contentType := http.DetectContentType(buf.Bytes())
	if !strings.HasPrefix(contentType, "image/") {
		return Photo{}, BadRequest("only image files are allowed")
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		ext = ".img"
	}

	key := uuid.NewString() + ext
	if err := s.blobs.Put(ctx, key, bytes.NewReader(buf.Bytes()), n, contentType); err != nil {
		return Photo{}, Internal("failed to store photo", err)
	}
	return Photo{Key: key, URL: FilesPathPrefix + key, Size: n, ContentType: contentType}, nil
}

// ValidFilename reports whether name is a flat object key.
func ValidFilename(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return true
}

// Open streams the stored file named name and reports its media type.
func (s *PhotoService) Open(ctx context.Context, name string) (io.ReadCloser, string, error) {
	if !ValidFilename(name) {
		return nil, "", errInvalidFilename
	}

	reader, err := s.blobs.Get(ctx, name)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, "", NotFound("file not found")
	}
	if err != nil {
		return nil, "", Internal("failed to retrieve file", err)
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return reader, contentType, nil
}

// Discard deletes the stored file behind url. URLs that are not served from
// FilesPathPrefix are left alone, as are files that no longer exist.
func (s *PhotoService) Discard(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, FilesPathPrefix)
	if !ok || !ValidFilename(name) {
		return nil
	}
	if err := s.blobs.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return Internal("failed to delete file", err)
	}
	return nil
}
