package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tecem/srma/internal/middleware"
	"github.com/tecem/srma/internal/storage"
)

const maxSignRequestBody = 16 << 10

// Signer issues and checks upload tokens.
type Signer interface {
	Sign(fileName, contentType string) (*storage.Signed, error)
	Verify(token, object, contentType string) (*storage.UploadClaims, error)
}

// StorageHandler serves the signed-upload endpoints.
type StorageHandler struct {
	signer    Signer
	bucket    *storage.Bucket
	validator middleware.TokenValidator
	logger    *slog.Logger
}

// NewStorageHandler creates the handler. validator may be nil to accept any bearer token.
func NewStorageHandler(signer Signer, bucket *storage.Bucket, validator middleware.TokenValidator, logger *slog.Logger) *StorageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorageHandler{signer: signer, bucket: bucket, validator: validator, logger: logger}
}

// RegisterRoutes mounts the storage routes.
func (h *StorageHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireBearer(h.validator)).
		Post("/api/storage/generate-upload-url", h.GenerateUploadURL)
	r.Put("/upload/{id}/{name}", h.Upload)
	r.Get("/files/{id}/{name}", h.Download)
}

// signRequest accepts the client's snake_case fields and the older camelCase ones.
type signRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	LegacyName  string `json:"fileName"`
	LegacyType  string `json:"fileType"`
}

type signResponse struct {
	SignedURL string `json:"signedUrl"`
	PublicURL string `json:"publicUrl"`
}

// GenerateUploadURL handles POST /api/storage/generate-upload-url.
func (h *StorageHandler) GenerateUploadURL(w http.ResponseWriter, r *http.Request) {
	var req signRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxSignRequestBody)).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := firstNonEmpty(req.FileName, req.LegacyName)
	contentType := firstNonEmpty(req.ContentType, req.LegacyType)
	if name == "" || contentType == "" {
		Error(w, http.StatusBadRequest, "file_name and content_type are required")
		return
	}
	if _, _, err := mime.ParseMediaType(contentType); err != nil {
		Error(w, http.StatusBadRequest, "invalid content_type")
		return
	}

	signed, err := h.signer.Sign(name, contentType)
	if err != nil {
		h.logger.Error("failed to sign upload", "file", name, "error", err)
		Error(w, http.StatusInternalServerError, "could not generate upload URL")
		return
	}

	h.logger.Info("upload url issued", "object", signed.Object, "content_type", contentType, "expires_at", signed.ExpiresAt)
	JSON(w, http.StatusOK, signResponse{SignedURL: signed.SignedURL, PublicURL: signed.PublicURL})
}

// Upload handles PUT /upload/{id}/{name}?token=.
func (h *StorageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	object := objectKey(r)
	contentType := r.Header.Get("Content-Type")

	if _, err := h.signer.Verify(r.URL.Query().Get("token"), object, contentType); err != nil {
		h.logger.Warn("upload rejected", "object", object, "error", err)
		if errors.Is(err, storage.ErrContentTypeMismatch) {
			Error(w, http.StatusUnsupportedMediaType, "content type does not match signed upload")
			return
		}
		Error(w, http.StatusForbidden, "invalid or expired upload token")
		return
	}

	n, err := h.bucket.Put(r.Context(), object, r.Body)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrTooLarge):
		Error(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, storage.ErrInvalidObject):
		Error(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.logger.Error("failed to store upload", "object", object, "error", err)
		Error(w, http.StatusInternalServerError, "could not store object")
		return
	}

	h.logger.Info("object stored", "object", object, "bytes", n)
	w.WriteHeader(http.StatusOK)
}

// Download handles GET /files/{id}/{name}.
func (h *StorageHandler) Download(w http.ResponseWriter, r *http.Request) {
	object := objectKey(r)
	f, info, err := h.bucket.Open(object)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidObject):
		Error(w, http.StatusNotFound, "object not found")
		return
	default:
		h.logger.Error("failed to open object", "object", object, "error", err)
		Error(w, http.StatusInternalServerError, "could not read object")
		return
	}
	defer func() { _ = f.Close() }()

	if ct := mime.TypeByExtension(extOf(object)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func objectKey(r *http.Request) string {
	return chi.URLParam(r, "id") + "/" + chi.URLParam(r, "name")
}

func extOf(object string) string {
	if i := strings.LastIndexByte(object, '.'); i >= 0 {
		return object[i:]
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
