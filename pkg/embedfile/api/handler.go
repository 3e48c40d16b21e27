package api

import (
	"bufio"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-embed/pkg/embedfile"
	"github.com/zeebo/blake3"
)

// Handler serves a registry read-only over HTTP
type Handler struct {
	registry *embedfile.Registry
	logger   *slog.Logger
}

// NewHandler creates a handler over registry. A nil logger uses slog.Default.
func NewHandler(registry *embedfile.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		logger:   logger,
	}
}

// Routes returns the router for registry endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(h.logger))
	r.Use(RecoveryMiddleware(h.logger))

	r.Get("/", h.ListFiles)
	r.Get("/{id}", h.GetFileInfo)
	r.Get("/{id}/content", h.GetFileContent)
	return r
}

// ListResponse lists the registered ids
type ListResponse struct {
	IDs []string `json:"ids"`
}

// FileInfoResponse describes one registered file
type FileInfoResponse struct {
	ID             string `json:"id"`
	FileName       string `json:"file_name"`
	ResourceName   string `json:"resource_name"`
	Namespace      string `json:"namespace"`
	Owner          string `json:"owner"`
	ResourceString string `json:"resource_string"`
	Size           int64  `json:"size"`
	Blake3         string `json:"blake3"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListFiles returns every registered id
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, ListResponse{IDs: h.registry.IDs()})
}

// GetFileInfo returns metadata and a content digest for one id
func (h *Handler) GetFileInfo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	rc, ok := h.open(w, r, id, file)
	if !ok {
		return
	}
	defer rc.Close()

	hasher := blake3.New()
	size, err := io.Copy(hasher, rc)
	if err != nil {
		h.logger.Error("Failed to read content", "id", id, "resource", file.ResourceString(), "err", err)
		h.error(w, r, http.StatusInternalServerError, "read_failed", err.Error())
		return
	}

	render.JSON(w, r, FileInfoResponse{
		ID:             id,
		FileName:       file.FileName,
		ResourceName:   file.ResourceName,
		Namespace:      file.ResourceNamespace,
		Owner:          string(file.ResourceOwner),
		ResourceString: file.ResourceString(),
		Size:           size,
		Blake3:         hex.EncodeToString(hasher.Sum(nil)),
	})
}

// GetFileContent streams the raw payload
func (h *Handler) GetFileContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	file, ok := h.lookup(w, r, id)
	if !ok {
		return
	}

	rc, ok := h.open(w, r, id, file)
	if !ok {
		return
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, 512)
	contentType := mime.TypeByExtension(filepath.Ext(file.FileName))
	if contentType == "" {
		// Peek returns what it could read along with io.EOF for short payloads
		head, _ := br.Peek(512)
		contentType = http.DetectContentType(head)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": file.FileName}))
	w.Header().Set("X-Resource", file.ResourceString())
	w.WriteHeader(http.StatusOK)

	if n, err := io.Copy(w, br); err != nil {
		h.logger.Error("Failed to stream content", "id", id, "written", n, "err", err)
	}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request, id string) (*embedfile.File, bool) {
	file, err := h.registry.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to look up embedded file", "id", id, "err", err)
		h.error(w, r, http.StatusInternalServerError, "lookup_failed", err.Error())
		return nil, false
	}
	if file == nil {
		h.error(w, r, http.StatusNotFound, "not_found", "no file registered under "+strconv.Quote(id))
		return nil, false
	}
	return file, true
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request, id string, file *embedfile.File) (io.ReadCloser, bool) {
	rc, err := file.ContentStream(r.Context())
	if err != nil {
		if errors.Is(err, embedfile.ErrInvalidArgument) {
			h.error(w, r, http.StatusNotFound, "not_found", err.Error())
			return nil, false
		}
		h.logger.Error("Failed to open content", "id", id, "resource", file.ResourceString(), "err", err)
		h.error(w, r, http.StatusInternalServerError, "open_failed", err.Error())
		return nil, false
	}
	if rc == nil {
		h.error(w, r, http.StatusNotFound, "content_not_found", "resource "+file.ResourceString()+" is not available")
		return nil, false
	}
	return rc, true
}

func (h *Handler) error(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Code: code, Message: message})
}
