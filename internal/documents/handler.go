package documents

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"propertycare-backend/internal/maintenance"
	"propertycare-backend/internal/shared/server/middleware"
	"propertycare-backend/internal/shared/server/respond"
	"propertycare-backend/internal/shared/telemetry"
)

const defaultMaxUploadBytes = 15 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches receipt routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/receipts", h.upload)
	rg.GET("/documents/receipts", h.list)
	rg.DELETE("/documents/receipts/unattached", h.cleanup)
	rg.GET("/documents/receipts/:id", h.get)
	rg.GET("/documents/receipts/:id/download", h.download)
	rg.POST("/documents/receipts/:id/rescan", h.rescan)
	rg.PATCH("/documents/receipts/:id", h.update)
	rg.POST("/documents/receipts/:id/attach", h.attach)
	rg.POST("/documents/receipts/:id/create-log", h.createLog)
	rg.DELETE("/documents/receipts/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "invalid_input", "file is too large", gin.H{"maxBytes": h.MaxUploadBytes})
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_input", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Upload(c.Request.Context(), userID, UploadInput{
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Body:     file,
	})
	if err != nil {
		writeError(c, err, "failed to upload receipt")
		return
	}

	c.Set("documentId", doc.ID)
	c.Set("statusTransition", "->"+StatusUnattached)
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		Kind:       c.Query("kind"),
		Status:     c.Query("status"),
		PropertyID: c.Query("propertyId"),
		LogID:      c.Query("logId"),
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			q.Limit = parsed
		}
	}
	if v := c.Query("skip"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			q.Skip = parsed
		}
	}

	res, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), q)
	if err != nil {
		writeError(c, err, "failed to list receipts")
		return
	}

	items := make([]DocumentResponse, 0, len(res.Items))
	for _, doc := range res.Items {
		items = append(items, toResponse(doc))
	}
	respond.JSON(c, http.StatusOK, listResponse{Items: items, Total: res.Total, Limit: res.Limit, Skip: res.Skip})
}

func (h *Handler) get(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch receipt")
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(doc))
}

func (h *Handler) download(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	doc, body, err := h.Svc.Open(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to open receipt")
		return
	}
	defer body.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": doc.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Header("Content-Type", doc.MimeType)
	if doc.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(doc.SizeBytes, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		telemetry.Warn("receipt.download_interrupted", map[string]any{"document_id": doc.ID, "error": err})
	}
}

func (h *Handler) rescan(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	doc, err := h.Svc.Rescan(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to rescan receipt")
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(doc))
}

func (h *Handler) update(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "invalid request body", nil)
		return
	}
	doc, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.toPatch())
	if err != nil {
		writeError(c, err, "failed to update receipt")
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(doc))
}

func (h *Handler) attach(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	var req attachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "invalid request body", nil)
		return
	}
	doc, err := h.Svc.Attach(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.PropertyID, req.LogID)
	if err != nil {
		writeError(c, err, "failed to attach receipt")
		return
	}
	c.Set("statusTransition", StatusUnattached+"->"+StatusAttached)
	respond.JSON(c, http.StatusOK, toResponse(doc))
}

func (h *Handler) createLog(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	var req createLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "invalid request body", nil)
		return
	}
	doc, log, err := h.Svc.CreateLog(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.PropertyID, req.toOverrides())
	if err != nil {
		writeError(c, err, "failed to create maintenance log")
		return
	}
	c.Set("statusTransition", StatusUnattached+"->"+StatusAttached)
	respond.JSON(c, http.StatusCreated, createLogResponse{Document: toResponse(doc), Log: maintenance.ToLogResponse(log)})
}

func (h *Handler) delete(c *gin.Context) {
	c.Set("documentId", c.Param("id"))
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete receipt")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": true})
}

func (h *Handler) cleanup(c *gin.Context) {
	var days *int
	if v := strings.TrimSpace(c.Query("days")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "invalid_input", "days must be an integer", nil)
			return
		}
		days = &parsed
	}
	n, err := h.Svc.CleanupUnattached(c.Request.Context(), middleware.UserIDFromContext(c), days)
	if err != nil {
		writeError(c, err, "failed to clean up receipts")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": n})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, ErrFileMissing):
		respond.Error(c, http.StatusNotFound, "file_missing", "file is missing from storage", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrAlreadyAttached):
		respond.Error(c, http.StatusConflict, "already_attached", "receipt is already attached", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
