package maintenance

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"propertycare-backend/internal/shared/server/middleware"
	"propertycare-backend/internal/shared/server/respond"
	"propertycare-backend/internal/shared/util"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches property and maintenance log routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/properties", h.createProperty)
	rg.GET("/properties", h.listProperties)
	rg.GET("/properties/:id", h.getProperty)
	rg.POST("/properties/:id/logs", h.createLog)
	rg.GET("/properties/:id/logs", h.listLogs)
	rg.GET("/maintenance-logs/:id", h.getLog)
	rg.DELETE("/maintenance-logs/:id", h.deleteLog)
}

type createPropertyRequest struct {
	Name    string  `json:"name"`
	Address *string `json:"address"`
}

func (h *Handler) createProperty(c *gin.Context) {
	var req createPropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "invalid request body", nil)
		return
	}
	p, err := h.Svc.CreateProperty(c.Request.Context(), middleware.UserIDFromContext(c), PropertyInput{Name: req.Name, Address: req.Address})
	if err != nil {
		writeError(c, err, "failed to create property")
		return
	}
	respond.JSON(c, http.StatusCreated, toPropertyResponse(p))
}

func (h *Handler) listProperties(c *gin.Context) {
	props, err := h.Svc.ListProperties(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list properties")
		return
	}
	resp := make([]PropertyResponse, 0, len(props))
	for _, p := range props {
		resp = append(resp, toPropertyResponse(p))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) getProperty(c *gin.Context) {
	p, err := h.Svc.GetProperty(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch property")
		return
	}
	respond.JSON(c, http.StatusOK, toPropertyResponse(p))
}

type createLogRequest struct {
	Title           string   `json:"title"`
	ServiceDate     string   `json:"serviceDate"`
	Vendor          *string  `json:"vendor"`
	Category        string   `json:"category"`
	Cost            *float64 `json:"cost"`
	Notes           *string  `json:"notes"`
	NextDueDate     *string  `json:"nextDueDate"`
	ReminderEnabled bool     `json:"reminderEnabled"`
}

func (h *Handler) createLog(c *gin.Context) {
	var req createLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "invalid request body", nil)
		return
	}
	serviceDate := util.ParseDate(req.ServiceDate)
	if serviceDate == nil {
		respond.Error(c, http.StatusBadRequest, "invalid_input", "serviceDate is required", nil)
		return
	}
	in := LogInput{
		PropertyID:      c.Param("id"),
		Title:           req.Title,
		ServiceDate:     *serviceDate,
		Vendor:          req.Vendor,
		Category:        req.Category,
		Notes:           req.Notes,
		ReminderEnabled: req.ReminderEnabled,
	}
	if req.Cost != nil {
		in.Cost = *req.Cost
	}
	if req.NextDueDate != nil {
		in.NextDueDate = util.ParseDate(*req.NextDueDate)
	}

	l, err := h.Svc.CreateLog(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		writeError(c, err, "failed to create maintenance log")
		return
	}
	respond.JSON(c, http.StatusCreated, ToLogResponse(l))
}

func (h *Handler) listLogs(c *gin.Context) {
	logs, err := h.Svc.ListLogs(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to list maintenance logs")
		return
	}
	resp := make([]LogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, ToLogResponse(l))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) getLog(c *gin.Context) {
	l, err := h.Svc.GetLog(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch maintenance log")
		return
	}
	respond.JSON(c, http.StatusOK, ToLogResponse(l))
}

func (h *Handler) deleteLog(c *gin.Context) {
	if err := h.Svc.DeleteLog(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete maintenance log")
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"deleted": true})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
